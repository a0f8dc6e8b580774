package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

type verificationService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewVerificationService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
) VerificationService {
	return &verificationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Verify counts the attempt first, then snapshots the updated record. An
// unknown or revoked code is a normal negative result, never an error; the
// counter-and-stamp update is a single atomic store operation so concurrent
// verifications of the same code never lose increments.
func (s *verificationService) Verify(ctx context.Context, code string, meta ClientMeta) (*VerificationResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validator.ValidationErrors{{Field: "code", Message: "is required"}}
	}

	cert, err := s.repo.Certificates().IncrementVerification(ctx, code, s.now())
	if err != nil {
		if repositories.IsNotFound(err) {
			s.logAttempt(ctx, nil, code, meta, models.VerificationNotFound)
			return &VerificationResponse{
				Verified: false,
				RefNo:    code,
				Message:  "no active certificate matches this reference code",
			}, nil
		}
		return nil, fmt.Errorf("verify %s: %w", code, err)
	}

	s.logAttempt(ctx, &cert.ID, code, meta, models.VerificationSuccess)

	event := events.NewEvent(events.EventCertificateVerified, events.CertificateVerifiedEvent{
		RefNo:             cert.RefNo,
		Verified:          true,
		VerificationCount: cert.VerificationCount,
		IPAddress:         meta.IPAddress,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish certificate.verified", "error", err, "ref_no", cert.RefNo)
	}

	return &VerificationResponse{
		Verified:          true,
		RefNo:             cert.RefNo,
		HolderName:        cert.HolderName,
		Course:            cert.Course,
		Batch:             cert.Batch,
		CertificateType:   cert.CertificateType,
		IssueDate:         &cert.IssueDate,
		StartDate:         cert.StartDate,
		EndDate:           cert.EndDate,
		VerificationCount: cert.VerificationCount,
		LastVerifiedAt:    cert.LastVerifiedAt,
	}, nil
}

// logAttempt appends one audit row. A failed audit write is logged loudly
// but does not turn a completed verification into an error for the caller.
func (s *verificationService) logAttempt(ctx context.Context, certificateID *uint, code string, meta ClientMeta, status models.VerificationStatus) {
	entry := &models.VerificationLog{
		CertificateID: certificateID,
		RefNo:         code,
		Status:        status,
	}
	if meta.IPAddress != "" {
		entry.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		entry.UserAgent = &meta.UserAgent
	}

	if err := s.repo.VerificationLogs().Create(ctx, entry); err != nil {
		s.logger.Error("failed to write verification log", "error", err, "ref_no", code, "status", status)
	}
}
