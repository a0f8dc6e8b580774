package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

type claimService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewClaimService(
	repo repositories.Repository,
	cacheManager *cache.CacheManager,
	publisher events.EventPublisher,
	logger *slog.Logger,
) ClaimService {
	return &claimService{
		repo:      repo,
		cache:     cacheManager,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *claimService) Status(ctx context.Context, refNo string) (*ClaimStatusResponse, error) {
	var resp ClaimStatusResponse
	err := s.cache.Verification.CacheOrExecute(ctx, "claim:"+refNo, &resp,
		cache.VerificationCacheConfig.TTL, func() (interface{}, error) {
			cert, err := s.repo.Certificates().GetByRefNo(ctx, refNo)
			if err != nil {
				return nil, err
			}
			return &ClaimStatusResponse{
				RefNo:      cert.RefNo,
				Claimable:  cert.UserID == nil && cert.IsActive,
				Claimed:    cert.UserID != nil,
				HolderName: cert.HolderName,
				Course:     cert.Course,
			}, nil
		})
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("claim status %s: %w", refNo, err)
	}
	return &resp, nil
}

// Claim links a certificate to the calling account. Only active
// certificates are claimable; ownership requires the account email to
// match the email the certificate was submitted with, and claiming is
// first-wins but idempotent for the winner.
func (s *claimService) Claim(ctx context.Context, refNo string, userID uint) (*CertificateResponse, error) {
	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	cert, err := s.repo.Certificates().GetByRefNo(ctx, refNo)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("lookup certificate: %w", err)
	}
	if !cert.IsActive {
		return nil, ErrCertificateRevoked
	}

	submission, err := s.repo.Submissions().GetByID(ctx, cert.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("lookup submission: %w", err)
	}
	if !strings.EqualFold(submission.Email, user.Email) {
		return nil, ErrClaimEmailMismatch
	}

	if err := s.repo.Certificates().ClaimForUser(ctx, refNo, userID); err != nil {
		if repositories.IsDuplicate(err) {
			return nil, ErrAlreadyClaimed
		}
		if repositories.IsNotFound(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("claim certificate: %w", err)
	}

	cache.InvalidateCertificateCache(ctx, s.cache, cert.ID, cert.RefNo)
	cache.SafeDelete(ctx, s.cache.Verification, "claim:"+refNo)

	event := events.NewEvent(events.EventCertificateClaimed, events.CertificateClaimedEvent{
		RefNo:  refNo,
		UserID: userID,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish certificate.claimed", "error", err, "ref_no", refNo)
	}
	s.logger.Info("certificate claimed", "ref_no", refNo, "user_id", userID)

	claimed, err := s.repo.Certificates().GetByRefNo(ctx, refNo)
	if err != nil {
		return nil, fmt.Errorf("reload certificate: %w", err)
	}
	return &CertificateResponse{Certificate: claimed}, nil
}
