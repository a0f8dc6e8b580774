package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/certgen"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/utils"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	refNoAttempts   = 5
)

type certificateService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	publisher events.EventPublisher
	composer  *certgen.Composer
	artifacts *certgen.ArtifactStore
	validator *validator.Validator
	logger    *slog.Logger

	verificationBaseURL string
	templateDir         string
	now                 func() time.Time
}

func NewCertificateService(
	repo repositories.Repository,
	cacheManager *cache.CacheManager,
	publisher events.EventPublisher,
	composer *certgen.Composer,
	artifacts *certgen.ArtifactStore,
	v *validator.Validator,
	logger *slog.Logger,
	verificationBaseURL, templateDir string,
) CertificateService {
	return &certificateService{
		repo:                repo,
		cache:               cacheManager,
		publisher:           publisher,
		composer:            composer,
		artifacts:           artifacts,
		validator:           v,
		logger:              logger,
		verificationBaseURL: verificationBaseURL,
		templateDir:         templateDir,
		now:                 time.Now,
	}
}

// Generate runs the full issuance pipeline for one raw form payload.
// The submission row is written first so failed generations stay auditable
// with status failed.
func (s *certificateService) Generate(ctx context.Context, rawFields map[string]any) (*CertificateResponse, error) {
	fields := utils.NormalizeFields(rawFields)
	certType := parseCertificateType(fieldString(fields, "certificate_type"))

	if errs := s.validator.GetBusinessValidator().ValidateSubmissionFields(certType, fields); len(errs) > 0 {
		return nil, errs
	}

	submission := buildSubmission(certType, fields)
	if err := s.validator.ValidateStruct(submission); err != nil {
		return nil, err
	}

	if err := s.repo.Submissions().Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	cert, template, err := s.issueCertificate(ctx, certType, submission)
	if err != nil {
		s.markFailed(ctx, submission.ID)
		return nil, err
	}

	cache.InvalidateCertificateCache(ctx, s.cache, cert.ID, cert.RefNo)

	event := events.NewEvent(events.EventCertificateIssued, events.CertificateIssuedEvent{
		CertificateID:   cert.ID,
		RefNo:           cert.RefNo,
		HolderName:      cert.HolderName,
		HolderEmail:     submission.Email,
		Course:          cert.Course,
		VerificationURL: cert.VerificationURL,
		PDFPath:         cert.PDFPath,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish certificate.issued", "error", err, "ref_no", cert.RefNo)
	}

	s.logger.Info("certificate issued",
		"ref_no", cert.RefNo,
		"type", cert.CertificateType,
		"holder", cert.HolderName,
		"template", template.Filename,
		"template_found", template.Exists)

	qr, err := certgen.EncodeQRDataURL(cert.VerificationURL)
	if err != nil {
		s.logger.Warn("qr preview encoding failed", "error", err, "ref_no", cert.RefNo)
	}
	return &CertificateResponse{Certificate: cert, QRCodeDataURL: qr}, nil
}

func (s *certificateService) GetByID(ctx context.Context, id uint) (*CertificateResponse, error) {
	var cert models.Certificate
	err := s.cache.Certificate.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &cert,
		cache.CertificateCacheConfig.TTL, func() (interface{}, error) {
			got, err := s.repo.Certificates().GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return got, nil
		})
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("get certificate %d: %w", id, err)
	}
	return &CertificateResponse{Certificate: &cert}, nil
}

func (s *certificateService) GetByRefNo(ctx context.Context, refNo string) (*CertificateResponse, error) {
	var cert models.Certificate
	err := s.cache.Certificate.CacheOrExecute(ctx, "ref:"+refNo, &cert,
		cache.CertificateCacheConfig.TTL, func() (interface{}, error) {
			got, err := s.repo.Certificates().GetByRefNo(ctx, refNo)
			if err != nil {
				return nil, err
			}
			return got, nil
		})
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("get certificate %s: %w", refNo, err)
	}
	return &CertificateResponse{Certificate: &cert}, nil
}

func (s *certificateService) List(ctx context.Context, req *ListCertificatesRequest) (*CertificateListResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	page, size := normalizePage(req.Page, req.Size)
	filters := repositories.CertificateFilters{
		IsActive:  req.IsActive,
		Search:    strings.TrimSpace(req.Search),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Type != "" {
		t := models.CertificateType(req.Type)
		filters.Type = &t
	}
	if req.Batch != "" {
		filters.Batch = &req.Batch
	}

	certs, total, err := s.repo.Certificates().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return &CertificateListResponse{Certificates: certs, Total: total, Page: page, Size: size}, nil
}

func (s *certificateService) Deactivate(ctx context.Context, id uint) error {
	return s.setActive(ctx, id, false, events.EventCertificateRevoked)
}

func (s *certificateService) Reactivate(ctx context.Context, id uint) error {
	return s.setActive(ctx, id, true, "")
}

func (s *certificateService) setActive(ctx context.Context, id uint, active bool, eventType string) error {
	cert, err := s.repo.Certificates().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrCertificateNotFound
		}
		return fmt.Errorf("get certificate %d: %w", id, err)
	}

	if cert.IsActive == active {
		return nil
	}
	if err := s.repo.Certificates().SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set certificate %d active=%t: %w", id, active, err)
	}
	cache.InvalidateCertificateCache(ctx, s.cache, cert.ID, cert.RefNo)

	if eventType != "" {
		event := events.NewEvent(eventType, map[string]any{"certificate_id": id, "ref_no": cert.RefNo})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish certificate event", "error", err, "type", eventType)
		}
	}
	s.logger.Info("certificate active flag changed", "id", id, "ref_no", cert.RefNo, "active", active)
	return nil
}

func (s *certificateService) ArtifactPath(ctx context.Context, id uint, kind string) (string, error) {
	cert, err := s.repo.Certificates().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return "", ErrCertificateNotFound
		}
		return "", fmt.Errorf("get certificate %d: %w", id, err)
	}

	var rel string
	switch kind {
	case "pdf":
		rel = cert.PDFPath
	case "image":
		rel = cert.ImagePath
	default:
		return "", validator.ValidationErrors{{Field: "kind", Message: "must be one of: pdf image"}}
	}
	if rel == "" {
		return "", ErrCertificateNotFound
	}
	return s.artifacts.Open(rel)
}

// issueCertificate renders and stores the certificate under a unique
// reference code, retrying with a nudged timestamp so the 4-digit suffix
// moves on collision. A collision consumes one of the bounded attempts
// whether the pre-check catches it or the unique index first surfaces it
// at insert time (two concurrent generations can pass the pre-check with
// the same code). Exhausting the attempts means the suffix space for this
// course and batch is saturated.
func (s *certificateService) issueCertificate(ctx context.Context, certType models.CertificateType, submission *models.Submission) (*models.Certificate, certgen.TemplateInfo, error) {
	template := certgen.CheckExists(certgen.ResolveTemplate(submission.CourseName), s.templateDir)

	for i := 0; i < refNoAttempts; i++ {
		refNo := certgen.NewRefNo(string(certType), submission.CourseName, submission.BatchInitials, s.now().Add(time.Duration(i)*time.Millisecond))
		exists, err := s.repo.Certificates().ExistsByRefNo(ctx, refNo)
		if err != nil {
			return nil, template, fmt.Errorf("check reference code: %w", err)
		}
		if exists {
			continue
		}
		verificationURL := certgen.VerificationURL(s.verificationBaseURL, refNo)

		doc := certgen.Document{
			HolderName:      submission.FullName,
			CourseName:      submission.CourseName,
			CertificateType: string(certType),
			RefNo:           refNo,
			VerificationURL: verificationURL,
			StartDate:       submission.StartDate,
			EndDate:         submission.EndDate,
			GPA:             gpaString(submission.GPA),
			Template:        template,
		}

		pdfBytes, err := s.composer.ComposePDF(doc)
		if err != nil {
			return nil, template, fmt.Errorf("compose pdf: %w", err)
		}
		svgBytes := certgen.ComposeSVG(doc)

		pdfPath, imgPath, err := s.artifacts.Save(refNo, pdfBytes, svgBytes)
		if err != nil {
			return nil, template, fmt.Errorf("store artifacts: %w", err)
		}

		cert := &models.Certificate{
			RefNo:           refNo,
			VerificationURL: verificationURL,
			CertificateType: certType,
			HolderName:      submission.FullName,
			Course:          submission.CourseName,
			Batch:           submission.BatchInitials,
			StartDate:       submission.StartDate,
			EndDate:         submission.EndDate,
			GPA:             submission.GPA,
			IssueDate:       s.now(),
			TemplateFile:    template.Filename,
			PDFPath:         pdfPath,
			ImagePath:       imgPath,
			IsActive:        true,
			SubmissionID:    submission.ID,
		}

		err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			if err := tx.Certificates().Create(ctx, cert); err != nil {
				return err
			}
			return tx.Submissions().UpdateStatus(ctx, submission.ID, models.SubmissionGenerated)
		})
		if err != nil {
			s.artifacts.Remove(refNo)
			if repositories.IsDuplicate(err) {
				s.logger.Warn("reference code collided at insert, retrying", "ref_no", refNo)
				continue
			}
			return nil, template, fmt.Errorf("store certificate: %w", err)
		}
		return cert, template, nil
	}
	return nil, template, ErrRefNoCollision
}

func (s *certificateService) markFailed(ctx context.Context, submissionID uint) {
	if err := s.repo.Submissions().UpdateStatus(ctx, submissionID, models.SubmissionFailed); err != nil {
		s.logger.Error("failed to mark submission failed", "error", err, "submission_id", submissionID)
	}
}

// ===== FIELD PARSING =====

func parseCertificateType(raw string) models.CertificateType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trainer":
		return models.TypeTrainer
	case "trainee":
		return models.TypeTrainee
	case "", "student":
		return models.TypeStudent
	default:
		return models.CertificateType(strings.ToLower(strings.TrimSpace(raw)))
	}
}

func buildSubmission(t models.CertificateType, fields map[string]any) *models.Submission {
	sub := &models.Submission{
		CertificateType: t,
		FullName:        strings.TrimSpace(fieldString(fields, "full_name")),
		Email:           strings.ToLower(strings.TrimSpace(fieldString(fields, "email_address"))),
		Phone:           fieldStringPtr(fields, "phone"),
		CourseName:      strings.TrimSpace(fieldString(fields, "course_name")),
		BatchInitials:   strings.TrimSpace(fieldString(fields, "batch_initials")),
		BatchName:       fieldStringPtr(fields, "batch_name"),
		StartDate:       fieldDate(fields, "start_date", "training_start_date"),
		EndDate:         fieldDate(fields, "end_date", "training_end_date"),
		GPA:             fieldFloat(fields, "gpa"),
		AttendancePct:   fieldFloat(fields, "attendance_percentage"),
		AssessmentScore: fieldFloat(fields, "assessment_score"),
		TrainingHours:   fieldFloat(fields, "training_hours"),
		TrainingType:    fieldStringPtr(fields, "training_type"),
		Status:          models.SubmissionPending,
	}

	known := map[string]bool{
		"certificate_type": true, "full_name": true, "email_address": true,
		"phone": true, "course_name": true, "batch_initials": true,
		"batch_name": true, "start_date": true, "end_date": true,
		"training_start_date": true, "training_end_date": true,
		"gpa": true, "attendance_percentage": true, "assessment_score": true,
		"training_hours": true, "training_type": true,
	}
	extra := datatypes.JSONMap{}
	for k, v := range fields {
		if !known[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		sub.ExtraFields = extra
	}
	return sub
}

func fieldString(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fieldStringPtr(fields map[string]any, key string) *string {
	s := strings.TrimSpace(fieldString(fields, key))
	if s == "" {
		return nil
	}
	return &s
}

func fieldFloat(fields map[string]any, key string) *float64 {
	switch v := fields[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f
		}
	}
	return nil
}

// Accepted date layouts, most common first. Form exports use a mix of ISO
// dates and locale day/month formats.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"1/2/2006",
	"January 2, 2006",
}

func fieldDate(fields map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		raw := strings.TrimSpace(fieldString(fields, key))
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return &ts
			}
		}
	}
	return nil
}

func gpaString(gpa *float64) string {
	if gpa == nil {
		return ""
	}
	return strconv.FormatFloat(*gpa, 'f', -1, 64)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
