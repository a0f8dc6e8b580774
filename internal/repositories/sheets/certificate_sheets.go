package sheets

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// ===== SUBMISSIONS =====

type submissionSheets struct {
	repo *SheetsRepository
}

func (s *submissionSheets) Create(_ context.Context, submission *models.Submission) error {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	submission.ID = r.state.nextSubmissionID
	r.state.nextSubmissionID++
	now := time.Now()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	clone := *submission
	r.state.submissions[submission.ID] = &clone
	r.syncSubmissionRow(&clone)
	return r.save()
}

func (s *submissionSheets) GetByID(_ context.Context, id uint) (*models.Submission, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.state.submissions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *submissionSheets) UpdateStatus(_ context.Context, id uint, status models.SubmissionStatus) error {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.state.submissions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	r.syncSubmissionRow(stored)
	return r.save()
}

// ===== CERTIFICATES =====

type certificateSheets struct {
	repo *SheetsRepository
}

func (s *certificateSheets) Create(_ context.Context, cert *models.Certificate) error {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.state.certByRefNo[cert.RefNo]; exists {
		return repositories.ErrDuplicate
	}

	cert.ID = r.state.nextCertificateID
	r.state.nextCertificateID++
	now := time.Now()
	cert.CreatedAt = now
	cert.UpdatedAt = now

	clone := *cert
	r.state.certificates[cert.ID] = &clone
	r.state.certByRefNo[cert.RefNo] = cert.ID
	r.syncCertificateRow(&clone)
	return r.save()
}

func (s *certificateSheets) GetByID(_ context.Context, id uint) (*models.Certificate, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.state.certificates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *certificateSheets) GetByRefNo(_ context.Context, refNo string) (*models.Certificate, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()
	return s.getByRefNoLocked(refNo)
}

func (s *certificateSheets) getByRefNoLocked(refNo string) (*models.Certificate, error) {
	id, ok := s.repo.state.certByRefNo[refNo]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *s.repo.state.certificates[id]
	return &clone, nil
}

func (s *certificateSheets) List(_ context.Context, filters repositories.CertificateFilters) ([]*models.Certificate, int64, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Certificate
	for _, cert := range r.state.certificates {
		if !matchesFilters(cert, filters) {
			continue
		}
		clone := *cert
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		if filters.SortOrder == "asc" || filters.SortOrder == "ASC" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func matchesFilters(cert *models.Certificate, filters repositories.CertificateFilters) bool {
	if filters.Type != nil && cert.CertificateType != *filters.Type {
		return false
	}
	if filters.IsActive != nil && cert.IsActive != *filters.IsActive {
		return false
	}
	if filters.UserID != nil && (cert.UserID == nil || *cert.UserID != *filters.UserID) {
		return false
	}
	if filters.Batch != nil && cert.Batch != *filters.Batch {
		return false
	}
	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		if !strings.Contains(strings.ToLower(cert.HolderName), needle) &&
			!strings.Contains(strings.ToLower(cert.Course), needle) &&
			!strings.Contains(strings.ToLower(cert.RefNo), needle) {
			return false
		}
	}
	if filters.DateFrom != nil && cert.CreatedAt.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && cert.CreatedAt.After(*filters.DateTo) {
		return false
	}
	return true
}

func (s *certificateSheets) ExistsByRefNo(_ context.Context, refNo string) (bool, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.state.certByRefNo[refNo]
	return ok, nil
}

func (s *certificateSheets) SetActive(_ context.Context, id uint, active bool) error {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.state.certificates[id]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.IsActive = active
	stored.UpdatedAt = time.Now()
	r.syncCertificateRow(stored)
	return r.save()
}

func (s *certificateSheets) ClaimForUser(_ context.Context, refNo string, userID uint) error {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.state.certByRefNo[refNo]
	if !ok {
		return repositories.ErrNotFound
	}
	stored := r.state.certificates[id]
	if stored.UserID != nil {
		if *stored.UserID == userID {
			return nil // already claimed by this user, idempotent
		}
		return repositories.ErrDuplicate
	}
	if !stored.IsActive {
		return repositories.ErrNotFound
	}
	uid := userID
	stored.UserID = &uid
	stored.UpdatedAt = time.Now()
	r.syncCertificateRow(stored)
	return r.save()
}

// IncrementVerification is atomic by virtue of the repository mutex.
func (s *certificateSheets) IncrementVerification(_ context.Context, refNo string, at time.Time) (*models.Certificate, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.state.certByRefNo[refNo]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	stored := r.state.certificates[id]
	if !stored.IsActive {
		return nil, repositories.ErrNotFound
	}

	stored.VerificationCount++
	verifiedAt := at
	stored.LastVerifiedAt = &verifiedAt
	stored.UpdatedAt = at
	r.syncCertificateRow(stored)
	if err := r.save(); err != nil {
		return nil, err
	}
	clone := *stored
	return &clone, nil
}

func (s *certificateSheets) Stats(_ context.Context) (*repositories.CertificateStats, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &repositories.CertificateStats{
		ByType: make(map[models.CertificateType]int64),
	}
	cutoff := time.Now().AddDate(0, 0, -30)
	for _, cert := range r.state.certificates {
		stats.TotalCertificates++
		if cert.IsActive {
			stats.ActiveCertificates++
		}
		stats.TotalVerifications += cert.VerificationCount
		stats.ByType[cert.CertificateType]++
		if cert.CreatedAt.After(cutoff) {
			stats.IssuedLast30Days++
		}
	}
	return stats, nil
}

// Delete deactivates the record. Workbook rows are never removed so the
// audit trail and row positions stay intact.
func (s *certificateSheets) Delete(ctx context.Context, id uint) error {
	return s.SetActive(ctx, id, false)
}

// ===== VERIFICATION LOGS =====

type verificationLogSheets struct {
	repo *SheetsRepository
}

func (s *verificationLogSheets) Create(_ context.Context, entry *models.VerificationLog) error {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.state.nextLogID
	r.state.nextLogID++
	entry.CreatedAt = time.Now()

	clone := *entry
	r.state.logs = append(r.state.logs, &clone)
	r.syncVerificationLogRow(&clone)
	return r.save()
}

func (s *verificationLogSheets) List(_ context.Context, filters repositories.VerificationLogFilters) ([]*models.VerificationLog, int64, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.VerificationLog
	for _, entry := range r.state.logs {
		if filters.RefNo != nil && entry.RefNo != *filters.RefNo {
			continue
		}
		if filters.Status != nil && entry.Status != *filters.Status {
			continue
		}
		if filters.DateFrom != nil && entry.CreatedAt.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && entry.CreatedAt.After(*filters.DateTo) {
			continue
		}
		clone := *entry
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (s *verificationLogSheets) CountByRefNo(_ context.Context, refNo string) (int64, error) {
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, entry := range r.state.logs {
		if entry.RefNo == refNo {
			count++
		}
	}
	return count, nil
}
