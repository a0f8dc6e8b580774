package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// CertificatePostgreSQL implements CertificateRepository backed by PostgreSQL
type CertificatePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCertificatePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) *CertificatePostgreSQL {
	return &CertificatePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (r *CertificatePostgreSQL) Create(ctx context.Context, cert *models.Certificate) error {
	return translateError(r.db.WithContext(ctx).Create(cert).Error)
}

func (r *CertificatePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Certificate, error) {
	var cert models.Certificate
	if err := r.db.WithContext(ctx).First(&cert, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &cert, nil
}

func (r *CertificatePostgreSQL) GetByRefNo(ctx context.Context, refNo string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := r.db.WithContext(ctx).Where("ref_no = ?", refNo).First(&cert).Error; err != nil {
		return nil, translateError(err)
	}
	return &cert, nil
}

func (r *CertificatePostgreSQL) List(ctx context.Context, filters repositories.CertificateFilters) ([]*models.Certificate, int64, error) {
	query := r.helpers.ApplyCertificateFilters(
		r.db.WithContext(ctx).Model(&models.Certificate{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var certs []*models.Certificate
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&certs).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return certs, total, nil
}

func (r *CertificatePostgreSQL) ExistsByRefNo(ctx context.Context, refNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("ref_no = ?", refNo).
		Count(&count).Error
	return count > 0, translateError(err)
}

func (r *CertificatePostgreSQL) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ClaimForUser links an unowned active certificate to an account. The
// user_id guard makes concurrent claims race-safe: only one update can
// match the NULL owner row. Revoked certificates never match.
func (r *CertificatePostgreSQL) ClaimForUser(ctx context.Context, refNo string, userID uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("ref_no = ? AND user_id IS NULL AND is_active = ?", refNo, true).
		Update("user_id", userID)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		cert, err := r.GetByRefNo(ctx, refNo)
		if err != nil {
			return err
		}
		if cert.UserID != nil {
			if *cert.UserID == userID {
				return nil // already claimed by this user, idempotent
			}
			return repositories.ErrDuplicate
		}
		// Unowned but inactive: same contract as verification lookups.
		return repositories.ErrNotFound
	}
	return nil
}

// IncrementVerification bumps the counter with a single UPDATE expression
// so concurrent verifications never lose updates. Inactive and unknown
// codes both report ErrNotFound.
func (r *CertificatePostgreSQL) IncrementVerification(ctx context.Context, refNo string, at time.Time) (*models.Certificate, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("ref_no = ? AND is_active = ?", refNo, true).
		Updates(map[string]interface{}{
			"verification_count": gorm.Expr("verification_count + 1"),
			"last_verified_at":   at,
		})
	if res.Error != nil {
		return nil, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, repositories.ErrNotFound
	}
	return r.GetByRefNo(ctx, refNo)
}

func (r *CertificatePostgreSQL) Stats(ctx context.Context) (*repositories.CertificateStats, error) {
	stats := &repositories.CertificateStats{
		ByType: make(map[models.CertificateType]int64),
	}

	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).Count(&stats.TotalCertificates).Error; err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("is_active = ?", true).
		Count(&stats.ActiveCertificates).Error; err != nil {
		return nil, translateError(err)
	}

	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Select("COALESCE(SUM(verification_count), 0)").
		Scan(&stats.TotalVerifications).Error; err != nil {
		return nil, translateError(err)
	}

	rows := []struct {
		CertificateType models.CertificateType
		Count           int64
	}{}
	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Select("certificate_type, COUNT(*) as count").
		Group("certificate_type").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	for _, row := range rows {
		stats.ByType[row.CertificateType] = row.Count
	}

	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("created_at >= ?", time.Now().AddDate(0, 0, -30)).
		Count(&stats.IssuedLast30Days).Error; err != nil {
		return nil, translateError(err)
	}

	return stats, nil
}

func (r *CertificatePostgreSQL) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Certificate{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
