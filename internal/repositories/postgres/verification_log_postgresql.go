package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// VerificationLogPostgreSQL implements VerificationLogRepository backed by PostgreSQL
type VerificationLogPostgreSQL struct {
	db *gorm.DB
}

func NewVerificationLogPostgreSQL(db *gorm.DB) *VerificationLogPostgreSQL {
	return &VerificationLogPostgreSQL{db: db}
}

func (r *VerificationLogPostgreSQL) Create(ctx context.Context, entry *models.VerificationLog) error {
	return translateError(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *VerificationLogPostgreSQL) List(ctx context.Context, filters repositories.VerificationLogFilters) ([]*models.VerificationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.VerificationLog{})

	if filters.RefNo != nil {
		query = query.Where("ref_no = ?", *filters.RefNo)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var entries []*models.VerificationLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return entries, total, nil
}

func (r *VerificationLogPostgreSQL) CountByRefNo(ctx context.Context, refNo string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VerificationLog{}).
		Where("ref_no = ?", refNo).
		Count(&count).Error
	return count, translateError(err)
}
