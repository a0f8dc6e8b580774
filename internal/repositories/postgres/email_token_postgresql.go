package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SURE-Trust/certificate-service/internal/models"
)

// EmailTokenPostgreSQL implements EmailTokenRepository backed by PostgreSQL
type EmailTokenPostgreSQL struct {
	db *gorm.DB
}

func NewEmailTokenPostgreSQL(db *gorm.DB) *EmailTokenPostgreSQL {
	return &EmailTokenPostgreSQL{db: db}
}

func (r *EmailTokenPostgreSQL) Create(ctx context.Context, token *models.EmailToken) error {
	return translateError(r.db.WithContext(ctx).Create(token).Error)
}

func (r *EmailTokenPostgreSQL) GetValid(ctx context.Context, token string, purpose models.TokenPurpose) (*models.EmailToken, error) {
	var record models.EmailToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND purpose = ? AND consumed_at IS NULL AND expires_at > ?",
			token, purpose, time.Now()).
		First(&record).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &record, nil
}

func (r *EmailTokenPostgreSQL) Consume(ctx context.Context, id uint) error {
	return translateError(r.db.WithContext(ctx).
		Model(&models.EmailToken{}).
		Where("id = ?", id).
		Update("consumed_at", time.Now()).Error)
}

func (r *EmailTokenPostgreSQL) DeleteByUser(ctx context.Context, userID uint, purpose models.TokenPurpose) error {
	return translateError(r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&models.EmailToken{}).Error)
}

func (r *EmailTokenPostgreSQL) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&models.EmailToken{})
	return res.RowsAffected, translateError(res.Error)
}
