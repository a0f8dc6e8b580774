package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SURE-Trust/certificate-service/internal/models"
)

// SessionPostgreSQL implements SessionRepository backed by PostgreSQL
type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) *SessionPostgreSQL {
	return &SessionPostgreSQL{db: db}
}

func (r *SessionPostgreSQL) Create(ctx context.Context, session *models.Session) error {
	return translateError(r.db.WithContext(ctx).Create(session).Error)
}

func (r *SessionPostgreSQL) GetByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("refresh_token = ? AND expires_at > ?", token, time.Now()).
		First(&session).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (r *SessionPostgreSQL) DeleteByRefreshToken(ctx context.Context, token string) error {
	return translateError(r.db.WithContext(ctx).
		Where("refresh_token = ?", token).
		Delete(&models.Session{}).Error)
}

func (r *SessionPostgreSQL) DeleteByUser(ctx context.Context, userID uint) error {
	return translateError(r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Session{}).Error)
}

func (r *SessionPostgreSQL) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&models.Session{})
	return res.RowsAffected, translateError(res.Error)
}
