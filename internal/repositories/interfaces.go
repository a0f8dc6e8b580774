package repositories

import (
	"context"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type UserFilters struct {
	Query     string           `json:"query"` // name or email search
	Role      *models.UserRole `json:"role"`
	IsActive  *bool            `json:"is_active"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	SortBy    string           `json:"sort_by"`
	SortOrder string           `json:"sort_order"`
}

type CertificateFilters struct {
	Type      *models.CertificateType `json:"type"`
	IsActive  *bool                   `json:"is_active"`
	UserID    *uint                   `json:"user_id"`
	Batch     *string                 `json:"batch"`
	Search    string                  `json:"search"` // holder name, course or ref_no
	DateFrom  *time.Time              `json:"date_from"`
	DateTo    *time.Time              `json:"date_to"`
	Limit     int                     `json:"limit"`
	Offset    int                     `json:"offset"`
	SortBy    string                  `json:"sort_by"`    // "created_at", "issue_date", "holder_name"
	SortOrder string                  `json:"sort_order"` // "asc", "desc"
}

type VerificationLogFilters struct {
	RefNo    *string                    `json:"ref_no"`
	Status   *models.VerificationStatus `json:"status"`
	DateFrom *time.Time                 `json:"date_from"`
	DateTo   *time.Time                 `json:"date_to"`
	Limit    int                        `json:"limit"`
	Offset   int                        `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type CertificateStats struct {
	TotalCertificates  int64                            `json:"total_certificates"`
	ActiveCertificates int64                            `json:"active_certificates"`
	TotalVerifications int64                            `json:"total_verifications"`
	ByType             map[models.CertificateType]int64 `json:"by_type"`
	IssuedLast30Days   int64                            `json:"issued_last_30_days"`
}

type UserStats struct {
	TotalUsers    int64 `json:"total_users"`
	VerifiedUsers int64 `json:"verified_users"`
	ActiveUsers   int64 `json:"active_users"`
}

// ===== DOMAIN REPOSITORY INTERFACES =====

// UserRepository owns account records. Soft deletion anonymizes rather
// than removes, preserving certificate ownership references.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Anonymize soft-deletes an account: the email is replaced with a
	// placeholder and the credential is nulled.
	Anonymize(ctx context.Context, id uint, placeholderEmail string) error

	Stats(ctx context.Context) (*UserStats, error)
}

// SessionRepository stores opaque refresh tokens server-side.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByRefreshToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// EmailTokenRepository stores one-shot email verification and password
// reset tokens.
type EmailTokenRepository interface {
	Create(ctx context.Context, token *models.EmailToken) error
	GetValid(ctx context.Context, token string, purpose models.TokenPurpose) (*models.EmailToken, error)
	Consume(ctx context.Context, id uint) error
	DeleteByUser(ctx context.Context, userID uint, purpose models.TokenPurpose) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	UpdateStatus(ctx context.Context, id uint, status models.SubmissionStatus) error
}

// CertificateRepository owns issued certificate records. Reference code
// and verification URL are immutable after Create; IncrementVerification
// must be atomic under concurrent calls for the same code.
type CertificateRepository interface {
	Create(ctx context.Context, cert *models.Certificate) error
	GetByID(ctx context.Context, id uint) (*models.Certificate, error)
	GetByRefNo(ctx context.Context, refNo string) (*models.Certificate, error)
	List(ctx context.Context, filters CertificateFilters) ([]*models.Certificate, int64, error)
	ExistsByRefNo(ctx context.Context, refNo string) (bool, error)
	SetActive(ctx context.Context, id uint, active bool) error

	// ClaimForUser links an unowned certificate to an account. Claiming a
	// certificate already owned by someone else returns ErrDuplicate.
	ClaimForUser(ctx context.Context, refNo string, userID uint) error

	// IncrementVerification atomically bumps the counter of an active
	// certificate and stamps last_verified_at, returning the updated
	// record. ErrNotFound covers both unknown and inactive codes.
	IncrementVerification(ctx context.Context, refNo string, at time.Time) (*models.Certificate, error)

	Stats(ctx context.Context) (*CertificateStats, error)
	Delete(ctx context.Context, id uint) error
}

// VerificationLogRepository is append-only; entries are never mutated.
type VerificationLogRepository interface {
	Create(ctx context.Context, entry *models.VerificationLog) error
	List(ctx context.Context, filters VerificationLogFilters) ([]*models.VerificationLog, int64, error)
	CountByRefNo(ctx context.Context, refNo string) (int64, error)
}
