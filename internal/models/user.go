package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// User is an account holder. Local and Google identities are mutually
// exclusive: PasswordHash is set only for ProviderLocal, GoogleID only for
// ProviderGoogle. Accounts are soft-deleted by anonymizing the email and
// clearing the credential so owned certificates keep a valid owner row.
type User struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	Email     string  `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	FirstName string  `json:"first_name" gorm:"not null;size:100"`
	LastName  string  `json:"last_name" gorm:"not null;size:100"`
	Role      UserRole `json:"role" gorm:"default:user;size:20"`

	PasswordHash *string      `json:"-" gorm:"size:255"`
	GoogleID     *string      `json:"-" gorm:"index;size:255"`
	AuthProvider AuthProvider `json:"auth_provider" gorm:"default:local;size:20"`

	IsVerified  bool       `json:"is_verified" gorm:"default:false"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	VerifiedAt  *time.Time `json:"verified_at"`
	LastLoginAt *time.Time `json:"last_login_at"`

	AvatarURL *string `json:"avatar_url" gorm:"size:500"`
	Bio       *string `json:"bio" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Session stores an opaque refresh token. Rotated on every refresh; deleted
// on logout and password reset.
type Session struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	RefreshToken string    `json:"-" gorm:"uniqueIndex;not null;size:64"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (Session) TableName() string {
	return "user_sessions"
}

type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// EmailToken is a single-use expiring token for email verification and
// password reset flows.
type EmailToken struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	UserID     uint         `json:"user_id" gorm:"not null;index"`
	Token      string       `json:"-" gorm:"uniqueIndex;not null;size:64"`
	Purpose    TokenPurpose `json:"purpose" gorm:"not null;size:30;index"`
	ExpiresAt  time.Time    `json:"expires_at" gorm:"not null"`
	ConsumedAt *time.Time   `json:"consumed_at"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (EmailToken) TableName() string {
	return "email_tokens"
}
