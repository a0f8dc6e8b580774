package services

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// ===== SHARED DTOs =====

// ClientMeta carries request-level context the audit trail records.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type CertificateResponse struct {
	*models.Certificate
	QRCodeDataURL string `json:"qr_code_data_url,omitempty"`
}

type CertificateListResponse struct {
	Certificates []*models.Certificate `json:"certificates"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	Size         int                   `json:"size"`
}

type ListCertificatesRequest struct {
	Type      string `json:"type" validate:"omitempty,oneof=student trainer trainee"`
	Batch     string `json:"batch"`
	Search    string `json:"search"`
	IsActive  *bool  `json:"is_active"`
	Page      int    `json:"page"`
	Size      int    `json:"size"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// VerificationResponse is the public verification result. Verified false
// with a message is a normal outcome, not an error.
type VerificationResponse struct {
	Verified          bool                   `json:"verified"`
	RefNo             string                 `json:"ref_no"`
	Message           string                 `json:"message,omitempty"`
	HolderName        string                 `json:"holder_name,omitempty"`
	Course            string                 `json:"course,omitempty"`
	Batch             string                 `json:"batch,omitempty"`
	CertificateType   models.CertificateType `json:"certificate_type,omitempty"`
	IssueDate         *time.Time             `json:"issue_date,omitempty"`
	StartDate         *time.Time             `json:"start_date,omitempty"`
	EndDate           *time.Time             `json:"end_date,omitempty"`
	VerificationCount int64                  `json:"verification_count,omitempty"`
	LastVerifiedAt    *time.Time             `json:"last_verified_at,omitempty"`
}

// ===== AUTH DTOs =====

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthResponse struct {
	User   *models.User `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// ===== CLAIM DTOs =====

type ClaimStatusResponse struct {
	RefNo      string `json:"ref_no"`
	Claimable  bool   `json:"claimable"`
	Claimed    bool   `json:"claimed"`
	HolderName string `json:"holder_name"`
	Course     string `json:"course"`
}

// ===== ADMIN DTOs =====

type ListUsersRequest struct {
	Query     string `json:"query"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive  *bool  `json:"is_active"`
	Page      int    `json:"page"`
	Size      int    `json:"size"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type AdminUpdateUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool   `json:"is_active"`
}

type DashboardResponse struct {
	Users               *repositories.UserStats        `json:"users"`
	Certificates        *repositories.CertificateStats `json:"certificates"`
	RecentVerifications []*models.VerificationLog      `json:"recent_verifications"`
}

type VerificationLogListRequest struct {
	RefNo    string     `json:"ref_no"`
	Status   string     `json:"status" validate:"omitempty,oneof=success not_found"`
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
	Page     int        `json:"page"`
	Size     int        `json:"size"`
}

type VerificationLogListResponse struct {
	Logs  []*models.VerificationLog `json:"logs"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Size  int                       `json:"size"`
}

// ===== SERVICE INTERFACES =====

// CertificateService owns the issuance pipeline: normalize the raw form
// payload, validate it, derive a unique reference code, render the
// artifacts and persist the record.
type CertificateService interface {
	Generate(ctx context.Context, rawFields map[string]any) (*CertificateResponse, error)
	GetByID(ctx context.Context, id uint) (*CertificateResponse, error)
	GetByRefNo(ctx context.Context, refNo string) (*CertificateResponse, error)
	List(ctx context.Context, req *ListCertificatesRequest) (*CertificateListResponse, error)

	// Deactivate revokes a certificate. The record stays retrievable; only
	// public verification starts failing.
	Deactivate(ctx context.Context, id uint) error
	Reactivate(ctx context.Context, id uint) error

	// ArtifactPath resolves the on-disk location of a stored artifact.
	// kind is "pdf" or "image".
	ArtifactPath(ctx context.Context, id uint, kind string) (string, error)
}

// VerificationService handles the public verification endpoint. Every
// attempt is counted and logged, including lookups of unknown codes.
type VerificationService interface {
	Verify(ctx context.Context, code string, meta ClientMeta) (*VerificationResponse, error)
}

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	LoginWithGoogle(ctx context.Context, req *GoogleLoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) error

	// ParseAccessToken validates a bearer token and returns its claims.
	// Used by the auth middleware.
	ParseAccessToken(token string) (*AccessClaims, error)
}

// ClaimService links issued certificates to registered accounts. A claim
// succeeds only when the authenticated user's email matches the email the
// certificate was issued to.
type ClaimService interface {
	Status(ctx context.Context, refNo string) (*ClaimStatusResponse, error)
	Claim(ctx context.Context, refNo string, userID uint) (*CertificateResponse, error)
}

type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID uint, avatarURL string) error
	ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error
	ListCertificates(ctx context.Context, userID uint, page, size int) (*CertificateListResponse, error)

	// DeleteAccount anonymizes the account and revokes every session and
	// pending token. Claimed certificates keep their owner reference.
	DeleteAccount(ctx context.Context, userID uint) error
}

type AdminService interface {
	Dashboard(ctx context.Context) (*DashboardResponse, error)
	ListUsers(ctx context.Context, req *ListUsersRequest) (*UserListResponse, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UpdateUser(ctx context.Context, id uint, req *AdminUpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error
	VerificationLogs(ctx context.Context, req *VerificationLogListRequest) (*VerificationLogListResponse, error)
}

// NotificationService sends transactional email and consumes the event
// stream for asynchronous notifications.
type NotificationService interface {
	SendCertificateIssued(ctx context.Context, toEmail, holderName, refNo, verificationURL string) error
	SendVerificationEmail(ctx context.Context, user *models.User, token string) error
	SendPasswordResetEmail(ctx context.Context, user *models.User, token string) error

	// Run attaches to the event stream and emails certificate holders when
	// their certificate is issued. Blocks until ctx is cancelled.
	Run(ctx context.Context, subscriber message.Subscriber, topic string) error
}

// ServiceManager wires every service to its dependencies and owns their
// lifecycle.
type ServiceManager interface {
	Certificate() CertificateService
	Verification() VerificationService
	Auth() AuthService
	Claim() ClaimService
	User() UserService
	Admin() AdminService
	Notification() NotificationService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) map[string]string
	Shutdown(ctx context.Context) error
}
