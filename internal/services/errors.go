package services

import (
	"errors"
	"fmt"

	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

// Sentinel errors surfaced to handlers. Handlers map these to HTTP status
// codes; services never see status codes.
var (
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrEmailTaken         = errors.New("email is already registered")
	ErrRefNoCollision     = errors.New("could not derive a unique reference code")
	ErrAlreadyClaimed     = errors.New("certificate is already claimed by another account")
	ErrClaimEmailMismatch = errors.New("certificate was issued to a different email address")
	ErrCertificateRevoked = errors.New("certificate is revoked and cannot be claimed")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("token is invalid or expired")
	ErrNotVerified        = errors.New("email address is not verified")
)

// ProviderError rejects credential login on an OAuth-only account, naming
// the provider the caller should use instead.
type ProviderError struct {
	Provider string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("account uses %s sign-in; password login is not available", e.Provider)
}

func NewProviderError(provider string) *ProviderError {
	return &ProviderError{Provider: provider}
}

// PermissionError covers role and ownership failures.
type PermissionError struct {
	UserID   uint
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{UserID: userID, Resource: resource, Action: action, Reason: reason}
}

// ===== CLASSIFIERS =====

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCertificateNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		repositories.IsNotFound(err)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrCertificateRevoked) ||
		repositories.IsDuplicate(err)
}

func IsValidationError(err error) bool {
	var ve validator.ValidationErrors
	return errors.As(err, &ve)
}

func IsAuthError(err error) bool {
	var pe *ProviderError
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrAccountDisabled) ||
		errors.Is(err, ErrNotVerified) ||
		errors.As(err, &pe)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
