package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/SURE-Trust/certificate-service/internal/config"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	validator *validator.Validator
	publisher events.EventPublisher
	logger    *slog.Logger
	cfg       config.AuthConfig
}

func NewUserService(
	repo repositories.Repository,
	v *validator.Validator,
	publisher events.EventPublisher,
	logger *slog.Logger,
	cfg config.AuthConfig,
) UserService {
	return &userService{
		repo:      repo,
		validator: v,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.FirstName != nil {
		fields["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = *req.LastName
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if len(fields) == 0 {
		return s.GetProfile(ctx, userID)
	}

	if err := s.repo.Users().UpdateFields(ctx, userID, fields); err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user %d: %w", userID, err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *userService) UpdateAvatar(ctx context.Context, userID uint, avatarURL string) error {
	if err := s.repo.Users().UpdateFields(ctx, userID, map[string]interface{}{"avatar_url": avatarURL}); err != nil {
		if repositories.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update avatar for user %d: %w", userID, err)
	}
	return nil
}

// ChangePassword requires the current password and kills every session so
// stolen refresh tokens die with the old credential.
func (s *userService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}

	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user %d: %w", userID, err)
	}
	if user.AuthProvider != models.ProviderLocal || user.PasswordHash == nil {
		return NewProviderError(string(user.AuthProvider))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Users().UpdateFields(ctx, userID, map[string]interface{}{
			"password_hash": string(hash),
		}); err != nil {
			return err
		}
		return tx.Sessions().DeleteByUser(ctx, userID)
	})
}

func (s *userService) ListCertificates(ctx context.Context, userID uint, page, size int) (*CertificateListResponse, error) {
	page, size = normalizePage(page, size)
	filters := repositories.CertificateFilters{
		UserID: &userID,
		Limit:  size,
		Offset: (page - 1) * size,
	}
	certs, total, err := s.repo.Certificates().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list certificates for user %d: %w", userID, err)
	}
	return &CertificateListResponse{Certificates: certs, Total: total, Page: page, Size: size}, nil
}

// DeleteAccount anonymizes rather than removes: claimed certificates must
// keep resolving to a valid owner row for audit purposes.
func (s *userService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.repo.Users().GetByID(ctx, userID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user %d: %w", userID, err)
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Sessions().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		for _, purpose := range []models.TokenPurpose{models.PurposeVerifyEmail, models.PurposeResetPassword} {
			if err := tx.EmailTokens().DeleteByUser(ctx, userID, purpose); err != nil {
				return err
			}
		}
		return tx.Users().Anonymize(ctx, userID, anonymizedEmail(userID))
	})
	if err != nil {
		return fmt.Errorf("delete account %d: %w", userID, err)
	}

	event := events.NewEvent(events.EventUserDeleted, map[string]any{"user_id": userID})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish user.deleted", "error", err, "user_id", userID)
	}
	s.logger.Info("account anonymized", "user_id", userID)
	return nil
}

func anonymizedEmail(userID uint) string {
	return fmt.Sprintf("deleted-user-%d@anonymized.invalid", userID)
}
