package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/SURE-Trust/certificate-service/internal/config"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/utils"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

const tokenIssuer = "certificate-service"

// AccessClaims is the JWT payload of an access token.
type AccessClaims struct {
	UserID uint            `json:"uid"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    *slog.Logger
	mailer    NotificationService
	google    GoogleVerifier
	publisher events.EventPublisher
	cfg       config.AuthConfig
	now       func() time.Time
}

func NewAuthService(
	repo repositories.Repository,
	v *validator.Validator,
	logger *slog.Logger,
	mailer NotificationService,
	google GoogleVerifier,
	publisher events.EventPublisher,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		repo:      repo,
		validator: v,
		logger:    logger,
		mailer:    mailer,
		google:    google,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(req.Email)

	exists, err := s.repo.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)

	user := &models.User{
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		PasswordHash: &hashStr,
		AuthProvider: models.ProviderLocal,
		IsActive:     true,
	}
	if err := s.repo.Users().Create(ctx, user); err != nil {
		if repositories.IsDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendVerificationToken(ctx, user); err != nil {
		s.logger.Warn("failed to send verification email", "error", err, "user_id", user.ID)
	}

	event := events.NewEvent(events.EventUserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Provider: string(user.AuthProvider),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish user.registered", "error", err, "user_id", user.ID)
	}

	s.logger.Info("user registered", "user_id", user.ID, "provider", user.AuthProvider)
	return s.issueTokens(ctx, user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if user.AuthProvider != models.ProviderLocal || user.PasswordHash == nil {
		return nil, NewProviderError(string(user.AuthProvider))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.touchLastLogin(ctx, user)
	return s.issueTokens(ctx, user)
}

func (s *authService) LoginWithGoogle(ctx context.Context, req *GoogleLoginRequest) (*AuthResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	profile, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		s.logger.Warn("google token rejected", "error", err)
		return nil, ErrInvalidToken
	}

	user, err := s.repo.Users().GetByGoogleID(ctx, profile.Subject)
	switch {
	case err == nil:
	case repositories.IsNotFound(err):
		user, err = s.linkOrCreateGoogleUser(ctx, profile)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("lookup google user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	s.touchLastLogin(ctx, user)
	return s.issueTokens(ctx, user)
}

// linkOrCreateGoogleUser attaches the Google identity to an existing account
// with the same email, or registers a fresh one. Google asserts the email,
// so either way the account ends up verified.
func (s *authService) linkOrCreateGoogleUser(ctx context.Context, profile *GoogleProfile) (*models.User, error) {
	if !profile.EmailVerified {
		return nil, ErrNotVerified
	}
	email := utils.NormalizeEmail(profile.Email)

	existing, err := s.repo.Users().GetByEmail(ctx, email)
	if err == nil {
		now := s.now()
		fields := map[string]interface{}{
			"google_id":   profile.Subject,
			"is_verified": true,
			"verified_at": now,
		}
		if err := s.repo.Users().UpdateFields(ctx, existing.ID, fields); err != nil {
			return nil, fmt.Errorf("link google identity: %w", err)
		}
		existing.GoogleID = &profile.Subject
		existing.IsVerified = true
		existing.VerifiedAt = &now
		s.logger.Info("google identity linked", "user_id", existing.ID)
		return existing, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	now := s.now()
	user := &models.User{
		Email:        email,
		FirstName:    profile.GivenName,
		LastName:     profile.FamilyName,
		Role:         models.RoleUser,
		GoogleID:     &profile.Subject,
		AuthProvider: models.ProviderGoogle,
		IsVerified:   true,
		IsActive:     true,
		VerifiedAt:   &now,
	}
	if profile.Picture != "" {
		user.AvatarURL = &profile.Picture
	}
	if err := s.repo.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}

	event := events.NewEvent(events.EventUserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Provider: string(user.AuthProvider),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish user.registered", "error", err, "user_id", user.ID)
	}
	return user, nil
}

// Refresh rotates the session: the presented token is deleted and a fresh
// pair is issued, so a replayed refresh token fails.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	session, err := s.repo.Sessions().GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.repo.Sessions().DeleteByRefreshToken(ctx, refreshToken)
		return nil, ErrInvalidToken
	}

	user, err := s.repo.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.repo.Sessions().DeleteByRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &resp.Tokens, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.Sessions().DeleteByRefreshToken(ctx, refreshToken); err != nil && !repositories.IsNotFound(err) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	record, err := s.repo.EmailTokens().GetValid(ctx, token, models.PurposeVerifyEmail)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup token: %w", err)
	}

	now := s.now()
	return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.EmailTokens().Consume(ctx, record.ID); err != nil {
			return err
		}
		return tx.Users().UpdateFields(ctx, record.UserID, map[string]interface{}{
			"is_verified": true,
			"verified_at": now,
		})
	})
}

// ForgotPassword never reveals whether the address is registered.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.Users().GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.AuthProvider != models.ProviderLocal {
		return nil
	}

	if err := s.repo.EmailTokens().DeleteByUser(ctx, user.ID, models.PurposeResetPassword); err != nil {
		return fmt.Errorf("clear reset tokens: %w", err)
	}

	token := &models.EmailToken{
		UserID:    user.ID,
		Token:     randomToken(),
		Purpose:   models.PurposeResetPassword,
		ExpiresAt: s.now().Add(s.cfg.ResetTokenTTL),
	}
	if err := s.repo.EmailTokens().Create(ctx, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user, token.Token); err != nil {
		s.logger.Error("failed to send reset email", "error", err, "user_id", user.ID)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}

	record, err := s.repo.EmailTokens().GetValid(ctx, req.Token, models.PurposeResetPassword)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// Every existing session dies with the old password.
	return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.EmailTokens().Consume(ctx, record.ID); err != nil {
			return err
		}
		if err := tx.Users().UpdateFields(ctx, record.UserID, map[string]interface{}{
			"password_hash": string(hash),
		}); err != nil {
			return err
		}
		return tx.Sessions().DeleteByUser(ctx, record.UserID)
	})
}

func (s *authService) ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ===== INTERNALS =====

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*AuthResponse, error) {
	now := s.now()
	claims := AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: randomToken(),
		ExpiresAt:    now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.repo.Sessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &AuthResponse{
		User: user,
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: session.RefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int64(s.cfg.TokenTTL.Seconds()),
		},
	}, nil
}

func (s *authService) sendVerificationToken(ctx context.Context, user *models.User) error {
	token := &models.EmailToken{
		UserID:    user.ID,
		Token:     randomToken(),
		Purpose:   models.PurposeVerifyEmail,
		ExpiresAt: s.now().Add(s.cfg.VerifyTokenTTL),
	}
	if err := s.repo.EmailTokens().Create(ctx, token); err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}
	return s.mailer.SendVerificationEmail(ctx, user, token.Token)
}

func (s *authService) touchLastLogin(ctx context.Context, user *models.User) {
	now := s.now()
	if err := s.repo.Users().UpdateFields(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		s.logger.Warn("failed to stamp last login", "error", err, "user_id", user.ID)
	}
	user.LastLoginAt = &now
}

// randomToken returns 32 bytes of entropy hex-encoded, 64 characters.
func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process environment is broken.
		panic(errors.New("crypto/rand unavailable: " + err.Error()))
	}
	return hex.EncodeToString(buf)
}
