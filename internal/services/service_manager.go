package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/certgen"
	"github.com/SURE-Trust/certificate-service/internal/config"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

// ServiceManagerConfig holds every dependency the services share.
type ServiceManagerConfig struct {
	Repository repositories.Repository
	Cache      *cache.CacheManager
	Publisher  events.EventPublisher
	Validator  *validator.Validator
	Logger     *slog.Logger
	Config     *config.Config

	// Optional overrides, mainly for tests.
	GoogleVerifier GoogleVerifier
	Notification   NotificationService
}

// serviceManager implements ServiceManager.
type serviceManager struct {
	config ServiceManagerConfig

	certificateService  CertificateService
	verificationService VerificationService
	authService         AuthService
	claimService        ClaimService
	userService         UserService
	adminService        AdminService
	notificationService NotificationService

	artifacts *certgen.ArtifactStore

	mu          sync.RWMutex
	initialized bool
}

// NewServiceManager validates the dependency set and returns an
// uninitialized manager. Call Initialize before using any getter.
func NewServiceManager(cfg ServiceManagerConfig) (ServiceManager, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache manager is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	return &serviceManager{config: cfg}, nil
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return fmt.Errorf("service manager already initialized")
	}

	sm.config.Logger.Info("initializing service manager")

	artifacts, err := certgen.NewArtifactStore(sm.config.Config.OutputDir)
	if err != nil {
		return fmt.Errorf("initialize artifact store: %w", err)
	}
	sm.artifacts = artifacts
	composer := certgen.NewComposer(sm.config.Config.TemplateDir)

	notification := sm.config.Notification
	if notification == nil {
		notification = NewNotificationService(sm.config.Config.Mail, sm.config.Config.AppBaseURL, sm.config.Logger)
	}
	sm.notificationService = notification

	google := sm.config.GoogleVerifier
	if google == nil {
		google = NewGoogleVerifier(sm.config.Config.Auth.GoogleClientID)
	}

	sm.certificateService = NewCertificateService(
		sm.config.Repository,
		sm.config.Cache,
		sm.config.Publisher,
		composer,
		artifacts,
		sm.config.Validator,
		sm.config.Logger,
		sm.config.Config.VerificationBaseURL,
		sm.config.Config.TemplateDir,
	)
	sm.verificationService = NewVerificationService(
		sm.config.Repository,
		sm.config.Publisher,
		sm.config.Logger,
	)
	sm.authService = NewAuthService(
		sm.config.Repository,
		sm.config.Validator,
		sm.config.Logger,
		notification,
		google,
		sm.config.Publisher,
		sm.config.Config.Auth,
	)
	sm.claimService = NewClaimService(
		sm.config.Repository,
		sm.config.Cache,
		sm.config.Publisher,
		sm.config.Logger,
	)
	sm.userService = NewUserService(
		sm.config.Repository,
		sm.config.Validator,
		sm.config.Publisher,
		sm.config.Logger,
		sm.config.Config.Auth,
	)
	sm.adminService = NewAdminService(
		sm.config.Repository,
		sm.config.Cache,
		sm.config.Validator,
		sm.config.Logger,
		sm.userService,
	)

	sm.initialized = true
	sm.config.Logger.Info("service manager initialized")
	return nil
}

// ===== GETTERS =====

func (sm *serviceManager) Certificate() CertificateService {
	sm.mustBeInitialized()
	return sm.certificateService
}

func (sm *serviceManager) Verification() VerificationService {
	sm.mustBeInitialized()
	return sm.verificationService
}

func (sm *serviceManager) Auth() AuthService {
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Claim() ClaimService {
	sm.mustBeInitialized()
	return sm.claimService
}

func (sm *serviceManager) User() UserService {
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) Admin() AdminService {
	sm.mustBeInitialized()
	return sm.adminService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mustBeInitialized()
	return sm.notificationService
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized, call Initialize() first")
	}
}

// HealthCheck reports per-dependency status for the health endpoint.
func (sm *serviceManager) HealthCheck(ctx context.Context) map[string]string {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := map[string]string{}

	if err := sm.config.Repository.Ping(checkCtx); err != nil {
		status["repository"] = "unhealthy: " + err.Error()
	} else {
		status["repository"] = "healthy"
	}

	if err := sm.config.Cache.HealthCheck(checkCtx); err != nil {
		if err == cache.ErrCacheNotAvailable {
			status["cache"] = "disabled"
		} else {
			status["cache"] = "unhealthy: " + err.Error()
		}
	} else {
		status["cache"] = "healthy"
	}

	return status
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return nil
	}
	sm.config.Logger.Info("shutting down service manager")

	var errs []error
	if err := sm.config.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if err := sm.config.Repository.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repository: %w", err))
	}

	sm.initialized = false
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
