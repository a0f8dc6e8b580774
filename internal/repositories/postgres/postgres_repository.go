package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	users            repositories.UserRepository
	sessions         repositories.SessionRepository
	emailTokens      repositories.EmailTokenRepository
	submissions      repositories.SubmissionRepository
	certificates     repositories.CertificateRepository
	verificationLogs repositories.VerificationLogRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates a new repository manager with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}

	repo.users = NewUserPostgreSQL(config.DB)
	repo.sessions = NewSessionPostgreSQL(config.DB)
	repo.emailTokens = NewEmailTokenPostgreSQL(config.DB)
	repo.submissions = NewSubmissionPostgreSQL(config.DB)
	repo.certificates = NewCertificatePostgreSQL(config.DB, cacheManager)
	repo.verificationLogs = NewVerificationLogPostgreSQL(config.DB)

	return repo
}

func (r *PostgreSQLRepository) Users() repositories.UserRepository {
	return r.users
}

func (r *PostgreSQLRepository) Sessions() repositories.SessionRepository {
	return r.sessions
}

func (r *PostgreSQLRepository) EmailTokens() repositories.EmailTokenRepository {
	return r.emailTokens
}

func (r *PostgreSQLRepository) Submissions() repositories.SubmissionRepository {
	return r.submissions
}

func (r *PostgreSQLRepository) Certificates() repositories.CertificateRepository {
	return r.certificates
}

func (r *PostgreSQLRepository) VerificationLogs() repositories.VerificationLogRepository {
	return r.verificationLogs
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
		}

		txRepo.users = NewUserPostgreSQL(tx)
		txRepo.sessions = NewSessionPostgreSQL(tx)
		txRepo.emailTokens = NewEmailTokenPostgreSQL(tx)
		txRepo.submissions = NewSubmissionPostgreSQL(tx)
		txRepo.certificates = NewCertificatePostgreSQL(tx, r.cacheManager)
		txRepo.verificationLogs = NewVerificationLogPostgreSQL(tx)

		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize initializes all repositories and connections
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("Redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
