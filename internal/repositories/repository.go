package repositories

import "context"

// Repository aggregates every domain repository behind one interface so
// services never see the backing store. Certificate-centric stores have
// postgres, mongo and spreadsheet implementations; account stores are
// always SQL-backed.
type Repository interface {
	// Account domain
	Users() UserRepository
	Sessions() SessionRepository
	EmailTokens() EmailTokenRepository

	// Certificate domain
	Submissions() SubmissionRepository
	Certificates() CertificateRepository
	VerificationLogs() VerificationLogRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
