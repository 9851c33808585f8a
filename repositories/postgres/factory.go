package postgres

import (
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/config"
	"github.com/noteapp/ai-broker/repositories"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &RepositoryFactory{db: db, logger: logger}, nil
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Networks:      NewNetworkRepository(f.db, f.logger),
		NetworkLimits: NewNetworkLimitRepository(f.db, f.logger),
		ExternalUsers: NewExternalUserRepository(f.db, f.logger),
		UsageCounters: NewUsageCounterRepository(f.db, f.logger),
		RequestLogs:   NewRequestLogRepository(f.db, f.logger),
		ClientApps:    NewClientApplicationRepository(f.db, f.logger),
	}
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
