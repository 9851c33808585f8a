package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/config"
	"github.com/noteapp/ai-broker/middleware"
	"github.com/noteapp/ai-broker/repositories"
	"github.com/noteapp/ai-broker/repositories/postgres"
	"github.com/noteapp/ai-broker/services/orchestrator"
	"github.com/noteapp/ai-broker/services/providers"
	"github.com/noteapp/ai-broker/services/quota"
	"github.com/noteapp/ai-broker/services/vault"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories

	// Core services
	Vault        *vault.Vault
	Registry     *providers.Registry
	Quota        *quota.Service
	Orchestrator *orchestrator.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, schema, and repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Repos = factory.NewRepositories()
	d.Logger.Info("repositories initialized")
	return nil
}

// initServices wires the credential vault, provider registry, quota service,
// orchestrator, and the API key auth middleware.
func (d *Dependencies) initServices(cfg *config.Config) error {
	v, err := vault.NewFromBase64(cfg.Vault.KeyBase64)
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	d.Vault = v

	httpClient := &http.Client{
		// Per-request deadlines come from each network's timeout; this is
		// the hard ceiling for any single upstream call.
		Timeout: cfg.Broker.UpstreamTimeout,
	}
	d.Registry = providers.NewDefaultRegistry(v, httpClient, d.Logger)
	d.Logger.Info("provider registry initialized",
		zap.Strings("providers", d.Registry.Providers()))

	d.Quota = quota.NewService(
		d.Repos.UsageCounters,
		d.Repos.NetworkLimits,
		d.Repos.Networks,
		d.Logger,
	)

	d.Orchestrator = orchestrator.NewService(
		d.Repos,
		d.Registry,
		d.Quota,
		d.Logger,
		cfg.Broker.EnableFallback,
	)

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Repos.ClientApps, d.Logger)
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
