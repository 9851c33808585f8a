package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/config"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Client applications table
		CREATE TABLE IF NOT EXISTS client_applications (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			api_key VARCHAR(255) NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Networks table
		CREATE TABLE IF NOT EXISTS networks (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			display_name VARCHAR(100) NOT NULL,
			provider VARCHAR(50) NOT NULL,
			network_type VARCHAR(50) NOT NULL,
			base_url TEXT NOT NULL,
			model_name VARCHAR(100),
			is_active BOOLEAN NOT NULL DEFAULT true,
			is_free BOOLEAN NOT NULL DEFAULT false,
			priority INTEGER NOT NULL DEFAULT 100,
			timeout_seconds INTEGER NOT NULL DEFAULT 60,
			max_retries INTEGER NOT NULL DEFAULT 3,
			request_mapping JSONB,
			response_mapping JSONB,
			api_key_encrypted TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Network limits table
		CREATE TABLE IF NOT EXISTS network_limits (
			id UUID PRIMARY KEY,
			network_id UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
			user_tier VARCHAR(50) NOT NULL,
			limit_period VARCHAR(50) NOT NULL,
			request_limit INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(network_id, user_tier, limit_period)
		);

		-- External users table
		CREATE TABLE IF NOT EXISTS external_users (
			id UUID PRIMARY KEY,
			client_app_id UUID NOT NULL REFERENCES client_applications(id) ON DELETE CASCADE,
			external_user_id VARCHAR(255) NOT NULL,
			tier VARCHAR(50) NOT NULL DEFAULT 'free_user',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(client_app_id, external_user_id)
		);

		-- Usage counters table
		CREATE TABLE IF NOT EXISTS usage_counters (
			id UUID PRIMARY KEY,
			external_user_id UUID NOT NULL REFERENCES external_users(id) ON DELETE CASCADE,
			network_id UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
			period_start DATE NOT NULL,
			period_end DATE NOT NULL,
			request_count INTEGER NOT NULL DEFAULT 0,
			token_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(external_user_id, network_id, period_start)
		);

		-- Request logs table
		CREATE TABLE IF NOT EXISTS request_logs (
			id UUID PRIMARY KEY,
			client_app_id UUID NOT NULL REFERENCES client_applications(id),
			external_user_id UUID NOT NULL REFERENCES external_users(id),
			network_id UUID NOT NULL REFERENCES networks(id),
			network_name VARCHAR(100) NOT NULL,
			request_type VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL,
			request_payload JSONB,
			response_payload JSONB,
			error_message TEXT,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			execution_time_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_request_logs_client_app ON request_logs(client_app_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_usage_counters_lookup ON usage_counters(external_user_id, network_id, period_start);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized")
	return nil
}
