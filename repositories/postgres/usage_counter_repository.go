package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
)

// UsageCounterRepository implements repositories.UsageCounterRepository
type UsageCounterRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUsageCounterRepository creates a new usage counter repository
func NewUsageCounterRepository(db *DB, logger *zap.Logger) repositories.UsageCounterRepository {
	return &UsageCounterRepository{db: db, logger: logger}
}

// GetForPeriod retrieves the counter for (user, network, period start).
// A nil result means no requests were made in the period yet.
func (r *UsageCounterRepository) GetForPeriod(ctx context.Context, userID, networkID uuid.UUID, periodStart time.Time) (*models.UsageCounter, error) {
	query := `
		SELECT id, external_user_id, network_id, period_start, period_end,
		       request_count, token_count, created_at, updated_at
		FROM usage_counters
		WHERE external_user_id = $1 AND network_id = $2 AND period_start = $3
	`

	counter := &models.UsageCounter{}
	err := r.db.QueryRowContext(ctx, query, userID, networkID, periodStart).Scan(
		&counter.ID,
		&counter.ExternalUserID,
		&counter.NetworkID,
		&counter.PeriodStart,
		&counter.PeriodEnd,
		&counter.RequestCount,
		&counter.TokenCount,
		&counter.CreatedAt,
		&counter.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage counter: %w", err)
	}
	return counter, nil
}

// Save inserts or updates a counter row. The unique constraint on
// (external_user_id, network_id, period_start) keeps one row per period.
func (r *UsageCounterRepository) Save(ctx context.Context, counter *models.UsageCounter) error {
	query := `
		INSERT INTO usage_counters (
			id, external_user_id, network_id, period_start, period_end,
			request_count, token_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_user_id, network_id, period_start)
		DO UPDATE SET request_count = EXCLUDED.request_count,
		              token_count = EXCLUDED.token_count,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		counter.ID,
		counter.ExternalUserID,
		counter.NetworkID,
		counter.PeriodStart,
		counter.PeriodEnd,
		counter.RequestCount,
		counter.TokenCount,
		counter.CreatedAt,
		counter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save usage counter: %w", err)
	}
	return nil
}
