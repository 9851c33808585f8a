package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
)

// NetworkLimitRepository implements repositories.NetworkLimitRepository
type NetworkLimitRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNetworkLimitRepository creates a new network limit repository
func NewNetworkLimitRepository(db *DB, logger *zap.Logger) repositories.NetworkLimitRepository {
	return &NetworkLimitRepository{db: db, logger: logger}
}

// Get retrieves the limit for a (network, tier, period) triple.
// A nil result means no limit is configured, which callers treat as unlimited.
func (r *NetworkLimitRepository) Get(ctx context.Context, networkID uuid.UUID, tier models.UserTier, period models.LimitPeriod) (*models.NetworkLimit, error) {
	query := `
		SELECT id, network_id, user_tier, limit_period, request_limit, created_at, updated_at
		FROM network_limits
		WHERE network_id = $1 AND user_tier = $2 AND limit_period = $3
	`

	limit := &models.NetworkLimit{}
	var requestLimit sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, networkID, tier, period).Scan(
		&limit.ID,
		&limit.NetworkID,
		&limit.UserTier,
		&limit.LimitPeriod,
		&requestLimit,
		&limit.CreatedAt,
		&limit.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get network limit: %w", err)
	}

	if requestLimit.Valid {
		v := int(requestLimit.Int64)
		limit.RequestLimit = &v
	}
	return limit, nil
}
