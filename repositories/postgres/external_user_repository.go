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

// ExternalUserRepository implements repositories.ExternalUserRepository
type ExternalUserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewExternalUserRepository creates a new external user repository
func NewExternalUserRepository(db *DB, logger *zap.Logger) repositories.ExternalUserRepository {
	return &ExternalUserRepository{db: db, logger: logger}
}

// GetByClientAndExternalID retrieves a user by its (client app, external id) pair.
// A nil result means the pair has not been seen yet.
func (r *ExternalUserRepository) GetByClientAndExternalID(ctx context.Context, clientAppID uuid.UUID, externalUserID string) (*models.ExternalUser, error) {
	query := `
		SELECT id, client_app_id, external_user_id, tier, created_at, updated_at
		FROM external_users
		WHERE client_app_id = $1 AND external_user_id = $2
	`

	user := &models.ExternalUser{}
	err := r.db.QueryRowContext(ctx, query, clientAppID, externalUserID).Scan(
		&user.ID,
		&user.ClientAppID,
		&user.ExternalUserID,
		&user.Tier,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get external user: %w", err)
	}
	return user, nil
}

// Create persists a new external user
func (r *ExternalUserRepository) Create(ctx context.Context, user *models.ExternalUser) error {
	query := `
		INSERT INTO external_users (id, client_app_id, external_user_id, tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.ClientAppID,
		user.ExternalUserID,
		user.Tier,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create external user: %w", err)
	}

	r.logger.Debug("external user created",
		zap.String("id", user.ID.String()),
		zap.String("external_user_id", user.ExternalUserID))
	return nil
}
