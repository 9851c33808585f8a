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

// ClientApplicationRepository implements repositories.ClientApplicationRepository
type ClientApplicationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewClientApplicationRepository creates a new client application repository
func NewClientApplicationRepository(db *DB, logger *zap.Logger) repositories.ClientApplicationRepository {
	return &ClientApplicationRepository{db: db, logger: logger}
}

// GetByAPIKey retrieves a client application by its API key.
// A nil result means the key is unknown.
func (r *ClientApplicationRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.ClientApplication, error) {
	query := `
		SELECT id, name, description, api_key, is_active, created_at, updated_at
		FROM client_applications
		WHERE api_key = $1
	`

	app, err := scanClientApplication(r.db.QueryRowContext(ctx, query, apiKey))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client application by api key: %w", err)
	}
	return app, nil
}

// GetByID retrieves a client application by ID
func (r *ClientApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ClientApplication, error) {
	query := `
		SELECT id, name, description, api_key, is_active, created_at, updated_at
		FROM client_applications
		WHERE id = $1
	`

	app, err := scanClientApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client application by id: %w", err)
	}
	return app, nil
}

func scanClientApplication(row rowScanner) (*models.ClientApplication, error) {
	app := &models.ClientApplication{}
	var description sql.NullString
	err := row.Scan(
		&app.ID,
		&app.Name,
		&description,
		&app.APIKey,
		&app.IsActive,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Description = description.String
	return app, nil
}
