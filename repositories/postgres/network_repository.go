package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
	"github.com/noteapp/ai-broker/services"
)

const networkColumns = `id, name, display_name, provider, network_type, base_url, model_name,
	       is_active, is_free, priority, timeout_seconds, max_retries,
	       request_mapping, response_mapping, api_key_encrypted, created_at, updated_at`

// NetworkRepository implements repositories.NetworkRepository
type NetworkRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNetworkRepository creates a new network repository
func NewNetworkRepository(db *DB, logger *zap.Logger) repositories.NetworkRepository {
	return &NetworkRepository{db: db, logger: logger}
}

// GetByName retrieves a network by its unique name
func (r *NetworkRepository) GetByName(ctx context.Context, name string) (*models.Network, error) {
	query := fmt.Sprintf(`SELECT %s FROM networks WHERE name = $1`, networkColumns)

	network, err := scanNetwork(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.NewDomainError(services.ErrorTypeUnknownNetwork,
				fmt.Sprintf("network not found: %s", name), nil)
		}
		return nil, fmt.Errorf("failed to get network by name: %w", err)
	}
	return network, nil
}

// GetByID retrieves a network by ID
func (r *NetworkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Network, error) {
	query := fmt.Sprintf(`SELECT %s FROM networks WHERE id = $1`, networkColumns)

	network, err := scanNetwork(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.NewDomainError(services.ErrorTypeUnknownNetwork,
				fmt.Sprintf("network not found: %s", id), nil)
		}
		return nil, fmt.Errorf("failed to get network by id: %w", err)
	}
	return network, nil
}

// ListActiveByType retrieves active networks of the given type ordered by ascending priority
func (r *NetworkRepository) ListActiveByType(ctx context.Context, networkType models.NetworkType) ([]*models.Network, error) {
	query := fmt.Sprintf(`SELECT %s FROM networks
		WHERE is_active = true AND network_type = $1
		ORDER BY priority ASC, name ASC`, networkColumns)

	rows, err := r.db.QueryContext(ctx, query, networkType)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks by type: %w", err)
	}
	defer rows.Close()

	return collectNetworks(rows)
}

// ListActive retrieves all active networks ordered by ascending priority
func (r *NetworkRepository) ListActive(ctx context.Context) ([]*models.Network, error) {
	query := fmt.Sprintf(`SELECT %s FROM networks
		WHERE is_active = true
		ORDER BY priority ASC, name ASC`, networkColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active networks: %w", err)
	}
	defer rows.Close()

	return collectNetworks(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNetwork(row rowScanner) (*models.Network, error) {
	n := &models.Network{}
	var modelName, apiKeyEncrypted sql.NullString
	err := row.Scan(
		&n.ID,
		&n.Name,
		&n.DisplayName,
		&n.Provider,
		&n.NetworkType,
		&n.BaseURL,
		&modelName,
		&n.IsActive,
		&n.IsFree,
		&n.Priority,
		&n.TimeoutSeconds,
		&n.MaxRetries,
		&n.RequestMapping,
		&n.ResponseMapping,
		&apiKeyEncrypted,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.ModelName = modelName.String
	n.APIKeyEncrypted = apiKeyEncrypted.String
	return n, nil
}

func collectNetworks(rows *sql.Rows) ([]*models.Network, error) {
	var networks []*models.Network
	for rows.Next() {
		network, err := scanNetwork(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan network row: %w", err)
		}
		networks = append(networks, network)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate network rows: %w", err)
	}
	return networks, nil
}
