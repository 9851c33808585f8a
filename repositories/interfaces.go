package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noteapp/ai-broker/models"
)

// NetworkRepository handles network configuration reads. Networks are
// administered elsewhere; the broker core only consumes them.
type NetworkRepository interface {
	// GetByName retrieves a network by its unique name
	GetByName(ctx context.Context, name string) (*models.Network, error)

	// GetByID retrieves a network by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Network, error)

	// ListActiveByType retrieves active networks of the given type
	// ordered by ascending priority
	ListActiveByType(ctx context.Context, networkType models.NetworkType) ([]*models.Network, error)

	// ListActive retrieves all active networks ordered by ascending priority
	ListActive(ctx context.Context) ([]*models.Network, error)
}

// NetworkLimitRepository handles quota configuration reads
type NetworkLimitRepository interface {
	// Get retrieves the limit for a (network, tier, period) triple,
	// returning nil when no limit is configured
	Get(ctx context.Context, networkID uuid.UUID, tier models.UserTier, period models.LimitPeriod) (*models.NetworkLimit, error)
}

// ExternalUserRepository handles external user persistence
type ExternalUserRepository interface {
	// GetByClientAndExternalID retrieves a user by its (client app, external id)
	// pair, returning nil when the pair has not been seen
	GetByClientAndExternalID(ctx context.Context, clientAppID uuid.UUID, externalUserID string) (*models.ExternalUser, error)

	// Create persists a new external user
	Create(ctx context.Context, user *models.ExternalUser) error
}

// UsageCounterRepository handles per-period usage counters
type UsageCounterRepository interface {
	// GetForPeriod retrieves the counter for (user, network, period start),
	// returning nil when no requests were made in the period yet
	GetForPeriod(ctx context.Context, userID, networkID uuid.UUID, periodStart time.Time) (*models.UsageCounter, error)

	// Save inserts or updates a counter row
	Save(ctx context.Context, counter *models.UsageCounter) error
}

// RequestLogRepository handles orchestration attempt records
type RequestLogRepository interface {
	// Create persists a new pending log entry
	Create(ctx context.Context, log *models.RequestLog) error

	// Update persists the finalized state of a log entry
	Update(ctx context.Context, log *models.RequestLog) error

	// GetByID retrieves a log entry by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.RequestLog, error)

	// ListByClientApp retrieves recent log entries for a client application
	ListByClientApp(ctx context.Context, clientAppID uuid.UUID, limit, offset int) ([]*models.RequestLog, error)
}

// ClientApplicationRepository handles registered API callers
type ClientApplicationRepository interface {
	// GetByAPIKey retrieves a client application by its API key,
	// returning nil when the key is unknown
	GetByAPIKey(ctx context.Context, apiKey string) (*models.ClientApplication, error)

	// GetByID retrieves a client application by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.ClientApplication, error)
}
