package models

import (
	"time"

	"github.com/google/uuid"
)

// UserTier selects which NetworkLimit applies to a user
type UserTier string

const (
	TierNew  UserTier = "new_user"
	TierFree UserTier = "free_user"
	TierPaid UserTier = "paid_user"
)

// ExternalUser is an end user of a client application, identified by the
// (client application, external id) pair. Created lazily on first request.
type ExternalUser struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ClientAppID    uuid.UUID `json:"client_app_id" db:"client_app_id"`
	ExternalUserID string    `json:"external_user_id" db:"external_user_id"`
	Tier           UserTier  `json:"tier" db:"tier"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ExternalUser model
func (ExternalUser) TableName() string {
	return "external_users"
}

// NewExternalUser creates a user record for an unseen (client, external id) pair.
// New users start on the free tier.
func NewExternalUser(clientAppID uuid.UUID, externalUserID string) *ExternalUser {
	now := time.Now()
	return &ExternalUser{
		ID:             uuid.New(),
		ClientAppID:    clientAppID,
		ExternalUserID: externalUserID,
		Tier:           TierFree,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
