package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientApplication is a registered caller of the broker API. Each application
// authenticates with its API key and owns its external users.
type ClientApplication struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	APIKey      string    `json:"-" db:"api_key"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ClientApplication model
func (ClientApplication) TableName() string {
	return "client_applications"
}
