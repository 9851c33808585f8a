package models

import (
	"time"

	"github.com/google/uuid"
)

// LimitPeriod is the quota accounting window
type LimitPeriod string

const (
	PeriodDaily   LimitPeriod = "daily"
	PeriodMonthly LimitPeriod = "monthly"
)

// NetworkLimit maps (network, user tier, period) to a request ceiling.
// A nil RequestLimit means unlimited. Unique on (network_id, user_tier, limit_period).
type NetworkLimit struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	NetworkID    uuid.UUID   `json:"network_id" db:"network_id"`
	UserTier     UserTier    `json:"user_tier" db:"user_tier"`
	LimitPeriod  LimitPeriod `json:"limit_period" db:"limit_period"`
	RequestLimit *int        `json:"request_limit,omitempty" db:"request_limit"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the NetworkLimit model
func (NetworkLimit) TableName() string {
	return "network_limits"
}

// Unlimited reports whether this limit imposes no ceiling.
func (l *NetworkLimit) Unlimited() bool {
	return l.RequestLimit == nil
}
