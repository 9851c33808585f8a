package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageCounter accumulates completed requests for one (user, network, period).
// At most one row exists per (external_user_id, network_id, period_start).
// Counters are created on first use within a period and never decremented.
type UsageCounter struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ExternalUserID uuid.UUID `json:"external_user_id" db:"external_user_id"`
	NetworkID      uuid.UUID `json:"network_id" db:"network_id"`
	PeriodStart    time.Time `json:"period_start" db:"period_start"`
	PeriodEnd      time.Time `json:"period_end" db:"period_end"`
	RequestCount   int       `json:"request_count" db:"request_count"`
	TokenCount     int       `json:"token_count" db:"token_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the UsageCounter model
func (UsageCounter) TableName() string {
	return "usage_counters"
}

// NewUsageCounter creates an empty counter for the given period.
func NewUsageCounter(userID, networkID uuid.UUID, periodStart, periodEnd time.Time) *UsageCounter {
	now := time.Now()
	return &UsageCounter{
		ID:             uuid.New(),
		ExternalUserID: userID,
		NetworkID:      networkID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Increment records one completed request and its token usage.
func (c *UsageCounter) Increment(tokens int) {
	c.RequestCount++
	c.TokenCount += tokens
	c.UpdatedAt = time.Now()
}
