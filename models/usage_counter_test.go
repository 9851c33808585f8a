package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUsageCounterIncrement(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	counter := NewUsageCounter(uuid.New(), uuid.New(), start, start.AddDate(0, 1, -1))

	assert.Zero(t, counter.RequestCount)
	assert.Zero(t, counter.TokenCount)

	counter.Increment(120)
	counter.Increment(0)

	assert.Equal(t, 2, counter.RequestCount)
	assert.Equal(t, 120, counter.TokenCount)
}

func TestNetworkLimitUnlimited(t *testing.T) {
	limit := 10

	assert.True(t, (&NetworkLimit{}).Unlimited())
	assert.False(t, (&NetworkLimit{RequestLimit: &limit}).Unlimited())
}

func TestNewExternalUserStartsOnFreeTier(t *testing.T) {
	clientAppID := uuid.New()
	user := NewExternalUser(clientAppID, "user-1")

	assert.Equal(t, TierFree, user.Tier)
	assert.Equal(t, clientAppID, user.ClientAppID)
	assert.Equal(t, "user-1", user.ExternalUserID)
	assert.NotEqual(t, uuid.Nil, user.ID)
}
