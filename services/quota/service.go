// Package quota tracks per-user request usage against configured network
// limits. Counters accumulate per (user, network, period) and are consulted
// both before dispatch (availability) and after completion (recording).
//
// The check-then-increment sequence is deliberately not atomic: concurrent
// calls from one user can all pass the availability check before any of them
// records usage, so limits are soft under concurrency. Callers needing a hard
// cap must serialize the check-and-record pair per (user, network).
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
)

// Service answers availability questions and records usage
type Service struct {
	counters repositories.UsageCounterRepository
	limits   repositories.NetworkLimitRepository
	networks repositories.NetworkRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a quota service
func NewService(
	counters repositories.UsageCounterRepository,
	limits repositories.NetworkLimitRepository,
	networks repositories.NetworkRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		counters: counters,
		limits:   limits,
		networks: networks,
		logger:   logger,
		now:      time.Now,
	}
}

// checkedPeriods are the accounting windows consulted for availability.
// A network may configure a limit for either, both, or neither.
var checkedPeriods = []models.LimitPeriod{models.PeriodDaily, models.PeriodMonthly}

// IsAvailable reports whether the user may call the network right now.
// True when no limit is configured for the user's tier, or when usage in
// every configured period is below its ceiling.
func (s *Service) IsAvailable(ctx context.Context, user *models.ExternalUser, network *models.Network) (bool, error) {
	for _, period := range checkedPeriods {
		limit, err := s.limits.Get(ctx, network.ID, user.Tier, period)
		if err != nil {
			return false, err
		}
		if limit == nil || limit.Unlimited() {
			continue
		}

		used, err := s.usedInPeriod(ctx, user, network, period)
		if err != nil {
			return false, err
		}
		if used >= *limit.RequestLimit {
			s.logger.Debug("quota exhausted",
				zap.String("user", user.ID.String()),
				zap.String("network", network.Name),
				zap.String("period", string(period)),
				zap.Int("used", used),
				zap.Int("limit", *limit.RequestLimit))
			return false, nil
		}
	}
	return true, nil
}

// Remaining returns how many requests the user has left on the network in the
// tightest configured period, or nil when every period is unlimited.
func (s *Service) Remaining(ctx context.Context, user *models.ExternalUser, network *models.Network) (*int, error) {
	var remaining *int
	for _, period := range checkedPeriods {
		limit, err := s.limits.Get(ctx, network.ID, user.Tier, period)
		if err != nil {
			return nil, err
		}
		if limit == nil || limit.Unlimited() {
			continue
		}

		used, err := s.usedInPeriod(ctx, user, network, period)
		if err != nil {
			return nil, err
		}

		left := *limit.RequestLimit - used
		if left < 0 {
			left = 0
		}
		if remaining == nil || left < *remaining {
			remaining = &left
		}
	}
	return remaining, nil
}

// RecordUsage increments the counter for every checked period, creating
// counters on first use. Counters are never decremented.
func (s *Service) RecordUsage(ctx context.Context, user *models.ExternalUser, network *models.Network, tokens int) error {
	if tokens < 0 {
		tokens = 0
	}
	for _, period := range checkedPeriods {
		periodStart, periodEnd := s.periodBounds(period)

		counter, err := s.counters.GetForPeriod(ctx, user.ID, network.ID, periodStart)
		if err != nil {
			return err
		}
		if counter == nil {
			counter = models.NewUsageCounter(user.ID, network.ID, periodStart, periodEnd)
		}

		counter.Increment(tokens)
		if err := s.counters.Save(ctx, counter); err != nil {
			return err
		}
	}
	return nil
}

// FindFallback returns the first free, active network of the given type
// (in ascending priority order) that is still available to the user, or nil
// when no such network exists.
func (s *Service) FindFallback(ctx context.Context, user *models.ExternalUser, networkType models.NetworkType) (*models.Network, error) {
	networks, err := s.networks.ListActiveByType(ctx, networkType)
	if err != nil {
		return nil, err
	}

	for _, network := range networks {
		if !network.IsFree {
			continue
		}
		available, err := s.IsAvailable(ctx, user, network)
		if err != nil {
			return nil, err
		}
		if available {
			return network, nil
		}
	}
	return nil, nil
}

// usedInPeriod reads the request count accumulated in the current period.
func (s *Service) usedInPeriod(ctx context.Context, user *models.ExternalUser, network *models.Network, period models.LimitPeriod) (int, error) {
	periodStart, _ := s.periodBounds(period)
	counter, err := s.counters.GetForPeriod(ctx, user.ID, network.ID, periodStart)
	if err != nil {
		return 0, err
	}
	if counter == nil {
		return 0, nil
	}
	return counter.RequestCount, nil
}

// periodBounds computes the current accounting window in server local time.
// Daily periods span one calendar day; monthly periods span the calendar month.
func (s *Service) periodBounds(period models.LimitPeriod) (time.Time, time.Time) {
	now := s.now()
	switch period {
	case models.PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, -1)
		return start, end
	default:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return day, day
	}
}
