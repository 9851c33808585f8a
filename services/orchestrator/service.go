// Package orchestrator ties the broker together: it resolves the end user,
// selects a network, enforces quota, dispatches through the provider adapter
// and records an audit log entry for every attempt.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/services/providers"
	"github.com/noteapp/ai-broker/services/quota"
)

// Service processes brokered AI requests
type Service struct {
	repos          *repositories.Repositories
	registry       *providers.Registry
	quota          *quota.Service
	logger         *zap.Logger
	enableFallback bool
}

// NewService creates an orchestrator service
func NewService(
	repos *repositories.Repositories,
	registry *providers.Registry,
	quotaService *quota.Service,
	logger *zap.Logger,
	enableFallback bool,
) *Service {
	return &Service{
		repos:          repos,
		registry:       registry,
		quota:          quotaService,
		logger:         logger,
		enableFallback: enableFallback,
	}
}

// Process runs one brokered request end to end. At most one fallback hop is
// taken, and only when the primary network reports rate limiting; every
// dispatch attempt gets its own request log entry, finalized exactly once.
func (s *Service) Process(ctx context.Context, clientApp *models.ClientApplication, req *Request) (*Response, error) {
	user, err := s.resolveUser(ctx, clientApp, req.ExternalUserID)
	if err != nil {
		return nil, err
	}

	network, err := s.selectNetwork(ctx, user, req)
	if err != nil {
		return nil, err
	}

	fellBack := false
	for {
		resp, err := s.dispatch(ctx, clientApp, user, network, req)
		if err == nil {
			resp.FellBack = fellBack
			return resp, nil
		}

		if fellBack || !s.enableFallback || !isRateLimited(err) {
			return nil, err
		}

		fallback, fbErr := s.quota.FindFallback(ctx, user, req.RequestType)
		if fbErr != nil {
			return nil, fbErr
		}
		if fallback == nil || fallback.ID == network.ID {
			return nil, err
		}

		s.logger.Info("rate limited, retrying on fallback network",
			zap.String("primary", network.Name),
			zap.String("fallback", fallback.Name),
			zap.String("user", user.ID.String()))
		network = fallback
		fellBack = true
	}
}

// resolveUser finds the end user for this client application, creating one
// on first sight with the default free tier.
func (s *Service) resolveUser(ctx context.Context, clientApp *models.ClientApplication, externalUserID string) (*models.ExternalUser, error) {
	if strings.TrimSpace(externalUserID) == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "user_id is required", nil)
	}

	user, err := s.repos.ExternalUsers.GetByClientAndExternalID(ctx, clientApp.ID, externalUserID)
	if err != nil {
		return nil, services.WrapInternal("failed to look up user", err)
	}
	if user != nil {
		return user, nil
	}

	user = models.NewExternalUser(clientApp.ID, externalUserID)
	if err := s.repos.ExternalUsers.Create(ctx, user); err != nil {
		return nil, services.WrapInternal("failed to create user", err)
	}
	s.logger.Debug("created external user",
		zap.String("client_app", clientApp.ID.String()),
		zap.String("external_user_id", externalUserID))
	return user, nil
}

// selectNetwork picks the network for this request. An explicit name must
// resolve and still passes the availability check; automatic selection scans
// active networks of the type in ascending priority order and takes the
// first one the user may still call.
func (s *Service) selectNetwork(ctx context.Context, user *models.ExternalUser, req *Request) (*models.Network, error) {
	if req.NetworkName != "" {
		network, err := s.repos.Networks.GetByName(ctx, req.NetworkName)
		if err != nil {
			return nil, err
		}
		if !network.IsActive {
			return nil, services.NewDomainError(services.ErrorTypeUnknownNetwork,
				"network is not active", nil).WithDetail("network", network.Name)
		}
		available, err := s.quota.IsAvailable(ctx, user, network)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, services.NewDomainError(services.ErrorTypeQuotaExceeded,
				"request quota exceeded for network", nil).WithDetail("network", network.Name)
		}
		return network, nil
	}

	candidates, err := s.repos.Networks.ListActiveByType(ctx, req.RequestType)
	if err != nil {
		return nil, services.WrapInternal("failed to list networks", err)
	}
	for _, network := range candidates {
		available, err := s.quota.IsAvailable(ctx, user, network)
		if err != nil {
			return nil, err
		}
		if available {
			return network, nil
		}
	}
	return nil, services.NewDomainError(services.ErrorTypeNoAvailableNetwork,
		"no available network for request type", nil).
		WithDetail("request_type", string(req.RequestType))
}

// dispatch performs one attempt against one network, creating and finalizing
// its request log entry.
func (s *Service) dispatch(ctx context.Context, clientApp *models.ClientApplication, user *models.ExternalUser, network *models.Network, req *Request) (*Response, error) {
	adapter, err := s.registry.Resolve(network.Provider)
	if err != nil {
		return nil, err
	}

	logEntry := models.NewRequestLog(clientApp.ID, user.ID, network, req.RequestType, req.Payload)
	if err := s.repos.RequestLogs.Create(ctx, logEntry); err != nil {
		return nil, services.WrapInternal("failed to create request log", err)
	}

	started := time.Now()
	result, tokens, err := s.execute(ctx, adapter, network, req.Payload)
	elapsed := int(time.Since(started).Milliseconds())

	if err != nil {
		logEntry.MarkFailed(err.Error(), elapsed)
		if updateErr := s.repos.RequestLogs.Update(ctx, logEntry); updateErr != nil {
			s.logger.Error("failed to finalize request log",
				zap.String("log_id", logEntry.ID.String()),
				zap.Error(updateErr))
		}
		return nil, err
	}

	logEntry.MarkSuccess(result, tokens, elapsed)
	if updateErr := s.repos.RequestLogs.Update(ctx, logEntry); updateErr != nil {
		s.logger.Error("failed to finalize request log",
			zap.String("log_id", logEntry.ID.String()),
			zap.Error(updateErr))
	}

	if err := s.quota.RecordUsage(ctx, user, network, tokens); err != nil {
		// The upstream call succeeded; a counter write failure must not
		// turn the response into an error.
		s.logger.Error("failed to record usage",
			zap.String("user", user.ID.String()),
			zap.String("network", network.Name),
			zap.Error(err))
	}

	remaining, err := s.quota.Remaining(ctx, user, network)
	if err != nil {
		s.logger.Warn("failed to compute remaining quota", zap.Error(err))
		remaining = nil
	}

	return &Response{
		RequestID:   logEntry.ID,
		NetworkUsed: network.Name,
		Result:      result,
		TokensUsed:  tokens,
		Remaining:   remaining,
		ElapsedMs:   elapsed,
	}, nil
}

// execute runs the adapter pipeline: build, authenticate, send, normalize.
func (s *Service) execute(ctx context.Context, adapter providers.Adapter, network *models.Network, payload map[string]any) (map[string]any, int, error) {
	upstreamReq, err := adapter.BuildRequest(network, payload)
	if err != nil {
		return nil, 0, err
	}
	if err := adapter.Authenticate(upstreamReq, network); err != nil {
		return nil, 0, err
	}
	raw, err := adapter.Send(ctx, upstreamReq)
	if err != nil {
		return nil, 0, err
	}
	normalized, err := adapter.NormalizeResponse(network, upstreamReq, raw)
	if err != nil {
		return nil, 0, err
	}
	// Usage comes from the raw body: response mappings may rename the
	// provider's usage fields.
	return normalized, adapter.ExtractUsage(raw), nil
}

// isRateLimited reports whether an attempt failed because the provider
// throttled us: a 429 status or a rate-limit message.
func isRateLimited(err error) bool {
	if services.UpstreamStatusCode(err) == 429 {
		return true
	}
	return strings.Contains(err.Error(), "rate limit")
}
