package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/middleware"
	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
	"github.com/noteapp/ai-broker/utils"
)

// QuotaReader reports a user's remaining request allowance on a network
type QuotaReader interface {
	Remaining(ctx context.Context, user *models.ExternalUser, network *models.Network) (*int, error)
}

// NetworkSummary is the caller-facing view of a configured network.
// Credentials and mapping internals are never exposed.
type NetworkSummary struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Provider    string             `json:"provider"`
	NetworkType models.NetworkType `json:"network_type"`
	ModelName   string             `json:"model_name,omitempty"`
	IsFree      bool               `json:"is_free"`
	Priority    int                `json:"priority"`
	// Remaining is the user's remaining request allowance on this network;
	// omitted when no user_id was given or the network is unlimited.
	Remaining *int `json:"remaining_requests,omitempty"`
}

// NetworkListResponse wraps the network list
type NetworkListResponse struct {
	Networks []NetworkSummary `json:"networks"`
}

// NetworkHandler handles network discovery requests
type NetworkHandler struct {
	networks repositories.NetworkRepository
	users    repositories.ExternalUserRepository
	quota    QuotaReader
	logger   *zap.Logger
}

// NewNetworkHandler creates a new NetworkHandler
func NewNetworkHandler(
	networks repositories.NetworkRepository,
	users repositories.ExternalUserRepository,
	quotaService QuotaReader,
	logger *zap.Logger,
) *NetworkHandler {
	return &NetworkHandler{
		networks: networks,
		users:    users,
		quota:    quotaService,
		logger:   logger,
	}
}

// HandleList handles GET /api/v1/ai/networks. With a user_id query
// parameter, each network additionally carries the user's remaining
// request allowance.
func (h *NetworkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	clientApp := middleware.GetClientAppFromContext(ctx)
	if clientApp == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	active, err := h.networks.ListActive(ctx)
	if err != nil {
		h.logger.Error("failed to list networks",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	var user *models.ExternalUser
	if externalID := strings.TrimSpace(r.URL.Query().Get("user_id")); externalID != "" {
		user, err = h.users.GetByClientAndExternalID(ctx, clientApp.ID, externalID)
		if err != nil {
			h.logger.Error("failed to resolve user",
				zap.String("request_id", requestID),
				zap.Error(err))
			HandleServiceError(w, err, h.logger)
			return
		}
		// Unseen users have made no requests yet; quota treats them as a
		// fresh free-tier user.
		if user == nil {
			user = models.NewExternalUser(clientApp.ID, externalID)
		}
	}

	summaries := make([]NetworkSummary, 0, len(active))
	for _, network := range active {
		summary := NetworkSummary{
			Name:        network.Name,
			DisplayName: network.DisplayName,
			Provider:    network.Provider,
			NetworkType: network.NetworkType,
			ModelName:   network.ModelName,
			IsFree:      network.IsFree,
			Priority:    network.Priority,
		}
		if user != nil {
			remaining, err := h.quota.Remaining(ctx, user, network)
			if err != nil {
				h.logger.Error("failed to compute remaining quota",
					zap.String("request_id", requestID),
					zap.String("network", network.Name),
					zap.Error(err))
				HandleServiceError(w, err, h.logger)
				return
			}
			summary.Remaining = remaining
		}
		summaries = append(summaries, summary)
	}

	_ = utils.WriteOK(w, NetworkListResponse{Networks: summaries})
}
