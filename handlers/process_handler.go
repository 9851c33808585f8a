package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/middleware"
	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services/orchestrator"
	"github.com/noteapp/ai-broker/utils"
)

// BrokerService dispatches a brokered AI request on behalf of a client
// application's end user
type BrokerService interface {
	Process(ctx context.Context, clientApp *models.ClientApplication, req *orchestrator.Request) (*orchestrator.Response, error)
}

// ProcessHandler handles brokered AI request dispatch
type ProcessHandler struct {
	orchestrator BrokerService
	logger       *zap.Logger
}

// NewProcessHandler creates a new ProcessHandler
func NewProcessHandler(svc BrokerService, logger *zap.Logger) *ProcessHandler {
	return &ProcessHandler{
		orchestrator: svc,
		logger:       logger,
	}
}

// HandleProcess handles POST /api/v1/ai/process
func (h *ProcessHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	clientApp := middleware.GetClientAppFromContext(ctx)
	if clientApp == nil {
		h.logger.Error("missing client application in context",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	h.logger.Debug("processing brokered request",
		zap.String("request_id", requestID),
		zap.String("client_app", clientApp.ID.String()),
		zap.String("user_id", req.ExternalUserID),
		zap.String("request_type", string(req.RequestType)),
		zap.String("network", req.NetworkName))

	result, err := h.orchestrator.Process(ctx, clientApp, &req)
	if err != nil {
		h.logger.Warn("brokered request failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("brokered request succeeded",
		zap.String("request_id", requestID),
		zap.String("network_used", result.NetworkUsed),
		zap.Int("tokens_used", result.TokensUsed),
		zap.Int("elapsed_ms", result.ElapsedMs),
		zap.Bool("fell_back", result.FellBack))

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
