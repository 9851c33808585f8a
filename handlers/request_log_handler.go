package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/middleware"
	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/utils"
)

const (
	defaultLogPageSize = 50
	maxLogPageSize     = 200
)

// RequestLogListResponse wraps a page of request log entries
type RequestLogListResponse struct {
	Requests []*models.RequestLog `json:"requests"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// RequestLogHandler serves the request history of a client application
type RequestLogHandler struct {
	logs   repositories.RequestLogRepository
	logger *zap.Logger
}

// NewRequestLogHandler creates a new RequestLogHandler
func NewRequestLogHandler(logs repositories.RequestLogRepository, logger *zap.Logger) *RequestLogHandler {
	return &RequestLogHandler{
		logs:   logs,
		logger: logger,
	}
}

// HandleList handles GET /api/v1/ai/requests
func (h *RequestLogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	clientApp := middleware.GetClientAppFromContext(ctx)
	if clientApp == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	limit := queryInt(r, "limit", defaultLogPageSize)
	if limit < 1 || limit > maxLogPageSize {
		limit = defaultLogPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.logs.ListByClientApp(ctx, clientApp.ID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list request logs",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, RequestLogListResponse{
		Requests: entries,
		Limit:    limit,
		Offset:   offset,
	})
}

// HandleGet handles GET /api/v1/ai/requests/{id}. Entries belonging to a
// different client application are indistinguishable from missing ones.
func (h *RequestLogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	clientApp := middleware.GetClientAppFromContext(ctx)
	if clientApp == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request log ID", nil)
		return
	}

	entry, err := h.logs.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("failed to load request log",
			zap.String("request_id", requestID),
			zap.String("log_id", id.String()),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	if entry == nil || entry.ClientAppID != clientApp.ID {
		HandleServiceError(w, services.ErrRequestLogNotFound, h.logger)
		return
	}

	_ = utils.WriteOK(w, entry)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
