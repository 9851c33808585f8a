package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/utils"
)

// HandleServiceError maps domain errors to HTTP responses.
//
// Credential problems (missing or undecryptable keys) are server-side
// configuration faults, so they surface as 500 without leaking the
// provider or key details to the caller.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsUnauthorizedError(err):
		if err := utils.WriteUnauthorized(w, err.Error()); err != nil {
			logger.Error("failed to write unauthorized response", zap.Error(err))
		}

	case services.IsNotFoundError(err), services.IsUnknownNetworkError(err):
		if err := utils.WriteNotFound(w, err.Error()); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsQuotaExceededError(err):
		if err := utils.WriteTooManyRequests(w, err.Error(), details); err != nil {
			logger.Error("failed to write rate limit response", zap.Error(err))
		}

	case services.IsNoAvailableNetworkError(err):
		if err := utils.WriteServiceUnavailable(w, err.Error(), details); err != nil {
			logger.Error("failed to write service unavailable response", zap.Error(err))
		}

	case services.IsUpstreamError(err):
		if err := utils.WriteBadGateway(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	case services.IsUnknownProviderError(err),
		services.IsMissingCredentialError(err),
		services.IsCredentialError(err):
		logger.Error("broker configuration error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "Broker is misconfigured for this network"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
