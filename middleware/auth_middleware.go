package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/repositories"
	"github.com/noteapp/ai-broker/utils"
)

// APIKeyHeader carries the client application key
const APIKeyHeader = "X-API-Key"

// AuthMiddleware authenticates client applications by API key
type AuthMiddleware struct {
	clientApps repositories.ClientApplicationRepository
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(clientApps repositories.ClientApplicationRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		clientApps: clientApps,
		logger:     logger,
	}
}

// RequireAPIKey resolves the X-API-Key header to an active client
// application and stores it in the request context. Unknown keys and
// disabled applications are both rejected with 401.
func (m *AuthMiddleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
		if apiKey == "" {
			m.logger.Warn("missing API key",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing API key")
			return
		}

		app, err := m.clientApps.GetByAPIKey(ctx, apiKey)
		if err != nil {
			m.logger.Error("API key lookup failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}
		if app == nil {
			m.logger.Warn("unknown API key",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Invalid API key")
			return
		}
		if !app.IsActive {
			m.logger.Warn("disabled client application",
				zap.String("request_id", requestID),
				zap.String("client_app", app.ID.String()))
			_ = utils.WriteUnauthorized(w, "Client application is disabled")
			return
		}

		ctx = WithClientApp(ctx, app)

		m.logger.Debug("client application authenticated",
			zap.String("request_id", requestID),
			zap.String("client_app", app.ID.String()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
