package middleware

import (
	"context"

	"github.com/noteapp/ai-broker/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClientAppKey is the context key for the authenticated client application
	ClientAppKey contextKey = "client_app"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClientAppFromContext retrieves the authenticated client application
// from context, or nil when the request was not authenticated.
func GetClientAppFromContext(ctx context.Context) *models.ClientApplication {
	if val := ctx.Value(ClientAppKey); val != nil {
		if app, ok := val.(*models.ClientApplication); ok {
			return app
		}
	}
	return nil
}

// WithClientApp adds the authenticated client application to the context
func WithClientApp(ctx context.Context, app *models.ClientApplication) context.Context {
	return context.WithValue(ctx, ClientAppKey, app)
}
