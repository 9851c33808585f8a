package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noteapp/ai-broker/app"
	"github.com/noteapp/ai-broker/handlers"
	"github.com/noteapp/ai-broker/middleware"
)

// requestIDToContext bridges chi's request ID into the application context
// key so handlers and middleware can log it without importing chi.
func requestIDToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
			ctx = middleware.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(2 * time.Minute))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)
	processHandler := handlers.NewProcessHandler(deps.Orchestrator, deps.Logger)
	networkHandler := handlers.NewNetworkHandler(deps.Repos.Networks, deps.Repos.ExternalUsers, deps.Quota, deps.Logger)
	requestLogHandler := handlers.NewRequestLogHandler(deps.Repos.RequestLogs, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ai", func(r chi.Router) {
			r.Use(requestIDToContext)
			r.Use(deps.AuthMiddleware.RequireAPIKey)

			r.Post("/process", processHandler.HandleProcess)
			r.Get("/networks", networkHandler.HandleList)
			r.Get("/requests", requestLogHandler.HandleList)
			r.Get("/requests/{id}", requestLogHandler.HandleGet)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
