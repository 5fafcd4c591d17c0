package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"food-gateway/internal/config"
	"food-gateway/internal/core/ports"
	"food-gateway/internal/observability"
)

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	ServiceName string
	Service     ports.FoodService
	Limiter     ports.RateLimiterRepository
	Tiers       []config.RateLimitTier
	User        string
	Password    string
	Logger      *slog.Logger
}

// NewRouter builds the gateway's chi router.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(observability.NewLoggerMiddleware(d.Logger))
	r.Use(observability.NewMetricsMiddleware(d.ServiceName))
	r.Use(observability.NewTracingMiddleware(d.ServiceName))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "route not found", http.StatusNotFound, d.Logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed, d.Logger)
	})

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": d.ServiceName,
		}); err != nil {
			d.Logger.Error("Failed to write health response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := NewFoodHandler(d.Service, d.Logger)
	r.Route("/food", func(r chi.Router) {
		r.Use(NewRateLimiterMiddleware(d.Limiter, d.Tiers, d.Logger).Handler)
		r.Use(BasicAuth(d.User, d.Password, d.Logger))
		handler.Routes(r)
	})

	return r
}
