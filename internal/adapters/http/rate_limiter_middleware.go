package http

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"food-gateway/internal/config"
	"food-gateway/internal/core/ports"
	"food-gateway/internal/observability"
)

// RateLimiterMiddleware - это middleware для ограничения частоты запросов.
type RateLimiterMiddleware struct {
	repo   ports.RateLimiterRepository
	tiers  []config.RateLimitTier
	logger *slog.Logger
}

// NewRateLimiterMiddleware создает новый экземпляр middleware.
func NewRateLimiterMiddleware(repo ports.RateLimiterRepository, tiers []config.RateLimitTier, logger *slog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		repo:   repo,
		tiers:  tiers,
		logger: logger,
	}
}

// Handler является основной функцией middleware. Every tier must admit the request.
func (m *RateLimiterMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Используем IP-адрес клиента как ключ для ограничения.
		ip := clientIP(r)

		for _, tier := range m.tiers {
			allowed, err := m.repo.IsAllowed(r.Context(), tier.Name+":"+ip, tier.Limit, tier.Window)
			if err != nil {
				// "Fail-open": если хранилище лимитов недоступно, пропускаем запрос.
				m.logger.Error("rate limiter backend failed", "tier", tier.Name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				observability.ObserveRateLimited(tier.Name)
				m.logger.Info("rate limit exceeded", "tier", tier.Name, "ip", ip)
				retry := int(math.Ceil(tier.Window.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, formatOf(r), http.StatusTooManyRequests, ErrorResponse{Error: "Too Many Requests"}, m.logger)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port when present. chi's RealIP middleware leaves a bare address.
func clientIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
