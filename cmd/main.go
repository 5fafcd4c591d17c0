package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httphandler "food-gateway/internal/adapters/http"
	"food-gateway/internal/adapters/messaging/kafka"
	"food-gateway/internal/adapters/messaging/mock"
	"food-gateway/internal/adapters/storage/memory"
	"food-gateway/internal/adapters/storage/redis"
	"food-gateway/internal/adapters/upstream"
	"food-gateway/internal/app"
	"food-gateway/internal/config"
	"food-gateway/internal/core/ports"
	"food-gateway/internal/observability"
)

const serviceName = "food-gateway"

// publisher is an EventPublisher that must be drained on shutdown.
type publisher interface {
	ports.EventPublisher
	Close()
}

func main() {
	// --- 1. Configuration and Logging ---
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fallbackLogger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("Application starting", "env", cfg.App.Env, "port", cfg.Server.Port, "upstream", cfg.Upstream.URL)

	// --- 2. Observability ---
	ctx := context.Background()
	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLP.Endpoint, serviceName)
	if err != nil {
		logger.Error("Failed to initialize tracing", "ERROR", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to shutdown tracer", "ERROR", err)
		}
	}()

	// --- 3. Dependencies ---
	var limiter ports.RateLimiterRepository
	if cfg.Redis.Addr != "" {
		redisLimiter, err := redis.NewRateLimiterAdapter(cfg.Redis.Addr)
		if err != nil {
			logger.Error("Failed to connect to Redis", "ERROR", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisLimiter.Close(); err != nil {
				logger.Warn("Failed to close Redis", "ERROR", err)
			}
		}()
		limiter = redisLimiter
		logger.Info("Rate limiter uses Redis", "addr", cfg.Redis.Addr)
	} else {
		limiter = memory.NewRateLimiter()
		logger.Info("Rate limiter uses process memory")
	}

	var events publisher
	if cfg.Kafka.BootstrapServers != "" {
		broker, err := kafka.NewBroker(ctx, cfg.Kafka.BootstrapServers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("Failed to create Kafka broker", "ERROR", err)
			os.Exit(1)
		}
		events = broker
		logger.Info("Kafka broker created", "topic", cfg.Kafka.Topic)
	} else {
		events = mock.NewBroker(logger)
	}
	defer events.Close()

	upstreamClient := upstream.NewClient(upstream.Options{
		URL:      cfg.Upstream.URL,
		User:     cfg.Upstream.User,
		Password: cfg.Upstream.Password,
		Timeout:  cfg.Upstream.Timeout,
	}, logger)

	// --- 4. Service Layer ---
	foodService := app.NewFoodService(upstreamClient, events, logger)

	// --- 5. HTTP Router ---
	router := httphandler.NewRouter(httphandler.RouterDeps{
		ServiceName: serviceName,
		Service:     foodService,
		Limiter:     limiter,
		Tiers:       cfg.RateLimit.Tiers,
		User:        cfg.Auth.User,
		Password:    cfg.Auth.Password,
		Logger:      logger,
	})

	// --- 6. HTTP Server ---
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Upstream.Timeout*2 + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		return
	}

	logger.Info("Server exited properly")
}
