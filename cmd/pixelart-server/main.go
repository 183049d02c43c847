package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/basel-ax/pixelart/internal/api"
	"github.com/basel-ax/pixelart/internal/config"
	"github.com/basel-ax/pixelart/internal/infrastructure/imagen"
	"github.com/basel-ax/pixelart/internal/metrics"
	"github.com/basel-ax/pixelart/internal/observability"
	"github.com/basel-ax/pixelart/internal/ratelimit"
	"github.com/basel-ax/pixelart/internal/repository"
	"github.com/basel-ax/pixelart/internal/service"
)

func main() {
	verbose := flag.Bool("verbose", false, "Enable development logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogDevelopment || *verbose)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	imageClient, err := imagen.NewClient(ctx, imagen.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.ImagenModel,
		Timeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create image client", zap.Error(err))
	}

	counters, err := newCounterRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create rate limit store", zap.Error(err))
	}
	defer counters.Close()

	collector := metrics.NewCollector("pixelart")
	limiter := ratelimit.NewFixedWindow(counters, cfg.RateLimit.Max, cfg.RateLimit.Window)
	imgService := service.NewImageGenerationService(imageClient, service.Options{
		RequestTimeout: cfg.RequestTimeout,
		UpstreamRPS:    cfg.UpstreamRPS,
		UpstreamBurst:  cfg.UpstreamBurst,
	}, collector, logger)

	router := api.NewRouter(api.NewHandler(imgService, logger), limiter, collector, logger, api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxy:     cfg.RateLimit.TrustProxy,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			zap.String("addr", server.Addr),
			zap.String("model", cfg.ImagenModel),
			zap.Int("rate_limit_max", limiter.Limit()),
			zap.Duration("rate_limit_window", limiter.Window()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, initiating shutdown", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// newCounterRepository picks the shared Redis store when configured, otherwise the in-process store
func newCounterRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.CounterRepository, error) {
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}

		logger.Info("Using Redis rate limit store", zap.String("addr", cfg.Redis.Addr))
		return repository.NewRedisCounterRepository(client, "pixelart:ratelimit:"), nil
	}

	counters := repository.NewMemoryCounterRepository()
	if err := counters.StartSweeper(cfg.RateLimit.SweepSchedule); err != nil {
		return nil, err
	}
	logger.Info("Using in-memory rate limit store", zap.String("sweep_schedule", cfg.RateLimit.SweepSchedule))
	return counters, nil
}
