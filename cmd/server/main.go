// tandem - relationship check-in insight server
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

	"github.com/ashureev/tandem/internal/api"
	"github.com/ashureev/tandem/internal/catalog"
	"github.com/ashureev/tandem/internal/config"
	"github.com/ashureev/tandem/internal/insight"
	"github.com/ashureev/tandem/internal/middleware"
	"github.com/ashureev/tandem/internal/retention"
	"github.com/ashureev/tandem/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	sqliteStore, err := store.NewSQLite(cfg.DBPath, store.Options{
		Timeout:        cfg.Timeout.Store,
		MaxRetries:     cfg.Retry.DatabaseMaxRetries,
		RetryBaseDelay: cfg.Retry.DatabaseRetryBaseDelay,
	})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := sqliteStore.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	repo := store.NewCachedRepository(sqliteStore, cfg.Insight.CatalogCacheTTL)

	if cfg.SeedCatalog {
		defaults, err := catalog.Default()
		if err != nil {
			slog.Error("Failed to load default catalog", "error", err)
			os.Exit(1)
		}
		if _, err := catalog.Seed(context.Background(), repo, defaults); err != nil {
			slog.Error("Failed to seed catalog", "error", err)
			os.Exit(1)
		}
	}

	// Initialize services.
	engine := insight.New(repo, insight.Options{
		AlertTTL:            cfg.Insight.AlertTTL,
		RecommendationTTL:   cfg.Insight.RecommendationTTL,
		AlertDedup:          cfg.Insight.AlertDedup,
		RecommendationLimit: cfg.Insight.RecommendationLimit,
		RunTimeout:          cfg.Timeout.InsightRun,
		Logger:              logger,
	})
	slog.Info("Insight engine initialized", "alert_dedup", cfg.Insight.AlertDedup, "alert_ttl", cfg.Insight.AlertTTL)

	// Initialize handlers.
	handler := api.NewHandler(repo, engine)
	healthHandler := api.NewHealthHandler(repo, cfg.Timeout.HealthCheck)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", promhttp.Handler())

	// Routes requiring identity headers.
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background workers.
	retention.NewSweeper(repo, cfg.Retention.SweepInterval, cfg.Retention.Period, nil).Start(ctx)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
