package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Taskboard/internal/api"
	"github.com/MikeSquared-Agency/Taskboard/internal/cache"
	"github.com/MikeSquared-Agency/Taskboard/internal/hermes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API and metrics servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Database
	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate("up", logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	// Ranking cache (optional)
	var rankingCache *cache.RankingCache
	if cfg.Redis.URL != "" {
		rc, err := cache.Dial(cfg.Redis.URL, cfg.RedisTTL(), cache.BreakerConfig{
			FailureThreshold: cfg.Redis.BreakerFailures,
			Timeout:          cfg.BreakerTimeout(),
		}, logger)
		if err != nil {
			logger.Warn("invalid redis config, running without ranking cache", "error", err)
		} else {
			if err := rc.Ping(ctx); err != nil {
				logger.Warn("redis unreachable at startup, cache will retry", "error", err)
			}
			rankingCache = rc
			defer rc.Close()
			logger.Info("ranking cache enabled", "ttl", cfg.RedisTTL())
		}
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	// API server
	router, err := api.NewRouter(db, hermesClient, rankingCache, engine, cfg, logger)
	if err != nil {
		return err
	}
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
			cancel()
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}
