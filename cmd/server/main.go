// Package main provides the API server entry point for the indexer snapshot service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indexer-snapshots/internal/api"
	"github.com/indexer-snapshots/internal/circuitbreaker"
	"github.com/indexer-snapshots/internal/config"
	"github.com/indexer-snapshots/internal/logging"
	"github.com/indexer-snapshots/internal/retry"
	"github.com/indexer-snapshots/internal/service"
	"github.com/indexer-snapshots/internal/snapshot"
	"github.com/indexer-snapshots/internal/storage"
)

func main() {
	fmt.Println("Indexer Snapshot API Server")

	if err := run(); err != nil {
		logging.GetGlobalLogger().WithError(err).Error("Server stopped")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	snapshotCfg, err := snapshot.ConfigFromSnapshotConfig(cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("invalid snapshot configuration: %w", err)
	}

	ctx := logging.WithLogger(context.Background(), logger)

	logger.Info("Connecting to databases...")

	// Postgres is often still starting when the server comes up
	var postgres *storage.PostgresDB
	err = retry.WithRetry(ctx, func(ctx context.Context, attempt int) error {
		db, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
		if err != nil {
			return err
		}
		postgres = db
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	defer postgres.Close()

	var store storage.SnapshotStore = storage.NewSnapshotRepository(postgres)

	if cfg.Database.Redis.Host != "" {
		redis, err := storage.NewRedisCache(&cfg.Database.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redis.Close()

		store = storage.NewCachedSnapshotStore(store, redis, cfg.Cache.TTL)
		logger.Info("Snapshot cache enabled")
	}

	if cfg.Database.ClickHouse.Host != "" {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		defer clickhouse.Close()

		archiver := storage.NewGuardedArchiver(
			storage.NewSnapshotArchive(clickhouse),
			circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("snapshot-archive")),
		)
		store = storage.NewArchivingStore(store, archiver)
		logger.Info("Snapshot archive enabled")
	}

	logger.Info("Database connections established")

	indexerService := service.NewIndexerService(store, storage.NewIndexerRepository(postgres), snapshotCfg)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimitRPS:    cfg.Server.RateLimitRPS,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
	}

	server := api.NewServer(serverConfig, indexerService, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.WithFields(map[string]interface{}{
		"genesisTimestamp": snapshotCfg.GenesisTimestamp,
		"dayLength":        snapshotCfg.DayLength,
		"rollingMode":      string(snapshotCfg.RollingMode),
	}).Infof("Server listening on %s:%s", cfg.Server.Host, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Infof("Received %s, shutting down server...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
	return nil
}
