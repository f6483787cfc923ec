package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smishing-guard/internal/app"
	"smishing-guard/internal/repository"
	"smishing-guard/internal/service"
	"smishing-guard/pkg/config"
	"smishing-guard/pkg/logger"
	"smishing-guard/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "clear the vector index before loading")
	limit := flag.Int("limit", 0, "maximum number of fraud examples to load (default SYNC_ROW_LIMIT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(cfg.Logger.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger, service.SyncOptions{Rebuild: *rebuild, Limit: *limit}); err != nil {
		appLogger.Error("Corpus sync failed", zap.Error(err))
		logger.Sync(appLogger)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger, opts service.SyncOptions) error {
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	embedder, err := app.NewEmbedder(cfg, appLogger)
	if err != nil {
		return err
	}

	store, err := app.NewStorage(ctx, cfg, db, appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	examples := repository.NewExampleRepository(db, appLogger)
	syncer := service.NewSyncService(examples, embedder, store, &cfg.Sync, appLogger)

	report, err := syncer.Run(ctx, opts)
	if err != nil {
		return err
	}
	if report.Batches > 0 && report.FailedBatches == report.Batches {
		return fmt.Errorf("all %d batches failed", report.Batches)
	}
	return nil
}
