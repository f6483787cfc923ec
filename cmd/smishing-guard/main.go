package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smishing-guard/internal/api"
	"smishing-guard/internal/api/handlers"
	"smishing-guard/internal/app"
	"smishing-guard/internal/repository"
	"smishing-guard/internal/service"
	"smishing-guard/pkg/config"
	"smishing-guard/pkg/logger"
	"smishing-guard/pkg/postgres"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// @title Smishing Guard API
// @version 1.0
// @description Retrieval-augmented smishing risk scoring for SMS messages.

// @host localhost:8080
// @BasePath /

func main() {
	if err := run(); err != nil {
		fmt.Printf("smishing-guard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync(appLogger)

	appLogger.Info("Starting Smishing Guard service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	analysisRepo := repository.NewAnalysisRepository(db, appLogger)
	if err := analysisRepo.EnsureSchema(ctx); err != nil {
		return err
	}

	embedder, err := app.NewEmbedder(cfg, appLogger)
	if err != nil {
		return err
	}

	store, err := app.NewStorage(ctx, cfg, db, appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	classifier, err := service.NewClassifierService(ctx, &cfg.GigaChat, &cfg.Classifier, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}
	defer classifier.Close()

	retrieval := service.NewRetrievalService(embedder, store, &cfg.RAG, appLogger)
	analyzer := service.NewAnalyzeService(retrieval, classifier, analysisRepo, appLogger)

	analyzeHandler := handlers.NewAnalyzeHandler(analyzer, appLogger)
	analysisHandler := handlers.NewAnalysisHandler(analysisRepo, retrieval, appLogger)

	server := api.SetupRouter(analyzeHandler, analysisHandler, &cfg.Server, appLogger)

	appLogger.Info("Pipeline ready",
		zap.String("embedder", embedder.Name()),
		zap.String("vector_store", store.Name()),
		zap.Int("top_k", retrieval.TopK()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		return server.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server")
		return server.Shutdown()
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	appLogger.Info("Server stopped")
	return nil
}
