package main

import (
	"context"
	"errors"
	"fmt"

	"modelserve/internal/artifact"
	"modelserve/internal/cache"
	"modelserve/internal/config"
	"modelserve/internal/core"
	"modelserve/internal/inference"
	logpkg "modelserve/internal/log"
	"modelserve/internal/metrics"
	"modelserve/internal/model"
	"modelserve/internal/modelstore"
	"modelserve/internal/server"
	"modelserve/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	dotenvErr := godotenv.Load()

	logger := logpkg.CreateLogger()

	if dotenvErr != nil {
		logger.Warn("No .env file found, using system environment variables")
	}
	logger.Info("Logger initialized")

	err := run(logger)
	_ = logger.Close()
	if err != nil {
		logger.Fatal("%v", err)
	}
}

// run loads the model to completion before the listener opens, then serves
// until shutdown and releases everything in reverse order.
func run(logger core.Logger) error {
	cfg, err := config.LoadServerConfigFromEnv(logger)
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	storageInstance := storage.InitStorage(logger)
	defer func() { _ = storageInstance.Close() }()

	cfg.Storage = storageInstance
	cfg.Logger = logger

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       logger,
	})
	defer func() {
		if err := metricsService.Close(); err != nil {
			logger.Warn("Failed to persist stats on shutdown: %v", err)
		}
	}()
	if err := metricsService.LoadStats(); err != nil {
		logger.Warn("Failed to load historical stats: %v", err)
	}

	store := modelstore.New(modelstore.Config{
		Fetcher: artifact.NewFetcher(artifact.FetcherConfig{
			Dir:    cfg.ArtifactDir,
			Stores: artifact.DefaultStores(cfg.LocalStoreRoot),
			Logger: logger,
		}),
		Loader: model.NewLoader(model.LoaderConfig{
			OnnxRuntimeLibrary: cfg.OnnxRuntimeLibrary,
			Logger:             logger,
		}),
		Logger: logger,
	})
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Model teardown reported errors: %v", err)
		}
	}()

	logger.Info("Loading model from %s", cfg.ModelURL)
	initCtx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	err = store.Init(initCtx, cfg.ModelURL)
	cancel()
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedFormat) {
			return fmt.Errorf("unsupported model artifact: %w", err)
		}
		return fmt.Errorf("failed to initialize model: %w", err)
	}

	predictionCache := cache.NewPredictionCache(cfg.PredictionCacheTTL, core.CacheDefaultCapacity)
	defer func() { _ = predictionCache.Close() }()

	service := inference.NewService(inference.ServiceConfig{
		Models:  store,
		Cache:   predictionCache,
		Metrics: metricsService,
		Logger:  logger,
	})

	srv, err := server.NewServer(cfg, server.Dependencies{
		Models:    store,
		Predictor: service,
		Metrics:   metricsService,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	logger.Info("Starting server on port %s", cfg.Port)
	if err := srv.Run(); err != nil {
		return err
	}
	logger.Info("Server stopped, releasing model")
	return nil
}
