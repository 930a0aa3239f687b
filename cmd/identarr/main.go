package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"identarr/internal/api"
	"identarr/internal/config"
	"identarr/internal/controllers"
	"identarr/internal/models"
	"identarr/internal/parser"
	"identarr/internal/scheduler"
	"identarr/internal/services/llm"
	"identarr/internal/services/tmdb"
	"identarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Identarr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Load ignore list
	ignore, err := parser.LoadIgnoreList(cfg.IgnoreFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load ignore list, continuing without it")
		ignore = &parser.IgnoreList{}
	} else {
		logger.Info("Ignore list loaded")
	}

	// 5. Initialize services
	provider, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	logger.Info("TMDB client initialized")

	var completer llm.Completer
	if cfg.UseModelPipeline {
		llmClient, err := llm.NewClient(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize completion client: %w", err)
		}
		completer = llmClient
		logger.WithField("model", cfg.LLMModel).Info("Completion client initialized")
	}

	// 6. Initialize controllers
	extractor := parser.NewExtractor(logger)
	identifyCtrl := controllers.NewIdentifyController(extractor, completer, logger)
	resolveCtrl := controllers.NewResolveController(provider, completer, logger)
	scrapeCtrl := controllers.NewScrapeController(identifyCtrl, resolveCtrl, provider, cfg.UseModelPipeline, logger)
	logger.Info("Controllers initialized")

	// 7. Initialize queue
	registry := prometheus.NewRegistry()
	metrics := scheduler.NewMetrics(registry)
	queue, err := scheduler.NewQueue(db, scrapeCtrl, cfg.Queue, ignore, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	if err := queue.Start(); err != nil {
		return fmt.Errorf("failed to start task queue: %w", err)
	}
	defer queue.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(cfg, db, queue, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Identarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Identarr stopped")
	return nil
}
