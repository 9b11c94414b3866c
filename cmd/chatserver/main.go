// Copyright 2025 Artisan Chat Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main runs the conversational product-search service for the
// artisan goods marketplace.
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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/your-org/artisan-chat/internal/chat"
	"github.com/your-org/artisan-chat/internal/compose"
	"github.com/your-org/artisan-chat/internal/config"
	"github.com/your-org/artisan-chat/internal/embedding"
	"github.com/your-org/artisan-chat/internal/health"
	"github.com/your-org/artisan-chat/internal/history"
	"github.com/your-org/artisan-chat/internal/prefs"
	"github.com/your-org/artisan-chat/internal/query"
	"github.com/your-org/artisan-chat/internal/retrieval"
	"github.com/your-org/artisan-chat/internal/search"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName    = "artisan-chat"
	serviceVersion = "1.0.0"

	// ShutdownTimeout bounds how long in-flight requests may run after a
	// termination signal.
	ShutdownTimeout = 10 * time.Second
)

// ServiceDependencies holds initialized service dependencies
type ServiceDependencies struct {
	Embedder     *embedding.Client
	Searcher     retrieval.Searcher
	SearchHealth func(ctx context.Context) error
	HistoryStore history.Store
	PrefsStore   prefs.Store
	Logger       *zap.Logger
	Config       *config.Config
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "chatserver",
		Short: "Conversational product search for the artisan marketplace",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat HTTP service",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configPath)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	maskedConfig := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("service", serviceName),
		zap.String("environment", os.Getenv("ENVIRONMENT")),
		zap.String("search_backend", maskedConfig.Search.Backend),
		zap.String("search_url", maskedConfig.Search.URL),
		zap.String("history_backend", maskedConfig.History.Backend),
		zap.Bool("generative_compose", maskedConfig.Compose.Generative),
		zap.String("openai_api_key", maskedConfig.OpenAI.APIKey),
	)

	deps, err := initializeDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer closeDependencies(deps)

	service := buildService(cfg, deps)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	handler := chat.NewAPIHandler(service, deps.Logger)
	router.Use(handler.CORSMiddleware())
	handler.RegisterRoutes(router)

	healthManager := health.NewManager(serviceName, serviceVersion, deps.Logger)
	setupHealthChecks(healthManager, deps)
	router.GET("/health", healthManager.GinHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting chat service", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down chat service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// initializeLogger creates a logger based on configuration settings
func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	switch cfg.Logging.Level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	if cfg.Logging.Output == "file" {
		zapConfig.OutputPaths = []string{"chatserver.log"}
		zapConfig.ErrorOutputPaths = []string{"chatserver.log"}
	} else {
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	return zapConfig.Build()
}

// initializeDependencies initializes all service dependencies
func initializeDependencies(cfg *config.Config, logger *zap.Logger) (*ServiceDependencies, error) {
	logger.Info("Initializing service dependencies")

	embedder, err := embedding.NewClient(cfg.OpenAI.APIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	deps := &ServiceDependencies{
		Embedder: embedder,
		Logger:   logger,
		Config:   cfg,
	}

	switch cfg.Search.Backend {
	case "pgvector":
		store, err := search.NewPgvectorStore(cfg.Search.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize pgvector store: %w", err)
		}
		deps.Searcher = store
		deps.SearchHealth = store.HealthCheck
	default:
		client := search.NewClient(cfg.Search.URL, logger)
		deps.Searcher = client
		deps.SearchHealth = client.HealthCheck
	}

	if cfg.History.Backend == "memory" {
		deps.HistoryStore = history.NewMemoryStore()
	} else {
		store, err := history.NewSQLiteStore(cfg.History.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize conversation store: %w", err)
		}
		deps.HistoryStore = store
	}

	prefsStore, err := prefs.NewSQLiteStore(cfg.Prefs.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize preference store: %w", err)
	}
	deps.PrefsStore = prefsStore

	return deps, nil
}

// buildService wires the pipeline stages into the chat service
func buildService(cfg *config.Config, deps *ServiceDependencies) *chat.Service {
	parser := query.NewParser()

	composer := compose.NewComposer(deps.Logger)
	if cfg.Compose.Generative {
		generator := compose.NewOpenAIGeneratorWithOptions(cfg.OpenAI.APIKey, compose.GeneratorOptions{
			Model:       cfg.Compose.Model,
			MaxTokens:   cfg.Compose.MaxTokens,
			Temperature: &cfg.Compose.Temperature,
		}, deps.Logger)
		composer = compose.NewComposerWithGenerator(generator, deps.Logger)
	}

	orchestrator := retrieval.NewOrchestratorWithTimeout(
		deps.Embedder,
		deps.Searcher,
		time.Duration(cfg.Retrieval.TimeoutSeconds)*time.Second,
		deps.Logger,
	)

	return chat.NewService(
		parser,
		query.NewResolver(parser),
		orchestrator,
		composer,
		history.NewRecorder(deps.HistoryStore, deps.Logger),
		deps.HistoryStore,
		deps.PrefsStore,
		deps.Logger,
	)
}

// setupHealthChecks registers dependency checks with the health manager
func setupHealthChecks(manager *health.Manager, deps *ServiceDependencies) {
	manager.AddCheckerFunc("search", func(ctx context.Context) health.CheckResult {
		if err := deps.SearchHealth(ctx); err != nil {
			return health.CheckResult{
				Status: health.StatusUnhealthy,
				Error:  err.Error(),
			}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	})

	if store, ok := deps.HistoryStore.(*history.SQLiteStore); ok {
		manager.AddChecker("conversations", health.DatabaseHealthChecker("conversations", store.Ping))
	}

	if store, ok := deps.PrefsStore.(*prefs.SQLiteStore); ok {
		manager.AddChecker("preferences", health.DatabaseHealthChecker("preferences", store.Ping))
	}
}

// closeDependencies releases store connections on shutdown
func closeDependencies(deps *ServiceDependencies) {
	if deps.HistoryStore != nil {
		if err := deps.HistoryStore.Close(); err != nil {
			deps.Logger.Warn("Failed to close conversation store", zap.Error(err))
		}
	}
	if deps.PrefsStore != nil {
		if err := deps.PrefsStore.Close(); err != nil {
			deps.Logger.Warn("Failed to close preference store", zap.Error(err))
		}
	}
	if closer, ok := deps.Searcher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			deps.Logger.Warn("Failed to close search backend", zap.Error(err))
		}
	}
}
