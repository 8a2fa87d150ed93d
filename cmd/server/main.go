package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/defectlens/internal"
	"github.com/DukeRupert/defectlens/internal/ai"
	"github.com/DukeRupert/defectlens/internal/ai/anthropic"
	"github.com/DukeRupert/defectlens/internal/ai/gemini"
	"github.com/DukeRupert/defectlens/internal/ai/mock"
	"github.com/DukeRupert/defectlens/internal/ai/openai"
	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/handler"
	"github.com/DukeRupert/defectlens/internal/metrics"
	"github.com/DukeRupert/defectlens/internal/middleware"
	"github.com/DukeRupert/defectlens/internal/preview"
	"github.com/DukeRupert/defectlens/internal/report"
	"github.com/DukeRupert/defectlens/internal/storage"
	"github.com/DukeRupert/defectlens/internal/workflow"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize preview storage
	store, err := storage.New(storageConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize analyzer
	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return fmt.Errorf("analyzer initialization failed: %w", err)
	}
	logger.Info("Analyzer ready", "provider", cfg.AIProvider, "confidence_policy", cfg.ConfidencePolicy)

	// Initialize workflow
	previews := preview.NewPublisher(store, nil, preview.Config{
		MaxSize: cfg.PreviewMaxSize,
		URLTTL:  cfg.PreviewURLTTL,
	}, logger)
	controller := workflow.New(analyzer, previews, logger, workflow.WithAnalysisTimeout(cfg.AnalysisTimeout))

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	handler.NewWorkflowHandler(controller, logger).RegisterRoutes(mux)
	handler.NewReportHandler(controller, report.NewPDFGenerator(), report.NewStorageImageLoader(store), logger).RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Preview objects for stores that serve themselves
	if files, ok := store.(http.Handler); ok {
		mux.Handle("GET /files/", http.StripPrefix("/files/", files))
	}

	requestLogger := middleware.NewRequestLoggingMiddleware(logger)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           requestLogger.Handler(metrics.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if err := controller.Dispose(shutdownCtx); err != nil {
		logger.Error("Workflow dispose error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// storageConfig maps the application config onto the storage backends.
func storageConfig(cfg *internal.Config) storage.Config {
	return storage.Config{
		Provider: cfg.StorageProvider,
		BaseURL:  cfg.LocalStorageURL,
		Local: storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
			Endpoint:        cfg.R2Endpoint,
			Region:          cfg.R2Region,
		},
	}
}

// newAnalyzer builds the configured analysis backend, instrumented.
func newAnalyzer(cfg *internal.Config, logger *slog.Logger) (ai.Analyzer, error) {
	providerConfig := ai.ProviderConfig{
		RequestTimeout:   cfg.AIRequestTimeout,
		ConfidencePolicy: domain.ConfidencePolicy(cfg.ConfidencePolicy),
	}

	var (
		analyzer ai.Analyzer
		err      error
	)
	switch cfg.AIProvider {
	case ai.ProviderMock:
		m := mock.New(logger)
		m.ConfidencePolicy = providerConfig.ConfidencePolicy
		analyzer = m
	case ai.ProviderGemini:
		analyzer, err = gemini.New(gemini.Config{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			BaseURL:        cfg.GeminiBaseURL,
			ProviderConfig: providerConfig,
		}, logger)
	case ai.ProviderOpenAI:
		analyzer, err = openai.New(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			BaseURL:        cfg.OpenAIBaseURL,
			ProviderConfig: providerConfig,
		}, logger)
	case ai.ProviderAnthropic:
		analyzer, err = anthropic.New(anthropic.Config{
			APIKey:         cfg.AnthropicAPIKey,
			Model:          cfg.AnthropicModel,
			BaseURL:        cfg.AnthropicBaseURL,
			ProviderConfig: providerConfig,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
	if err != nil {
		return nil, err
	}

	return ai.Instrument(cfg.AIProvider, analyzer, logger), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
