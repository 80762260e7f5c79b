package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"madison-ai/internal/app"
	"madison-ai/internal/config"
	"madison-ai/internal/http"
	"madison-ai/internal/service"
	"madison-ai/internal/storage"
)

// General API information
//
// This API answers questions about a library of books, citing the passages
// each answer draws on.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Madison AI API
//   description: |
//     Retrieval-augmented question answering over a library of books.
//     Questions name the documents to search; answers carry quoted sources.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	if !cfg.HasCredentials() {
		slog.Warn("LLM_API_KEY is not set, questions will fail until it is configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
	}()

	libraryService := service.NewLibraryService(pipeline.Library, pipeline.Prewarmer)
	deps := &http.Deps{
		ChatService:    service.NewChatService(pipeline.Engine, cfg.LLMAPIKey),
		EventService:   service.NewEventService(storage.NewEventRepo(pipeline.DB)),
		LibraryService: libraryService,
		HealthChecks:   pipeline.HealthChecks,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	router := http.NewRouter(deps)

	if cfg.WatchBooks {
		watcher, err := pipeline.Library.NewWatcher()
		if err != nil {
			log.Fatalf("Failed to create books watcher: %v", err)
		}
		defer func() {
			_ = watcher.Stop()
		}()
		events, err := watcher.Watch(ctx)
		if err != nil {
			log.Fatalf("Failed to watch books directory: %v", err)
		}
		go pipeline.Prewarmer.Watch(ctx, events, false)
		slog.Info("Watching books directory", "dir", cfg.BooksDir)
	}

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "backend", cfg.RetrievalBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("API server stopped")
}
