// Package main is the entry point for the chat session API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-sessions/internal/config"
	"github.com/capitalize-ai/chat-sessions/internal/events"
	"github.com/capitalize-ai/chat-sessions/internal/handler"
	"github.com/capitalize-ai/chat-sessions/internal/llm"
	"github.com/capitalize-ai/chat-sessions/internal/middleware"
	"github.com/capitalize-ai/chat-sessions/internal/service"
	"github.com/capitalize-ai/chat-sessions/internal/store"
	"github.com/capitalize-ai/chat-sessions/pkg/logger"
	"github.com/capitalize-ai/chat-sessions/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-sessions", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Initialize the session store
	sessionStore := store.New(store.NewFileBlob(cfg.StorePath), cfg.SystemPrompt, log)

	// Connect the event feed when configured
	var publisher events.Publisher = events.Nop{}
	var natsPublisher *events.NATSPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	// Initialize LLM client
	var llmClient llm.Client
	switch {
	case cfg.AnthropicAPIKey != "":
		if c, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey); err != nil {
			log.Warn("failed to create Anthropic client, LLM features disabled", zap.Error(err))
		} else {
			llmClient = c
		}
	case cfg.OpenAIAPIKey != "":
		if c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey); err != nil {
			log.Warn("failed to create OpenAI client, LLM features disabled", zap.Error(err))
		} else {
			llmClient = c
		}
	default:
		log.Warn("no LLM API key configured, LLM features disabled")
	}

	// Initialize the conversation manager
	manager := service.NewManager(sessionStore, llmClient, publisher, log, service.Options{
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		HistoryWindow: cfg.HistoryWindow,
	})

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsPublisher)
	conversationHandler := handler.NewConversationHandler(manager, sessionStore, log)
	messageHandler := handler.NewMessageHandler(manager, sessionStore, log)
	streamHandler := handler.NewStreamHandler(manager, sessionStore, log)
	exportHandler := handler.NewExportHandler(sessionStore, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Update)
				r.Delete("/", conversationHandler.Delete)
				r.Post("/clear", conversationHandler.Clear)
				r.Put("/system-prompt", conversationHandler.UpdateSystemPrompt)

				// Messages
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)

				// Streaming
				r.Get("/stream", streamHandler.Stream)
				r.Post("/stream", streamHandler.StreamWithMessage)
			})
		})

		// Export / import
		r.Route("/chats", func(r chi.Router) {
			r.Get("/export", exportHandler.Export)
			r.Post("/import", exportHandler.Import)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
