// Package main is the entry point for the API server.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shopmate-ai/storefront-backend/internal/chat"
	"github.com/shopmate-ai/storefront-backend/internal/chatlog"
	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/config"
	"github.com/shopmate-ai/storefront-backend/internal/handler"
	"github.com/shopmate-ai/storefront-backend/internal/middleware"
	"github.com/shopmate-ai/storefront-backend/internal/responder"
	"github.com/shopmate-ai/storefront-backend/internal/store"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
	"github.com/shopmate-ai/storefront-backend/pkg/tracing"
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
		tp, err := tracing.InitTracer(ctx, "storefront-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to Postgres
	db, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Connect to NATS for the conversation turn log
	natsClient, err := chatlog.Connect(ctx, chatlog.Config{
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
	defer natsClient.Close()

	turnLog := chatlog.NewTurnLog(natsClient)
	if err := turnLog.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure turn log stream", zap.Error(err))
		os.Exit(1)
	}

	// Pick the generative responder. Missing keys degrade to canned replies.
	var generative responder.Responder
	provider, apiKey := pickProvider(cfg)
	if apiKey != "" {
		generative, err = responder.NewGenerative(provider, apiKey)
		if err != nil {
			log.Warn("failed to create generative responder, using fallback replies", zap.Error(err))
			generative = nil
		} else {
			log.Info("generative responder enabled", zap.String("provider", string(provider)))
		}
	} else {
		log.Warn("no responder API key configured, using fallback replies")
	}

	// Build the product index for retrieval
	index := responder.NewIndex()
	if products, err := db.Products(ctx); err != nil {
		log.Warn("failed to build product index", zap.Error(err))
	} else {
		index.Rebuild(products)
		log.Info("product index built", zap.Int("products", index.Len()))
	}

	// Initialize services
	engine := commerce.NewEngine(db, log)
	chatSvc := chat.NewService(db, generative, index, turnLog, cfg.ResponderTimeout, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, natsClient)
	chatHandler := handler.NewChatHandler(chatSvc, engine, log)
	orderHandler := handler.NewOrderHandler(engine, log)
	productHandler := handler.NewProductHandler(db, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Chat
		r.Route("/chat", func(r chi.Router) {
			r.Post("/message", chatHandler.Message)
			r.Post("/order-verify", chatHandler.VerifyOrder)
			r.Get("/history", chatHandler.History)
			r.Post("/clear-history", chatHandler.ClearHistory)
			r.With(middleware.RequireScope("admin")).Post("/init", chatHandler.Init)
		})

		// Orders
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Get("/pending", orderHandler.Pending)
			r.Post("/create", orderHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", orderHandler.Get)
				r.Post("/confirm", orderHandler.Confirm)
				r.Post("/cancel", orderHandler.Cancel)
			})
		})

		// Products
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/categories", productHandler.Categories)
			r.Get("/favorites", productHandler.Favorites)
			r.Get("/search-history", productHandler.SearchHistory)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.Get)
				r.Post("/review", productHandler.Review)
				r.Post("/favorite", productHandler.Favorite)
			})
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

// pickProvider honors DEFAULT_RESPONDER when its key is present and falls
// back to whichever provider has a key configured.
func pickProvider(cfg *config.Config) (responder.Provider, string) {
	if cfg.DefaultResponder == string(responder.ProviderOpenAI) && cfg.OpenAIAPIKey != "" {
		return responder.ProviderOpenAI, cfg.OpenAIAPIKey
	}
	if cfg.AnthropicAPIKey != "" {
		return responder.ProviderAnthropic, cfg.AnthropicAPIKey
	}
	if cfg.OpenAIAPIKey != "" {
		return responder.ProviderOpenAI, cfg.OpenAIAPIKey
	}
	return responder.ProviderAnthropic, ""
}
