// Confido - voice coaching backend server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/confido/internal/agent"
	"github.com/ashureev/confido/internal/analytics"
	"github.com/ashureev/confido/internal/api"
	"github.com/ashureev/confido/internal/config"
	"github.com/ashureev/confido/internal/health"
	"github.com/ashureev/confido/internal/identity"
	"github.com/ashureev/confido/internal/live"
	"github.com/ashureev/confido/internal/middleware"
	"github.com/ashureev/confido/internal/session"
	"github.com/ashureev/confido/internal/store"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "db_driver", cfg.DB.Driver, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.Open(ctx, store.Options{
		Driver:         cfg.DB.Driver,
		Path:           cfg.DB.Path,
		URL:            cfg.DB.URL,
		MaxRetries:     cfg.DB.MaxRetries,
		RetryBaseDelay: cfg.DB.RetryBaseDelay,
	})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "driver", repo.Driver())

	// Initialize services.
	agents := agent.NewService(repo)
	seeded, err := agents.Seed(ctx, agent.SystemPersonas)
	if err != nil {
		slog.Error("Failed to seed system personas", "error", err)
		os.Exit(1)
	}
	slog.Info("System personas ready", "created", seeded)

	registry := live.NewRegistry()
	recorder := analytics.NewRecorder(repo)
	lifecycle := session.NewLifecycle(repo,
		session.WithCompletionHook(recorder.OnSessionCompleted),
		session.WithCompletionHook(registry.OnSessionCompleted),
		session.WithLiveCheck(registry.Live),
	)
	reader := analytics.NewReader(repo, cfg.DashboardSessionLimit)
	verifier := identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience)

	// Initialize handlers.
	handler := api.NewHandler(repo, agents, lifecycle, reader, recorder)
	healthHandler := api.NewHealthHandler(repo, version)
	wsHandler := live.NewHandler(lifecycle, registry, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware(verifier, repo))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	// Websocket streams are long lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	// Start background workers.
	session.StartReconciler(ctx, lifecycle, cfg.SessionAutocompleteAfter, cfg.ReconcileInterval)

	grpcHealth, err := health.New(":"+cfg.GRPCPort, repo, health.DefaultProbeInterval)
	if err != nil {
		slog.Error("Failed to start gRPC health server", "error", err)
		os.Exit(1)
	}
	grpcDone := make(chan struct{})
	go func() {
		defer close(grpcDone)
		if err := grpcHealth.Serve(ctx); err != nil {
			slog.Error("gRPC health server failed", "error", err)
		}
	}()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	<-grpcDone

	slog.Info("Server stopped successfully")
}
