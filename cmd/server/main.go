// Form Coach - push-up rep counting and form feedback server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"formcoach/internal/api"
	"formcoach/internal/coach"
	"formcoach/internal/config"
	"formcoach/internal/estimator"
	"formcoach/internal/identity"
	"formcoach/internal/logger"
	"formcoach/internal/metrics"
	"formcoach/internal/middleware"
	"formcoach/internal/profile"
	"formcoach/internal/store"
	"formcoach/internal/stream"
	"formcoach/internal/summary"
	"formcoach/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(cfg.LogLevel, cfg.LogFormat))
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	prof, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		slog.Error("Failed to load exercise profile", "error", err)
		os.Exit(1)
	}
	slog.Info("Exercise profile loaded", "exercise", prof.Name, "window", prof.Window)

	met := metrics.New()
	sm := coach.NewSessionManager()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, sm, cfg.FrontendURL)
	healthHandler := api.NewHealthHandler(repo)
	sessionHandler := api.NewSessionHandler(baseHandler, prof)
	wsHandler := stream.NewWebSocketHandler(repo, sm, prof, cfg.FrontendURL, cfg.IsDevelopment())
	wsHandler.SetMetrics(met)

	// Server-side pose estimation is optional; without it clients must send
	// keypoints they extracted in the browser.
	if cfg.EstimatorURL != "" {
		wsHandler.SetEstimator(estimator.NewHTTP(cfg.EstimatorURL, cfg.EstimatorTimeout))
		slog.Info("Pose estimator enabled", "url", cfg.EstimatorURL)
	} else {
		slog.Info("Pose estimator disabled (ESTIMATOR_URL not set)")
	}

	if cfg.SummarizerURL != "" {
		wsHandler.SetSummarizer(summary.New(cfg.SummarizerURL))
		slog.Info("Summarizer enabled", "url", cfg.SummarizerURL)
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", met.Handler(func() {
		met.SetActiveSessions(sm.ActiveCount())
	}))

	// All routes use identity middleware (no auth needed).
	sessionHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/pose", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Long-lived WebSocket streams need no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coach.StartReaper(ctx, repo, sm, cfg.SessionIdle, cfg.SessionRetention)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
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
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
