package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	rthttp "github.com/roundtable-dev/roundtable/internal/adapter/http"
	rtnats "github.com/roundtable-dev/roundtable/internal/adapter/nats"
	"github.com/roundtable-dev/roundtable/internal/adapter/otel"
	"github.com/roundtable-dev/roundtable/internal/adapter/postgres"
	"github.com/roundtable-dev/roundtable/internal/adapter/ristretto"
	"github.com/roundtable-dev/roundtable/internal/adapter/selectorllm"
	"github.com/roundtable-dev/roundtable/internal/adapter/settingsdb"
	"github.com/roundtable-dev/roundtable/internal/adapter/ws"
	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
	"github.com/roundtable-dev/roundtable/internal/logger"
	"github.com/roundtable-dev/roundtable/internal/middleware"
	"github.com/roundtable-dev/roundtable/internal/pool"
	"github.com/roundtable-dev/roundtable/internal/resilience"
	"github.com/roundtable-dev/roundtable/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"selector_url", cfg.Selector.URL,
	)

	ctx := context.Background()

	// --- Telemetry ---
	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("otel shutdown", "error", err)
			}
		}()
	}
	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pgPool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pgPool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := rtnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Settings cache
	settingsCache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer settingsCache.Close()

	// --- Adapters ---
	store := postgres.NewStore(pgPool)
	settingsProvider := settingsdb.NewProvider(store, settingsCache,
		cfg.Selector.SecretKey, cfg.Cache.SettingsTTL)

	gateway := selectorllm.NewClient(cfg.Selector.URL, settingsProvider, cfg.Selector.Timeout)
	gateway.SetBreaker(resilience.New(cfg.Breaker.MaxFailures, cfg.Breaker.Cooldown))

	hub := ws.NewHub()

	// --- Services ---
	policy := conductor.SafetyPolicy{
		MaxAutoReplies:     cfg.Conductor.MaxAutoReplies,
		TokenBudgetWarning: cfg.Conductor.TokenBudgetWarning,
		TokenBudgetLimit:   cfg.Conductor.TokenBudgetLimit,
	}
	sessionSvc := service.NewSessionService(store)
	turnSvc := service.NewTurnService(store, gateway, settingsProvider, hub, queue,
		metrics, policy, cfg.Conductor.MessageWindow)
	turnSvc.SetSelectorPool(pool.New(cfg.Selector.MaxConcurrent))

	// Process finished persona turns from workers.
	cancelCompletions, err := turnSvc.StartCompletionSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("completion subscriber: %w", err)
	}
	defer cancelCompletions()

	// --- HTTP ---
	handlers := &rthttp.Handlers{
		Sessions: sessionSvc,
		Turns:    turnSvc,
		Settings: settingsProvider,
	}

	r := chi.NewRouter()
	r.Use(rthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rthttp.SecurityHeaders)
	r.Use(rthttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	rthttp.MountRoutes(r, handlers, hub)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * cfg.Selector.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
