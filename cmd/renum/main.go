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

	rnhttp "github.com/rcarraroia/renum/internal/adapter/http"
	rnnats "github.com/rcarraroia/renum/internal/adapter/nats"
	rnotel "github.com/rcarraroia/renum/internal/adapter/otel"
	"github.com/rcarraroia/renum/internal/adapter/postgres"
	"github.com/rcarraroia/renum/internal/adapter/ristretto"
	"github.com/rcarraroia/renum/internal/adapter/suna"
	"github.com/rcarraroia/renum/internal/adapter/ws"
	"github.com/rcarraroia/renum/internal/config"
	"github.com/rcarraroia/renum/internal/envcheck"
	"github.com/rcarraroia/renum/internal/logger"
	"github.com/rcarraroia/renum/internal/middleware"
	"github.com/rcarraroia/renum/internal/resilience"
	"github.com/rcarraroia/renum/internal/service"
)

const serviceName = "renum"

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe()
	case "migrate":
		err = runMigrate(args)
	case "admin":
		err = runAdmin(args)
	case "help", "--help", "-h":
		printHelp()
	default:
		printHelp()
		err = fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: renum <command> [options]

Commands:
  serve      Run the API server (default)
  migrate    Apply or roll back database migrations
  admin      User administration (reset-password, create-user, list-users)
  help       Show this help message
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"auth_enabled", cfg.Auth.Enabled,
	)

	// Hosted database credentials must be complete before anything else
	// starts; /health/config re-checks at runtime.
	if report := envcheck.CheckConfiguration(); report.Status != "ok" {
		return fmt.Errorf("environment incomplete, missing: %v", report.Missing)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	shutdownOtel, err := rnotel.Init(ctx, cfg.Telemetry, serviceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	bus, err := rnnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = bus.Close() }()

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB * 1024 * 1024)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- Execution engine client ---
	engine := suna.NewClient(cfg.Suna.URL, cfg.Suna.ServiceKey, cfg.Suna.Timeout)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	engine.SetBreaker(breaker)

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store, &cfg.Auth)
	agentSvc := service.NewAgentService(store)
	execSvc := service.NewExecutionService(store, engine, bus, cfg.Suna.CallbackURL)
	kbSvc := service.NewKnowledgeBaseService(store, cache,
		cfg.Retrieval.ChunkWords, cfg.Retrieval.OverlapWords, cfg.Retrieval.DefaultTopK, cfg.Cache.SearchTTL)
	shareSvc := service.NewShareService(store)

	metrics, err := rnotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	execSvc.SetMetrics(metrics)
	kbSvc.SetMetrics(metrics)

	if err := authSvc.SeedDefaultAdmin(ctx); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	authSvc.StartTokenCleanup(ctx, time.Hour)

	// Relay execution lifecycle events to WebSocket clients.
	cancelEvents, err := bus.Subscribe(ctx, hub.BroadcastExecutionEvent)
	if err != nil {
		return fmt.Errorf("event subscriber: %w", err)
	}
	defer cancelEvents()

	// --- HTTP ---
	handlers := &rnhttp.Handlers{
		Auth:           authSvc,
		Agents:         agentSvc,
		Executions:     execSvc,
		KnowledgeBases: kbSvc,
		Shares:         shareSvc,
		Hub:            hub,
		DB:             pool,
		EngineState:    breaker.State,
		CallbackKey:    cfg.Suna.ServiceKey,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(rnhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rnhttp.SecurityHeaders)
	r.Use(rnhttp.Logger)
	r.Use(rnotel.HTTPMiddleware(serviceName))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))

	r.Get("/health", handlers.Health)
	r.Get("/health/config", handlers.HealthConfig)
	r.Get("/ws", hub.HandleWS)
	rnhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
