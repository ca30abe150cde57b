package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carenav/navigator/internal/config"
	"github.com/carenav/navigator/internal/domain/alert"
	"github.com/carenav/navigator/internal/platform/db"
	"github.com/carenav/navigator/internal/platform/metrics"
	"github.com/carenav/navigator/internal/platform/middleware"
	"github.com/carenav/navigator/internal/platform/notification"
	"github.com/carenav/navigator/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "navigator-server",
		Short:        "Care navigator alert triage service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(alertsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the alert triage API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	logger, closeLog := newLogger(cfg, os.Stdout)
	defer closeLog()

	ctx := context.Background()

	// Storage
	var (
		repo alert.Repository = alert.NewMemoryRepo()
		pool *pgxpool.Pool
	)
	if cfg.StoreBackend == config.BackendPostgres {
		pool, err = db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = alert.NewAlertRepoPG(pool)
	}
	store := alert.NewStore(repo, logger)
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}
	store.SetLocation(loc)
	m := metrics.New()

	if cfg.SeedFile != "" {
		n, err := alert.Seed(ctx, store, cfg.SeedFile)
		switch {
		case errors.Is(err, alert.ErrDuplicate):
			logger.Warn().Err(err).Str("file", cfg.SeedFile).Msg("seed skipped, alerts already present")
		case err != nil:
			logger.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("failed to seed alerts")
		default:
			m.AddIngested(n)
			logger.Info().Int("count", n).Str("file", cfg.SeedFile).Msg("alerts seeded")
		}
	}

	// Collaborators
	var notifier notification.EscalationNotifier = notification.NewLogNotifier(logger)
	if cfg.CareTeamWebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.CareTeamWebhookURL, cfg.CollaboratorTimeout)
	}
	contacts := notification.NewManager(
		notification.NewSimulatedTelephony(logger),
		notification.NewSimulatedMessenger(logger),
		notifier,
		notification.NewTemplateEngine(),
		notification.ManagerConfig{Timeout: cfg.CollaboratorTimeout, PerMinute: cfg.OutboundPerMinute},
		logger,
	)

	hub := websocket.NewHub(logger)
	dispatcher := alert.NewDispatcher(store, contacts, logger,
		alert.WithPublisher(hub),
		alert.WithRecorder(m),
	)

	m.QueueGauge("unread", queueDepth(store.Unread))
	m.QueueGauge("unresolved", queueDepth(store.Unresolved))
	m.QueueGauge("critical", queueDepth(store.Critical))

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))

	// Operational endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	websocket.NewWebSocketHandler(hub, cfg.CORSOrigins...).RegisterRoutes(e.Group(""))

	// API
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	rateLimitCfg.BurstSize = cfg.RateLimitBurst

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	alert.NewHandler(store, dispatcher).RegisterRoutes(apiV1)
	notification.NewHandler(contacts).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	hub.BroadcastAll(websocket.Event{Type: "system.shutdown", Timestamp: time.Now().UTC()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CollaboratorTimeout+5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	// Let in-flight calls, messages and care team notices finish.
	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("gave up waiting for outbound contacts")
	}

	logger.Info().Msg("server stopped")
	return nil
}

// queueDepth adapts a store view to a scrape-time gauge.
func queueDepth(view func(context.Context) ([]*alert.Alert, error)) func() float64 {
	return func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		items, err := view(ctx)
		if err != nil {
			return -1
		}
		return float64(len(items))
	}
}
