package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/taskflow/internal/taskflow/http"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/notify"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/mongo"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v1.0.0"
)

// Application holds the TaskFlow API and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	keys   *jwtx.KeySet
	hasher *cryptox.Hasher
	mailer mail.Mailer

	registry *prometheus.Registry

	// Realtime
	hub   *notify.Hub
	rdb   *redis.Client
	relay *notify.Relay

	// Services
	accountService      *service.AccountService
	adminService        *service.AdminService
	resetService        *service.ResetService
	bootstrapService    *service.BootstrapService
	taskService         *service.TaskService
	commentService      *service.CommentService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

type options struct {
	logger *slog.Logger
	mailer mail.Mailer
	limits *httpapi.Limits
}

// Option adjusts an Application before it is wired.
type Option func(*options)

// WithLogger replaces the configured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMailer replaces the mailer chosen from configuration.
func WithMailer(m mail.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

// WithLimits replaces the rate limit profiles from Config.
func WithLimits(l httpapi.Limits) Option {
	return func(o *options) { o.limits = &l }
}

// New creates a new Application instance with all dependencies initialized.
// Nothing listens until Run.
func New(cfg Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{
		cfg:      cfg,
		logger:   o.logger,
		mailer:   o.mailer,
		registry: prometheus.NewRegistry(),
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "taskflow-api",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	var err error
	if app.keys, err = InitKeys(cfg, app.logger); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if app.hasher, err = InitHasher(cfg); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initRealtime(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP(o.limits)

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("taskflow api starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"relay", app.relay != nil,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	for {
		select {
		case err := <-serverErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-reload:
			app.logger.Info("reload signal received")
			if err := ReloadKeys(app.keys, ReloadConfig(), app.logger); err != nil {
				app.logger.Error("failed to reload session secrets", "error", err)
			}
		case sig := <-shutdown:
			app.logger.Info("shutdown signal received", "signal", sig)

			if err := app.Shutdown(); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		}
	}
}

// Shutdown stops the server, background workers and connections.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down taskflow api...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.resetService.Wait()
	return app.Close()
}

// Close releases what New acquired. Use it when the handler was served
// without Run, as tests do.
func (app *Application) Close() error {
	if app.relay != nil {
		app.relay.Stop()
	}
	app.hub.Close()
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("taskflow api stopped")
	return nil
}

// initDatabase opens the configured store driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err = mongo.NewStore(connectCtx, app.cfg.MongoURI, app.cfg.MongoDatabase)
	case "sqlite", "":
		db, err = sqlite.NewStore(sqliteDSN(app.cfg.DatabaseFile))
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", app.cfg.StoreDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// sqliteDSN turns a database file path into a WAL-mode DSN. DSNs and
// ":memory:" pass through unchanged.
func sqliteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)"
}

func (app *Application) initMailer() error {
	if app.mailer != nil {
		return nil
	}
	if app.cfg.SMTPHost == "" {
		app.mailer = mail.LogMailer{Logger: app.logger}
		app.logger.Info("SMTP_HOST not set, reset links are logged instead of mailed")
		return nil
	}

	m, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = m
	app.logger.Info("smtp mailer enabled", "host", app.cfg.SMTPHost, "port", app.cfg.SMTPPort)
	return nil
}

// initRealtime builds the websocket hub and, when REDIS_ADDR is set, the
// relay that shares events with other instances.
func (app *Application) initRealtime(ctx context.Context) error {
	app.hub = notify.NewHub(notify.HubOptions{
		Logger:     app.logger,
		Registerer: app.registry,
		Namespace:  "taskflow",
	})
	if app.cfg.RedisAddr == "" {
		return nil
	}

	app.rdb = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
	})

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	relay := notify.NewRelay(app.rdb, app.hub, app.cfg.RedisChannel, app.logger)
	if err := relay.Start(startCtx); err != nil {
		_ = app.rdb.Close()
		return fmt.Errorf("failed to start event relay: %w", err)
	}
	app.relay = relay
	return nil
}

// notifier is the relay when one runs, the local hub otherwise.
func (app *Application) notifier() service.Notifier {
	if app.relay != nil {
		return app.relay
	}
	return app.hub
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	tokens := jwtx.NewIssuer(jwtx.NewSignerHS256(app.keys), app.cfg.JWTIssuer, app.cfg.JWTExpiration)
	notifier := app.notifier()

	app.accountService = &service.AccountService{
		Store:  app.db,
		Hasher: app.hasher,
		Tokens: tokens,
	}
	app.resetService = &service.ResetService{
		Store:    app.db,
		Hasher:   app.hasher,
		Notifier: notifier,
		Mailer:   app.mailer,
		Config: service.ResetConfig{
			FrontendURL: app.cfg.FrontendURL,
			TokenTTL:    service.DefaultResetTokenTTL,
			ExposeToken: !app.cfg.IsProduction(),
		},
	}
	app.adminService = &service.AdminService{
		Store:  app.db,
		Hasher: app.hasher,
		Resets: app.resetService,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:        app.db,
		Hasher:       app.hasher,
		Tokens:       tokens,
		Token:        app.cfg.BootstrapToken,
		RequireToken: app.cfg.IsProduction(),
	}
	app.taskService = &service.TaskService{Store: app.db, Notifier: notifier}
	app.commentService = &service.CommentService{Store: app.db, Notifier: notifier}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP(limits *httpapi.Limits) {
	router := httpapi.NewRouter(
		app.keys,
		jwtx.NewVerifierHS256(app.keys, app.cfg.JWTIssuer),
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AccountService = app.accountService
	router.AdminService = app.adminService
	router.ResetService = app.resetService
	router.BootstrapService = app.bootstrapService
	router.TaskService = app.taskService
	router.CommentService = app.commentService
	router.Hub = app.hub
	router.AdminOptions = httpx.AdminOptions{Strict: app.cfg.AdminStrictCheck}
	router.AllowedOrigins = app.cfg.AllowedOrigins
	router.Registry = app.registry
	if app.cfg.RateLimits != (httpapi.Limits{}) {
		router.Limits = app.cfg.RateLimits
	}
	if limits != nil {
		router.Limits = *limits
	}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
