package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	httpapi "github.com/aussiebroadwan/taskd/internal/taskd/http"
	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/internal/taskd/store"
	"github.com/aussiebroadwan/taskd/internal/taskd/store/drivers/postgres"
	"github.com/aussiebroadwan/taskd/internal/taskd/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskd/pkg/cryptox"
	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/jwtx"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns every long-lived dependency of the service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          store.Store
	cache       *cache.Client
	revocations *cache.Revocations

	sessionService      *service.SessionService
	taskService         *service.TaskService
	accountService      *service.AccountService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "taskd",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New validates cfg, connects to the database and Redis, applies
// migrations and wires the HTTP server.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{cfg: cfg, logger: NewLogger(cfg)}

	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied", "driver", cfg.DatabaseDriver)

	client, err := OpenCache(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.cache = client

	if err := app.initServices(); err != nil {
		app.closeBackends()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// OpenStore connects to the configured database without migrating it.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		db, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, nil
	case "sqlite":
		db, err := sqlite.NewStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
}

func OpenCache(ctx context.Context, cfg Config) (*cache.Client, error) {
	client, err := cache.Dial(ctx, cache.Options{URL: cfg.RedisURL, Prefix: cfg.CachePrefix})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (app *Application) initServices() error {
	pepper := app.cfg.Pepper
	if pepper == "" {
		var err error
		if pepper, err = cryptox.LoadOrCreatePepper(app.cfg.PepperFile); err != nil {
			return fmt.Errorf("failed to load password pepper: %w", err)
		}
	}
	hasher := cryptox.NewHasher(pepper, cryptox.DefaultParams)

	codec, err := jwtx.NewCodec(jwtx.Options{
		AccessSecret:  []byte(app.cfg.AccessSecret),
		RefreshSecret: []byte(app.cfg.RefreshSecret),
		Issuer:        app.cfg.Issuer,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		Leeway:        5 * time.Second,
	})
	if err != nil {
		return err
	}

	queries := cache.NewQueryCache(app.cache, app.cfg.QueryCacheTTL)
	app.revocations = cache.NewRevocations(app.cache)

	app.sessionService, err = service.NewSessionService(app.db, codec, hasher, app.revocations)
	if err != nil {
		return err
	}
	app.taskService = &service.TaskService{Store: app.db, Cache: queries}
	app.accountService = &service.AccountService{Store: app.db, Hasher: hasher, Cache: queries}
	app.housekeepingService = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)

	app.logger.Info("session token lifetimes",
		"access_ttl", codec.AccessTTL().String(),
		"refresh_ttl", codec.RefreshTTL().String(),
	)
	if app.cfg.RevocationFailOpen {
		app.logger.Warn("revocation checks fail open: blacklisted tokens are accepted while redis is down")
	}
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpx.NewGuard(app.sessionService, app.revocations, app.cfg.RevocationFailOpen),
		httpx.CookiePolicy{Secure: app.cfg.CookieSecure},
		httpapi.RateLimits{
			Auth:              app.cfg.AuthRateLimit,
			API:               app.cfg.APIRateLimit,
			TrustProxyHeaders: app.cfg.TrustProxyHeaders,
		},
		BuildVersion,
		app.db,
		app.cache,
		app.logger,
	)
	router.SessionService = app.sessionService
	router.TaskService = app.taskService
	router.AccountService = app.accountService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until SIGINT/SIGTERM or a server error.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("taskd starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		app.closeBackends()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

// Shutdown drains in-flight requests within the grace period, then stops
// housekeeping and closes the backends.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down taskd...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "err", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "err", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeBackends(); err != nil {
		return err
	}
	app.logger.Info("taskd stopped")
	return nil
}

func (app *Application) closeBackends() error {
	var errs []error
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing redis client", "err", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
