// Package app assembles the quill process from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"

	"github.com/lborres/quill"
	fiberadapter "github.com/lborres/quill/adapters/fiber"
	"github.com/lborres/quill/adapters/oidc"
	"github.com/lborres/quill/core"
	"github.com/lborres/quill/internal/config"
	"github.com/lborres/quill/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *Store
	http    *fiber.App
	sweeper *Sweeper
}

// New opens the store, builds the services and binds every route. The
// caller owns the returned App and must Close it.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg config.Config, store *Store, logger *zap.Logger) (*App, error) {
	var cache core.CacheWithStats
	if cfg.SessionCache {
		cache = quill.NewInMemoryCache(quill.CacheConfig{})
	}

	var federation core.IdentityExchanger
	if cfg.OIDC.Enabled() {
		exchanger, err := oidc.New(ctx, oidc.Config{
			Issuer:       cfg.OIDC.Issuer,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
			Scopes:       cfg.OIDC.Scopes,
			Secret:       []byte(cfg.Secret),
			Timeout:      cfg.IdPTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("oidc setup: %w", err)
		}
		federation = exchanger
	}

	qcfg := quill.Config{
		Secret:               cfg.Secret,
		Database:             store,
		SessionConfig:        &quill.SessionConfig{MaxAge: cfg.SessionMaxAge},
		Federation:           federation,
		Logger:               logger,
		StrictOwnership:      cfg.StrictOwnership,
		LinkFederatedToLocal: cfg.LinkFederatedToLocal,
		StoreTimeout:         cfg.StoreTimeout,
	}
	if cache != nil {
		qcfg.CacheAdapter = cache
	}
	q, err := quill.New(qcfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New(cache)

	sweeper, err := NewSweeper(cfg.SweepSchedule, q.Sessions, m, logger.Named("sweeper"))
	if err != nil {
		return nil, err
	}

	httpApp := fiber.New(fiber.Config{AppName: "quill"})
	httpApp.Use(recover.New())
	httpApp.Use(fiberlogger.New(fiberlogger.Config{
		Format:     accessLogFormat(),
		TimeFormat: "2006/01/02 15:04:05",
	}))

	adapter := fiberadapter.New(httpApp, fiberadapter.Options{
		Auth:         q.Auth,
		Posts:        q.Posts,
		Federation:   q.Federation,
		Metrics:      m,
		Health:       store.Ping,
		CookieSecure: cfg.CookieSecure,
		Logger:       logger.Named("http"),
	})
	if err := adapter.RegisterRoutes(q.Endpoints); err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		http:    httpApp,
		sweeper: sweeper,
	}, nil
}

// accessLogFormat never includes headers or bodies; both carry credentials.
func accessLogFormat() string {
	format := []string{
		"${time}",
		"${status}|${latency}",
		"${ip}",
		"${method}|${path}",
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

// HTTP exposes the fiber application, mainly for tests.
func (a *App) HTTP() *fiber.App {
	return a.http
}

// Run serves HTTP and sweeps sessions until ctx is cancelled, then shuts
// both down.
func (a *App) Run(ctx context.Context) error {
	a.sweeper.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", a.cfg.Addr))
		errCh <- a.http.Listen(a.cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.sweeper.Stop(shutdownCtx)
	if err := a.http.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", zap.Error(err))
	}
	a.logger.Info("stopped")

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

func (a *App) Close() {
	a.store.Close()
}

// Migrate opens the configured store, which applies pending migrations, and
// closes it again.
func Migrate(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := OpenStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		return err
	}
	store.Close()
	logger.Info("migrations applied", zap.String("driver", cfg.DBDriver))
	return nil
}
