package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lborres/quill/internal/app"
	"github.com/lborres/quill/internal/config"
	"github.com/lborres/quill/internal/logging"
)

// overrides holds the flag values that take precedence over the environment.
type overrides struct {
	addr   string
	driver string
	dsn    string
}

func (o *overrides) bind(cmd *cobra.Command, withAddr bool) {
	if withAddr {
		cmd.Flags().StringVar(&o.addr, "addr", "", "listen address (QUILL_ADDR)")
	}
	cmd.Flags().StringVar(&o.driver, "db-driver", "", "database driver: postgres or sqlite (QUILL_DB_DRIVER)")
	cmd.Flags().StringVar(&o.dsn, "database-url", "", "database connection string (QUILL_DATABASE_URL)")
}

func (o *overrides) apply(cfg *config.Config) {
	if o.addr != "" {
		cfg.Addr = o.addr
	}
	if o.driver != "" {
		cfg.DBDriver = o.driver
	}
	if o.dsn != "" {
		cfg.DatabaseURL = o.dsn
	}
}

func setup(o *overrides) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	o.apply(&cfg)

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	var o overrides

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(&o)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				logger.Error("startup failed", zap.Error(err))
				return err
			}
			defer a.Close()

			return a.Run(ctx)
		},
	}

	o.bind(cmd, true)
	return cmd
}

func migrateCmd() *cobra.Command {
	var o overrides

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(&o)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return app.Migrate(ctx, cfg, logger)
		},
	}

	o.bind(cmd, false)
	return cmd
}
