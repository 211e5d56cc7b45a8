package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	pgxstore "github.com/lborres/quill/adapters/pgx"
	"github.com/lborres/quill/adapters/sqlite"
	"github.com/lborres/quill/core"
	"github.com/lborres/quill/internal/config"
)

// Store is an opened, migrated storage backend.
type Store struct {
	core.StorageAdapter

	ping  func(ctx context.Context) error
	close func()
}

// Ping reports whether the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Store) Close() {
	s.close()
}

// OpenStore connects to the configured backend and applies pending
// migrations.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if err := pgxstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("postgres store ready")
		return &Store{
			StorageAdapter: pgxstore.New(pool),
			ping:           pool.Ping,
			close:          pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("sqlite store ready", zap.String("dsn", cfg.DatabaseURL))
		return &Store{
			StorageAdapter: sqlite.New(db),
			ping:           db.PingContext,
			close:          func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}
