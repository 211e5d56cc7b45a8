package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sessionSweeper is the part of the session manager the sweeper drives.
type sessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type sweepObserver interface {
	ObserveSweep(removed int, err error)
}

// Sweeper deletes expired sessions on a cron schedule.
type Sweeper struct {
	sessions sessionSweeper
	observer sweepObserver
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewSweeper validates schedule and prepares a stopped sweeper. observer may
// be nil.
func NewSweeper(schedule string, sessions sessionSweeper, observer sweepObserver, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		sessions: sessions,
		observer: observer,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("session sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to
// expire.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("session sweeper stop timed out")
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) {
	removed, err := s.sessions.Sweep(ctx)
	if s.observer != nil {
		s.observer.ObserveSweep(removed, err)
	}
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("expired sessions removed", zap.Int("count", removed))
	}
}
