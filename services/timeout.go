package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lborres/quill/core"
)

// withTimeout bounds a single storage or provider round trip. A non-positive
// d leaves ctx's own deadline in charge.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// storeError tags deadline failures with core.ErrTimeout and wraps the rest
// with op.
func storeError(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sessionError(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrSession, core.ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrSession, err)
}
