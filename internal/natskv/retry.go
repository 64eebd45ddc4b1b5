package natskv

import (
	"context"
	"errors"
	"time"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

// withRetry runs op until it succeeds, fails with something other than a
// CAS conflict, or the strategy gives up.
func withRetry(ctx context.Context, strategy models.RetryStrategy, op func() error) error {
	attempts := 0
	interval := strategy.InitialInterval

	for {
		attempts++

		err := op()
		if err == nil || !errors.Is(err, errConflict) {
			return err
		}
		if attempts >= strategy.MaxAttempts {
			return models.ErrConflictRetries
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		interval = strategy.Next(interval)
	}
}
