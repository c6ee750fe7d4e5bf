package portal

import (
	"context"
	"errors"
	"time"

	"github.com/cuemby/portal/pkg/log"
	"github.com/cuemby/portal/pkg/storage"
	"github.com/cuemby/portal/pkg/types"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how often a conflicting operation is re-run
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries three times starting at 50ms
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: 50 * time.Millisecond}

// Retry runs fn, re-running it with jittered exponential backoff while it
// fails with an OptimisticConflictError. fn must redo its reads: each
// attempt is a fresh logical operation. Other errors are returned at once.
// Inside a transaction fn runs once: the conflict has already doomed the
// enclosing unit of work.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if storage.InTransaction(ctx) {
		return fn(ctx)
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}

	b := retry.NewExponential(policy.BaseDelay)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithMaxRetries(policy.MaxRetries, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil || !errors.Is(err, types.ErrConflict) {
			return err
		}
		logger := log.WithComponent("retry")
		logger.Debug().Err(err).Int("attempt", attempt).Msg("Retrying after conflict")
		return retry.RetryableError(err)
	})
}
