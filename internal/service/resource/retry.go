package resource

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"lectern/internal/domain"
)

// RetryPolicy bounds retries of transient store and blob failures
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy is used when a service is built with a zero policy
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 3,
	Delay:    200 * time.Millisecond,
	MaxDelay: 2 * time.Second,
}

// do runs fn, retrying only errors marked transient. The last error is returned unwrapped.
func (p RetryPolicy) do(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(domain.IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying after transient failure",
				"op", op,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
}
