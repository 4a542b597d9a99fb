package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func NewPolicy(attempts int, initialInterval time.Duration) Policy {
	return Policy{
		Attempts:        attempts,
		InitialInterval: initialInterval,
		MaxInterval:     30 * time.Second,
	}
}

// Do runs op up to p.Attempts times, one attempt at a time, and returns the
// first successful result or the error of the last attempt.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, delay time.Duration) {
		slog.Warn("Attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay.String(),
			"error", err)
	}

	res, err := backoff.RetryNotifyWithData(operation, p.backOff(ctx, attempts), notify)
	if err != nil {
		slog.Warn("Attempt failed, giving up",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err)
	}

	return res, err
}

func (p Policy) backOff(ctx context.Context, attempts int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}
