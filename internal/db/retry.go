package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxRetries = 4

// Retry runs fn with bounded exponential backoff. Only transient storage
// errors are retried; anything else fails immediately.
func Retry(ctx context.Context, fn func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}
