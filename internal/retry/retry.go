package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// DoWithRetry executes fn up to attempts times with exponential backoff.
// It stops early if the context is canceled and returns the last error seen.
func DoWithRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	return retrygo.Do(fn,
		retrygo.Context(ctx),
		retrygo.Attempts(uint(attempts)),
		retrygo.Delay(baseDelay),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.LastErrorOnly(true),
	)
}
