package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
)

// maxDelay caps the exponential growth of the backoff.
const maxDelay = 60 * time.Second

// Retry executes fn with exponential backoff (base delay) + full jitter.
// delay acts as initial backoff; grows exponentially (x2) until attempts exhausted.
// Jitter: random duration in [0, currentDelay].
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, nil
	}
	cur := delay
	var lastErr error
	meter := otel.Meter("needlescan")
	attemptCounter, _ := meter.Int64Counter("needlescan_retry_attempts_total")
	failCounter, _ := meter.Int64Counter("needlescan_retry_fail_total")
	for i := 0; i < attempts; i++ {
		v, err := fn()
		attemptCounter.Add(ctx, 1)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if cur > maxDelay {
			cur = maxDelay
		}
		sleep := time.Duration(rand.Int64N(int64(cur) + 1))
		select {
		case <-ctx.Done():
			failCounter.Add(ctx, 1)
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
		cur *= 2
	}
	failCounter.Add(ctx, 1)
	return zero, lastErr
}
