package util

import (
	"context"
	"time"
)

// MaxBackoff caps the wait between two attempts.
const MaxBackoff = 5 * time.Minute

// Retry calls fn up to attempts times. The wait starts at backoff and doubles
// after every failure, capped at MaxBackoff. fn receives the 1-based attempt
// number. The last error is returned when every attempt fails.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	wait := backoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
		if wait > MaxBackoff {
			wait = MaxBackoff
		}
	}
	return err
}
