package llm

import (
	"context"
	"errors"
	"time"
)

// retryWithBackoff runs fn up to maxRetries+1 times. Only rate-limit
// errors are retried; any other failure is returned immediately.
func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var rle *rateLimitError
		if !errors.As(lastErr, &rle) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
