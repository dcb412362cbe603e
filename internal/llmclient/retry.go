package llmclient

import (
	"context"
	"strings"
	"time"
)

// retrier holds shared retry configuration: bounded attempts with a
// linearly growing delay, retrying only transient upstream failures.
type retrier struct {
	maxRetries int
	retryDelay time.Duration
}

func newRetrier() retrier {
	return retrier{maxRetries: 3, retryDelay: time.Second}
}

func (r retrier) do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) || attempt >= r.maxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
