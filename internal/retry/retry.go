// Package retry implements the exponential-backoff retry policy shared by
// the object store adapter and the agents' advance-status retries.
package retry

import (
	"context"
	"math"
	"strings"
	"time"

	"automl-orchestrator/internal/errkind"
)

// Policy controls how a failed operation is retried.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// ObjectStorePolicy matches spec.md §4.2: base 1s, factor 2, cap 30s, max 5 attempts.
func ObjectStorePolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// AdvanceStatusPolicy matches spec.md §4.4/§4.5/§4.6: 3 retries, linear 2s backoff.
func AdvanceStatusPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   1.0, // linear, not exponential
		MaxDelay:     2 * time.Second,
	}
}

// NextDelay returns the backoff delay for the given attempt number (1-indexed).
func (p Policy) NextDelay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Execute runs fn up to MaxAttempts times, honoring ctx cancellation between
// attempts, sleeping with backoff. For an *errkind.Error only the Transient
// kind is retried; any other kind is returned immediately. A plain error is
// retried or returned according to classifyBySubstring.
func (p Policy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.NextDelay(attempt)):
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	if ek, ok := errkind.As(err); ok {
		return ek.Retryable()
	}
	return classifyBySubstring(err)
}

// classifyBySubstring is the fallback used at SDK boundaries (object store,
// LLM) that only expose error strings, not a typed kind. Grounded on
// ebrakke-gopherclaw's RetryPolicy.isRetryable.
func classifyBySubstring(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporary failure") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	if strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "not found") {
		return false
	}

	return true
}
