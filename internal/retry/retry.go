package retry

import (
	"context"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// Default retry constants, used when a policy leaves a field unset.
const (
	DefaultMaxRetries    = 2
	DefaultDelaySeconds  = 0.5
	DefaultBackoffFactor = 2.0
)

// DefaultPolicy provides sensible defaults if no policy is specified.
var DefaultPolicy = models.RetryPolicy{
	MaxRetries:    intPtr(DefaultMaxRetries),
	Delay:         float64Ptr(DefaultDelaySeconds),
	BackoffFactor: float64Ptr(DefaultBackoffFactor),
}

// Operation is a function that performs an action and returns an error if it fails.
type Operation func(ctx context.Context) error

// Do executes the provided operation, retrying according to the policy if it
// fails. Missing policy fields are filled from DefaultPolicy. Context
// cancellation aborts both the operation and any pending delay.
func Do(ctx context.Context, operationName string, policy *models.RetryPolicy, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	effective := Merge(policy, &DefaultPolicy)
	l := logger.L().With("operation", operationName)

	maxRetries := *effective.MaxRetries
	delay := time.Duration(*effective.Delay * float64(time.Second))
	backoff := *effective.BackoffFactor

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 0 {
				l.Info("Operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		l.Warn("Operation failed", "attempt", attempt+1, "max_attempts", maxRetries+1, "error", lastErr)
		if attempt == maxRetries {
			break
		}

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * backoff)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Merge combines a specific policy with a default policy. Specific values
// override defaults; pointers are used to detect unset fields.
func Merge(specific, defaultP *models.RetryPolicy) *models.RetryPolicy {
	if defaultP == nil {
		dp := DefaultPolicy
		defaultP = &dp
	}

	merged := &models.RetryPolicy{
		MaxRetries:    defaultP.MaxRetries,
		Delay:         defaultP.Delay,
		BackoffFactor: defaultP.BackoffFactor,
	}
	if specific != nil {
		if specific.MaxRetries != nil {
			merged.MaxRetries = specific.MaxRetries
		}
		if specific.Delay != nil {
			merged.Delay = specific.Delay
		}
		if specific.BackoffFactor != nil {
			merged.BackoffFactor = specific.BackoffFactor
		}
	}

	if merged.MaxRetries == nil {
		merged.MaxRetries = intPtr(DefaultMaxRetries)
	}
	if merged.Delay == nil {
		merged.Delay = float64Ptr(DefaultDelaySeconds)
	}
	if merged.BackoffFactor == nil {
		merged.BackoffFactor = float64Ptr(DefaultBackoffFactor)
	}
	return merged
}

func intPtr(i int) *int             { return &i }
func float64Ptr(f float64) *float64 { return &f }
