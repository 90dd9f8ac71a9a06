// Package httpx wraps transient I/O (image downloads, detail fetches,
// commute calls) with bounded retry/backoff, the shared resilience layer
// every capability adapter in this repo is built on (spec §5, §7 "transient
// I/O is recovered by retry").
package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds a single retried operation.
type RetryConfig struct {
	MaxElapsed     time.Duration
	InitialBackoff time.Duration
}

// DefaultRetryConfig matches the spec's external-call timeout guidance
// (§5 "every external call has a bounded timeout"): short initial backoff,
// capped total elapsed time so a stuck adapter doesn't stall a whole run.
var DefaultRetryConfig = RetryConfig{
	MaxElapsed:     30 * time.Second,
	InitialBackoff: 250 * time.Millisecond,
}

// Do retries fn with exponential backoff until it succeeds, the context is
// cancelled, or cfg.MaxElapsed is exceeded. A timeout is indistinguishable
// from any other transient failure (spec §7) — both are retried the same way.
func Do(ctx context.Context, cfg RetryConfig, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialBackoff
	policy.MaxElapsedTime = cfg.MaxElapsed

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return fn()
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("httpx: retry exhausted: %w", err)
	}
	return nil
}
