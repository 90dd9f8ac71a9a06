// Package analyzer wraps the quality-analyzer capability (visual/listing LLM
// analysis, non-goal internals per spec §1) behind a circuit breaker and a
// concurrency-bounded, rate-limited driver (spec §4.6, §5, §7).
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MarcelCutts/home-finder-sub001/internal/errs"
	"github.com/MarcelCutts/home-finder-sub001/internal/httpx"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// Capability is the external quality-analyzer boundary. Production
// implementations call out to an LLM; tests supply a stub.
type Capability interface {
	Analyze(ctx context.Context, property models.CanonicalProperty) (*models.QualityAnalysis, error)
}

// Config bounds the analyzer driver's concurrency and pacing.
type Config struct {
	// MaxConcurrent is the semaphore default of 3 (spec §5).
	MaxConcurrent int
	// InterCallDelay is the minimum spacing between calls, >= 1s (spec §5).
	InterCallDelay time.Duration
	// BreakerTimeout is how long the breaker stays open once tripped.
	BreakerTimeout time.Duration
	// ConsecutiveFailureThreshold trips the breaker (spec §7).
	ConsecutiveFailureThreshold uint32
}

// DefaultConfig matches the spec's stated defaults.
var DefaultConfig = Config{
	MaxConcurrent:               3,
	InterCallDelay:               time.Second,
	BreakerTimeout:               60 * time.Second,
	ConsecutiveFailureThreshold: 3,
}

// Driver serializes calls to a Capability through a circuit breaker, a
// concurrency limit, and a minimum inter-call delay — the same three-layer
// shape kubernaut's circuitbreaker.Manager composes around an HTTP client.
type Driver struct {
	capability Capability
	breaker    *gobreaker.CircuitBreaker
	sem        chan struct{}
	delay      time.Duration
	lastCall   time.Time
	log        *slog.Logger
}

// NewDriver builds a Driver with the given capability and config.
func NewDriver(capability Capability, cfg Config) *Driver {
	log := slog.With("component", "analyzer")
	settings := gobreaker.Settings{
		Name:        "quality_analyzer",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_state_changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Driver{
		capability: capability,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		delay:      cfg.InterCallDelay,
		log:        log,
	}
}

// Analyze runs one analysis call, respecting the concurrency bound, the
// inter-call delay, and the circuit breaker. Returns errs.ErrCircuitOpen
// immediately (no retry) when the breaker is open, so the pipeline can
// mark the whole batch as "analyzer unavailable" rather than fail one
// property at a time (spec §7).
func (d *Driver) Analyze(ctx context.Context, property models.CanonicalProperty) (*models.QualityAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	d.pace()

	result, err := d.breaker.Execute(func() (interface{}, error) {
		return retryingAnalyze(ctx, d.capability, property)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			d.log.Warn("circuit_open_skip", "property", property.UniqueID())
			return nil, errs.ErrCircuitOpen
		}
		return nil, err
	}
	return result.(*models.QualityAnalysis), nil
}

func (d *Driver) pace() {
	if d.delay <= 0 {
		return
	}
	elapsed := time.Since(d.lastCall)
	if elapsed < d.delay {
		time.Sleep(d.delay - elapsed)
	}
	d.lastCall = time.Now()
}

func retryingAnalyze(ctx context.Context, capability Capability, property models.CanonicalProperty) (*models.QualityAnalysis, error) {
	var analysis *models.QualityAnalysis
	err := httpx.Do(ctx, httpx.DefaultRetryConfig, func() error {
		a, err := capability.Analyze(ctx, property)
		if err != nil {
			return err
		}
		analysis = a
		return nil
	})
	return analysis, err
}
