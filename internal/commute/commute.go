// Package commute wraps the commute-time capability (a real transit/routing
// API, non-goal internals per spec §1) with a process-wide postcode cache,
// since every property within the same outcode shares essentially the same
// commute time and the upstream is rate-limited (spec §4.?, §5).
package commute

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MarcelCutts/home-finder-sub001/internal/criteria"
	"github.com/MarcelCutts/home-finder-sub001/internal/httpx"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// Capability is the external commute-time boundary.
type Capability interface {
	CommuteMinutes(ctx context.Context, originPostcode, destinationPostcode string, mode models.TransportMode) (int, error)
}

type cacheKey struct {
	origin, destination string
	mode                models.TransportMode
}

// Cache memoizes commute lookups by (origin outcode, destination, mode),
// collapsing many properties in the same outcode to a single upstream call.
type Cache struct {
	mu         sync.RWMutex
	entries    map[cacheKey]int
	capability Capability
	log        *slog.Logger
}

// NewCache wraps a capability with an in-memory cache.
func NewCache(capability Capability) *Cache {
	return &Cache{
		entries:    make(map[cacheKey]int),
		capability: capability,
		log:        slog.With("component", "commute"),
	}
}

// CommuteMinutes returns the cached or freshly-fetched commute time from the
// listing's postcode to destination, keyed by outcode rather than full
// postcode — properties sharing an outcode share a cache entry (spec §5
// "amortize commute calls by area").
func (c *Cache) CommuteMinutes(ctx context.Context, postcode, destination string, mode models.TransportMode) (int, error) {
	outcode := criteria.ExtractOutcode(postcode)
	if outcode == "" {
		outcode = postcode
	}
	key := cacheKey{origin: outcode, destination: destination, mode: mode}

	c.mu.RLock()
	if minutes, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return minutes, nil
	}
	c.mu.RUnlock()

	var minutes int
	err := httpx.Do(ctx, httpx.DefaultRetryConfig, func() error {
		m, err := c.capability.CommuteMinutes(ctx, outcode, destination, mode)
		if err != nil {
			return err
		}
		minutes = m
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[key] = minutes
	c.mu.Unlock()

	c.log.Debug("commute_computed", "outcode", outcode, "destination", destination, "mode", mode, "minutes", minutes)
	return minutes, nil
}

// Size reports the number of distinct cache entries, useful for run-log metrics.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WithinLimit reports whether a computed commute satisfies the criteria's
// max-commute bound.
func WithinLimit(minutes int, maxMinutes int) bool {
	return minutes <= maxMinutes
}

// DefaultTimeout bounds a single commute lookup call.
const DefaultTimeout = 10 * time.Second
