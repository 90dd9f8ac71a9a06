// Package scrape fans a configured set of platform adapters out in parallel,
// bounded per-platform by a semaphore, and isolates a single adapter's
// failure from the rest of the run (spec §4.1). Adapter internals (HTML/JSON
// parsing per platform) are an explicit non-goal; this package only owns
// orchestration.
package scrape

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// Adapter fetches listings for one search area on one platform. Production
// adapters hit a real platform; tests supply a stub.
type Adapter interface {
	Source() models.PropertySource
	Scrape(ctx context.Context, area string) ([]models.Listing, error)
}

// Config bounds orchestration concurrency.
type Config struct {
	// MaxConcurrentPerPlatform is the semaphore default of 1 (spec §5) —
	// scrapers are polite by default, one in-flight request per platform.
	MaxConcurrentPerPlatform int64
}

// DefaultConfig matches the spec's stated default.
var DefaultConfig = Config{MaxConcurrentPerPlatform: 1}

// Result pairs a platform's output with any per-adapter failure, so the
// orchestrator never lets one broken scraper abort the whole run.
type Result struct {
	Source   models.PropertySource
	Area     string
	Listings []models.Listing
	Err      error
}

// Orchestrator fans adapters out across areas.
type Orchestrator struct {
	adapters []Adapter
	areas    []string
	sems     map[models.PropertySource]*semaphore.Weighted
	log      *slog.Logger
}

// NewOrchestrator builds an orchestrator over the given adapters and search
// areas, one semaphore per platform.
func NewOrchestrator(adapters []Adapter, areas []string, cfg Config) *Orchestrator {
	sems := make(map[models.PropertySource]*semaphore.Weighted, len(adapters))
	for _, a := range adapters {
		sems[a.Source()] = semaphore.NewWeighted(cfg.MaxConcurrentPerPlatform)
	}
	return &Orchestrator{
		adapters: adapters,
		areas:    areas,
		sems:     sems,
		log:      slog.With("component", "scrape"),
	}
}

// Run scrapes every (adapter, area) pair concurrently, respecting each
// platform's semaphore, and returns one Result per pair. A single adapter
// erroring never cancels the others — errgroup's Go() goroutines always
// return nil, with the per-call error captured on the Result instead (spec
// §4.1 "failure isolation").
func (o *Orchestrator) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(o.adapters)*len(o.areas))
	resultsCh := make(chan Result, len(o.adapters)*len(o.areas))

	eg, egCtx := errgroup.WithContext(ctx)
	for _, adapter := range o.adapters {
		adapter := adapter
		sem := o.sems[adapter.Source()]
		for _, area := range o.areas {
			area := area
			eg.Go(func() error {
				if err := sem.Acquire(egCtx, 1); err != nil {
					resultsCh <- Result{Source: adapter.Source(), Area: area, Err: err}
					return nil
				}
				defer sem.Release(1)

				listings, err := adapter.Scrape(egCtx, area)
				if err != nil {
					o.log.Warn("scrape_adapter_failed", "source", adapter.Source(), "area", area, "error", err)
				}
				resultsCh <- Result{Source: adapter.Source(), Area: area, Listings: listings, Err: err}
				return nil
			})
		}
	}

	_ = eg.Wait()
	close(resultsCh)
	for r := range resultsCh {
		results = append(results, r)
	}

	total, failed := 0, 0
	for _, r := range results {
		total += len(r.Listings)
		if r.Err != nil {
			failed++
		}
	}
	o.log.Info("scrape_run_complete", "pairs", len(results), "failed_pairs", failed, "listings_total", total)
	return results
}

// Flatten collects every successfully-scraped listing across all results,
// dropping results that errored.
func Flatten(results []Result) []models.Listing {
	var all []models.Listing
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		all = append(all, r.Listings...)
	}
	return all
}
