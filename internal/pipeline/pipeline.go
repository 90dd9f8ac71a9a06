// Package pipeline composes scrape, dedup, enrich, analyze, and notify into
// a single orchestrated run, owning every lifecycle-column write and the
// pipeline_runs log (spec §4.5, §5, §8). Structurally grounded on tarsy's
// pkg/queue.Worker — a long-lived component with a structured run() loop,
// module-scoped slog.With logger, and explicit start/stop semantics.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MarcelCutts/home-finder-sub001/internal/analyzer"
	"github.com/MarcelCutts/home-finder-sub001/internal/commute"
	"github.com/MarcelCutts/home-finder-sub001/internal/criteria"
	"github.com/MarcelCutts/home-finder-sub001/internal/enrich"
	"github.com/MarcelCutts/home-finder-sub001/internal/errs"
	"github.com/MarcelCutts/home-finder-sub001/internal/fitscore"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
	"github.com/MarcelCutts/home-finder-sub001/internal/notify"
	"github.com/MarcelCutts/home-finder-sub001/internal/scrape"
	"github.com/MarcelCutts/home-finder-sub001/internal/store"
)

// Orchestrator wires every pipeline stage together behind a single Run entry
// point. All fields are capability boundaries so tests can substitute stubs
// for every non-goal internal (scraper adapters, analyzer, commute provider,
// notifier).
type Orchestrator struct {
	Store          store.Store
	Scraper        *scrape.Orchestrator
	CriteriaGate   *criteria.CriteriaGate
	LocationGate   *criteria.LocationGate
	Enricher       *enrich.Enricher
	Analyzer       *analyzer.Driver
	Commute        *commute.Cache
	Notifier       notify.Notifier
	SearchCriteria models.SearchCriteria

	log *slog.Logger
}

// New builds an Orchestrator from its component stages.
func New(
	st store.Store,
	scraper *scrape.Orchestrator,
	criteriaGate *criteria.CriteriaGate,
	locationGate *criteria.LocationGate,
	enricher *enrich.Enricher,
	analyzerDriver *analyzer.Driver,
	commuteCache *commute.Cache,
	notifier notify.Notifier,
	searchCriteria models.SearchCriteria,
) *Orchestrator {
	return &Orchestrator{
		Store:          st,
		Scraper:        scraper,
		CriteriaGate:   criteriaGate,
		LocationGate:   locationGate,
		Enricher:       enricher,
		Analyzer:       analyzerDriver,
		Commute:        commuteCache,
		Notifier:       notifier,
		SearchCriteria: searchCriteria,
		log:            slog.With("component", "pipeline"),
	}
}

// Run executes one full pipeline pass: reset_failed_analyses, scrape, gate,
// dedup, save, enrich, save_pre_analysis, analyze, score, notify — strictly
// in that order (spec §5 "ordering guarantees"), logging a pipeline_runs row
// start-to-end.
func (o *Orchestrator) Run(ctx context.Context) (*models.PipelineRun, error) {
	run, err := o.Store.CreatePipelineRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create run: %w", err)
	}
	o.log = o.log.With("run_id", run.RunUUID)
	o.log.Info("pipeline_run_started")

	counts := make(map[string]int)
	var runErrors []string

	status, finishErr := o.runStages(ctx, counts, &runErrors)

	if err := o.Store.UpdatePipelineRun(ctx, run.ID, counts); err != nil {
		o.log.Warn("pipeline_update_counts_failed", "error", err)
	}
	if err := o.Store.CompletePipelineRun(ctx, run.ID, status, runErrors); err != nil {
		o.log.Warn("pipeline_complete_failed", "error", err)
	}
	run.Complete(status, time.Now().UTC())

	o.log.Info("pipeline_run_finished", "status", status, "counts", counts)
	return run, finishErr
}

func (o *Orchestrator) runStages(ctx context.Context, counts map[string]int, runErrors *[]string) (models.RunStatus, error) {
	if ctx.Err() != nil {
		*runErrors = append(*runErrors, "cancelled")
		return models.RunFailed, ctx.Err()
	}

	if n, err := o.Store.ResetFailedAnalyses(ctx); err != nil {
		o.log.Warn("reset_failed_analyses_error", "error", err)
	} else if n > 0 {
		o.log.Info("reset_failed_analyses", "count", n)
	}

	scrapeResults := o.Scraper.Run(ctx)
	listings := scrape.Flatten(scrapeResults)
	counts["listings_scraped"] = len(listings)

	gated := o.CriteriaGate.Filter(listings)
	gated = o.LocationGate.Filter(gated)
	counts["listings_gated"] = len(gated)

	anchors, err := o.Store.GetRecentPropertiesForDedup(ctx, time.Now().UTC().AddDate(0, 0, -crossRunDedupWindowDays))
	if err != nil {
		o.log.Warn("get_recent_properties_for_dedup_error", "error", err)
	}

	newProperties, anchorUpdates := reconcileWithAnchors(gated, anchors)
	counts["properties_merged"] = len(newProperties) + len(anchorUpdates)

	// save_unenriched: persist genuinely new merged properties before
	// enrichment begins.
	if err := o.Store.SaveScraped(ctx, newProperties); err != nil {
		*runErrors = append(*runErrors, err.Error())
		return models.RunFailed, err
	}

	// save_merged_property: rediscovered anchors widen in place without
	// touching lifecycle state (spec §4.3 "Cross-run dedup").
	for _, update := range anchorUpdates {
		if err := o.Store.SaveMergedProperty(ctx, update.AnchorUniqueID, update.Merged); err != nil {
			o.log.Warn("save_merged_property_error", "anchor", update.AnchorUniqueID, "error", err)
		}
	}

	unenriched, err := o.Store.GetUnenrichedProperties(ctx)
	if err != nil {
		*runErrors = append(*runErrors, err.Error())
		return models.RunFailed, err
	}

	canonicalBatch := make([]models.CanonicalProperty, 0, len(unenriched))
	for _, tp := range unenriched {
		canonicalBatch = append(canonicalBatch, tp.Property)
	}
	outcomes := o.Enricher.Run(ctx, canonicalBatch)
	enriched := o.applyEnrichmentOutcomes(ctx, unenriched, outcomes)
	counts["properties_enriched"] = len(enriched)

	// save_before_analyze: commute is computed now, before analysis, and
	// threaded through save_pre_analysis_properties's commute_map (spec §4.5
	// "save_before_analyze", §4.7 "save_pre_analysis_properties"). MarkEnriched
	// above already committed the per-property enrichment_status/
	// notification_status transition, so this call is a belt-and-braces
	// idempotent upsert: a crash here still resumes cleanly from
	// GetPendingAnalysisProperties without re-enriching.
	o.attachCommute(ctx, enriched)
	if len(enriched) > 0 {
		if err := o.Store.SavePreAnalysisProperties(ctx, enriched); err != nil {
			o.log.Warn("save_pre_analysis_properties_error", "error", err)
		}
	}

	pending, err := o.Store.GetPendingAnalysisProperties(ctx, nil)
	if err != nil {
		*runErrors = append(*runErrors, err.Error())
		return models.RunFailed, err
	}

	analyzed, circuitOpen := o.analyzeAll(ctx, pending)
	counts["properties_analyzed"] = analyzed

	notified, err := o.notifyPending(ctx)
	counts["notifications_sent"] = notified
	if err != nil {
		*runErrors = append(*runErrors, err.Error())
	}

	if circuitOpen {
		// Circuit breaker trip is a partial-completion, not a failure (spec §5
		// "marks the affected properties as still pending_analysis").
		o.log.Warn("pipeline_completed_partial_analyzer_unavailable")
	}
	return models.RunCompleted, nil
}

// applyEnrichmentOutcomes commits each property's mark_enriched/
// mark_enrichment_failed transition and returns the subset that succeeded,
// with their in-memory images/floorplan/status updated so the caller can
// feed them straight into save_pre_analysis_properties without a re-query.
func (o *Orchestrator) applyEnrichmentOutcomes(ctx context.Context, unenriched []models.TrackedProperty, outcomes []enrich.Outcome) []models.TrackedProperty {
	byID := make(map[string]models.TrackedProperty, len(unenriched))
	for _, tp := range unenriched {
		byID[tp.Property.UniqueID()] = tp
	}

	var enriched []models.TrackedProperty
	for _, outcome := range outcomes {
		if outcome.Failed {
			if err := o.Store.MarkEnrichmentFailed(ctx, outcome.UniqueID, defaultMaxEnrichmentAttempts); err != nil {
				o.log.Warn("mark_enrichment_failed_error", "property", outcome.UniqueID, "error", err)
			}
			continue
		}
		if err := o.Store.MarkEnriched(ctx, outcome.UniqueID, outcome.Images, outcome.Floorplan); err != nil {
			o.log.Warn("mark_enriched_error", "property", outcome.UniqueID, "error", err)
			continue
		}
		tp, ok := byID[outcome.UniqueID]
		if !ok {
			continue
		}
		tp.Property.Images = outcome.Images
		tp.Property.Floorplan = outcome.Floorplan
		tp.EnrichmentStatus = models.EnrichmentEnriched
		tp.NotificationStatus = models.NotificationPendingAnalysis
		enriched = append(enriched, tp)
	}
	return enriched
}

// attachCommute computes and stamps the commute time from each property's
// postcode to the configured destination, best-effort (a capability failure
// just leaves CommuteMinutes nil for that property).
func (o *Orchestrator) attachCommute(ctx context.Context, properties []models.TrackedProperty) {
	if o.Commute == nil {
		return
	}
	mode := primaryMode(o.SearchCriteria)
	for i := range properties {
		postcode := properties[i].Property.Canonical.Postcode
		if postcode == "" {
			continue
		}
		minutes, err := o.Commute.CommuteMinutes(ctx, postcode, o.SearchCriteria.DestinationPostcode, mode)
		if err != nil {
			o.log.Warn("commute_lookup_failed", "property", properties[i].Property.UniqueID(), "error", err)
			continue
		}
		properties[i].CommuteMinutes = &minutes
		properties[i].TransportMode = mode
	}
}

// defaultMaxEnrichmentAttempts is the spec's stated default retry cap (§4.4).
const defaultMaxEnrichmentAttempts = 3

// analyzeAll runs the quality analyzer over every pending property, saving
// results as it goes. Returns the count analyzed and whether the circuit
// breaker tripped mid-batch (spec §5's analyzer cancellation rule).
func (o *Orchestrator) analyzeAll(ctx context.Context, pending []models.TrackedProperty) (int, bool) {
	analyzed := 0
	for _, tp := range pending {
		if ctx.Err() != nil {
			return analyzed, false
		}
		analysis, err := o.Analyzer.Analyze(ctx, tp.Property)
		if err != nil {
			if err == errs.ErrCircuitOpen {
				return analyzed, true
			}
			o.log.Warn("analyze_failed", "property", tp.Property.UniqueID(), "error", err)
			continue
		}

		score := fitscore.ComputeFitScore(analysis, tp.Property.Canonical.Bedrooms)

		if err := o.Store.CompleteAnalysis(ctx, tp.Property.UniqueID(), analysis, score); err != nil {
			o.log.Warn("complete_analysis_store_error", "property", tp.Property.UniqueID(), "error", err)
			continue
		}
		analyzed++
	}
	return analyzed, false
}

func (o *Orchestrator) notifyPending(ctx context.Context) (int, error) {
	properties, err := o.Store.GetPendingNotification(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: get pending notifications: %w", err)
	}

	sent := 0
	for _, tp := range properties {
		// Commute is normally already stamped at save_pre_analysis_properties
		// time (spec §4.5); this is a fallback for rows whose commute lookup
		// failed back then or that predate that checkpoint.
		if tp.CommuteMinutes == nil && o.Commute != nil && tp.Property.Canonical.Postcode != "" {
			minutes, err := o.Commute.CommuteMinutes(ctx, tp.Property.Canonical.Postcode, o.SearchCriteria.DestinationPostcode, primaryMode(o.SearchCriteria))
			if err == nil {
				tp.CommuteMinutes = &minutes
			}
		}

		if err := o.Notifier.Notify(ctx, tp); err != nil {
			o.log.Warn("notify_failed", "property", tp.Property.UniqueID(), "error", err)
			if markErr := o.Store.MarkNotificationFailed(ctx, tp.Property.UniqueID()); markErr != nil {
				o.log.Warn("mark_notification_failed_error", "property", tp.Property.UniqueID(), "error", markErr)
			}
			continue
		}
		if err := o.Store.MarkNotified(ctx, tp.Property.UniqueID()); err != nil {
			o.log.Warn("mark_notified_error", "property", tp.Property.UniqueID(), "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func primaryMode(c models.SearchCriteria) models.TransportMode {
	if len(c.TransportModes) == 0 {
		return models.TransportCycling
	}
	return c.TransportModes[0]
}
