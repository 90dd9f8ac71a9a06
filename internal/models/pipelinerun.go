package models

import "time"

// PipelineRun is a single execution of the orchestrator, logged start-to-end
// for observability and crash-recovery bookkeeping (spec §4.5, §8).
type PipelineRun struct {
	ID                int64      `json:"id"`
	RunUUID           string     `json:"run_uuid"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	Status            RunStatus  `json:"status"`
	ListingsScraped   int        `json:"listings_scraped"`
	ListingsGated     int        `json:"listings_gated"`
	PropertiesMerged  int        `json:"properties_merged"`
	PropertiesEnriched int       `json:"properties_enriched"`
	PropertiesAnalyzed int       `json:"properties_analyzed"`
	NotificationsSent int        `json:"notifications_sent"`
	Errors            []string   `json:"errors,omitempty"`
}

// Complete marks the run finished, recording its terminal status.
func (r *PipelineRun) Complete(status RunStatus, at time.Time) {
	r.Status = status
	r.FinishedAt = &at
}

// TrackedProperty is a CanonicalProperty as stored, carrying the lifecycle
// state machine fields alongside the commute result (spec §3 "Property
// lifecycle", §4.? commute).
type TrackedProperty struct {
	ID                 int64              `json:"id"`
	Property           CanonicalProperty  `json:"property"`
	EnrichmentStatus   EnrichmentStatus   `json:"enrichment_status"`
	EnrichmentAttempts int                `json:"enrichment_attempts"`
	NotificationStatus NotificationStatus `json:"notification_status"`
	NotifiedAt         *time.Time         `json:"notified_at,omitempty"`
	CommuteMinutes     *int               `json:"commute_minutes,omitempty"`
	TransportMode      TransportMode      `json:"transport_mode,omitempty"`
	Quality            *QualityAnalysis   `json:"quality,omitempty"`
	FitScore           *int               `json:"fit_score,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ReadyForAnalysis reports whether enrichment has finished and analysis is
// outstanding, the gate the pipeline uses to select the analysis batch.
func (t *TrackedProperty) ReadyForAnalysis() bool {
	return t.EnrichmentStatus == EnrichmentEnriched &&
		t.NotificationStatus == NotificationPendingAnalysis
}
