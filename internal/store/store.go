// Package store persists canonical properties and pipeline runs over Postgres
// via database/sql, implementing the lifecycle state machine and
// save-before-analyze crash recovery pattern from spec §4.7.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// Store is the persistence contract the pipeline orchestrator depends on.
// It is implemented by Postgres and can be faked in unit tests.
type Store interface {
	// Scrape/dedup output.
	SaveScraped(ctx context.Context, properties []models.CanonicalProperty) error
	SaveMergedProperty(ctx context.Context, anchorUniqueID string, update models.CanonicalProperty) error
	GetUnenrichedProperties(ctx context.Context) ([]models.TrackedProperty, error)
	GetRecentPropertiesForDedup(ctx context.Context, since time.Time) ([]models.CanonicalProperty, error)

	// Enrichment lifecycle.
	MarkEnriched(ctx context.Context, uniqueID string, images []models.PropertyImage, floorplan *models.PropertyImage) error
	MarkEnrichmentFailed(ctx context.Context, uniqueID string, maxAttempts int) error

	// Save-before-analyze crash recovery.
	SavePreAnalysisProperties(ctx context.Context, properties []models.TrackedProperty) error
	GetPendingAnalysisProperties(ctx context.Context, excludeIDs []string) ([]models.TrackedProperty, error)
	CompleteAnalysis(ctx context.Context, uniqueID string, analysis *models.QualityAnalysis, fitScore *int) error
	ResetFailedAnalyses(ctx context.Context) (int, error)

	// Reanalysis subflow — never touches notification_status.
	RequestReanalysis(ctx context.Context, uniqueIDs []string) (int, error)
	RequestReanalysisByFilter(ctx context.Context, outcodes []string, allProperties bool) (int, error)
	GetReanalysisQueue(ctx context.Context, outcode string) ([]models.TrackedProperty, error)
	CompleteReanalysis(ctx context.Context, uniqueID string, analysis models.QualityAnalysis) error

	// Notification lifecycle.
	GetPendingNotification(ctx context.Context) ([]models.TrackedProperty, error)
	MarkNotified(ctx context.Context, uniqueID string) error
	MarkNotificationFailed(ctx context.Context, uniqueID string) error

	// Pipeline run log.
	CreatePipelineRun(ctx context.Context) (*models.PipelineRun, error)
	UpdatePipelineRun(ctx context.Context, runID int64, counts map[string]int) error
	CompletePipelineRun(ctx context.Context, runID int64, status models.RunStatus, errs []string) error
	GetLastPipelineRun(ctx context.Context) (*models.PipelineRun, error)
}

// PostgresStore is the production Store, backed by a *sql.DB over pgx.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, log: slog.With("component", "store")}
}
