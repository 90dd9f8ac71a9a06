package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// CreatePipelineRun starts a new run record in the 'running' state.
func (s *PostgresStore) CreatePipelineRun(ctx context.Context) (*models.PipelineRun, error) {
	run := &models.PipelineRun{
		RunUUID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    models.RunRunning,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pipeline_runs (run_uuid, started_at, status) VALUES ($1,$2,$3)
		RETURNING id
	`, run.RunUUID, run.StartedAt, run.Status).Scan(&run.ID)
	if err != nil {
		return nil, fmt.Errorf("store: create pipeline run: %w", err)
	}
	return run, nil
}

// UpdatePipelineRun patches count columns on a run record. Unknown keys are
// rejected to avoid building arbitrary SQL from caller input.
func (s *PostgresStore) UpdatePipelineRun(ctx context.Context, runID int64, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	allowed := map[string]bool{
		"listings_scraped": true, "listings_gated": true, "properties_merged": true,
		"properties_enriched": true, "properties_analyzed": true, "notifications_sent": true,
	}
	var sets []string
	var args []any
	i := 1
	for k, v := range counts {
		if !allowed[k] {
			return fmt.Errorf("store: unknown pipeline run column %q", k)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i))
		args = append(args, v)
		i++
	}
	args = append(args, runID)
	query := fmt.Sprintf("UPDATE pipeline_runs SET %s WHERE id = $%d", strings.Join(sets, ", "), i)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: update pipeline run %d: %w", runID, err)
	}
	return nil
}

// CompletePipelineRun marks a run finished, recording its terminal status
// and any accumulated error messages.
func (s *PostgresStore) CompletePipelineRun(ctx context.Context, runID int64, status models.RunStatus, errs []string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_runs SET finished_at = now(), status = $1, errors = $2 WHERE id = $3
	`, status, strings.Join(errs, "\n"), runID)
	if err != nil {
		return fmt.Errorf("store: complete pipeline run %d: %w", runID, err)
	}
	return nil
}

// GetLastPipelineRun returns the most recently completed or failed run, or
// nil if none exist yet.
func (s *PostgresStore) GetLastPipelineRun(ctx context.Context) (*models.PipelineRun, error) {
	var run models.PipelineRun
	var finishedAt sql.NullTime
	var errorsJoined string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_uuid, started_at, finished_at, status, listings_scraped, listings_gated,
		       properties_merged, properties_enriched, properties_analyzed, notifications_sent, errors
		FROM pipeline_runs
		WHERE status IN ($1, $2)
		ORDER BY id DESC LIMIT 1
	`, models.RunCompleted, models.RunFailed).Scan(
		&run.ID, &run.RunUUID, &run.StartedAt, &finishedAt, &run.Status,
		&run.ListingsScraped, &run.ListingsGated, &run.PropertiesMerged,
		&run.PropertiesEnriched, &run.PropertiesAnalyzed, &run.NotificationsSent, &errorsJoined,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get last pipeline run: %w", err)
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	if errorsJoined != "" {
		run.Errors = strings.Split(errorsJoined, "\n")
	}
	return &run, nil
}
