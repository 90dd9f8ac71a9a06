package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// SavePreAnalysisProperties batch-saves properties immediately before
// quality analysis runs, with notification_status=pending_analysis and
// enrichment_status=enriched. If the process crashes mid-analysis, these
// rows are recovered by GetPendingAnalysisProperties on the next run (spec
// §4.5 "save-before-analyze pattern").
func (s *PostgresStore) SavePreAnalysisProperties(ctx context.Context, properties []models.TrackedProperty) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save_pre_analysis: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, tp := range properties {
		p := tp.Property
		sourceURLs, err := marshalSourceMap(p.SourceURLs)
		if err != nil {
			return fmt.Errorf("store: marshal source_urls: %w", err)
		}
		descriptions, err := marshalSourceMap(p.Descriptions)
		if err != nil {
			return fmt.Errorf("store: marshal descriptions: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO properties (
				unique_id, canonical_source, canonical_source_id, title, address, postcode,
				latitude, longitude, min_price_pcm, max_price_pcm, bedrooms, sources,
				source_urls, descriptions, first_seen, enrichment_status, notification_status,
				commute_minutes, transport_mode
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (unique_id) DO UPDATE SET
				notification_status = excluded.notification_status,
				enrichment_status = excluded.enrichment_status,
				updated_at = now()
		`,
			p.UniqueID(), p.Canonical.Source, p.Canonical.SourceID, p.Canonical.Title, p.Canonical.Address,
			nullableString(p.Canonical.Postcode), nullableFloat(p.Canonical.Latitude), nullableFloat(p.Canonical.Longitude),
			p.MinPrice, p.MaxPrice, p.Canonical.Bedrooms, joinSources(p.Sources),
			sourceURLs, descriptions, p.Canonical.FirstSeen, models.EnrichmentEnriched, models.NotificationPendingAnalysis,
			nullableCommute(tp.CommuteMinutes), nullableString(string(tp.TransportMode)),
		)
		if err != nil {
			return fmt.Errorf("store: save pre-analysis property %s: %w", p.UniqueID(), err)
		}

		all := append([]models.PropertyImage{}, p.Images...)
		if p.Floorplan != nil {
			all = append(all, *p.Floorplan)
		}
		for _, img := range all {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO property_images (property_unique_id, url, source, image_type, local_path, width_pixels)
				VALUES ($1,$2,$3,$4,$5,$6)
				ON CONFLICT (property_unique_id, url) DO NOTHING
			`, p.UniqueID(), img.URL, img.Source, img.ImageType, nullableString(img.LocalPath), img.WidthPixels)
			if err != nil {
				return fmt.Errorf("store: save pre-analysis image for %s: %w", p.UniqueID(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save_pre_analysis: %w", err)
	}
	s.log.Info("pre_analysis_properties_saved", "count", len(properties))
	return nil
}

func nullableCommute(minutes *int) any {
	if minutes == nil {
		return nil
	}
	return *minutes
}

// GetPendingAnalysisProperties loads properties awaiting quality analysis,
// excluding any unique IDs the caller already holds in its current batch
// (e.g. ones just saved by SavePreAnalysisProperties this run).
func (s *PostgresStore) GetPendingAnalysisProperties(ctx context.Context, excludeIDs []string) ([]models.TrackedProperty, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE notification_status = $1 ORDER BY first_seen ASC`
	args := []any{models.NotificationPendingAnalysis}

	if len(excludeIDs) > 0 {
		placeholders := make([]string, len(excludeIDs))
		for i, id := range excludeIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		query = fmt.Sprintf(`SELECT `+propertyColumns+` FROM properties
			WHERE notification_status = $1 AND unique_id NOT IN (%s)
			ORDER BY first_seen ASC`, strings.Join(placeholders, ","))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query pending analysis properties: %w", err)
	}
	defer rows.Close()

	results, err := s.scanTrackedProperties(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		s.log.Info("loaded_pending_analysis_retries_from_db", "count", len(results))
	}
	return results, nil
}

// CompleteAnalysis saves the quality analysis (when non-nil — nil means the
// analysis was skipped) and transitions the property from pending_analysis
// to pending. The status update is conditional so a retry never clobbers a
// property that has already moved on.
func (s *PostgresStore) CompleteAnalysis(ctx context.Context, uniqueID string, analysis *models.QualityAnalysis, fitScore *int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin complete_analysis: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if analysis != nil {
		if err := saveQualityAnalysis(ctx, tx, uniqueID, *analysis); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE properties SET notification_status = $1, fit_score = $2, updated_at = now()
		WHERE unique_id = $3 AND notification_status = $4
	`, models.NotificationPending, nullableIntPtr(fitScore), uniqueID, models.NotificationPendingAnalysis)
	if err != nil {
		return fmt.Errorf("store: complete analysis %s: %w", uniqueID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit complete_analysis: %w", err)
	}
	return nil
}

func saveQualityAnalysis(ctx context.Context, tx *sql.Tx, uniqueID string, analysis models.QualityAnalysis) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("store: marshal quality analysis for %s: %w", uniqueID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO quality_analyses (
			property_unique_id, analysis, overall_rating, condition_concerns, concern_severity, summary
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (property_unique_id) DO UPDATE SET
			analysis = excluded.analysis,
			overall_rating = excluded.overall_rating,
			condition_concerns = excluded.condition_concerns,
			concern_severity = excluded.concern_severity,
			summary = excluded.summary,
			analyzed_at = now()
	`, uniqueID, raw, nullableIntPtr(analysis.OverallRating), analysis.ConditionConcerns,
		nullableString(analysis.ConcernSeverity), nullableString(analysis.Summary))
	if err != nil {
		return fmt.Errorf("store: save quality analysis for %s: %w", uniqueID, err)
	}
	return nil
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// ResetFailedAnalyses finds properties whose quality analysis completed
// with no overall_rating (the minimal fallback written when the analyzer
// API failed), deletes that fallback data, and flips them back to
// pending_analysis so the next run retries them.
func (s *PostgresStore) ResetFailedAnalyses(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.unique_id FROM properties p
		JOIN quality_analyses q ON p.unique_id = q.property_unique_id
		WHERE q.overall_rating IS NULL AND p.notification_status != $1
	`, models.NotificationPendingAnalysis)
	if err != nil {
		return 0, fmt.Errorf("store: query failed analyses: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: scan failed analysis id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin reset_failed_analyses: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders, args := inClause(ids, 1)
	if _, err := tx.ExecContext(ctx, `DELETE FROM quality_analyses WHERE property_unique_id IN (`+placeholders+`)`, args...); err != nil {
		return 0, fmt.Errorf("store: delete fallback analyses: %w", err)
	}

	statusArgs := append([]any{models.NotificationPendingAnalysis}, args...)
	placeholders2, _ := inClause(ids, 2)
	if _, err := tx.ExecContext(ctx, `UPDATE properties SET notification_status = $1, updated_at = now() WHERE unique_id IN (`+placeholders2+`)`, statusArgs...); err != nil {
		return 0, fmt.Errorf("store: reset properties to pending_analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit reset_failed_analyses: %w", err)
	}
	s.log.Info("reset_failed_analyses", "count", len(ids))
	return len(ids), nil
}

// inClause builds a "$offset,$offset+1,..." placeholder list starting at
// the given 1-based parameter index, returning it alongside the matching
// []any argument slice.
func inClause(ids []string, startAt int) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", startAt+i)
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

// RequestReanalysis flags specific properties for re-analysis by stamping
// reanalysis_requested_at; idempotent, only matches properties that already
// have a quality analysis.
func (s *PostgresStore) RequestReanalysis(ctx context.Context, uniqueIDs []string) (int, error) {
	if len(uniqueIDs) == 0 {
		return 0, nil
	}
	placeholders, args := inClause(uniqueIDs, 1)
	res, err := s.db.ExecContext(ctx, `
		UPDATE quality_analyses SET reanalysis_requested_at = now()
		WHERE property_unique_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("store: request reanalysis: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.Info("reanalysis_requested", "count", n, "ids", uniqueIDs)
	return int(n), nil
}

// RequestReanalysisByFilter bulk-flags properties for re-analysis by outcode
// prefix, or all analyzed properties when allProperties is true.
func (s *PostgresStore) RequestReanalysisByFilter(ctx context.Context, outcodes []string, allProperties bool) (int, error) {
	if !allProperties && len(outcodes) == 0 {
		return 0, nil
	}

	var res sql.Result
	var err error
	if allProperties {
		res, err = s.db.ExecContext(ctx, `
			UPDATE quality_analyses SET reanalysis_requested_at = now()
			WHERE property_unique_id IN (SELECT unique_id FROM properties)
		`)
	} else {
		conditions := make([]string, len(outcodes))
		args := make([]any, len(outcodes))
		for i, outcode := range outcodes {
			conditions[i] = fmt.Sprintf("UPPER(p.postcode) LIKE $%d", i+1)
			args[i] = strings.ToUpper(outcode) + "%"
		}
		res, err = s.db.ExecContext(ctx, `
			UPDATE quality_analyses SET reanalysis_requested_at = now()
			WHERE property_unique_id IN (
				SELECT p.unique_id FROM properties p WHERE `+strings.Join(conditions, " OR ")+`
			)
		`, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("store: request reanalysis by filter: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.Info("reanalysis_requested_by_filter", "count", n, "outcodes", outcodes, "all_properties", allProperties)
	return int(n), nil
}

// GetReanalysisQueue loads properties flagged for re-analysis, optionally
// restricted to an outcode prefix.
func (s *PostgresStore) GetReanalysisQueue(ctx context.Context, outcode string) ([]models.TrackedProperty, error) {
	query := `SELECT ` + prefixedPropertyColumns("p") + ` FROM properties p
		JOIN quality_analyses q ON p.unique_id = q.property_unique_id
		WHERE q.reanalysis_requested_at IS NOT NULL`
	var args []any
	if outcode != "" {
		query += ` AND UPPER(p.postcode) LIKE $1`
		args = append(args, strings.ToUpper(outcode)+"%")
	}
	query += ` ORDER BY p.first_seen ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query reanalysis queue: %w", err)
	}
	defer rows.Close()

	results, err := s.scanTrackedProperties(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.log.Info("loaded_reanalysis_queue", "count", len(results))
	return results, nil
}

// CompleteReanalysis saves the updated analysis and clears the re-analysis
// flag. It never touches notification_status: the property stays 'sent'
// (spec §4.5 "reanalysis never touches notification_status").
func (s *PostgresStore) CompleteReanalysis(ctx context.Context, uniqueID string, analysis models.QualityAnalysis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin complete_reanalysis: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := saveQualityAnalysis(ctx, tx, uniqueID, analysis); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE quality_analyses SET reanalysis_requested_at = NULL WHERE property_unique_id = $1
	`, uniqueID); err != nil {
		return fmt.Errorf("store: clear reanalysis flag for %s: %w", uniqueID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit complete_reanalysis: %w", err)
	}
	return nil
}
