package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcelCutts/home-finder-sub001/internal/errs"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

func joinSources(sources []models.PropertySource) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func marshalSourceMap[V any](m map[models.PropertySource]V) ([]byte, error) {
	return json.Marshal(m)
}

// SaveScraped inserts freshly deduped properties as newly-discovered,
// unenriched rows (spec §4.7 "save_unenriched_property"): enrichment starts
// at pending with one attempt already spent. A conflicting unique_id (the
// same listing rediscovered before a prior attempt aged out) only bumps the
// attempt counter — every other field, including lifecycle status, is left
// exactly as it was.
func (s *PostgresStore) SaveScraped(ctx context.Context, properties []models.CanonicalProperty) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save_scraped: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range properties {
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
				source_urls, descriptions, first_seen, enrichment_status, enrichment_attempts,
				notification_status
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			ON CONFLICT (unique_id) DO UPDATE SET
				enrichment_attempts = properties.enrichment_attempts + 1,
				updated_at = now()
		`,
			p.UniqueID(), p.Canonical.Source, p.Canonical.SourceID, p.Canonical.Title, p.Canonical.Address,
			nullableString(p.Canonical.Postcode), nullableFloat(p.Canonical.Latitude), nullableFloat(p.Canonical.Longitude),
			p.MinPrice, p.MaxPrice, p.Canonical.Bedrooms, joinSources(p.Sources),
			sourceURLs, descriptions, p.Canonical.FirstSeen, models.EnrichmentPending, 1,
			models.NotificationPendingEnrichment,
		)
		if err != nil {
			return fmt.Errorf("store: insert property %s: %w", p.UniqueID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save_scraped: %w", err)
	}
	s.log.Info("properties_saved", "count", len(properties))
	return nil
}

// SaveMergedProperty upserts a cross-run dedup match by the anchor's existing
// identity (spec §4.7 "save_merged_property"): non-identity fields are
// updated, min/max price widens monotonically, sources/URL/description maps
// union with what the anchor already had, and notification/enrichment state
// is never touched (this path never revisits lifecycle, only the merged
// facts about the dwelling).
func (s *PostgresStore) SaveMergedProperty(ctx context.Context, anchorUniqueID string, update models.CanonicalProperty) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save_merged_property: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingSources string
	var existingSourceURLs, existingDescriptions []byte
	var minPrice, maxPrice int
	err = tx.QueryRowContext(ctx, `
		SELECT sources, source_urls, descriptions, min_price_pcm, max_price_pcm
		FROM properties WHERE unique_id = $1 FOR UPDATE
	`, anchorUniqueID).Scan(&existingSources, &existingSourceURLs, &existingDescriptions, &minPrice, &maxPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: save merged property: anchor %s: %w", anchorUniqueID, errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: load anchor %s: %w", anchorUniqueID, err)
	}

	sources := mergeSources(existingSources, update.Sources)

	sourceURLs := map[models.PropertySource]string{}
	if len(existingSourceURLs) > 0 {
		if err := json.Unmarshal(existingSourceURLs, &sourceURLs); err != nil {
			return fmt.Errorf("store: decode anchor source_urls: %w", err)
		}
	}
	for source, url := range update.SourceURLs {
		sourceURLs[source] = url
	}

	descriptions := map[models.PropertySource]string{}
	if len(existingDescriptions) > 0 {
		if err := json.Unmarshal(existingDescriptions, &descriptions); err != nil {
			return fmt.Errorf("store: decode anchor descriptions: %w", err)
		}
	}
	for source, desc := range update.Descriptions {
		descriptions[source] = desc
	}

	if update.MinPrice < minPrice {
		minPrice = update.MinPrice
	}
	if update.MaxPrice > maxPrice {
		maxPrice = update.MaxPrice
	}

	marshaledURLs, err := marshalSourceMap(sourceURLs)
	if err != nil {
		return fmt.Errorf("store: marshal merged source_urls: %w", err)
	}
	marshaledDescriptions, err := marshalSourceMap(descriptions)
	if err != nil {
		return fmt.Errorf("store: marshal merged descriptions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE properties SET
			sources = $1, source_urls = $2, descriptions = $3,
			min_price_pcm = $4, max_price_pcm = $5, updated_at = now()
		WHERE unique_id = $6
	`, joinSources(sources), marshaledURLs, marshaledDescriptions, minPrice, maxPrice, anchorUniqueID)
	if err != nil {
		return fmt.Errorf("store: update merged property %s: %w", anchorUniqueID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save_merged_property: %w", err)
	}
	s.log.Info("merged_property_updated", "anchor", anchorUniqueID, "new_sources", update.Sources)
	return nil
}

// mergeSources unions a comma-joined source list with freshly-matched
// sources, preserving first-seen order and de-duplicating.
func mergeSources(existing string, fresh []models.PropertySource) []models.PropertySource {
	seen := make(map[models.PropertySource]struct{})
	var out []models.PropertySource
	for _, s := range strings.Split(existing, ",") {
		if s == "" {
			continue
		}
		source := models.PropertySource(s)
		if _, dup := seen[source]; dup {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	for _, source := range fresh {
		if _, dup := seen[source]; dup {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	return out
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// GetUnenrichedProperties loads every property still awaiting detail
// enrichment, oldest-first.
func (s *PostgresStore) GetUnenrichedProperties(ctx context.Context) ([]models.TrackedProperty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+propertyColumns+` FROM properties
		WHERE enrichment_status = $1
		ORDER BY first_seen ASC
	`, models.EnrichmentPending)
	if err != nil {
		return nil, fmt.Errorf("store: query unenriched properties: %w", err)
	}
	defer rows.Close()

	return s.scanTrackedProperties(ctx, rows)
}

// scanTrackedProperties drains a result set of property rows, loading each
// row's images and quality analysis to build the full domain object.
func (s *PostgresStore) scanTrackedProperties(ctx context.Context, rows *sql.Rows) ([]models.TrackedProperty, error) {
	var out []models.TrackedProperty
	for rows.Next() {
		row, err := scanPropertyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan property row: %w", err)
		}
		images, floorplan, err := s.loadImages(ctx, row.UniqueID)
		if err != nil {
			return nil, err
		}
		quality, err := s.loadQuality(ctx, row.UniqueID)
		if err != nil {
			return nil, err
		}
		tp, err := row.toTrackedProperty(images, floorplan, quality)
		if err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (s *PostgresStore) loadImages(ctx context.Context, uniqueID string) ([]models.PropertyImage, *models.PropertyImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, source, image_type, local_path, width_pixels
		FROM property_images WHERE property_unique_id = $1
	`, uniqueID)
	if err != nil {
		return nil, nil, fmt.Errorf("store: query images for %s: %w", uniqueID, err)
	}
	defer rows.Close()

	var gallery []models.PropertyImage
	var floorplan *models.PropertyImage
	for rows.Next() {
		var img models.PropertyImage
		var localPath sql.NullString
		var width sql.NullInt64
		if err := rows.Scan(&img.URL, &img.Source, &img.ImageType, &localPath, &width); err != nil {
			return nil, nil, fmt.Errorf("store: scan image row: %w", err)
		}
		img.LocalPath = localPath.String
		img.WidthPixels = int(width.Int64)
		if img.ImageType == models.ImageFloorplan {
			imgCopy := img
			floorplan = &imgCopy
			continue
		}
		gallery = append(gallery, img)
	}
	return gallery, floorplan, rows.Err()
}

func (s *PostgresStore) loadQuality(ctx context.Context, uniqueID string) (*models.QualityAnalysis, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT analysis FROM quality_analyses WHERE property_unique_id = $1
	`, uniqueID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query quality for %s: %w", uniqueID, err)
	}
	var analysis models.QualityAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, fmt.Errorf("store: decode quality for %s: %w", uniqueID, err)
	}
	return &analysis, nil
}

// MarkEnriched transitions a property to enriched/pending_analysis and
// persists its gallery + floorplan images, skip-if-cached is the caller's
// (enrich package's) responsibility.
func (s *PostgresStore) MarkEnriched(ctx context.Context, uniqueID string, images []models.PropertyImage, floorplan *models.PropertyImage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin mark_enriched: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE properties
		SET enrichment_status = $1, notification_status = $2, updated_at = now()
		WHERE unique_id = $3 AND enrichment_status != $1
	`, models.EnrichmentEnriched, models.NotificationPendingAnalysis, uniqueID)
	if err != nil {
		return fmt.Errorf("store: mark enriched %s: %w", uniqueID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: mark enriched %s: %w", uniqueID, errs.ErrNotFound)
	}

	all := append([]models.PropertyImage{}, images...)
	if floorplan != nil {
		all = append(all, *floorplan)
	}
	for _, img := range all {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO property_images (property_unique_id, url, source, image_type, local_path, width_pixels)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (property_unique_id, url) DO NOTHING
		`, uniqueID, img.URL, img.Source, img.ImageType, nullableString(img.LocalPath), img.WidthPixels)
		if err != nil {
			return fmt.Errorf("store: insert image for %s: %w", uniqueID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit mark_enriched: %w", err)
	}
	return nil
}

// MarkEnrichmentFailed increments the attempt counter and flips the property
// to enrichment_status=failed once maxAttempts is reached.
func (s *PostgresStore) MarkEnrichmentFailed(ctx context.Context, uniqueID string, maxAttempts int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE properties
		SET enrichment_attempts = enrichment_attempts + 1,
		    enrichment_status = CASE WHEN enrichment_attempts + 1 >= $2 THEN $3 ELSE enrichment_status END,
		    updated_at = now()
		WHERE unique_id = $1
	`, uniqueID, maxAttempts, models.EnrichmentFailed)
	if err != nil {
		return fmt.Errorf("store: mark enrichment failed %s: %w", uniqueID, err)
	}
	return nil
}

// GetRecentPropertiesForDedup returns canonical properties first seen at or
// after `since`, excluding ones still awaiting enrichment (spec §4.7
// "get_recent_properties_for_dedup"): these are the cross-run anchors fed
// into dedup clustering alongside freshly scraped listings so a listing
// rediscovered on another platform updates the existing row instead of
// inserting a duplicate.
func (s *PostgresStore) GetRecentPropertiesForDedup(ctx context.Context, since time.Time) ([]models.CanonicalProperty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+propertyColumns+` FROM properties WHERE first_seen >= $1 AND enrichment_status != $2
	`, since, models.EnrichmentPending)
	if err != nil {
		return nil, fmt.Errorf("store: query recent properties: %w", err)
	}
	defer rows.Close()

	tracked, err := s.scanTrackedProperties(ctx, rows)
	if err != nil {
		return nil, err
	}
	out := make([]models.CanonicalProperty, len(tracked))
	for i, t := range tracked {
		out[i] = t.Property
	}
	return out, nil
}
