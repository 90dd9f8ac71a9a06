package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// propertyRow mirrors the properties table's columns, the Go-side analogue
// of the original's row_mappers.py row_to_merged_property.
type propertyRow struct {
	UniqueID           string
	CanonicalSource    string
	CanonicalSourceID  string
	Title              string
	Address            string
	Postcode           sql.NullString
	Latitude           sql.NullFloat64
	Longitude          sql.NullFloat64
	MinPricePCM        int
	MaxPricePCM        int
	Bedrooms           int
	Sources            string
	SourceURLs         []byte
	Descriptions       []byte
	FirstSeen          time.Time
	EnrichmentStatus   string
	EnrichmentAttempts int
	NotificationStatus string
	NotifiedAt         sql.NullTime
	CommuteMinutes     sql.NullInt64
	TransportMode      sql.NullString
	FitScore           sql.NullInt64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const propertyColumns = `unique_id, canonical_source, canonical_source_id, title, address, postcode,
	latitude, longitude, min_price_pcm, max_price_pcm, bedrooms, sources, source_urls, descriptions,
	first_seen, enrichment_status, enrichment_attempts, notification_status, notified_at,
	commute_minutes, transport_mode, fit_score, created_at, updated_at`

// prefixedPropertyColumns returns propertyColumns with each column qualified
// by the given table alias, for queries that join properties to another table.
func prefixedPropertyColumns(alias string) string {
	cols := strings.Split(propertyColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanPropertyRow(scanner interface{ Scan(...any) error }) (propertyRow, error) {
	var r propertyRow
	err := scanner.Scan(
		&r.UniqueID, &r.CanonicalSource, &r.CanonicalSourceID, &r.Title, &r.Address, &r.Postcode,
		&r.Latitude, &r.Longitude, &r.MinPricePCM, &r.MaxPricePCM, &r.Bedrooms,
		&r.Sources, &r.SourceURLs, &r.Descriptions,
		&r.FirstSeen, &r.EnrichmentStatus, &r.EnrichmentAttempts, &r.NotificationStatus, &r.NotifiedAt,
		&r.CommuteMinutes, &r.TransportMode, &r.FitScore, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// toTrackedProperty reconstructs the domain model from a scanned row plus
// its separately-loaded images and quality analysis.
func (r propertyRow) toTrackedProperty(images []models.PropertyImage, floorplan *models.PropertyImage, quality *models.QualityAnalysis) (models.TrackedProperty, error) {
	sourceURLs := make(map[models.PropertySource]string)
	if len(r.SourceURLs) > 0 {
		if err := json.Unmarshal(r.SourceURLs, &sourceURLs); err != nil {
			return models.TrackedProperty{}, fmt.Errorf("store: decode source_urls: %w", err)
		}
	}
	descriptions := make(map[models.PropertySource]string)
	if len(r.Descriptions) > 0 {
		if err := json.Unmarshal(r.Descriptions, &descriptions); err != nil {
			return models.TrackedProperty{}, fmt.Errorf("store: decode descriptions: %w", err)
		}
	}

	var sources []models.PropertySource
	for _, s := range strings.Split(r.Sources, ",") {
		if s != "" {
			sources = append(sources, models.PropertySource(s))
		}
	}

	canonical := models.Listing{
		Source:    models.PropertySource(r.CanonicalSource),
		SourceID:  r.CanonicalSourceID,
		URL:       sourceURLs[models.PropertySource(r.CanonicalSource)],
		Title:     r.Title,
		PricePCM:  r.MinPricePCM,
		Bedrooms:  r.Bedrooms,
		Address:   r.Address,
		Postcode:  r.Postcode.String,
		FirstSeen: r.FirstSeen,
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		lat, lon := r.Latitude.Float64, r.Longitude.Float64
		canonical.Latitude, canonical.Longitude = &lat, &lon
	}

	tp := models.TrackedProperty{
		Property: models.CanonicalProperty{
			Canonical:    canonical,
			Sources:      sources,
			SourceURLs:   sourceURLs,
			Images:       images,
			Floorplan:    floorplan,
			MinPrice:     r.MinPricePCM,
			MaxPrice:     r.MaxPricePCM,
			Descriptions: descriptions,
		},
		EnrichmentStatus:   models.EnrichmentStatus(r.EnrichmentStatus),
		EnrichmentAttempts: r.EnrichmentAttempts,
		NotificationStatus: models.NotificationStatus(r.NotificationStatus),
		Quality:            quality,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.NotifiedAt.Valid {
		tp.NotifiedAt = &r.NotifiedAt.Time
	}
	if r.CommuteMinutes.Valid {
		minutes := int(r.CommuteMinutes.Int64)
		tp.CommuteMinutes = &minutes
	}
	if r.TransportMode.Valid {
		tp.TransportMode = models.TransportMode(r.TransportMode.String)
	}
	if r.FitScore.Valid {
		score := int(r.FitScore.Int64)
		tp.FitScore = &score
	}
	return tp, nil
}
