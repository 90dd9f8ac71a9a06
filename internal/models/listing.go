package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Listing is a single rental property as scraped from one platform, before
// cross-source reconciliation (spec §3 "Listing").
type Listing struct {
	Source        PropertySource `json:"source" validate:"required"`
	SourceID      string         `json:"source_id" validate:"required"`
	URL           string         `json:"url" validate:"required,url"`
	Title         string         `json:"title" validate:"required"`
	PricePCM      int            `json:"price_pcm" validate:"gte=0"`
	Bedrooms      int            `json:"bedrooms" validate:"gte=0"`
	Address       string         `json:"address"`
	Postcode      string         `json:"postcode,omitempty"`
	Latitude      *float64       `json:"latitude,omitempty"`
	Longitude     *float64       `json:"longitude,omitempty"`
	Description   string         `json:"description,omitempty"`
	ImageURL      string         `json:"image_url,omitempty"`
	ImageHash     string         `json:"image_hash,omitempty"`
	AvailableFrom *time.Time     `json:"available_from,omitempty"`
	FirstSeen     time.Time      `json:"first_seen"`
}

// ErrCoordinatesIncomplete is returned when only one of latitude/longitude is set.
var ErrCoordinatesIncomplete = errors.New("models: both latitude and longitude must be set, or neither")

// NormalizePostcode upper-cases a postcode and collapses internal whitespace
// to a single space, matching the original scraper's normalization.
func NormalizePostcode(pc string) string {
	return strings.Join(strings.Fields(strings.ToUpper(pc)), " ")
}

// Validate checks field invariants beyond what struct tags express: the
// lat/lon pairing rule and URL well-formedness.
func (l *Listing) Validate() error {
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return ErrCoordinatesIncomplete
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return fmt.Errorf("models: latitude %f out of range", *l.Latitude)
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return fmt.Errorf("models: longitude %f out of range", *l.Longitude)
	}
	if _, err := url.ParseRequestURI(l.URL); err != nil {
		return fmt.Errorf("models: invalid url: %w", err)
	}
	l.Postcode = NormalizePostcode(l.Postcode)
	return nil
}

// UniqueID is the cross-source identity key: "<source>:<source_id>".
func (l *Listing) UniqueID() string {
	return fmt.Sprintf("%s:%s", l.Source, l.SourceID)
}

// HasCoordinates reports whether this listing carries a lat/lon pair.
func (l *Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// SearchCriteria bounds the basic scrape/gate filters (spec §4.2).
type SearchCriteria struct {
	MinPrice             int             `yaml:"min_price" validate:"gte=0"`
	MaxPrice             int             `yaml:"max_price" validate:"gte=0"`
	MinBedrooms          int             `yaml:"min_bedrooms" validate:"gte=0"`
	MaxBedrooms          int             `yaml:"max_bedrooms" validate:"gte=0"`
	DestinationPostcode  string          `yaml:"destination_postcode" validate:"required"`
	MaxCommuteMinutes    int             `yaml:"max_commute_minutes" validate:"gte=1,lte=120"`
	TransportModes       []TransportMode `yaml:"transport_modes"`
}

// Validate enforces the range invariants the original SearchCriteria model
// checks at construction time.
func (c *SearchCriteria) Validate() error {
	if c.MinPrice > c.MaxPrice {
		return fmt.Errorf("models: min_price %d must be <= max_price %d", c.MinPrice, c.MaxPrice)
	}
	if c.MinBedrooms > c.MaxBedrooms {
		return fmt.Errorf("models: min_bedrooms %d must be <= max_bedrooms %d", c.MinBedrooms, c.MaxBedrooms)
	}
	c.DestinationPostcode = NormalizePostcode(c.DestinationPostcode)
	if len(c.TransportModes) == 0 {
		c.TransportModes = []TransportMode{TransportCycling, TransportPublicTransport}
	}
	return nil
}

// MatchesBasics reports whether price and bedroom count fall within range;
// this is the criteria gate's first, cheapest test.
func (c *SearchCriteria) MatchesBasics(l *Listing) bool {
	return c.MinPrice <= l.PricePCM && l.PricePCM <= c.MaxPrice &&
		c.MinBedrooms <= l.Bedrooms && l.Bedrooms <= c.MaxBedrooms
}
