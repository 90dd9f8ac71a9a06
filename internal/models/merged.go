package models

// PropertyImage is a single image belonging to a listing, tagged with the
// source it came from and whether it is a gallery shot or floorplan.
type PropertyImage struct {
	URL         string         `json:"url"`
	Source      PropertySource `json:"source"`
	ImageType   ImageType      `json:"image_type"`
	LocalPath   string         `json:"local_path,omitempty"`
	WidthPixels int            `json:"width_pixels,omitempty"`
}

// CanonicalProperty is a property aggregated across platforms: the result of
// dedup clustering and merge (spec §4.3 "CanonicalProperty"). It corresponds
// to the original's MergedProperty.
type CanonicalProperty struct {
	// Canonical is the representative listing chosen by canonical selection
	// (earliest first_seen, platform-priority tie-break).
	Canonical Listing `json:"canonical"`

	// Sources lists every platform this property was found on.
	Sources []PropertySource `json:"sources"`

	// SourceURLs maps each source platform to its listing URL.
	SourceURLs map[PropertySource]string `json:"source_urls"`

	// Images is the deduplicated, capped gallery across all sources.
	Images []PropertyImage `json:"images"`

	// Floorplan is the best floorplan image found, if any.
	Floorplan *PropertyImage `json:"floorplan,omitempty"`

	MinPrice int `json:"min_price"`
	MaxPrice int `json:"max_price"`

	// Descriptions holds each source's listing description, keyed by source.
	Descriptions map[PropertySource]string `json:"descriptions"`
}

// UniqueID delegates to the canonical listing's identity.
func (m *CanonicalProperty) UniqueID() string {
	return m.Canonical.UniqueID()
}

// PriceVaries reports whether the merged price range spans more than one value.
func (m *CanonicalProperty) PriceVaries() bool {
	return m.MinPrice != m.MaxPrice
}

// HasSource reports whether the given platform contributed to this merge.
func (m *CanonicalProperty) HasSource(s PropertySource) bool {
	for _, existing := range m.Sources {
		if existing == s {
			return true
		}
	}
	return false
}
