package criteria

import (
	"log/slog"
	"strings"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// ExtractOutcode returns the outcode portion of a UK postcode (e.g. "E8" from
// "E8 3RH"), or "" if postcode is empty or doesn't match the outcode shape.
func ExtractOutcode(postcode string) string {
	if postcode == "" {
		return ""
	}
	trimmed := strings.ToUpper(strings.TrimSpace(postcode))
	m := outcodePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	return m[1]
}

// NormalizeArea lower-cases an area name and resolves it through
// OutcodeAliases to its canonical borough slug.
func NormalizeArea(area string) string {
	normalized := strings.ToLower(strings.TrimSpace(area))
	if canonical, ok := OutcodeAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// LocationGate validates that a listing actually falls within the requested
// search areas, catching scraper "location leakage" (spec §4.2).
type LocationGate struct {
	searchAreas  []string
	strict       bool
	validOutcodes map[string]struct{}
	log          *slog.Logger
}

// NewLocationGate builds a gate from a list of borough names or bare
// outcodes. When strict is true, listings with no postcode are rejected;
// when false they pass through.
func NewLocationGate(searchAreas []string, strict bool) *LocationGate {
	g := &LocationGate{
		strict:        strict,
		validOutcodes: make(map[string]struct{}),
		log:           slog.With("component", "location_gate"),
	}
	for _, raw := range searchAreas {
		area := NormalizeArea(raw)
		g.searchAreas = append(g.searchAreas, area)
		if bareOutcodePattern.MatchString(area) {
			g.validOutcodes[strings.ToUpper(area)] = struct{}{}
			continue
		}
		if outcodes, ok := BoroughOutcodes[area]; ok {
			for code := range outcodes {
				g.validOutcodes[code] = struct{}{}
			}
		}
	}
	g.log.Debug("location_gate_initialized", "search_areas", g.searchAreas, "valid_outcode_count", len(g.validOutcodes))
	return g
}

// IsValidLocation reports whether the listing's postcode falls within the
// gate's accepted outcodes.
func (g *LocationGate) IsValidLocation(l *models.Listing) bool {
	outcode := ExtractOutcode(l.Postcode)
	if outcode == "" {
		return !g.strict
	}
	_, ok := g.validOutcodes[outcode]
	return ok
}

// Filter partitions listings into those that pass the location gate and
// logs a rejection summary broken down by outcode, matching the original's
// filter_properties diagnostics.
func (g *LocationGate) Filter(listings []models.Listing) []models.Listing {
	valid := make([]models.Listing, 0, len(listings))
	rejectedByOutcode := make(map[string]int)
	rejected := 0

	for _, l := range listings {
		if g.IsValidLocation(&l) {
			valid = append(valid, l)
			continue
		}
		rejected++
		outcode := ExtractOutcode(l.Postcode)
		if outcode == "" {
			outcode = "NO_POSTCODE"
		}
		rejectedByOutcode[outcode]++
	}

	if rejected > 0 {
		g.log.Info("location_gate_rejected", "total_rejected", rejected, "rejected_outcodes", rejectedByOutcode)
	}
	g.log.Info("location_gate_complete", "total", len(listings), "valid", len(valid), "rejected", rejected)
	return valid
}

// CriteriaGate applies the price/bedroom bounds ahead of the location gate,
// the cheapest and first-applied filter in the pipeline.
type CriteriaGate struct {
	criteria models.SearchCriteria
	log      *slog.Logger
}

// NewCriteriaGate builds a gate from validated search criteria.
func NewCriteriaGate(c models.SearchCriteria) *CriteriaGate {
	return &CriteriaGate{criteria: c, log: slog.With("component", "criteria_gate")}
}

// Filter keeps only listings whose price and bedroom count satisfy the
// configured range.
func (g *CriteriaGate) Filter(listings []models.Listing) []models.Listing {
	valid := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if g.criteria.MatchesBasics(&l) {
			valid = append(valid, l)
		}
	}
	g.log.Info("criteria_gate_complete", "total", len(listings), "valid", len(valid))
	return valid
}
