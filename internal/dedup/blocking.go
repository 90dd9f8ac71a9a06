package dedup

import (
	"fmt"

	"github.com/MarcelCutts/home-finder-sub001/internal/criteria"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// blockKey groups listings that could plausibly be the same property so the
// pairwise scorer only ever runs within a block, not across the full O(n^2)
// candidate set (spec §4.3 "blocking by outcode+bedrooms").
func blockKey(l *models.Listing) string {
	outcode := criteria.ExtractOutcode(l.Postcode)
	if outcode == "" {
		outcode = "NO_OUTCODE"
	}
	return fmt.Sprintf("%s:%d", outcode, l.Bedrooms)
}

// Blocks partitions listings into blocking buckets keyed by outcode and
// bedroom count.
func Blocks(listings []models.Listing) map[string][]models.Listing {
	blocks := make(map[string][]models.Listing)
	for i := range listings {
		key := blockKey(&listings[i])
		blocks[key] = append(blocks[key], listings[i])
	}
	return blocks
}
