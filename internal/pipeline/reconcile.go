package pipeline

import (
	"github.com/MarcelCutts/home-finder-sub001/internal/dedup"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// crossRunDedupWindowDays is the spec's stated default lookback for cross-run
// dedup anchors (spec §4.3 "Cross-run dedup").
const crossRunDedupWindowDays = 30

// anchorUpdate is a merge result that was matched back to an existing
// canonical property rather than treated as a brand new one.
type anchorUpdate struct {
	AnchorUniqueID string
	Merged         models.CanonicalProperty
}

// reconcileWithAnchors feeds previously-persisted canonical properties
// ("anchors") into the same blocking/scoring/clustering pass as the freshly
// scraped, gated listings from this run, so a listing re-discovered on a
// different platform is recognised as the same dwelling instead of inserted
// as a new row (spec §4.3 "Cross-run dedup").
//
// Anchors participate in clustering via their canonical listing (the
// matchable signature dedup scoring needs); the accumulated multi-source
// state already on an anchor's row is not reconstructed here; it is merged
// in by the store when an anchor match is persisted.
//
// A cluster's match back to an anchor is decided by URL membership in the
// anchor's per-source URL map (spec §4.3, §9 "Identity vs. URL matching for
// cross-run merge"), since the merge's own canonical-selection tie-break may
// not agree with which row is already persisted.
func reconcileWithAnchors(gated []models.Listing, anchors []models.CanonicalProperty) (newProperties []models.CanonicalProperty, updates []anchorUpdate) {
	anchorListingID := make(map[string]struct{}, len(anchors))
	anchorByURL := make(map[string]string, len(anchors)*2)
	for _, anchor := range anchors {
		a := anchor
		anchorListingID[a.Canonical.UniqueID()] = struct{}{}
		for _, url := range a.SourceURLs {
			anchorByURL[url] = a.UniqueID()
		}
	}

	anchorListings := make([]models.Listing, len(anchors))
	for i, anchor := range anchors {
		anchorListings[i] = anchor.Canonical
	}

	combined := make([]models.Listing, 0, len(anchorListings)+len(gated))
	combined = append(combined, anchorListings...)
	combined = append(combined, gated...)

	for _, cluster := range dedup.Cluster(combined, nil) {
		var fresh []models.Listing
		matchedAnchor := ""
		for _, l := range cluster {
			if _, isAnchor := anchorListingID[l.UniqueID()]; isAnchor {
				if anchorID, ok := findAnchorID(anchors, l.UniqueID()); ok {
					matchedAnchor = anchorID
				}
				continue
			}
			fresh = append(fresh, l)
		}
		if len(fresh) == 0 {
			// Anchor rediscovered with no new source — nothing to update.
			continue
		}

		merged := dedup.Merge(fresh, nil)

		if matchedAnchor == "" {
			for _, url := range merged.SourceURLs {
				if anchorID, ok := anchorByURL[url]; ok {
					matchedAnchor = anchorID
					break
				}
			}
		}

		if matchedAnchor != "" {
			updates = append(updates, anchorUpdate{AnchorUniqueID: matchedAnchor, Merged: merged})
			continue
		}
		newProperties = append(newProperties, merged)
	}

	return newProperties, updates
}

func findAnchorID(anchors []models.CanonicalProperty, canonicalListingID string) (string, bool) {
	for _, anchor := range anchors {
		a := anchor
		if a.Canonical.UniqueID() == canonicalListingID {
			return a.UniqueID(), true
		}
	}
	return "", false
}
