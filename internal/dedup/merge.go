package dedup

import (
	"sort"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

const maxGalleryImages = 12

// SelectCanonical picks the representative listing from a cluster: earliest
// first_seen wins, ties broken by platform priority (spec §4.3 "canonical
// selection"). cluster must be non-empty.
func SelectCanonical(cluster []models.Listing) models.Listing {
	best := cluster[0]
	for _, l := range cluster[1:] {
		if l.FirstSeen.Before(best.FirstSeen) {
			best = l
			continue
		}
		if l.FirstSeen.Equal(best.FirstSeen) && l.Source.Priority() < best.Source.Priority() {
			best = l
		}
	}
	return best
}

// Merge reconciles a cluster of matched listings into a single
// CanonicalProperty: union of sources/URLs/descriptions, min/max price
// range, deduplicated and capped gallery, and floorplan preference (spec
// §4.3 "merge semantics").
func Merge(cluster []models.Listing, images map[string][]models.PropertyImage) models.CanonicalProperty {
	canonical := SelectCanonical(cluster)

	sources := make([]models.PropertySource, 0, len(cluster))
	sourceURLs := make(map[models.PropertySource]string, len(cluster))
	descriptions := make(map[models.PropertySource]string, len(cluster))
	minPrice, maxPrice := cluster[0].PricePCM, cluster[0].PricePCM

	ordered := make([]models.Listing, len(cluster))
	copy(ordered, cluster)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Source.Priority() < ordered[j].Source.Priority() })

	for _, l := range ordered {
		sources = append(sources, l.Source)
		sourceURLs[l.Source] = l.URL
		if l.Description != "" {
			descriptions[l.Source] = l.Description
		}
		if l.PricePCM < minPrice {
			minPrice = l.PricePCM
		}
		if l.PricePCM > maxPrice {
			maxPrice = l.PricePCM
		}
	}

	gallery, floorplan := mergeImages(ordered, images)

	return models.CanonicalProperty{
		Canonical:    canonical,
		Sources:      sources,
		SourceURLs:   sourceURLs,
		Images:       gallery,
		Floorplan:    floorplan,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		Descriptions: descriptions,
	}
}

// mergeImages unions every source's images keyed by URL (so the same image
// reposted across platforms counts once), caps the gallery at
// maxGalleryImages, and prefers the highest-resolution floorplan.
func mergeImages(ordered []models.Listing, images map[string][]models.PropertyImage) ([]models.PropertyImage, *models.PropertyImage) {
	seen := make(map[string]struct{})
	var gallery []models.PropertyImage
	var floorplan *models.PropertyImage

	for _, l := range ordered {
		for _, img := range images[l.UniqueID()] {
			if _, dup := seen[img.URL]; dup {
				continue
			}
			seen[img.URL] = struct{}{}

			if img.ImageType == models.ImageFloorplan {
				if floorplan == nil || img.WidthPixels > floorplan.WidthPixels {
					imgCopy := img
					floorplan = &imgCopy
				}
				continue
			}
			if len(gallery) < maxGalleryImages {
				gallery = append(gallery, img)
			}
		}
	}
	return gallery, floorplan
}
