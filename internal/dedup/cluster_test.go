package dedup

import (
	"testing"
	"time"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleListing(id string, bedrooms, price int, postcode, address string) models.Listing {
	return models.Listing{
		Source:    models.SourceRightmove,
		SourceID:  id,
		URL:       "https://example.com/" + id,
		Title:     "Test listing " + id,
		PricePCM:  price,
		Bedrooms:  bedrooms,
		Address:   address,
		Postcode:  postcode,
		FirstSeen: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCluster_GroupsMatchingListingsAcrossSources(t *testing.T) {
	a := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	a.Source = models.SourceRightmove
	b := sampleListing("or-1", 1, 1500, "E8 3RH", "Mare Street")
	b.Source = models.SourceOpenRent
	b.FirstSeen = a.FirstSeen.Add(time.Hour)
	c := sampleListing("zo-1", 2, 2500, "SW1A 1AA", "Victoria Road")
	c.Source = models.SourceZoopla

	clusters := Cluster([]models.Listing{a, b, c}, nil)
	require.Len(t, clusters, 2)

	var matched, singleton []models.Listing
	for _, cl := range clusters {
		if len(cl) == 2 {
			matched = cl
		} else {
			singleton = cl
		}
	}
	require.Len(t, matched, 2)
	require.Len(t, singleton, 1)
	assert.Equal(t, "zo-1", singleton[0].SourceID)
}

func TestCluster_SelfMatch(t *testing.T) {
	a := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	clusters := Cluster([]models.Listing{a}, nil)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 1)
}

func TestCluster_DeterministicAcrossInputOrder(t *testing.T) {
	a := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	b := sampleListing("or-1", 1, 1500, "E8 3RH", "Mare Street")
	b.FirstSeen = a.FirstSeen.Add(time.Hour)

	forward := Cluster([]models.Listing{a, b}, nil)
	backward := Cluster([]models.Listing{b, a}, nil)
	require.Len(t, forward, 1)
	require.Len(t, backward, 1)
	assert.ElementsMatch(t, forward[0], backward[0])
}

func TestSelectCanonical_EarliestFirstSeenWins(t *testing.T) {
	earlier := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	later := sampleListing("or-1", 1, 1500, "E8 3RH", "Mare Street")
	later.FirstSeen = earlier.FirstSeen.Add(time.Hour)

	canonical := SelectCanonical([]models.Listing{later, earlier})
	assert.Equal(t, "rm-1", canonical.SourceID)
}

func TestSelectCanonical_TiesBrokenByPlatformPriority(t *testing.T) {
	rm := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	rm.Source = models.SourceRightmove
	or := sampleListing("or-1", 1, 1500, "E8 3RH", "Mare Street")
	or.Source = models.SourceOpenRent

	canonical := SelectCanonical([]models.Listing{or, rm})
	assert.Equal(t, models.SourceRightmove, canonical.Source)
}

func TestMerge_UnionsSourcesAndPriceRange(t *testing.T) {
	rm := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	rm.Source = models.SourceRightmove
	rm.Description = "Lovely flat"
	or := sampleListing("or-1", 1, 1600, "E8 3RH", "Mare Street")
	or.Source = models.SourceOpenRent
	or.FirstSeen = rm.FirstSeen.Add(time.Hour)

	merged := Merge([]models.Listing{rm, or}, nil)
	assert.ElementsMatch(t, []models.PropertySource{models.SourceRightmove, models.SourceOpenRent}, merged.Sources)
	assert.Equal(t, 1500, merged.MinPrice)
	assert.Equal(t, 1600, merged.MaxPrice)
	assert.True(t, merged.PriceVaries())
	assert.Equal(t, "rm-1", merged.Canonical.SourceID)
	assert.Equal(t, "https://example.com/rm-1", merged.SourceURLs[models.SourceRightmove])
	assert.Equal(t, "https://example.com/or-1", merged.SourceURLs[models.SourceOpenRent])
}

func TestMergeImages_DedupesByURLAndCapsGallery(t *testing.T) {
	rm := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	or := sampleListing("or-1", 1, 1500, "E8 3RH", "Mare Street")
	or.FirstSeen = rm.FirstSeen.Add(time.Hour)

	shared := models.PropertyImage{URL: "https://img/1.jpg", Source: models.SourceRightmove, ImageType: models.ImageGallery}
	images := map[string][]models.PropertyImage{
		rm.UniqueID(): {shared},
		or.UniqueID(): {shared, {URL: "https://img/2.jpg", Source: models.SourceOpenRent, ImageType: models.ImageGallery}},
	}

	merged := Merge([]models.Listing{rm, or}, images)
	assert.Len(t, merged.Images, 2)
}

func TestMergeImages_PrefersHigherResolutionFloorplan(t *testing.T) {
	rm := sampleListing("rm-1", 1, 1500, "E8 3RH", "Mare Street")
	or := sampleListing("or-1", 1, 1500, "E8 3RH", "Mare Street")
	or.FirstSeen = rm.FirstSeen.Add(time.Hour)

	images := map[string][]models.PropertyImage{
		rm.UniqueID(): {{URL: "https://img/fp-small.jpg", ImageType: models.ImageFloorplan, WidthPixels: 400}},
		or.UniqueID(): {{URL: "https://img/fp-big.jpg", ImageType: models.ImageFloorplan, WidthPixels: 1200}},
	}

	merged := Merge([]models.Listing{rm, or}, images)
	require.NotNil(t, merged.Floorplan)
	assert.Equal(t, "https://img/fp-big.jpg", merged.Floorplan.URL)
}
