package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcelCutts/home-finder-sub001/internal/config"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

func TestBuildScrapeAdapters_SkipsUnconfiguredPlatforms(t *testing.T) {
	cfg := &config.Config{
		External: config.ExternalServicesConfig{
			ScraperBaseURLs: map[string]string{
				"rightmove": "https://rightmove.example.test",
				"zoopla":    "https://zoopla.example.test",
			},
		},
	}

	adapterList, capabilities := buildScrapeAdapters(cfg)

	require.Len(t, adapterList, 2)
	assert.Contains(t, capabilities, models.SourceRightmove)
	assert.Contains(t, capabilities, models.SourceZoopla)
	assert.NotContains(t, capabilities, models.SourceOpenRent)
	assert.NotContains(t, capabilities, models.SourceOnTheMarket)
}

func TestNoopNotifier_NeverErrors(t *testing.T) {
	n := noopNotifier{}
	err := n.Notify(context.Background(), models.TrackedProperty{})
	assert.NoError(t, err)
}
