package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

type stubAdapter struct {
	source   models.PropertySource
	listings []models.Listing
	err      error
}

func (s *stubAdapter) Source() models.PropertySource { return s.source }

func (s *stubAdapter) Scrape(ctx context.Context, area string) ([]models.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

func TestOrchestrator_Run_CollectsAllPairs(t *testing.T) {
	rightmove := &stubAdapter{source: models.SourceRightmove, listings: []models.Listing{{SourceID: "1"}}}
	zoopla := &stubAdapter{source: models.SourceZoopla, listings: []models.Listing{{SourceID: "2"}}}

	o := NewOrchestrator([]Adapter{rightmove, zoopla}, []string{"hackney", "islington"}, DefaultConfig)
	results := o.Run(context.Background())

	assert.Len(t, results, 4)
	flat := Flatten(results)
	assert.Len(t, flat, 4)
}

func TestOrchestrator_Run_IsolatesSingleAdapterFailure(t *testing.T) {
	working := &stubAdapter{source: models.SourceRightmove, listings: []models.Listing{{SourceID: "1"}}}
	broken := &stubAdapter{source: models.SourceZoopla, err: errors.New("platform unreachable")}

	o := NewOrchestrator([]Adapter{working, broken}, []string{"hackney"}, DefaultConfig)
	results := o.Run(context.Background())

	require := assert.New(t)
	require.Len(results, 2)

	flat := Flatten(results)
	require.Len(flat, 1)

	var sawError bool
	for _, r := range results {
		if r.Err != nil {
			sawError = true
		}
	}
	require.True(sawError)
}
