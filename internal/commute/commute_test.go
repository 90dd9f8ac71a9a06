package commute

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

type stubCapability struct {
	calls int32
	value int
}

func (s *stubCapability) CommuteMinutes(ctx context.Context, origin, destination string, mode models.TransportMode) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.value, nil
}

func TestCache_CommuteMinutes_CachesByOutcode(t *testing.T) {
	cap := &stubCapability{value: 22}
	cache := NewCache(cap)

	m1, err := cache.CommuteMinutes(context.Background(), "E8 3RH", "EC2A 1AA", models.TransportCycling)
	require.NoError(t, err)
	assert.Equal(t, 22, m1)

	m2, err := cache.CommuteMinutes(context.Background(), "E8 1AA", "EC2A 1AA", models.TransportCycling)
	require.NoError(t, err)
	assert.Equal(t, 22, m2)

	assert.Equal(t, int32(1), atomic.LoadInt32(&cap.calls))
	assert.Equal(t, 1, cache.Size())
}

func TestCache_CommuteMinutes_DistinctModesDistinctEntries(t *testing.T) {
	cap := &stubCapability{value: 10}
	cache := NewCache(cap)

	_, err := cache.CommuteMinutes(context.Background(), "E8 3RH", "EC2A 1AA", models.TransportCycling)
	require.NoError(t, err)
	_, err = cache.CommuteMinutes(context.Background(), "E8 3RH", "EC2A 1AA", models.TransportWalking)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&cap.calls))
	assert.Equal(t, 2, cache.Size())
}

func TestWithinLimit(t *testing.T) {
	assert.True(t, WithinLimit(30, 30))
	assert.True(t, WithinLimit(20, 30))
	assert.False(t, WithinLimit(31, 30))
}
