package calendar

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/arunvm123/villabooking/availability"
	redisCache "github.com/arunvm123/villabooking/cache/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	ranges []availability.DateRange
	err    error
	calls  int32
}

func (s *stubFeed) FetchBlockedIntervals(ctx context.Context) ([]availability.DateRange, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.ranges, nil
}

func rng(t *testing.T, start, end string) availability.DateRange {
	t.Helper()
	r, err := availability.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestRegistryBlockedIntervals(t *testing.T) {
	property := &stubFeed{ranges: []availability.DateRange{rng(t, "2024-06-10", "2024-06-12")}}
	family := &stubFeed{ranges: []availability.DateRange{rng(t, "2024-06-01", "2024-06-03")}}
	garden := &stubFeed{ranges: []availability.DateRange{rng(t, "2024-07-01", "2024-07-03")}}

	registry := NewRegistry(property, map[string]Feed{
		"deluxe-family": family,
		"triple-garden": garden,
	})

	blocks, err := registry.BlockedIntervals(context.Background(), "deluxe-family")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "deluxe-family", blocks[0].RoomTypeID)
	assert.Equal(t, "", blocks[1].RoomTypeID)
	assert.Equal(t, availability.SourceRemote, blocks[1].Source)
	assert.Equal(t, int32(0), atomic.LoadInt32(&garden.calls))

	all, err := registry.AllBlockedIntervals(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRegistryPropagatesFeedFailure(t *testing.T) {
	registry := NewRegistry(
		&stubFeed{ranges: []availability.DateRange{rng(t, "2024-06-10", "2024-06-12")}},
		map[string]Feed{"deluxe-double": &stubFeed{err: errors.New("dial tcp: i/o timeout")}},
	)

	blocks, err := registry.BlockedIntervals(context.Background(), "deluxe-double")
	assert.ErrorIs(t, err, ErrFeedUnavailable)
	assert.Nil(t, blocks)

	_, err = registry.AllBlockedIntervals(context.Background())
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestEmptyRegistry(t *testing.T) {
	registry := NewRegistry(nil, nil)
	assert.True(t, registry.Empty())

	blocks, err := registry.BlockedIntervals(context.Background(), "deluxe-double")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestCachedServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redisCache.NewRedisCacheRepository(mr.Addr(), "", 0)
	require.NoError(t, err)

	feed := &stubFeed{ranges: []availability.DateRange{rng(t, "2024-06-02", "2024-06-03")}}
	cached := NewCached(feed, store, "property", time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ranges, err := cached.FetchBlockedIntervals(ctx)
		require.NoError(t, err)
		assert.Equal(t, feed.ranges, ranges)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&feed.calls))

	registry := NewRegistry(cached, nil)
	refreshed, err := registry.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)

	_, err = cached.FetchBlockedIntervals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&feed.calls))
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redisCache.NewRedisCacheRepository(mr.Addr(), "", 0)
	require.NoError(t, err)

	feed := &stubFeed{err: ErrFeedUnavailable}
	cached := NewCached(feed, store, "property", time.Minute)

	_, err = cached.FetchBlockedIntervals(context.Background())
	assert.ErrorIs(t, err, ErrFeedUnavailable)
	assert.False(t, mr.Exists("calendar:property"))
}

func TestCachedFallsThroughWhenCacheIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redisCache.NewRedisCacheRepository(mr.Addr(), "", 0)
	require.NoError(t, err)
	mr.Close()

	feed := &stubFeed{ranges: []availability.DateRange{rng(t, "2024-06-02", "2024-06-03")}}
	ranges, err := NewCached(feed, store, "property", time.Minute).FetchBlockedIntervals(context.Background())
	require.NoError(t, err)
	assert.Len(t, ranges, 1)
}
