package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	repo, err := NewRedisCacheRepository(mr.Addr(), "", 0)
	require.NoError(t, err)
	return repo, mr
}

func TestCalendarCacheRoundTrip(t *testing.T) {
	repo, mr := newTestCache(t)
	ctx := context.Background()

	_, found, err := repo.GetCalendar(ctx, "property")
	require.NoError(t, err)
	assert.False(t, found)

	rg, err := availability.ParseDateRange("2024-06-02", "2024-06-03")
	require.NoError(t, err)

	require.NoError(t, repo.SetCalendar(ctx, "property", []availability.DateRange{rg}, time.Minute))

	ranges, found, err := repo.GetCalendar(ctx, "property")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []availability.DateRange{rg}, ranges)

	mr.FastForward(2 * time.Minute)
	_, found, err = repo.GetCalendar(ctx, "property")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCalendarCacheEmptyCalendarIsAHit(t *testing.T) {
	repo, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCalendar(ctx, "room:deluxe-double", nil, time.Minute))

	ranges, found, err := repo.GetCalendar(ctx, "room:deluxe-double")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, ranges)
}

func TestCalendarCacheInvalidate(t *testing.T) {
	repo, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCalendar(ctx, "property", nil, time.Minute))
	require.NoError(t, repo.InvalidateCalendar(ctx, "property"))

	_, found, err := repo.GetCalendar(ctx, "property")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCalendarCacheCorruptEntry(t *testing.T) {
	repo, mr := newTestCache(t)
	require.NoError(t, mr.Set("calendar:property", "not json"))

	_, found, err := repo.GetCalendar(context.Background(), "property")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestLockerSerializesHolders(t *testing.T) {
	repo, _ := newTestCache(t)
	locker := NewLocker(repo.Client(), 5*time.Second)

	var (
		wg      sync.WaitGroup
		inside  int32
		overlap int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			unlock, err := locker.Lock(ctx, "availability:deluxe-double")
			if !assert.NoError(t, err) {
				return
			}
			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), overlap)
}

func TestLockerTimesOutWhileHeld(t *testing.T) {
	repo, _ := newTestCache(t)
	locker := NewLocker(repo.Client(), 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "availability:property")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "availability:property")
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestLockerCancelIsNotContention(t *testing.T) {
	repo, _ := newTestCache(t)
	locker := NewLocker(repo.Client(), 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "availability:property")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err = locker.Lock(ctx, "availability:property")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	repo, mr := newTestCache(t)
	locker := NewLocker(repo.Client(), time.Second)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry and takeover by another replica.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	unlock()

	value, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}
