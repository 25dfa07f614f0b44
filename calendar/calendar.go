// Package calendar merges remote calendar exports into blocked intervals for
// the availability engine.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/cache"
	"golang.org/x/sync/errgroup"
)

// ErrFeedUnavailable is returned whenever a feed could not be read. Callers
// must not treat it as an empty calendar.
var ErrFeedUnavailable = errors.New("calendar feed unavailable")

// Feed fetches the blocked date ranges of one external calendar.
type Feed interface {
	FetchBlockedIntervals(ctx context.Context) ([]availability.DateRange, error)
}

// invalidator is implemented by feeds that keep a local copy of the remote data.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Cached serves a feed from the calendar cache while the cached copy is fresh.
type Cached struct {
	feed  Feed
	cache cache.CalendarCache
	key   string
	ttl   time.Duration
}

func NewCached(feed Feed, c cache.CalendarCache, key string, ttl time.Duration) *Cached {
	return &Cached{feed: feed, cache: c, key: key, ttl: ttl}
}

func (c *Cached) FetchBlockedIntervals(ctx context.Context) ([]availability.DateRange, error) {
	ranges, found, err := c.cache.GetCalendar(ctx, c.key)
	if err != nil {
		log.Printf("Failed to read calendar %s from cache: %v", c.key, err)
	} else if found {
		return ranges, nil
	}

	ranges, err = c.feed.FetchBlockedIntervals(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetCalendar(ctx, c.key, ranges, c.ttl); err != nil {
		log.Printf("Failed to cache calendar %s: %v", c.key, err)
	}

	return ranges, nil
}

func (c *Cached) Invalidate(ctx context.Context) error {
	return c.cache.InvalidateCalendar(ctx, c.key)
}

// Registry holds the property-wide feed and any per room type feeds.
type Registry struct {
	property Feed
	rooms    map[string]Feed
}

// NewRegistry accepts a nil property feed and an empty room map; such a
// registry reports no remote blocks.
func NewRegistry(property Feed, rooms map[string]Feed) *Registry {
	if rooms == nil {
		rooms = make(map[string]Feed)
	}
	return &Registry{property: property, rooms: rooms}
}

func (r *Registry) Empty() bool {
	return r.property == nil && len(r.rooms) == 0
}

type boundFeed struct {
	roomTypeID string
	feed       Feed
}

func (r *Registry) feedsFor(roomTypeID string) []boundFeed {
	var feeds []boundFeed
	if r.property != nil {
		feeds = append(feeds, boundFeed{feed: r.property})
	}
	if feed, ok := r.rooms[roomTypeID]; ok && roomTypeID != "" {
		feeds = append(feeds, boundFeed{roomTypeID: roomTypeID, feed: feed})
	}
	return feeds
}

func (r *Registry) allFeeds() []boundFeed {
	var feeds []boundFeed
	if r.property != nil {
		feeds = append(feeds, boundFeed{feed: r.property})
	}

	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		feeds = append(feeds, boundFeed{roomTypeID: id, feed: r.rooms[id]})
	}
	return feeds
}

// BlockedIntervals returns the property feed blocks plus the blocks of the
// feed configured for roomTypeID.
func (r *Registry) BlockedIntervals(ctx context.Context, roomTypeID string) ([]availability.BlockedInterval, error) {
	return fetchAll(ctx, r.feedsFor(roomTypeID))
}

// AllBlockedIntervals returns the blocks of every configured feed.
func (r *Registry) AllBlockedIntervals(ctx context.Context) ([]availability.BlockedInterval, error) {
	return fetchAll(ctx, r.allFeeds())
}

// Refresh drops cached copies so the next read goes to the remote calendars.
func (r *Registry) Refresh(ctx context.Context) (int, error) {
	refreshed := 0
	for _, bf := range r.allFeeds() {
		inv, ok := bf.feed.(invalidator)
		if !ok {
			continue
		}
		if err := inv.Invalidate(ctx); err != nil {
			return refreshed, fmt.Errorf("failed to invalidate calendar cache: %w", err)
		}
		refreshed++
	}
	return refreshed, nil
}

func fetchAll(ctx context.Context, feeds []boundFeed) ([]availability.BlockedInterval, error) {
	if len(feeds) == 0 {
		return nil, nil
	}

	var (
		mu  sync.Mutex
		out []availability.BlockedInterval
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, bf := range feeds {
		g.Go(func() error {
			ranges, err := bf.feed.FetchBlockedIntervals(gctx)
			if err != nil {
				if !errors.Is(err, ErrFeedUnavailable) {
					err = fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
				}
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, rg := range ranges {
				out = append(out, availability.BlockedInterval{
					Range:      rg,
					Source:     availability.SourceRemote,
					RoomTypeID: bf.roomTypeID,
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out, nil
}
