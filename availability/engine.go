// Package availability decides whether a requested stay is free by merging
// locally stored bookings with blocked ranges from remote calendar feeds.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arunvm123/villabooking/catalog"
	"github.com/arunvm123/villabooking/lock"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrInvalidOccupancy    = errors.New("invalid occupancy")
	ErrUnknownRoomType     = errors.New("unknown room type")
	ErrUpstreamUnavailable = errors.New("calendar_unavailable")
	ErrStoreUnavailable    = errors.New("booking store unavailable")
)

const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// InventoryScope controls whether a blocked range holds a single room type or
// the whole property.
type InventoryScope string

const (
	InventoryScopeRoomType InventoryScope = "room_type"
	InventoryScopeProperty InventoryScope = "property"
)

func ParseInventoryScope(value string) (InventoryScope, error) {
	switch InventoryScope(value) {
	case "", InventoryScopeRoomType:
		return InventoryScopeRoomType, nil
	case InventoryScopeProperty:
		return InventoryScopeProperty, nil
	default:
		return "", fmt.Errorf("unknown inventory scope %q", value)
	}
}

// BlockedInterval is a range during which inventory is taken. An empty
// RoomTypeID means the block applies to the whole property.
type BlockedInterval struct {
	Range      DateRange
	Source     string
	RoomTypeID string
	Reference  string
}

// BookingSource lists stored stays that still hold inventory (anything not
// failed) and end after from. An empty roomTypeID lists every room type.
type BookingSource interface {
	ListBlockingStays(ctx context.Context, roomTypeID string, from time.Time) ([]BlockedInterval, error)
}

// CalendarSource returns remote blocked ranges. Implementations must return an
// error rather than an empty result when a feed cannot be read.
type CalendarSource interface {
	BlockedIntervals(ctx context.Context, roomTypeID string) ([]BlockedInterval, error)
	AllBlockedIntervals(ctx context.Context) ([]BlockedInterval, error)
}

type Result struct {
	Available bool
	// Degraded is set when the remote calendar could not be read and the
	// caller asked for a local-only answer.
	Degraded  bool
	Conflicts []BlockedInterval
}

type checkOptions struct {
	allowDegraded bool
}

type CheckOption func(*checkOptions)

// WithDegraded accepts a local-only answer when the remote calendar fails.
func WithDegraded() CheckOption {
	return func(o *checkOptions) {
		o.allowDegraded = true
	}
}

type Engine struct {
	catalog  *catalog.Catalog
	bookings BookingSource
	calendar CalendarSource
	locker   lock.Locker
	scope    InventoryScope
}

type Option func(*Engine)

func WithScope(scope InventoryScope) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

func WithLocker(locker lock.Locker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// NewEngine builds an engine. cal may be nil when no remote calendar is configured.
func NewEngine(cat *catalog.Catalog, bookings BookingSource, cal CalendarSource, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		bookings: bookings,
		calendar: cal,
		locker:   lock.NewKeyedMutex(),
		scope:    InventoryScopeRoomType,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Scope() InventoryScope {
	return e.scope
}

// CheckAvailability validates the request, collects the conflict set and reports
// whether stay is free for roomTypeID.
func (e *Engine) CheckAvailability(ctx context.Context, roomTypeID string, stay DateRange, guests int, opts ...CheckOption) (Result, error) {
	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := stay.Validate(); err != nil {
		return Result{}, err
	}
	stay = DateRange{Start: Day(stay.Start), End: Day(stay.End)}

	if _, err := e.catalog.Lookup(roomTypeID); err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownRoomType, roomTypeID)
	}
	if !e.catalog.IsValidOccupancy(roomTypeID, guests) {
		return Result{}, fmt.Errorf("%w: %d guests for %s", ErrInvalidOccupancy, guests, roomTypeID)
	}

	candidates, degraded, err := e.conflictSet(ctx, roomTypeID, stay.Start, o.allowDegraded)
	if err != nil {
		return Result{}, err
	}

	result := Result{Available: true, Degraded: degraded}
	for _, blocked := range candidates {
		if !e.applies(blocked, roomTypeID) {
			continue
		}
		if blocked.Range.Overlaps(stay) {
			result.Available = false
			result.Conflicts = append(result.Conflicts, blocked)
		}
	}

	return result, nil
}

func (e *Engine) applies(blocked BlockedInterval, roomTypeID string) bool {
	if e.scope == InventoryScopeProperty || blocked.RoomTypeID == "" {
		return true
	}
	return blocked.RoomTypeID == roomTypeID
}

// conflictSet reads local stays and remote blocks concurrently. A remote failure
// aborts the check unless allowDegraded is set.
func (e *Engine) conflictSet(ctx context.Context, roomTypeID string, from time.Time, allowDegraded bool) ([]BlockedInterval, bool, error) {
	localRoom := roomTypeID
	if e.scope == InventoryScopeProperty {
		localRoom = ""
	}

	var (
		local     []BlockedInterval
		remote    []BlockedInterval
		remoteErr error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stays, err := e.bookings.ListBlockingStays(gctx, localRoom, from)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		local = stays
		return nil
	})

	if e.calendar != nil {
		g.Go(func() error {
			var blocks []BlockedInterval
			var err error
			if e.scope == InventoryScopeProperty {
				blocks, err = e.calendar.AllBlockedIntervals(gctx)
			} else {
				blocks, err = e.calendar.BlockedIntervals(gctx, roomTypeID)
			}
			if err != nil {
				remoteErr = fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
				if allowDegraded {
					return nil
				}
				return remoteErr
			}
			remote = blocks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	return append(local, remote...), remoteErr != nil, nil
}

// BookedRanges returns the merged union of every locally held stay and every
// remote block ending after from. A remote failure is returned as an error.
func (e *Engine) BookedRanges(ctx context.Context, from time.Time) ([]DateRange, error) {
	var (
		local  []BlockedInterval
		remote []BlockedInterval
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stays, err := e.bookings.ListBlockingStays(gctx, "", from)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		local = stays
		return nil
	})

	if e.calendar != nil {
		g.Go(func() error {
			blocks, err := e.calendar.AllBlockedIntervals(gctx)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
			}
			remote = blocks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranges := make([]DateRange, 0, len(local)+len(remote))
	for _, blocked := range append(local, remote...) {
		if !from.IsZero() && !blocked.Range.End.After(from) {
			continue
		}
		ranges = append(ranges, blocked.Range)
	}

	return MergeRanges(ranges), nil
}

// LockKey names the inventory guarded for roomTypeID. Stores use the same key
// for their own insert-time locking.
func (e *Engine) LockKey(roomTypeID string) string {
	if e.scope == InventoryScopeProperty {
		return "availability:property"
	}
	return "availability:" + roomTypeID
}

// WithExclusiveAvailabilityLock runs fn while holding the lock that guards the
// inventory of roomTypeID. Under property scope every room type shares one lock.
func (e *Engine) WithExclusiveAvailabilityLock(ctx context.Context, roomTypeID string, fn func(ctx context.Context) error) error {
	unlock, err := e.locker.Lock(ctx, e.LockKey(roomTypeID))
	if err != nil {
		return fmt.Errorf("failed to acquire availability lock: %w", err)
	}
	defer unlock()

	return fn(ctx)
}
