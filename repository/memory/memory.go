// Package memory keeps bookings and reviews in process memory. It backs the
// "memory" database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/model"
	"github.com/arunvm123/villabooking/repository"
)

type Repository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
	byOrder  map[string]string
	reviews  []model.Review
	now      func() time.Time

	pendingTTL time.Duration
}

type Option func(*Repository)

// WithPendingTTL releases the dates of pending bookings older than ttl.
func WithPendingTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		r.pendingTTL = ttl
	}
}

// WithClock replaces time.Now for created_at stamps and pending expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		bookings: make(map[string]*model.Booking),
		byOrder:  make(map[string]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func copyBooking(b *model.Booking) *model.Booking {
	c := *b
	return &c
}

// CreateBooking checks for overlaps and inserts under one write lock, which
// gives the same guarantee as the Postgres advisory lock within a process.
func (r *Repository) CreateBooking(ctx context.Context, booking *model.Booking, opts repository.CreateOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	stay := repository.StayInterval(booking).Range
	for _, existing := range r.bookings {
		if !repository.Blocks(existing, r.pendingTTL, now) {
			continue
		}
		if !opts.PropertyWide && existing.RoomType != booking.RoomType {
			continue
		}
		if repository.StayInterval(existing).Range.Overlaps(stay) {
			return repository.ErrOverlap
		}
	}

	if _, exists := r.bookings[booking.ID]; exists {
		return repository.ErrOverlap
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	r.bookings[booking.ID] = copyBooking(booking)
	r.byOrder[booking.PaymentOrderID] = booking.ID
	return nil
}

func (r *Repository) GetBookingByID(ctx context.Context, bookingID string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return copyBooking(b), nil
}

func (r *Repository) GetBookingByOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return copyBooking(r.bookings[id]), nil
}

func (r *Repository) TransitionPaymentStatus(ctx context.Context, orderID, status string, at time.Time) (*model.Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, false, repository.ErrBookingNotFound
	}

	b := r.bookings[id]
	if b.PaymentStatus != model.PaymentStatusPending {
		return copyBooking(b), false, nil
	}

	b.PaymentStatus = status
	b.UpdatedAt = at
	switch status {
	case model.PaymentStatusPaid:
		b.PaidAt = &at
	case model.PaymentStatusFailed:
		b.FailedAt = &at
	}

	return copyBooking(b), true, nil
}

func (r *Repository) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]model.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if filter.Status != "" && b.PaymentStatus != filter.Status {
			continue
		}
		matched = append(matched, *b)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return paginate(matched, filter.Offset, filter.Limit), len(matched), nil
}

func (r *Repository) ListBlockingStays(ctx context.Context, roomTypeID string, from time.Time) ([]availability.BlockedInterval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	from = availability.Day(from)
	intervals := make([]availability.BlockedInterval, 0)
	for _, b := range r.bookings {
		if !repository.Blocks(b, r.pendingTTL, now) {
			continue
		}
		if roomTypeID != "" && b.RoomType != roomTypeID {
			continue
		}
		interval := repository.StayInterval(b)
		if !interval.Range.End.After(from) {
			continue
		}
		intervals = append(intervals, interval)
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Range.Start.Before(intervals[j].Range.Start)
	})
	return intervals, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

func (r *Repository) CreateReview(ctx context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if review.CreatedAt.IsZero() {
		review.CreatedAt = r.now()
	}
	r.reviews = append(r.reviews, *review)
	return nil
}

func (r *Repository) ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]model.Review, len(r.reviews))
	copy(sorted, r.reviews)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	return paginate(sorted, filter.Offset, filter.Limit), len(sorted), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
