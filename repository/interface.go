package repository

import (
	"context"
	"errors"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/model"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrOverlap means another booking that still holds inventory took the
	// dates between the availability check and the insert.
	ErrOverlap = errors.New("stay overlaps an existing booking")
)

// BlockingStatuses are the payment states that keep a stay's dates taken.
var BlockingStatuses = []string{model.PaymentStatusPending, model.PaymentStatusPaid}

// Blocks reports whether b still holds its dates at now. With a positive
// pendingTTL a pending booking older than the TTL stops blocking. Zero keeps
// pending bookings blocking until their payment callback arrives.
func Blocks(b *model.Booking, pendingTTL time.Duration, now time.Time) bool {
	switch b.PaymentStatus {
	case model.PaymentStatusPaid:
		return true
	case model.PaymentStatusPending:
		return pendingTTL <= 0 || b.CreatedAt.After(now.Add(-pendingTTL))
	default:
		return false
	}
}

// CreateOptions controls the store level overlap check done on insert.
type CreateOptions struct {
	// LockKey names the inventory being written, shared by every writer that
	// competes for the same dates.
	LockKey string
	// PropertyWide compares the new stay against every room type.
	PropertyWide bool
}

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// CreateBooking inserts a complete booking in one statement, failing with
	// ErrOverlap when a blocking booking already covers any of its nights.
	CreateBooking(ctx context.Context, booking *model.Booking, opts CreateOptions) error
	GetBookingByID(ctx context.Context, bookingID string) (*model.Booking, error)
	GetBookingByOrderID(ctx context.Context, orderID string) (*model.Booking, error)
	// TransitionPaymentStatus moves a pending booking to status. When the
	// booking is no longer pending it is returned unchanged with
	// transitioned=false.
	TransitionPaymentStatus(ctx context.Context, orderID, status string, at time.Time) (booking *model.Booking, transitioned bool, err error)
	ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error)
	// ListBlockingStays implements availability.BookingSource.
	ListBlockingStays(ctx context.Context, roomTypeID string, from time.Time) ([]availability.BlockedInterval, error)

	// Health check
	Ping(ctx context.Context) error
}

// ReviewRepository defines the interface for review data operations
type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, int, error)
}

// StayInterval converts a stored booking into the engine's blocked interval.
func StayInterval(b *model.Booking) availability.BlockedInterval {
	return availability.BlockedInterval{
		Range: availability.DateRange{
			Start: availability.Day(b.CheckInTime()),
			End:   availability.Day(b.CheckOutTime()),
		},
		Source:     availability.SourceLocal,
		RoomTypeID: b.RoomType,
		Reference:  b.ID,
	}
}
