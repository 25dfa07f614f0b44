// Package booking runs the booking creation flow and the payment status
// state machine on top of the availability engine.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/lock"
	"github.com/arunvm123/villabooking/model"
	"github.com/arunvm123/villabooking/pricing"
	"github.com/arunvm123/villabooking/publisher"
	"github.com/arunvm123/villabooking/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrInvalidCustomer = errors.New("invalid customer info")
	ErrUnavailable     = errors.New("room no longer available")
	ErrPersistence     = errors.New("failed to persist booking")
	ErrBookingNotFound = repository.ErrBookingNotFound
	// ErrAlreadyFinal is returned when a callback tries to change a booking
	// whose payment outcome is already recorded. The booking is left as is.
	ErrAlreadyFinal = errors.New("booking payment already final")
)

const orderIDPrefix = "BOOKING-"

type CreateRequest struct {
	RoomTypeID    string
	Stay          availability.DateRange
	Guests        int
	Breakfast     bool
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

type Service struct {
	engine     *availability.Engine
	calculator *pricing.Calculator
	repo       repository.BookingRepository
	publisher  publisher.Publisher
	now        func() time.Time
}

func NewService(engine *availability.Engine, calculator *pricing.Calculator, repo repository.BookingRepository, pub publisher.Publisher) *Service {
	if pub == nil {
		pub = publisher.Noop{}
	}
	return &Service{
		engine:     engine,
		calculator: calculator,
		repo:       repo,
		publisher:  pub,
		now:        time.Now,
	}
}

func validateCustomer(req *CreateRequest) error {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)

	if req.CustomerName == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCustomer)
	}
	if req.CustomerPhone == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidCustomer)
	}
	if req.CustomerEmail == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidCustomer)
	}
	addr, err := mail.ParseAddress(req.CustomerEmail)
	if err != nil || addr.Address != req.CustomerEmail {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidCustomer, req.CustomerEmail)
	}
	return nil
}

// CreatePendingBooking re-checks availability under the inventory lock,
// prices the stay and stores a complete pending booking in a single insert.
func (s *Service) CreatePendingBooking(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	if err := validateCustomer(&req); err != nil {
		return nil, err
	}

	var created *model.Booking
	err := s.engine.WithExclusiveAvailabilityLock(ctx, req.RoomTypeID, func(ctx context.Context) error {
		result, err := s.engine.CheckAvailability(ctx, req.RoomTypeID, req.Stay, req.Guests)
		if err != nil {
			return err
		}
		if !result.Available {
			return ErrUnavailable
		}

		quote, err := s.calculator.Quote(req.RoomTypeID, req.Guests, req.Breakfast, req.Stay)
		if err != nil {
			return err
		}

		b := s.newBooking(req, quote)
		opts := repository.CreateOptions{
			LockKey:      s.engine.LockKey(req.RoomTypeID),
			PropertyWide: s.engine.Scope() == availability.InventoryScopeProperty,
		}

		if err := s.repo.CreateBooking(ctx, b, opts); err != nil {
			if errors.Is(err, repository.ErrOverlap) {
				return ErrUnavailable
			}
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}

		created = b
		return nil
	})
	if err != nil {
		// Another request held the dates for as long as we could wait.
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}

	log.Printf("Created pending booking %s for %s %s", created.ID, created.RoomType, req.Stay)
	s.notify(ctx, created, model.NotificationBookingCreated)

	return created, nil
}

func (s *Service) newBooking(req CreateRequest, quote pricing.Quote) *model.Booking {
	id := uuid.NewString()
	now := s.now()

	return &model.Booking{
		ID:             id,
		RoomType:       req.RoomTypeID,
		RoomName:       quote.RoomName,
		CheckIn:        toDate(req.Stay.Start),
		CheckOut:       toDate(req.Stay.End),
		Nights:         quote.Nights,
		Guests:         req.Guests,
		Breakfast:      req.Breakfast,
		TotalPrice:     quote.Total,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		PaymentStatus:  model.PaymentStatusPending,
		PaymentOrderID: orderIDPrefix + id,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ApplyPaymentResult records the outcome of a payment. Repeating the same
// outcome is a no-op; a different outcome for a final booking is ignored and
// reported with ErrAlreadyFinal.
func (s *Service) ApplyPaymentResult(ctx context.Context, orderID string, status string) (*model.Booking, error) {
	if status != model.PaymentStatusPaid && status != model.PaymentStatusFailed {
		return nil, fmt.Errorf("unsupported payment status %q", status)
	}

	b, transitioned, err := s.repo.TransitionPaymentStatus(ctx, orderID, status, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to apply payment result: %w", err)
	}

	if !transitioned {
		if b.PaymentStatus == status {
			return b, nil
		}
		return b, fmt.Errorf("%w: booking %s is %s, callback reported %s",
			ErrAlreadyFinal, b.ID, b.PaymentStatus, status)
	}

	log.Printf("Booking %s payment %s", b.ID, status)

	notificationType := model.NotificationPaymentConfirmed
	if status == model.PaymentStatusFailed {
		notificationType = model.NotificationPaymentFailed
	}
	s.notify(ctx, b, notificationType)

	return b, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (s *Service) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	return s.repo.ListBookings(ctx, filter)
}

// notify is best effort: a booking is never rolled back because Kafka is down.
func (s *Service) notify(ctx context.Context, b *model.Booking, notificationType string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.publisher.Publish(ctx, b.ToNotification(notificationType, s.now())); err != nil {
		log.Printf("Failed to publish %s for booking %s: %v", notificationType, b.ID, err)
	}
}

func toDate(t time.Time) datatypes.Date {
	return datatypes.Date(availability.Day(t))
}
