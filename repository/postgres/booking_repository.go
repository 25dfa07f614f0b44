package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/config"
	"github.com/arunvm123/villabooking/model"
	"github.com/arunvm123/villabooking/repository"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type PostgresBookingRepository struct {
	db         *gorm.DB
	pendingTTL time.Duration
}

// Open connects to Postgres, applies the pool settings and migrates the
// booking and review tables.
func Open(cfg *config.Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	// Auto-migrate all models
	if err := db.AutoMigrate(&model.Booking{}, &model.Review{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database connected and booking tables migrated successfully")

	return db, nil
}

// NewBookingRepository builds the booking store. A positive pendingTTL lets
// unpaid bookings older than the TTL stop blocking their dates.
func NewBookingRepository(db *gorm.DB, pendingTTL time.Duration) *PostgresBookingRepository {
	return &PostgresBookingRepository{db: db, pendingTTL: pendingTTL}
}

// pendingCutoff is the oldest created_at a pending booking may have and still
// block. The zero time keeps every pending booking blocking.
func (r *PostgresBookingRepository) pendingCutoff() time.Time {
	if r.pendingTTL <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-r.pendingTTL)
}

// CreateBooking takes a transaction scoped advisory lock on the inventory key,
// re-checks for overlapping blocking bookings and inserts the row.
func (r *PostgresBookingRepository) CreateBooking(ctx context.Context, booking *model.Booking, opts repository.CreateOptions) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.LockKey != "" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", opts.LockKey).Error; err != nil {
				return fmt.Errorf("failed to lock inventory: %w", err)
			}
		}

		roomType := booking.RoomType
		if opts.PropertyWide {
			roomType = ""
		}

		query := `
			SELECT COUNT(*) FROM bookings
			WHERE payment_status = ANY(?)
			AND (payment_status <> ? OR created_at > ?)
			AND check_in < ? AND check_out > ?
			AND (? = '' OR room_type = ?)
		`
		var overlapping int64
		if err := tx.Raw(query, pq.Array(repository.BlockingStatuses),
			model.PaymentStatusPending, r.pendingCutoff(),
			booking.CheckOut, booking.CheckIn, roomType, roomType).Scan(&overlapping).Error; err != nil {
			return fmt.Errorf("failed to check overlapping bookings: %w", err)
		}
		if overlapping > 0 {
			return repository.ErrOverlap
		}

		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

// GetBookingByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetBookingByID(ctx context.Context, bookingID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).Where("id = ?", bookingID).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// GetBookingByOrderID retrieves a booking by its payment order ID
func (r *PostgresBookingRepository) GetBookingByOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).Where("payment_order_id = ?", orderID).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by order ID: %w", err)
	}

	return &booking, nil
}

// TransitionPaymentStatus updates the row only while it is still pending, so
// concurrent callbacks cannot both win.
func (r *PostgresBookingRepository) TransitionPaymentStatus(ctx context.Context, orderID, status string, at time.Time) (*model.Booking, bool, error) {
	updates := map[string]interface{}{
		"payment_status": status,
		"updated_at":     at,
	}

	switch status {
	case model.PaymentStatusPaid:
		updates["paid_at"] = at
	case model.PaymentStatusFailed:
		updates["failed_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("payment_order_id = ? AND payment_status = ?", orderID, model.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to update payment status: %w", result.Error)
	}

	booking, err := r.GetBookingByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}

	return booking, result.RowsAffected > 0, nil
}

// ListBookings retrieves bookings with filtering, newest first
func (r *PostgresBookingRepository) ListBookings(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	var bookings []model.Booking
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Booking{})

	// Apply status filter if specified
	if filter.Status != "" {
		query = query.Where("payment_status = ?", filter.Status)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	// Apply pagination and ordering
	query = query.Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	err := query.Find(&bookings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, int(total), nil
}

// ListBlockingStays returns paid and unexpired pending stays ending after from
func (r *PostgresBookingRepository) ListBlockingStays(ctx context.Context, roomTypeID string, from time.Time) ([]availability.BlockedInterval, error) {
	query := `
		SELECT id, room_type, check_in, check_out FROM bookings
		WHERE payment_status = ANY(?)
		AND (payment_status <> ? OR created_at > ?)
		AND check_out > ?
		AND (? = '' OR room_type = ?)
		ORDER BY check_in
	`

	var bookings []model.Booking
	if err := r.db.WithContext(ctx).Raw(query, pq.Array(repository.BlockingStatuses),
		model.PaymentStatusPending, r.pendingCutoff(),
		availability.Day(from), roomTypeID, roomTypeID).Scan(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list blocking stays: %w", err)
	}

	intervals := make([]availability.BlockedInterval, 0, len(bookings))
	for i := range bookings {
		intervals = append(intervals, repository.StayInterval(&bookings[i]))
	}
	return intervals, nil
}

// Ping checks if the database is healthy
func (r *PostgresBookingRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
