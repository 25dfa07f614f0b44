package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

const (
	NotificationBookingCreated   = "booking_created"
	NotificationPaymentConfirmed = "payment_confirmed"
	NotificationPaymentFailed    = "payment_failed"
)

// ============================================================================
// DATABASE ENTITIES (Internal - GORM only, no JSON tags)
// ============================================================================

// Booking represents the database model for bookings
type Booking struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	RoomType       string         `gorm:"type:varchar(64);not null;index:idx_bookings_room_stay"`
	RoomName       string         `gorm:"type:varchar(255);not null"`
	CheckIn        datatypes.Date `gorm:"not null;index:idx_bookings_room_stay"`
	CheckOut       datatypes.Date `gorm:"not null;index:idx_bookings_room_stay"`
	Nights         int            `gorm:"not null"`
	Guests         int            `gorm:"not null"`
	Breakfast      bool           `gorm:"not null;default:false"`
	TotalPrice     float64        `gorm:"type:decimal(10,2);not null"`
	CustomerName   string         `gorm:"type:varchar(255);not null"`
	CustomerEmail  string         `gorm:"type:varchar(255);not null"`
	CustomerPhone  string         `gorm:"type:varchar(64);not null"`
	PaymentStatus  string         `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentOrderID string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time
	PaidAt         *time.Time
	FailedAt       *time.Time
}

// TableName sets the table name for GORM
func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) CheckInTime() time.Time {
	return time.Time(b.CheckIn)
}

func (b *Booking) CheckOutTime() time.Time {
	return time.Time(b.CheckOut)
}

// IsFinal reports whether the payment outcome has been recorded.
func (b *Booking) IsFinal() bool {
	return b.PaymentStatus == PaymentStatusPaid || b.PaymentStatus == PaymentStatusFailed
}

// ============================================================================
// REPOSITORY DATA TRANSFER OBJECTS (Internal - no JSON tags)
// ============================================================================

// BookingFilter represents filtering options for booking queries
type BookingFilter struct {
	Status string
	Limit  int
	Offset int
}

// ============================================================================
// API DATA TRANSFER OBJECTS (External - JSON tags for HTTP)
// ============================================================================

// StayRequest is the part shared by availability checks and payment creation
type StayRequest struct {
	RoomType  string `json:"roomType" binding:"required"`
	CheckIn   string `json:"checkIn" binding:"required"`
	CheckOut  string `json:"checkOut" binding:"required"`
	Guests    int    `json:"guests" binding:"required,gt=0"`
	Breakfast bool   `json:"breakfast"`
}

// CheckAvailabilityRequest represents the API request to check a stay
type CheckAvailabilityRequest struct {
	StayRequest
	// AllowDegraded accepts a local-only answer when the remote calendar is down.
	AllowDegraded bool `json:"allowDegraded"`
}

// CheckAvailabilityResponse represents the availability and price of a stay
type CheckAvailabilityResponse struct {
	Available bool    `json:"available"`
	Nights    int     `json:"nights,omitempty"`
	Total     float64 `json:"total,omitempty"`
	RoomName  string  `json:"roomName,omitempty"`
	Degraded  bool    `json:"degraded,omitempty"`
}

// CustomerInfo represents the guest's contact details
type CustomerInfo struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// CreatePaymentRequest represents the API request to book and pay for a stay
type CreatePaymentRequest struct {
	StayRequest
	CustomerInfo CustomerInfo `json:"customerInfo" binding:"required"`
}

// CreatePaymentResponse carries the provider checkout URL
type CreatePaymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
	BookingID  string `json:"bookingId"`
}

// PaymentCallbackRequest is the signed payload posted by the payment provider
type PaymentCallbackRequest struct {
	Data string `json:"data" form:"data" binding:"required"`
	SS1  string `json:"ss1" form:"ss1" binding:"required"`
}

// BookedDateRange represents one merged unavailable range
type BookedDateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BookingResponse represents a booking returned by the API
type BookingResponse struct {
	ID             string     `json:"id"`
	RoomType       string     `json:"roomType"`
	RoomName       string     `json:"roomName"`
	CheckIn        string     `json:"checkIn"`
	CheckOut       string     `json:"checkOut"`
	Nights         int        `json:"nights"`
	Guests         int        `json:"guests"`
	Breakfast      bool       `json:"breakfast"`
	TotalPrice     float64    `json:"totalPrice"`
	CustomerName   string     `json:"customerName"`
	CustomerEmail  string     `json:"customerEmail"`
	CustomerPhone  string     `json:"customerPhone"`
	PaymentStatus  string     `json:"paymentStatus"`
	PaymentOrderID string     `json:"paymentOrderId"`
	CreatedAt      time.Time  `json:"createdAt"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	FailedAt       *time.Time `json:"failedAt,omitempty"`
}

// BookingListResponse represents a page of bookings for the admin panel
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}

// RoomResponse represents a catalog entry
type RoomResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Capacities []int               `json:"capacities"`
	Rates      map[int]RoomRateDTO `json:"rates"`
}

// RoomRateDTO represents the nightly price for one occupancy
type RoomRateDTO struct {
	WithoutBreakfast float64 `json:"withoutBreakfast"`
	WithBreakfast    float64 `json:"withBreakfast"`
}

// AdminLoginRequest represents the admin credentials
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse carries the issued admin token
type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CalendarRefreshResponse reports how many cached calendars were dropped
type CalendarRefreshResponse struct {
	Refreshed int    `json:"refreshed"`
	Message   string `json:"message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ============================================================================
// KAFKA MESSAGE STRUCTURES
// ============================================================================

// NotificationRequest represents the message sent to notification topic
type NotificationRequest struct {
	Type           string                  `json:"type"`
	RecipientEmail string                  `json:"recipient_email"`
	BookingData    NotificationBookingData `json:"booking_data"`
	Timestamp      time.Time               `json:"timestamp"`
}

// NotificationBookingData represents booking data for notifications
type NotificationBookingData struct {
	BookingID    string    `json:"booking_id"`
	OrderID      string    `json:"order_id"`
	RoomName     string    `json:"room_name"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	Nights       int       `json:"nights"`
	Guests       int       `json:"guests"`
	Breakfast    bool      `json:"breakfast"`
	TotalPrice   float64   `json:"total_price"`
	CustomerName string    `json:"customer_name"`
}

// ============================================================================
// CONVERSION METHODS
// ============================================================================

// ToBookingResponse converts a Booking entity to its API representation
func (b *Booking) ToBookingResponse() BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		RoomType:       b.RoomType,
		RoomName:       b.RoomName,
		CheckIn:        b.CheckInTime().Format("2006-01-02"),
		CheckOut:       b.CheckOutTime().Format("2006-01-02"),
		Nights:         b.Nights,
		Guests:         b.Guests,
		Breakfast:      b.Breakfast,
		TotalPrice:     b.TotalPrice,
		CustomerName:   b.CustomerName,
		CustomerEmail:  b.CustomerEmail,
		CustomerPhone:  b.CustomerPhone,
		PaymentStatus:  b.PaymentStatus,
		PaymentOrderID: b.PaymentOrderID,
		CreatedAt:      b.CreatedAt,
		PaidAt:         b.PaidAt,
		FailedAt:       b.FailedAt,
	}
}

// ToNotification builds the Kafka message announcing a booking event
func (b *Booking) ToNotification(notificationType string, now time.Time) NotificationRequest {
	return NotificationRequest{
		Type:           notificationType,
		RecipientEmail: b.CustomerEmail,
		BookingData: NotificationBookingData{
			BookingID:    b.ID,
			OrderID:      b.PaymentOrderID,
			RoomName:     b.RoomName,
			CheckIn:      b.CheckInTime(),
			CheckOut:     b.CheckOutTime(),
			Nights:       b.Nights,
			Guests:       b.Guests,
			Breakfast:    b.Breakfast,
			TotalPrice:   b.TotalPrice,
			CustomerName: b.CustomerName,
		},
		Timestamp: now,
	}
}
