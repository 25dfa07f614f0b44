package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/booking"
	"github.com/arunvm123/villabooking/catalog"
	"github.com/arunvm123/villabooking/config"
	"github.com/arunvm123/villabooking/model"
	"github.com/arunvm123/villabooking/payment"
	"github.com/arunvm123/villabooking/pricing"
	"github.com/arunvm123/villabooking/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type calendarRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// healthCheck reports an error when a dependency is unreachable.
type healthCheck func(ctx context.Context) error

type BookingHandler struct {
	catalog    *catalog.Catalog
	engine     *availability.Engine
	calculator *pricing.Calculator
	bookings   *booking.Service
	payments   payment.Provider
	reviews    repository.ReviewRepository
	calendars  calendarRefresher
	jwtService *JWTService
	admin      config.Admin
	checks     map[string]healthCheck
	now        func() time.Time
}

func NewBookingHandler(
	cat *catalog.Catalog,
	engine *availability.Engine,
	calculator *pricing.Calculator,
	bookings *booking.Service,
	payments payment.Provider,
	reviews repository.ReviewRepository,
	calendars calendarRefresher,
	jwtService *JWTService,
	admin config.Admin,
) *BookingHandler {
	return &BookingHandler{
		catalog:    cat,
		engine:     engine,
		calculator: calculator,
		bookings:   bookings,
		payments:   payments,
		reviews:    reviews,
		calendars:  calendars,
		jwtService: jwtService,
		admin:      admin,
		checks:     make(map[string]healthCheck),
		now:        time.Now,
	}
}

// AddHealthCheck registers a dependency probed by the health endpoint
func (h *BookingHandler) AddHealthCheck(name string, check healthCheck) {
	h.checks[name] = check
}

// writeStayError maps availability and pricing errors to responses
func writeStayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, availability.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_date_range",
			Message: err.Error(),
		})
	case errors.Is(err, availability.ErrInvalidOccupancy), errors.Is(err, catalog.ErrInvalidCombination):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_occupancy",
			Message: err.Error(),
		})
	case errors.Is(err, availability.ErrUnknownRoomType):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "unknown_room_type",
			Message: err.Error(),
		})
	case errors.Is(err, pricing.ErrInvalidNights):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_date_range",
			Message: err.Error(),
		})
	case errors.Is(err, availability.ErrUpstreamUnavailable):
		log.Printf("Calendar unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "calendar_unavailable",
			Message: "Availability calendar could not be reached, please try again shortly",
		})
	default:
		log.Printf("Availability check failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Server error",
		})
	}
}

// ListRooms returns the room catalog
func (h *BookingHandler) ListRooms(c *gin.Context) {
	types := h.catalog.All()
	rooms := make([]model.RoomResponse, 0, len(types))
	for _, rt := range types {
		rates := make(map[int]model.RoomRateDTO, len(rt.Rates))
		for guests, rate := range rt.Rates {
			rates[guests] = model.RoomRateDTO{
				WithoutBreakfast: rate.WithoutBreakfast,
				WithBreakfast:    rate.WithBreakfast,
			}
		}
		rooms = append(rooms, model.RoomResponse{
			ID:         rt.ID,
			Name:       rt.DisplayName,
			Capacities: rt.ValidOccupancies,
			Rates:      rates,
		})
	}

	c.JSON(http.StatusOK, rooms)
}

// CheckAvailability answers whether a stay is free and what it costs
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	var req model.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
		return
	}

	stay, err := availability.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		writeStayError(c, err)
		return
	}

	var opts []availability.CheckOption
	if req.AllowDegraded {
		opts = append(opts, availability.WithDegraded())
	}

	result, err := h.engine.CheckAvailability(c.Request.Context(), req.RoomType, stay, req.Guests, opts...)
	if err != nil {
		writeStayError(c, err)
		return
	}

	if !result.Available {
		c.JSON(http.StatusOK, model.CheckAvailabilityResponse{Available: false, Degraded: result.Degraded})
		return
	}

	quote, err := h.calculator.Quote(req.RoomType, req.Guests, req.Breakfast, stay)
	if err != nil {
		writeStayError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CheckAvailabilityResponse{
		Available: true,
		Nights:    quote.Nights,
		Total:     quote.Total,
		RoomName:  quote.RoomName,
		Degraded:  result.Degraded,
	})
}

// CreatePayment stores a pending booking and returns the checkout URL
func (h *BookingHandler) CreatePayment(c *gin.Context) {
	var req model.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
		return
	}

	stay, err := availability.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		writeStayError(c, err)
		return
	}

	created, err := h.bookings.CreatePendingBooking(c.Request.Context(), booking.CreateRequest{
		RoomTypeID:    req.RoomType,
		Stay:          stay,
		Guests:        req.Guests,
		Breakfast:     req.Breakfast,
		CustomerName:  req.CustomerInfo.Name,
		CustomerEmail: req.CustomerInfo.Email,
		CustomerPhone: req.CustomerInfo.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidCustomer):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error:   "validation_failed",
				Message: err.Error(),
			})
		case errors.Is(err, booking.ErrUnavailable):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error:   "room_unavailable",
				Message: "Room no longer available",
			})
		case errors.Is(err, booking.ErrPersistence):
			log.Printf("Failed to store booking: %v", err)
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to create booking",
			})
		default:
			writeStayError(c, err)
		}
		return
	}

	paymentURL, err := h.payments.CheckoutURL(c.Request.Context(), created)
	if err != nil {
		log.Printf("Failed to build checkout URL for booking %s: %v", created.ID, err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "payment_error",
			Message: "Failed to start payment",
		})
		return
	}

	c.JSON(http.StatusOK, model.CreatePaymentResponse{
		PaymentURL: paymentURL,
		BookingID:  created.ID,
	})
}

// PaymentCallback applies the provider's signed payment result
func (h *BookingHandler) PaymentCallback(c *gin.Context) {
	var req model.PaymentCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid callback")
		return
	}

	result, err := payment.Authenticate(h.payments, payment.Callback{Data: req.Data, SS1: req.SS1})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			log.Println("Invalid payment callback signature")
			c.String(http.StatusBadRequest, "Invalid signature")
			return
		}
		log.Printf("Failed to parse payment callback: %v", err)
		c.String(http.StatusBadRequest, "Invalid callback")
		return
	}

	if result.Status == model.PaymentStatusPending {
		log.Printf("Payment for order %s accepted but not executed yet", result.OrderID)
		c.String(http.StatusOK, "OK")
		return
	}

	_, err = h.bookings.ApplyPaymentResult(c.Request.Context(), result.OrderID, result.Status)
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrBookingNotFound):
		// Answer OK anyway so the provider stops retrying.
		log.Printf("Payment callback for unknown order %s", result.OrderID)
	case errors.Is(err, booking.ErrAlreadyFinal):
		log.Printf("Ignoring payment callback: %v", err)
	default:
		log.Printf("Failed to process payment callback for order %s: %v", result.OrderID, err)
		c.String(http.StatusInternalServerError, "Error processing callback")
		return
	}

	c.String(http.StatusOK, "OK")
}

// GetBooking returns a single booking
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Booking not found",
		})
		return
	}

	b, err := h.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Booking not found",
			})
			return
		}
		log.Printf("Failed to get booking %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve booking",
		})
		return
	}

	c.JSON(http.StatusOK, b.ToBookingResponse())
}

// BookedDates returns every taken range from today on, merged
func (h *BookingHandler) BookedDates(c *gin.Context) {
	ranges, err := h.engine.BookedRanges(c.Request.Context(), availability.Day(h.now().UTC()))
	if err != nil {
		if errors.Is(err, availability.ErrUpstreamUnavailable) {
			log.Printf("Calendar unavailable: %v", err)
			c.JSON(http.StatusBadGateway, model.ErrorResponse{
				Error:   "calendar_unavailable",
				Message: "Availability calendar could not be reached",
			})
			return
		}
		log.Printf("Failed to list booked dates: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Server error",
		})
		return
	}

	response := make([]model.BookedDateRange, 0, len(ranges))
	for _, r := range ranges {
		response = append(response, model.BookedDateRange{
			Start: r.Start.Format(availability.DateLayout),
			End:   r.End.Format(availability.DateLayout),
		})
	}

	c.JSON(http.StatusOK, response)
}

// CreateReview stores a guest review
func (h *BookingHandler) CreateReview(c *gin.Context) {
	var req model.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
		return
	}

	review := &model.Review{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Country:   req.Country,
		Comment:   req.Comment,
		Rating:    req.Rating,
		CreatedAt: h.now(),
	}

	if err := h.reviews.CreateReview(c.Request.Context(), review); err != nil {
		log.Printf("Failed to create review: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create review",
		})
		return
	}

	c.JSON(http.StatusCreated, review.ToReviewResponse())
}

// ListReviews returns reviews, newest first
func (h *BookingHandler) ListReviews(c *gin.Context) {
	limit, offset := pagination(c)

	reviews, _, err := h.reviews.ListReviews(c.Request.Context(), model.ReviewFilter{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("Failed to list reviews: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list reviews",
		})
		return
	}

	response := make([]model.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		response = append(response, reviews[i].ToReviewResponse())
	}

	c.JSON(http.StatusOK, response)
}

// AdminLogin exchanges the admin credentials for a token
func (h *BookingHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.admin.Username)) == 1
	if h.admin.PasswordHash == "" || !usernameOK ||
		bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid username or password",
		})
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, model.AdminLoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// ListBookings returns bookings for the admin panel
func (h *BookingHandler) ListBookings(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", model.PaymentStatusPending, model.PaymentStatusPaid, model.PaymentStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: "status must be pending, paid or failed",
		})
		return
	}

	limit, offset := pagination(c)
	bookings, total, err := h.bookings.ListBookings(c.Request.Context(), model.BookingFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Printf("Failed to list bookings: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve bookings",
		})
		return
	}

	response := model.BookingListResponse{
		Bookings: make([]model.BookingResponse, 0, len(bookings)),
		Total:    total,
	}
	for i := range bookings {
		response.Bookings = append(response.Bookings, bookings[i].ToBookingResponse())
	}

	c.JSON(http.StatusOK, response)
}

// RefreshCalendar drops cached calendar feeds
func (h *BookingHandler) RefreshCalendar(c *gin.Context) {
	refreshed, err := h.calendars.Refresh(c.Request.Context())
	if err != nil {
		log.Printf("Failed to refresh calendars: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to refresh calendars",
		})
		return
	}

	c.JSON(http.StatusOK, model.CalendarRefreshResponse{
		Refreshed: refreshed,
		Message:   "Calendar cache cleared",
	})
}

// HealthCheck handles health check endpoint
func (h *BookingHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	response := model.HealthResponse{
		Status:    "healthy",
		Service:   "villa-booking",
		Checks:    make(map[string]string, len(h.checks)),
		Timestamp: h.now(),
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Printf("Health check %s failed: %v", name, err)
			response.Checks[name] = "unavailable"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	c.JSON(status, response)
}

func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return limit, offset
}
