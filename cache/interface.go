package cache

import (
	"context"
	"time"

	"github.com/arunvm123/villabooking/availability"
)

// CalendarCache stores parsed remote calendars so that availability checks do
// not hit the calendar provider on every request.
type CalendarCache interface {
	// GetCalendar reports found=false on a cache miss.
	GetCalendar(ctx context.Context, key string) (ranges []availability.DateRange, found bool, err error)
	SetCalendar(ctx context.Context, key string, ranges []availability.DateRange, ttl time.Duration) error
	InvalidateCalendar(ctx context.Context, key string) error

	// Health check
	Ping() error
}
