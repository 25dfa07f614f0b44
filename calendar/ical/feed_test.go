package ical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Admin.Booking.com//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:booked-1@booking.com\r\n" +
	"DTSTART;VALUE=DATE:20240602\r\n" +
	"DTEND;VALUE=DATE:20240603\r\n" +
	"SUMMARY:CLOSED - Not available\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:booked-2@booking.com\r\n" +
	"DTSTART:20240610T140000Z\r\n" +
	"DTEND:20240613T100000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:broken@booking.com\r\n" +
	"DTSTART;VALUE=DATE:20240620\r\n" +
	"DTEND;VALUE=DATE:20240618\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single-day@booking.com\r\n" +
	"DTSTART;VALUE=DATE:20240701\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func day(value string) time.Time {
	t, _ := time.Parse(availability.DateLayout, value)
	return t
}

func TestParse(t *testing.T) {
	ranges, err := Parse(strings.NewReader(sampleFeed))
	require.NoError(t, err)

	assert.Equal(t, []availability.DateRange{
		{Start: day("2024-06-02"), End: day("2024-06-03")},
		{Start: day("2024-06-10"), End: day("2024-06-13")},
		{Start: day("2024-07-01"), End: day("2024-07-02")},
	}, ranges)
}

func TestFetchBlockedIntervals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	ranges, err := NewFeed(server.URL, time.Second).FetchBlockedIntervals(context.Background())
	require.NoError(t, err)
	assert.Len(t, ranges, 3)
}

func TestFetchBlockedIntervalsEmptyCalendar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:test\r\nEND:VCALENDAR\r\n"))
	}))
	defer server.Close()

	ranges, err := NewFeed(server.URL, time.Second).FetchBlockedIntervals(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ranges)
	assert.Empty(t, ranges)
}

func TestFetchBlockedIntervalsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ranges, err := NewFeed(server.URL, time.Second).FetchBlockedIntervals(context.Background())
	assert.ErrorIs(t, err, calendar.ErrFeedUnavailable)
	assert.Nil(t, ranges)
}

func TestFetchBlockedIntervalsTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewFeed(server.URL, 50*time.Millisecond).FetchBlockedIntervals(context.Background())
	assert.ErrorIs(t, err, calendar.ErrFeedUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchBlockedIntervalsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewFeed(url, time.Second).FetchBlockedIntervals(context.Background())
	assert.ErrorIs(t, err, calendar.ErrFeedUnavailable)
}

func TestFetchBlockedIntervalsReturnsCallerOwnedSlice(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	feed := NewFeed(server.URL, time.Second)
	first, err := feed.FetchBlockedIntervals(context.Background())
	require.NoError(t, err)
	first[0] = availability.DateRange{}

	second, err := feed.FetchBlockedIntervals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-02"), second[0].Start)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetchBlockedIntervalsSharedFetchOutlivesImpatientCaller(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	feed := NewFeed(server.URL, 2*time.Second)

	impatient := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := feed.FetchBlockedIntervals(ctx)
		impatient <- err
	}()

	time.Sleep(10 * time.Millisecond)
	ranges, err := feed.FetchBlockedIntervals(context.Background())
	require.NoError(t, err)
	assert.Len(t, ranges, 3)

	err = <-impatient
	assert.ErrorIs(t, err, calendar.ErrFeedUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
