// Package ical reads blocked date ranges from an iCalendar export such as the
// availability link published by Booking.com or Airbnb.
package ical

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/calendar"
	"github.com/arunvm123/villabooking/config"
	"golang.org/x/sync/singleflight"
)

const (
	icalDateLayout = "20060102"
	maxFeedBytes   = 4 << 20
	defaultTimeout = 30 * time.Second
)

type Feed struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	group      singleflight.Group
}

func NewFeed(url string, timeout time.Duration) *Feed {
	return &Feed{
		url:        url,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// NewFeedWithConfig creates a feed reader with connection pooling
func NewFeedWithConfig(url string, cfg *config.Calendar) *Feed {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     time.Duration(cfg.IdleConnTimeout) * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Feed{
		url:        url,
		timeout:    cfg.Timeout(),
		httpClient: &http.Client{Transport: transport},
	}
}

// FetchBlockedIntervals downloads and parses the export. Concurrent callers
// share one request, which is bounded by the feed timeout rather than by any
// one caller's context, so a caller that gives up early does not fail the
// others. Any failure is returned wrapped in calendar.ErrFeedUnavailable; a
// partial list is never returned.
func (f *Feed) FetchBlockedIntervals(ctx context.Context) ([]availability.DateRange, error) {
	ch := f.group.DoChan(f.url, func() (interface{}, error) {
		return f.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", calendar.ErrFeedUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]availability.DateRange)
		ranges := make([]availability.DateRange, len(shared))
		copy(ranges, shared)
		return ranges, nil
	}
}

func (f *Feed) fetch(ctx context.Context) ([]availability.DateRange, error) {
	timeout := f.timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", calendar.ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to make request: %w", calendar.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: calendar provider error (status %d): %s",
			calendar.ErrFeedUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	ranges, err := Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", calendar.ErrFeedUnavailable, err)
	}
	return ranges, nil
}

// Parse converts the VEVENTs of a calendar into date ranges. Events whose end
// is not after their start are dropped.
func Parse(r io.Reader) ([]availability.DateRange, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	ranges := make([]availability.DateRange, 0)
	for _, event := range cal.Events() {
		start, err := propertyDate(event, ics.ComponentPropertyDtStart)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", event.Id(), err)
		}

		var end time.Time
		if event.GetProperty(ics.ComponentPropertyDtEnd) == nil {
			// An all-day event without DTEND covers its start date only.
			end = start.AddDate(0, 0, 1)
		} else {
			end, err = propertyDate(event, ics.ComponentPropertyDtEnd)
			if err != nil {
				return nil, fmt.Errorf("event %q: %w", event.Id(), err)
			}
		}

		if !start.Before(end) {
			log.Printf("Dropping calendar event %q with end %s not after start %s",
				event.Id(), end.Format(availability.DateLayout), start.Format(availability.DateLayout))
			continue
		}

		ranges = append(ranges, availability.DateRange{Start: start, End: end})
	}

	return ranges, nil
}

// propertyDate reads the calendar date written in a DATE or DATE-TIME value.
func propertyDate(event *ics.VEvent, prop ics.ComponentProperty) (time.Time, error) {
	p := event.GetProperty(prop)
	if p == nil {
		return time.Time{}, fmt.Errorf("missing %s", prop)
	}

	value := strings.TrimSpace(p.Value)
	if len(value) < len(icalDateLayout) {
		return time.Time{}, fmt.Errorf("invalid %s value %q", prop, value)
	}

	t, err := time.Parse(icalDateLayout, value[:len(icalDateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s value %q: %w", prop, value, err)
	}
	return t, nil
}
