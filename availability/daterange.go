package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is the half-open interval [Start, End) of calendar dates. Both ends
// are held as midnight UTC of the calendar date they name.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day keeps the calendar date t was written with and drops everything else.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD and RFC 3339 timestamps. For timestamps the date
// is taken in the offset the caller wrote, not converted to UTC first.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDateRange)
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a valid date", ErrInvalidDateRange, value)
	}
	return Day(t), nil
}

// NewDateRange normalizes both ends to calendar dates and validates the result.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// ParseDateRange parses both ends with ParseDate.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidDateRange)
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: check-out %s must be after check-in %s",
			ErrInvalidDateRange, r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return nil
}

// Overlaps is the only conflict test used anywhere: ranges that merely touch
// (one ends the day the other starts) do not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

func (r DateRange) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Nights counts date boundaries crossed, so a stay spanning a daylight saving
// change still yields a whole number.
func (r DateRange) Nights() int {
	start, end := Day(r.Start), Day(r.End)
	return int(end.Sub(start) / (24 * time.Hour))
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// MergeRanges sorts ranges by start and joins overlapping or touching ones.
func MergeRanges(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return []DateRange{}
	}

	sorted := make([]DateRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []DateRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
