package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestOverlapIsSymmetric(t *testing.T) {
	cases := []struct {
		a, b [2]string
	}{
		{[2]string{"2024-06-01", "2024-06-04"}, [2]string{"2024-06-02", "2024-06-03"}},
		{[2]string{"2024-06-01", "2024-06-04"}, [2]string{"2024-06-04", "2024-06-06"}},
		{[2]string{"2024-06-01", "2024-06-04"}, [2]string{"2024-05-20", "2024-06-02"}},
		{[2]string{"2024-06-01", "2024-06-04"}, [2]string{"2024-07-01", "2024-07-02"}},
	}

	for _, tc := range cases {
		a := mustRange(t, tc.a[0], tc.a[1])
		b := mustRange(t, tc.b[0], tc.b[1])
		assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)
	}
}

func TestOverlapIsReflexive(t *testing.T) {
	r := mustRange(t, "2024-06-01", "2024-06-02")
	assert.True(t, r.Overlaps(r))
}

func TestAdjacentRangesDoNotOverlap(t *testing.T) {
	first := mustRange(t, "2024-05-30", "2024-06-02")
	second := mustRange(t, "2024-06-02", "2024-06-05")

	assert.False(t, first.Overlaps(second))
	assert.False(t, second.Overlaps(first))
}

func TestValidateRejectsEmptyAndReversedRanges(t *testing.T) {
	_, err := ParseDateRange("2024-06-04", "2024-06-04")
	assert.True(t, errors.Is(err, ErrInvalidDateRange))

	_, err = ParseDateRange("2024-06-04", "2024-06-01")
	assert.True(t, errors.Is(err, ErrInvalidDateRange))

	_, err = ParseDateRange("2024-02-30", "2024-03-02")
	assert.True(t, errors.Is(err, ErrInvalidDateRange))

	assert.ErrorIs(t, DateRange{}.Validate(), ErrInvalidDateRange)
}

func TestParseDateKeepsWrittenCalendarDate(t *testing.T) {
	d, err := ParseDate("2024-06-01T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate(" 2024-06-01 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", d.Format(DateLayout))
}

func TestNightsAcrossDaylightSavingChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Vilnius")
	if err != nil {
		t.Skip("timezone data not available")
	}

	// Clocks go forward on 2024-03-31 in Vilnius.
	start := time.Date(2024, time.March, 30, 0, 0, 0, 0, loc)
	end := time.Date(2024, time.April, 2, 0, 0, 0, 0, loc)

	r, err := NewDateRange(start, end)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Nights())
}

func TestNights(t *testing.T) {
	assert.Equal(t, 3, mustRange(t, "2024-06-01", "2024-06-04").Nights())
	assert.Equal(t, 1, mustRange(t, "2024-12-31", "2025-01-01").Nights())
	assert.Equal(t, 29, mustRange(t, "2024-02-01", "2024-03-01").Nights())
}

func TestContains(t *testing.T) {
	r := mustRange(t, "2024-06-01", "2024-06-04")

	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(time.Date(2024, time.June, 3, 18, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(r.End))
}

func TestMergeRanges(t *testing.T) {
	merged := MergeRanges([]DateRange{
		mustRange(t, "2024-06-10", "2024-06-12"),
		mustRange(t, "2024-06-01", "2024-06-03"),
		mustRange(t, "2024-06-03", "2024-06-05"),
		mustRange(t, "2024-06-02", "2024-06-04"),
	})

	require.Len(t, merged, 2)
	assert.Equal(t, mustRange(t, "2024-06-01", "2024-06-05"), merged[0])
	assert.Equal(t, mustRange(t, "2024-06-10", "2024-06-12"), merged[1])

	assert.Empty(t, MergeRanges(nil))
	assert.NotNil(t, MergeRanges(nil))
}
