package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	rt, err := c.Lookup("deluxe-family")
	require.NoError(t, err)
	assert.Equal(t, "Deluxe Family Suite", rt.DisplayName)
	assert.Equal(t, []int{3, 4}, rt.ValidOccupancies)
	assert.Equal(t, 4, rt.MaxOccupancy())

	assert.Len(t, c.All(), 4)
	assert.Equal(t, "deluxe-double", c.All()[0].ID)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("penthouse")
	assert.ErrorIs(t, err, ErrRoomTypeNotFound)
}

func TestNightlyRate(t *testing.T) {
	c := Default()

	rate, err := c.NightlyRate("deluxe-double-balcony", 3, true)
	require.NoError(t, err)
	assert.Equal(t, 80.0, rate)

	rate, err = c.NightlyRate("deluxe-double", 2, false)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rate)

	_, err = c.NightlyRate("deluxe-double", 3, false)
	assert.ErrorIs(t, err, ErrInvalidCombination)

	_, err = c.NightlyRate("penthouse", 2, false)
	assert.ErrorIs(t, err, ErrInvalidCombination)
}

func TestIsValidOccupancy(t *testing.T) {
	c := Default()

	assert.True(t, c.IsValidOccupancy("triple-garden", 2))
	assert.False(t, c.IsValidOccupancy("deluxe-family", 5))
	assert.False(t, c.IsValidOccupancy("penthouse", 2))
}

func TestLookupReturnsCopy(t *testing.T) {
	c := Default()

	rt, err := c.Lookup("deluxe-double")
	require.NoError(t, err)
	rt.Rates[2] = Rate{WithoutBreakfast: 1, WithBreakfast: 1}
	rt.ValidOccupancies[0] = 9

	rate, err := c.NightlyRate("deluxe-double", 2, false)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rate)
	assert.True(t, c.IsValidOccupancy("deluxe-double", 2))
}

func TestNewRejectsInvalidTables(t *testing.T) {
	cases := map[string][]RoomType{
		"missing id": {FromRates("", "x", map[int]Rate{2: {}})},
		"duplicate": {
			FromRates("a", "A", map[int]Rate{2: {}}),
			FromRates("a", "A", map[int]Rate{2: {}}),
		},
		"no occupancies":  {FromRates("a", "A", map[int]Rate{})},
		"negative rate":   {FromRates("a", "A", map[int]Rate{2: {WithBreakfast: -1}})},
		"zero occupancy":  {FromRates("a", "A", map[int]Rate{0: {}})},
		"rate mismatch":   {{ID: "a", ValidOccupancies: []int{2}, Rates: map[int]Rate{3: {}}}},
		"count mismatch":  {{ID: "a", ValidOccupancies: []int{2, 3}, Rates: map[int]Rate{2: {}}}},
		"repeated guests": {{ID: "a", ValidOccupancies: []int{2, 2}, Rates: map[int]Rate{2: {}, 3: {}}}},
	}

	for name, types := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(types)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}
