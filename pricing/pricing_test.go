package pricing

import (
	"testing"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteDeluxeDoubleThreeNights(t *testing.T) {
	calc := NewCalculator(catalog.Default())
	stay, err := availability.ParseDateRange("2024-06-01", "2024-06-04")
	require.NoError(t, err)

	quote, err := calc.Quote("deluxe-double", 2, false, stay)
	require.NoError(t, err)

	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, 50.0, quote.NightlyRate)
	assert.Equal(t, 150.0, quote.Total)
	assert.Equal(t, "Deluxe Double Room", quote.RoomName)
}

func TestComputeTotalIsLinearInNights(t *testing.T) {
	calc := NewCalculator(catalog.Default())

	for _, rt := range catalog.Default().All() {
		for _, guests := range rt.ValidOccupancies {
			for _, breakfast := range []bool{false, true} {
				one, err := calc.ComputeTotal(rt.ID, guests, breakfast, 1)
				require.NoError(t, err)
				for nights := 2; nights <= 14; nights++ {
					total, err := calc.ComputeTotal(rt.ID, guests, breakfast, nights)
					require.NoError(t, err)
					assert.Equal(t, float64(nights)*one, total, "%s/%d/%v", rt.ID, guests, breakfast)
				}
			}
		}
	}
}

func TestComputeTotalRejectsBadInput(t *testing.T) {
	calc := NewCalculator(catalog.Default())

	_, err := calc.ComputeTotal("deluxe-double", 2, false, 0)
	assert.ErrorIs(t, err, ErrInvalidNights)

	_, err = calc.ComputeTotal("deluxe-double", 2, false, -3)
	assert.ErrorIs(t, err, ErrInvalidNights)

	_, err = calc.ComputeTotal("deluxe-family", 5, false, 2)
	assert.ErrorIs(t, err, catalog.ErrInvalidCombination)

	_, err = calc.Quote("penthouse", 2, false, availability.DateRange{})
	assert.ErrorIs(t, err, catalog.ErrInvalidCombination)
}

func TestBreakfastSurcharge(t *testing.T) {
	calc := NewCalculator(catalog.Default())

	without, err := calc.ComputeTotal("deluxe-family", 4, false, 2)
	require.NoError(t, err)
	with, err := calc.ComputeTotal("deluxe-family", 4, true, 2)
	require.NoError(t, err)

	assert.Equal(t, 190.0, without)
	assert.Equal(t, 200.0, with)
}

func TestComputeTotalDoesNotRound(t *testing.T) {
	cat, err := catalog.New([]catalog.RoomType{
		catalog.FromRates("attic", "Attic Room", map[int]catalog.Rate{
			2: {WithoutBreakfast: 33.335, WithBreakfast: 38.335},
		}),
	})
	require.NoError(t, err)

	total, err := NewCalculator(cat).ComputeTotal("attic", 2, false, 3)
	require.NoError(t, err)
	rate := 33.335
	assert.Equal(t, 3*rate, total)
}
