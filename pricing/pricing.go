// Package pricing computes stay totals from the room catalog.
package pricing

import (
	"errors"
	"fmt"

	"github.com/arunvm123/villabooking/availability"
	"github.com/arunvm123/villabooking/catalog"
)

var ErrInvalidNights = errors.New("nights must be a positive integer")

type Quote struct {
	Nights      int     `json:"nights"`
	NightlyRate float64 `json:"nightlyRate"`
	Total       float64 `json:"total"`
	RoomName    string  `json:"roomName"`
}

type Calculator struct {
	catalog *catalog.Catalog
}

func NewCalculator(cat *catalog.Catalog) *Calculator {
	return &Calculator{catalog: cat}
}

// ComputeTotal returns nights times the nightly rate. No rounding is applied.
func (c *Calculator) ComputeTotal(roomTypeID string, guests int, breakfast bool, nights int) (float64, error) {
	if nights <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidNights, nights)
	}

	rate, err := c.catalog.NightlyRate(roomTypeID, guests, breakfast)
	if err != nil {
		return 0, err
	}

	return float64(nights) * rate, nil
}

func (c *Calculator) Quote(roomTypeID string, guests int, breakfast bool, stay availability.DateRange) (Quote, error) {
	rt, err := c.catalog.Lookup(roomTypeID)
	if err != nil {
		return Quote{}, catalog.ErrInvalidCombination
	}

	nights := stay.Nights()
	total, err := c.ComputeTotal(roomTypeID, guests, breakfast, nights)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Nights:      nights,
		NightlyRate: total / float64(nights),
		Total:       total,
		RoomName:    rt.DisplayName,
	}, nil
}
