// Package catalog holds the immutable table of rentable room types and their nightly rates.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrRoomTypeNotFound   = errors.New("room type not found")
	ErrInvalidCombination = errors.New("invalid room type or guest count")
	ErrInvalidCatalog     = errors.New("invalid room catalog")
)

// Rate is the nightly price for one occupancy level.
type Rate struct {
	WithoutBreakfast float64 `json:"withoutBreakfast"`
	WithBreakfast    float64 `json:"withBreakfast"`
}

// RoomType is a catalog entry. Values handed out by the Catalog are copies.
type RoomType struct {
	ID               string       `json:"id"`
	DisplayName      string       `json:"name"`
	ValidOccupancies []int        `json:"capacities"`
	Rates            map[int]Rate `json:"rates"`
}

func (rt RoomType) clone() RoomType {
	occupancies := make([]int, len(rt.ValidOccupancies))
	copy(occupancies, rt.ValidOccupancies)

	rates := make(map[int]Rate, len(rt.Rates))
	for guests, rate := range rt.Rates {
		rates[guests] = rate
	}

	return RoomType{
		ID:               rt.ID,
		DisplayName:      rt.DisplayName,
		ValidOccupancies: occupancies,
		Rates:            rates,
	}
}

// MaxOccupancy returns the largest supported guest count.
func (rt RoomType) MaxOccupancy() int {
	if len(rt.ValidOccupancies) == 0 {
		return 0
	}
	return rt.ValidOccupancies[len(rt.ValidOccupancies)-1]
}

// Catalog is built once at startup and never mutated afterwards, so it is safe
// for concurrent use without locking.
type Catalog struct {
	types map[string]RoomType
	ids   []string
}

// New validates the given room types and builds a catalog from them. Every
// valid occupancy must have a rate entry and every rate entry must be a valid
// occupancy.
func New(types []RoomType) (*Catalog, error) {
	c := &Catalog{types: make(map[string]RoomType, len(types))}

	for _, rt := range types {
		if rt.ID == "" {
			return nil, fmt.Errorf("%w: room type without id", ErrInvalidCatalog)
		}
		if _, exists := c.types[rt.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate room type %q", ErrInvalidCatalog, rt.ID)
		}
		if len(rt.ValidOccupancies) == 0 {
			return nil, fmt.Errorf("%w: room type %q has no occupancies", ErrInvalidCatalog, rt.ID)
		}
		if len(rt.ValidOccupancies) != len(rt.Rates) {
			return nil, fmt.Errorf("%w: room type %q occupancies and rates differ", ErrInvalidCatalog, rt.ID)
		}

		for _, guests := range rt.ValidOccupancies {
			if guests <= 0 {
				return nil, fmt.Errorf("%w: room type %q has non-positive occupancy %d", ErrInvalidCatalog, rt.ID, guests)
			}
			rate, ok := rt.Rates[guests]
			if !ok {
				return nil, fmt.Errorf("%w: room type %q has no rate for %d guests", ErrInvalidCatalog, rt.ID, guests)
			}
			if rate.WithBreakfast < 0 || rate.WithoutBreakfast < 0 {
				return nil, fmt.Errorf("%w: room type %q has a negative rate for %d guests", ErrInvalidCatalog, rt.ID, guests)
			}
		}

		entry := rt.clone()
		sort.Ints(entry.ValidOccupancies)
		for i := 1; i < len(entry.ValidOccupancies); i++ {
			if entry.ValidOccupancies[i] == entry.ValidOccupancies[i-1] {
				return nil, fmt.Errorf("%w: room type %q lists occupancy %d twice", ErrInvalidCatalog, rt.ID, entry.ValidOccupancies[i])
			}
		}

		c.types[rt.ID] = entry
		c.ids = append(c.ids, rt.ID)
	}

	sort.Strings(c.ids)
	return c, nil
}

// FromRates builds room types from an occupancy -> rate table, deriving the
// valid occupancies from the table keys.
func FromRates(id, name string, rates map[int]Rate) RoomType {
	occupancies := make([]int, 0, len(rates))
	for guests := range rates {
		occupancies = append(occupancies, guests)
	}
	sort.Ints(occupancies)

	return RoomType{
		ID:               id,
		DisplayName:      name,
		ValidOccupancies: occupancies,
		Rates:            rates,
	}
}

// Default returns the villa's room table.
func Default() *Catalog {
	c, err := New(DefaultRoomTypes())
	if err != nil {
		panic(err)
	}
	return c
}

func DefaultRoomTypes() []RoomType {
	return []RoomType{
		FromRates("deluxe-double", "Deluxe Double Room", map[int]Rate{
			2: {WithoutBreakfast: 50, WithBreakfast: 55},
		}),
		FromRates("deluxe-double-balcony", "Deluxe Double Room With Balcony", map[int]Rate{
			2: {WithoutBreakfast: 60, WithBreakfast: 65},
			3: {WithoutBreakfast: 75, WithBreakfast: 80},
		}),
		FromRates("triple-garden", "Triple Room with garden view", map[int]Rate{
			2: {WithoutBreakfast: 60, WithBreakfast: 65},
			3: {WithoutBreakfast: 75, WithBreakfast: 80},
		}),
		FromRates("deluxe-family", "Deluxe Family Suite", map[int]Rate{
			3: {WithoutBreakfast: 80, WithBreakfast: 85},
			4: {WithoutBreakfast: 95, WithBreakfast: 100},
		}),
	}
}

// Lookup returns a copy of the room type with the given id.
func (c *Catalog) Lookup(id string) (RoomType, error) {
	rt, ok := c.types[id]
	if !ok {
		return RoomType{}, ErrRoomTypeNotFound
	}
	return rt.clone(), nil
}

func (c *Catalog) IsValidOccupancy(id string, guests int) bool {
	rt, ok := c.types[id]
	if !ok {
		return false
	}
	_, ok = rt.Rates[guests]
	return ok
}

// NightlyRate fails with ErrInvalidCombination both for unknown room types and
// for guest counts the room type does not support.
func (c *Catalog) NightlyRate(id string, guests int, breakfast bool) (float64, error) {
	rt, ok := c.types[id]
	if !ok {
		return 0, ErrInvalidCombination
	}
	rate, ok := rt.Rates[guests]
	if !ok {
		return 0, ErrInvalidCombination
	}
	if breakfast {
		return rate.WithBreakfast, nil
	}
	return rate.WithoutBreakfast, nil
}

// All returns every room type ordered by id.
func (c *Catalog) All() []RoomType {
	out := make([]RoomType, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.types[id].clone())
	}
	return out
}
