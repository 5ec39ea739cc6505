package booking

import (
	"ticketly/internal/seats"

	"github.com/shopspring/decimal"
)

// Pricer returns the price of a seat, false when the seat is not priced.
type Pricer func(key seats.SeatKey) (decimal.Decimal, bool)

// FlatPricer prices every seat the same.
func FlatPricer(price decimal.Decimal) Pricer {
	return func(seats.SeatKey) (decimal.Decimal, bool) {
		return price, true
	}
}

// TierPricer prices seats from an event's ticket types.
func TierPricer(m seats.SeatMap, list seats.PriceList) Pricer {
	return func(k seats.SeatKey) (decimal.Decimal, bool) {
		t, err := list.Lookup(m, k)
		if err != nil {
			return decimal.Zero, false
		}
		return t.Price, true
	}
}

// Selection is the set of seats a user has picked but not yet bought.
// It lives only on the client and is not safe for concurrent use.
type Selection struct {
	seatMap  seats.SeatMap
	pricer   Pricer
	selected map[seats.SeatKey]decimal.Decimal
	total    decimal.Decimal
}

func NewSelection(seatMap seats.SeatMap, pricer Pricer) *Selection {
	return &Selection{
		seatMap:  seatMap,
		pricer:   pricer,
		selected: make(map[seats.SeatKey]decimal.Decimal),
		total:    decimal.Zero,
	}
}

// Toggle adds or removes a seat and returns whether it is now selected.
// Occupied, unpriced and out-of-range seats are ignored.
func (s *Selection) Toggle(row, col int) bool {
	k := seats.SeatKey{Row: row, Col: col}
	if !s.seatMap.Contains(k) || s.seatMap.IsOccupied(k) {
		return false
	}

	if price, ok := s.selected[k]; ok {
		delete(s.selected, k)
		s.total = s.total.Sub(price)
		return false
	}

	price, ok := s.pricer(k)
	if !ok {
		return false
	}
	s.selected[k] = price
	s.total = s.total.Add(price)
	return true
}

func (s *Selection) Clear() {
	s.selected = make(map[seats.SeatKey]decimal.Decimal)
	s.total = decimal.Zero
}

func (s *Selection) TotalPrice() decimal.Decimal {
	return s.total
}

func (s *Selection) SelectedCount() int {
	return len(s.selected)
}

// SelectedKeys returns the canonical keys in row-major order.
func (s *Selection) SelectedKeys() []string {
	keys := make([]seats.SeatKey, 0, len(s.selected))
	for k := range s.selected {
		keys = append(keys, k)
	}
	seats.SortKeys(keys)
	return seats.KeyStrings(keys)
}

func (s *Selection) IsSelected(row, col int) bool {
	_, ok := s.selected[seats.SeatKey{Row: row, Col: col}]
	return ok
}
