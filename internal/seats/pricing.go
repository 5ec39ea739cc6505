package seats

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier names. A ticket whose seats span tiers is recorded as TierMixed.
const (
	TierGeneral = "general"
	TierVIP     = "vip"
	TierPremium = "premium"
	TierMixed   = "mixed"
)

var (
	ErrNoTicketTypes      = errors.New("at least one ticket type is required")
	ErrInvalidTier        = errors.New("invalid ticket tier")
	ErrDuplicateTier      = errors.New("duplicate ticket tier")
	ErrNegativePrice      = errors.New("ticket price cannot be negative")
	ErrTierCapacity       = errors.New("ticket type capacities do not match event capacity")
	ErrOpenTierNotLast    = errors.New("only the last ticket type may leave capacity open")
	ErrTierNotOfferedHere = errors.New("ticket type not offered for this event")
)

// TicketType prices a contiguous block of seats. Seats are assigned to
// ticket types front-first in row-major order; Capacity 0 means "every
// remaining seat" and is only allowed on the last entry.
type TicketType struct {
	Tier     string          `json:"tier" binding:"required,oneof=general vip premium"`
	Name     string          `json:"name" binding:"max=50"`
	Price    decimal.Decimal `json:"price"`
	Capacity int             `json:"capacity" binding:"gte=0"`
}

// PriceList is the ordered set of ticket types of an event.
type PriceList []TicketType

// SinglePrice reproduces the one-price-for-every-seat layout.
func SinglePrice(tier, name string, price decimal.Decimal) PriceList {
	if tier == "" {
		tier = TierGeneral
	}
	return PriceList{{Tier: tier, Name: name, Price: price}}
}

// RowTiers prices the first two rows as VIP, rows 2-4 as premium and the
// rest as general. Tiers that would cover no seats are left out.
func RowTiers(m SeatMap, vip, premium, general decimal.Decimal) PriceList {
	rowSeats := func(from, to int) int {
		n := 0
		for r := from; r < to && r < len(m); r++ {
			n += len(m[r])
		}
		return n
	}

	var out PriceList
	if n := rowSeats(0, 2); n > 0 {
		out = append(out, TicketType{Tier: TierVIP, Name: "VIP", Price: vip, Capacity: n})
	}
	if n := rowSeats(2, 5); n > 0 {
		out = append(out, TicketType{Tier: TierPremium, Name: "Premium", Price: premium, Capacity: n})
	}
	if rowSeats(5, len(m)) > 0 {
		out = append(out, TicketType{Tier: TierGeneral, Name: "Regular", Price: general})
	} else if len(out) > 0 {
		out[len(out)-1].Capacity = 0
	}
	return out
}

func validTier(t string) bool {
	switch t {
	case TierGeneral, TierVIP, TierPremium:
		return true
	}
	return false
}

// Validate checks the list covers exactly capacity seats.
func (p PriceList) Validate(capacity int) error {
	if len(p) == 0 {
		return ErrNoTicketTypes
	}

	seen := make(map[string]struct{}, len(p))
	total := 0
	open := false
	for i, t := range p {
		if !validTier(t.Tier) {
			return fmt.Errorf("%w: %q", ErrInvalidTier, t.Tier)
		}
		if _, dup := seen[t.Tier]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTier, t.Tier)
		}
		seen[t.Tier] = struct{}{}

		if t.Price.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativePrice, t.Tier)
		}
		if t.Capacity < 0 {
			return fmt.Errorf("%w: negative capacity for %s", ErrTierCapacity, t.Tier)
		}
		if t.Capacity == 0 {
			if i != len(p)-1 {
				return ErrOpenTierNotLast
			}
			open = true
		}
		total += t.Capacity
	}

	if total > capacity || (!open && total != capacity) {
		return fmt.Errorf("%w: ticket types cover %d of %d seats", ErrTierCapacity, total, capacity)
	}
	return nil
}

// TierAt returns the ticket type covering the seat at row-major index idx.
func (p PriceList) TierAt(idx int) (TicketType, bool) {
	if idx < 0 {
		return TicketType{}, false
	}
	upper := 0
	for _, t := range p {
		if t.Capacity == 0 {
			return t, true
		}
		upper += t.Capacity
		if idx < upper {
			return t, true
		}
	}
	return TicketType{}, false
}

// Lookup returns the ticket type of k in m.
func (p PriceList) Lookup(m SeatMap, k SeatKey) (TicketType, error) {
	idx, ok := m.Index(k)
	if !ok {
		return TicketType{}, fmt.Errorf("%w: %s", ErrSeatNotFound, k)
	}
	t, ok := p.TierAt(idx)
	if !ok {
		return TicketType{}, fmt.Errorf("%w: no ticket type covers %s", ErrTierCapacity, k)
	}
	return t, nil
}

// Has reports whether tier is offered.
func (p PriceList) Has(tier string) bool {
	for _, t := range p {
		if t.Tier == tier {
			return true
		}
	}
	return false
}

// PricedSeat is a seat with its resolved ticket type.
type PricedSeat struct {
	Key   string          `json:"key"`
	Label string          `json:"label"`
	Tier  string          `json:"tier"`
	Price decimal.Decimal `json:"price"`
}

// Quote prices every key and returns the seats, their total and the tier
// shared by all of them (TierMixed when they differ).
func (p PriceList) Quote(m SeatMap, keys []SeatKey) ([]PricedSeat, decimal.Decimal, string, error) {
	out := make([]PricedSeat, 0, len(keys))
	total := decimal.Zero
	tier := ""

	for _, k := range keys {
		t, err := p.Lookup(m, k)
		if err != nil {
			return nil, decimal.Zero, "", err
		}
		out = append(out, PricedSeat{Key: k.String(), Label: k.Label(), Tier: t.Tier, Price: t.Price})
		total = total.Add(t.Price)

		switch tier {
		case "":
			tier = t.Tier
		case t.Tier:
		default:
			tier = TierMixed
		}
	}
	return out, total, tier, nil
}
