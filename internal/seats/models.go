package seats

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Seat states reported by availability checks. "held" exists only in
// Redis and lapses back to "free" when the hold expires.
const (
	StateFree     = "free"
	StateHeld     = "held"
	StateOccupied = "occupied"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrEventNotBookable = errors.New("event is not open for booking")
	ErrNoSeats          = errors.New("no seats specified")
	ErrTooManySeats     = errors.New("too many seats requested")
	ErrHoldMismatch     = errors.New("hold does not cover the requested seats")
	ErrHoldExpired      = errors.New("hold has expired")
)

// EventSeating is the slice of an event the seat module works with.
type EventSeating struct {
	EventID     uuid.UUID
	SeatMap     SeatMap
	TicketTypes PriceList
	Bookable    bool
}

// SeatingReader loads the seating of an event. Implemented by the events
// module so this package does not import it.
type SeatingReader interface {
	GetSeating(ctx context.Context, eventID uuid.UUID) (*EventSeating, error)
}
