package booking

import (
	"encoding/json"
	"time"

	"ticketly/internal/payments"
	"ticketly/internal/seats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the client's view of GET /api/events/:eventId.
type Event struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Slug                string          `json:"slug"`
	Category            string          `json:"category"`
	DateTime            time.Time       `json:"datetime"`
	Status              string          `json:"status"`
	SeatsAmount         int             `json:"seatsAmount"`
	AvailableSeats      int             `json:"availableSeats"`
	SeatsMap            seats.SeatMap   `json:"seatsMap"`
	TicketTypes         seats.PriceList `json:"ticketTypes"`
	OccupancyPercentage float64         `json:"occupancyPercentage"`
}

// NewSelection starts an empty selection priced by the event's tiers.
func (e *Event) NewSelection() *Selection {
	return NewSelection(e.SeatsMap, TierPricer(e.SeatsMap, e.TicketTypes))
}

type Ticket struct {
	ID             uuid.UUID               `json:"id"`
	Reference      string                  `json:"reference"`
	EventID        uuid.UUID               `json:"event"`
	UserID         uuid.UUID               `json:"user"`
	TicketType     string                  `json:"ticketType"`
	SeatsNumber    []string                `json:"seatsNumber"`
	Seats          []seats.PricedSeat      `json:"seats"`
	Price          decimal.Decimal         `json:"price"`
	Quantity       int                     `json:"quantity"`
	Status         string                  `json:"status"`
	PaymentDetails payments.PaymentDetails `json:"paymentDetails"`
	QRCode         string                  `json:"qrCode"`
	Replayed       bool                    `json:"replayed,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
}

type TicketList struct {
	Tickets    []Ticket `json:"tickets"`
	TotalCount int64    `json:"totalCount"`
}

type Hold struct {
	HoldID     string             `json:"holdId"`
	EventID    string             `json:"eventId"`
	Seats      []seats.PricedSeat `json:"seats"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	ExpiresAt  time.Time          `json:"expiresAt"`
	TTL        int                `json:"ttlSeconds"`
}

// envelope is the server's response wrapper.
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     json.RawMessage `json:"errors"`
}
