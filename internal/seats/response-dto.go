package seats

import (
	"time"

	"github.com/shopspring/decimal"
)

type SeatHoldResponse struct {
	HoldID     string          `json:"holdId"`
	EventID    string          `json:"eventId"`
	UserID     string          `json:"userId"`
	Seats      []PricedSeat    `json:"seats"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	TTL        int             `json:"ttlSeconds"`
}

type HoldValidationResult struct {
	Valid   bool             `json:"valid"`
	Reason  string           `json:"reason,omitempty"`
	Details *SeatHoldDetails `json:"details,omitempty"`
	TTL     int              `json:"ttlSeconds,omitempty"`
}

type SeatAvailabilityResponse struct {
	EventID string                 `json:"eventId"`
	Seats   []SeatAvailabilityInfo `json:"seats"`
}

type SeatAvailabilityInfo struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
	State     string `json:"state"`
}

// SeatLayoutResponse is the seat map as served to clients. SeatsMap keeps
// the raw 0/1 grid; Held lists seats currently held in Redis.
type SeatLayoutResponse struct {
	EventID        string     `json:"eventId"`
	Rows           int        `json:"rows"`
	Columns        int        `json:"columns"`
	SeatsAmount    int        `json:"seatsAmount"`
	AvailableSeats int        `json:"availableSeats"`
	SeatsMap       SeatMap    `json:"seatsMap"`
	RowLabels      []string   `json:"rowLabels"`
	TicketTypes    PriceList  `json:"ticketTypes"`
	Held           []string   `json:"held"`
	Tiers          [][]string `json:"tiers"`
}
