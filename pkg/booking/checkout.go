package booking

import (
	"errors"
	"fmt"
	"time"

	"ticketly/internal/payments"
	"ticketly/internal/seats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptySelection = errors.New("no seats selected")
	ErrHoldMismatch   = errors.New("hold does not cover the selected seats")
	ErrHoldExpired    = errors.New("hold has expired")
)

// TicketRequest is the body of POST /api/tickets.
type TicketRequest struct {
	Event          uuid.UUID          `json:"event"`
	User           uuid.UUID          `json:"user"`
	TicketType     string             `json:"ticketType,omitempty"`
	SeatsNumber    []string           `json:"seatsNumber"`
	Price          decimal.Decimal    `json:"price"`
	Quantity       int                `json:"quantity"`
	Seats          seats.SeatMap      `json:"seats,omitempty"`
	HoldID         string             `json:"holdId,omitempty"`
	PaymentDetails payments.CardInput `json:"paymentDetails"`

	// IdempotencyKey is generated once by Checkout and reused by every
	// retry of this request.
	IdempotencyKey string `json:"idempotencyKey"`
}

// CheckoutOption adjusts the ticket request built by Checkout.
type CheckoutOption func(*checkoutOptions)

type checkoutOptions struct {
	hold *Hold
}

// WithHold books the seats held by hold, so the server converts the hold
// and releases it after the purchase.
func WithHold(hold *Hold) CheckoutOption {
	return func(o *checkoutOptions) {
		o.hold = hold
	}
}

// Checkout validates the payment form and turns the selection into a
// ticket request. The selection is left as is.
func Checkout(sel *Selection, event *Event, userID uuid.UUID, ticketType string, payment payments.CardInput, opts ...CheckoutOption) (*TicketRequest, error) {
	return checkoutAt(sel, event, userID, ticketType, payment, time.Now(), opts...)
}

func checkoutAt(sel *Selection, event *Event, userID uuid.UUID, ticketType string, payment payments.CardInput, now time.Time, opts ...CheckoutOption) (*TicketRequest, error) {
	var o checkoutOptions
	for _, opt := range opts {
		opt(&o)
	}

	if sel == nil || sel.SelectedCount() == 0 {
		return nil, ErrEmptySelection
	}
	if err := payment.Validate(now); err != nil {
		return nil, err
	}

	keys := sel.SelectedKeys()
	req := &TicketRequest{
		Event:          event.ID,
		User:           userID,
		TicketType:     ticketType,
		SeatsNumber:    keys,
		Price:          sel.TotalPrice(),
		Quantity:       len(keys),
		Seats:          event.SeatsMap,
		PaymentDetails: payment,
		IdempotencyKey: uuid.NewString(),
	}

	if o.hold != nil {
		if err := checkHold(o.hold, event.ID, keys, now); err != nil {
			return nil, err
		}
		req.HoldID = o.hold.HoldID
	}
	return req, nil
}

// checkHold requires the hold to be live, for this event and to cover
// every selected seat.
func checkHold(hold *Hold, eventID uuid.UUID, keys []string, now time.Time) error {
	if hold.HoldID == "" || hold.EventID != eventID.String() {
		return ErrHoldMismatch
	}
	if !hold.ExpiresAt.IsZero() && !hold.ExpiresAt.After(now) {
		return ErrHoldExpired
	}

	held := make(map[string]struct{}, len(hold.Seats))
	for _, s := range hold.Seats {
		held[s.Key] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := held[k]; !ok {
			return fmt.Errorf("%w: %s", ErrHoldMismatch, k)
		}
	}
	return nil
}
