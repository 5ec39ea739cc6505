package tickets

import (
	"errors"
	"time"

	"ticketly/internal/payments"
	"ticketly/internal/seats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusReserved Status = "reserved"
	StatusPaid     Status = "paid"
)

var (
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrForbidden               = errors.New("cannot book tickets for another user")
	ErrPriceMismatch           = errors.New("price mismatch")
	ErrQuantityMismatch        = errors.New("quantity does not match the number of seats")
	ErrInvalidHold             = errors.New("hold is not valid for this booking")
	ErrDuplicateTicket         = errors.New("ticket already exists")
	ErrConcurrentUpdate        = errors.New("event changed during booking")
)

type Ticket struct {
	ID          uuid.UUID          `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Reference   string             `json:"reference" gorm:"size:32;uniqueIndex;not null"`
	EventID     uuid.UUID          `json:"event" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID          `json:"user" gorm:"type:uuid;not null;index"`
	TicketType  string             `json:"ticketType" gorm:"type:varchar(20);not null"`
	SeatsNumber []string           `json:"seatsNumber" gorm:"type:jsonb;serializer:json;not null"`
	Seats       []seats.PricedSeat `json:"seats" gorm:"type:jsonb;serializer:json;not null"`
	Price       decimal.Decimal    `json:"price" gorm:"type:numeric(12,2);not null"`
	Quantity    int                `json:"quantity" gorm:"not null;check:quantity > 0"`
	Status      Status             `json:"status" gorm:"type:varchar(20);not null;default:'reserved'"`

	PaymentDetails payments.PaymentDetails `json:"paymentDetails" gorm:"embedded;embeddedPrefix:payment_"`

	IdempotencyKey *string `json:"-" gorm:"size:128"`
	QRCode         string  `json:"qrCode" gorm:"size:255"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	// Set on idempotent replays only
	Replayed bool `json:"replayed,omitempty" gorm:"-"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// PaginatedTickets is returned by the ticket list endpoint.
type PaginatedTickets struct {
	Tickets    []Ticket `json:"tickets"`
	TotalCount int64    `json:"totalCount"`
	Page       int      `json:"page,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}
