package tickets

import (
	"ticketly/internal/payments"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseRequest is the body of POST /tickets. Seats carries the
// client's copy of the seat map; it is accepted and ignored.
type PurchaseRequest struct {
	Event          uuid.UUID          `json:"event" binding:"required"`
	User           uuid.UUID          `json:"user" binding:"required"`
	TicketType     string             `json:"ticketType" binding:"omitempty,oneof=general vip premium mixed"`
	SeatsNumber    []string           `json:"seatsNumber" binding:"required,min=1,dive,seatkey"`
	Price          *decimal.Decimal   `json:"price"`
	Quantity       int                `json:"quantity" binding:"omitempty,min=1"`
	Seats          [][]int            `json:"seats,omitempty"`
	HoldID         string             `json:"holdId" binding:"omitempty,uuid"`
	PaymentDetails payments.CardInput `json:"paymentDetails"`
	IdempotencyKey string             `json:"idempotencyKey" binding:"omitempty,max=128"`
}

// TicketListQuery filters GET /tickets/:userId. Limit 0 returns every
// ticket.
type TicketListQuery struct {
	EventID    string `form:"eventId" binding:"omitempty,uuid"`
	TicketType string `form:"ticketType" binding:"omitempty,oneof=general vip premium mixed"`
	Q          string `form:"q" binding:"max=64"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type QRCodeQuery struct {
	Size int `form:"size" binding:"omitempty,min=128,max=1024"`
}
