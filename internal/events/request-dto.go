package events

import (
	"time"

	"ticketly/internal/seats"

	"github.com/shopspring/decimal"
)

type VenueRequest struct {
	Name     string  `json:"name" binding:"required,max=255"`
	Address  Address `json:"address"`
	Capacity int     `json:"capacity" binding:"required,min=1,max=100000"`
}

// RowPricingRequest prices the front rows higher: rows A-B are VIP,
// C-E premium, the rest general.
type RowPricingRequest struct {
	VIP     decimal.Decimal `json:"vip"`
	Premium decimal.Decimal `json:"premium"`
	General decimal.Decimal `json:"general"`
}

// CreateEventRequest. Exactly one of TicketTypes, RowPricing or Price
// sets the pricing; TicketTypes wins when several are given.
type CreateEventRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=100"`
	Description string     `json:"description" binding:"max=1000"`
	Category    string     `json:"category" binding:"required,max=50"`
	DateTime    time.Time  `json:"datetime" binding:"required"`
	Organizer   string     `json:"organizer" binding:"required,max=100"`
	Emoji       string     `json:"emoji"`
	Popularity  Popularity `json:"popularity" binding:"omitempty,oneof='High Popularity' 'Medium Popularity' 'Low Popularity'"`
	Status      Status     `json:"status" binding:"omitempty,oneof=active upcoming"`
	Tags        []string   `json:"tags" binding:"omitempty,max=10,dive,max=30"`

	Venue VenueRequest `json:"venue" binding:"required"`

	TicketTypes seats.PriceList    `json:"ticketTypes" binding:"omitempty,dive"`
	RowPricing  *RowPricingRequest `json:"rowPricing"`
	Price       *decimal.Decimal   `json:"price"`
}

// UpdateEventRequest changes metadata. Capacity and TicketTypes can only
// change before the first sale.
type UpdateEventRequest struct {
	Name        *string     `json:"name" binding:"omitempty,min=3,max=100"`
	Description *string     `json:"description" binding:"omitempty,max=1000"`
	Category    *string     `json:"category" binding:"omitempty,max=50"`
	DateTime    *time.Time  `json:"datetime"`
	Organizer   *string     `json:"organizer" binding:"omitempty,max=100"`
	Emoji       *string     `json:"emoji"`
	Popularity  *Popularity `json:"popularity" binding:"omitempty,oneof='High Popularity' 'Medium Popularity' 'Low Popularity'"`
	Status      *Status     `json:"status" binding:"omitempty,oneof=active upcoming closed canceled"`
	Tags        []string    `json:"tags" binding:"omitempty,max=10,dive,max=30"`
	VenueName   *string     `json:"venueName" binding:"omitempty,max=255"`
	Address     *Address    `json:"address"`

	Capacity    *int            `json:"capacity" binding:"omitempty,min=1,max=100000"`
	TicketTypes seats.PriceList `json:"ticketTypes" binding:"omitempty,dive"`
}

type EventListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=active upcoming closed canceled"`
	Category string `form:"category"`
	Q        string `form:"q" binding:"max=100"`
}
