package events

import (
	"encoding/json"
	"math"
	"time"

	"ticketly/internal/seats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusUpcoming Status = "upcoming"
	StatusClosed   Status = "closed"
	StatusCanceled Status = "canceled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusUpcoming, StatusClosed, StatusCanceled:
		return true
	}
	return false
}

// Open statuses still sell tickets.
func (s Status) IsOpen() bool {
	return s == StatusActive || s == StatusUpcoming
}

type Popularity string

const (
	PopularityHigh   Popularity = "High Popularity"
	PopularityMedium Popularity = "Medium Popularity"
	PopularityLow    Popularity = "Low Popularity"
)

type Address struct {
	Street  string `json:"street" gorm:"size:255"`
	City    string `json:"city" gorm:"size:100"`
	State   string `json:"state" gorm:"size:100"`
	ZipCode string `json:"zipCode" gorm:"size:20"`
}

type Venue struct {
	Name     string  `json:"name" gorm:"size:255;not null"`
	Address  Address `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Capacity int     `json:"capacity" gorm:"not null;check:venue_capacity > 0"`
}

type Event struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `json:"name" gorm:"not null;size:100"`
	Slug        string     `json:"slug" gorm:"uniqueIndex;size:140;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Category    string     `json:"category" gorm:"size:50;index"`
	DateTime    time.Time  `json:"datetime" gorm:"column:date_time;not null;index"`
	Organizer   string     `json:"organizer" gorm:"size:100"`
	Emoji       string     `json:"emoji" gorm:"size:16"`
	Popularity  Popularity `json:"popularity" gorm:"type:varchar(20)"`
	Status      Status     `json:"status" gorm:"type:varchar(20);not null;default:'upcoming';index"`
	Tags        []string   `json:"tags" gorm:"type:jsonb;serializer:json"`
	Venue       Venue      `json:"venue" gorm:"embedded;embeddedPrefix:venue_"`

	// Booking state. SeatsMap is authoritative; AvailableSeats is always
	// derived from it.
	SeatsAmount    int             `json:"seatsAmount" gorm:"not null"`
	AvailableSeats int             `json:"availableSeats" gorm:"not null;check:available_seats >= 0"`
	SeatsMap       seats.SeatMap   `json:"seatsMap" gorm:"type:jsonb;serializer:json;not null"`
	TicketTypes    seats.PriceList `json:"ticketTypes" gorm:"type:jsonb;serializer:json;not null"`
	Revenue        decimal.Decimal `json:"revenue" gorm:"type:numeric(14,2);not null;default:0"`
	Version        int             `json:"version" gorm:"not null;default:1"`

	OccupancyPercentage float64 `json:"occupancyPercentage" gorm:"-"`

	CreatedBy uuid.UUID `json:"createdBy" gorm:"type:uuid"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Event) TableName() string {
	return "events"
}

// AfterFind fills the computed fields.
func (e *Event) AfterFind(tx *gorm.DB) error {
	e.computeOccupancy()
	return nil
}

func (e *Event) computeOccupancy() {
	if e.SeatsAmount <= 0 {
		e.OccupancyPercentage = 0
		return
	}
	sold := float64(e.SeatsAmount - e.AvailableSeats)
	e.OccupancyPercentage = math.Round(sold/float64(e.SeatsAmount)*100*100) / 100
}

// IsBookable reports whether tickets can still be bought at now.
func (e *Event) IsBookable(now time.Time) bool {
	return e.Status.IsOpen() && e.DateTime.After(now)
}

// HasSales reports whether any seat has been sold.
func (e *Event) HasSales() bool {
	return e.SeatsMap.Occupied() > 0 || !e.Revenue.IsZero()
}

// Seating is the view of the event the seat and ticket modules work on.
func (e *Event) Seating(now time.Time) *seats.EventSeating {
	return &seats.EventSeating{
		EventID:     e.ID,
		SeatMap:     e.SeatsMap,
		TicketTypes: e.TicketTypes,
		Bookable:    e.IsBookable(now),
	}
}

type PaginatedEvents struct {
	Events     []Event `json:"events"`
	TotalCount int64   `json:"totalCount"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// gormJSON encodes v for a jsonb column in a map update; map updates skip
// the field serializer.
func gormJSON(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte("null")
	}
	return gorm.Expr("?::jsonb", string(b))
}
