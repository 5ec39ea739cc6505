package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventSalesDaily aggregates committed tickets per event and UTC day.
// Rows are fed by the ticket event consumer.
type EventSalesDaily struct {
	ID          uint            `json:"-" gorm:"primaryKey"`
	EventID     uuid.UUID       `json:"eventId" gorm:"type:uuid;not null;uniqueIndex:idx_sales_event_date"`
	Date        time.Time       `json:"date" gorm:"type:date;not null;uniqueIndex:idx_sales_event_date"`
	TicketsSold int             `json:"ticketsSold" gorm:"not null;default:0"`
	SeatsSold   int             `json:"seatsSold" gorm:"not null;default:0"`
	Revenue     decimal.Decimal `json:"revenue" gorm:"type:numeric(14,2);not null;default:0"`
	UpdatedAt   time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (EventSalesDaily) TableName() string {
	return "event_sales_daily"
}

// ProcessedTicket marks a ticket event as counted so redelivered
// messages are not aggregated twice.
type ProcessedTicket struct {
	TicketID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProcessedAt time.Time `gorm:"autoCreateTime"`
}

func (ProcessedTicket) TableName() string {
	return "analytics_processed_tickets"
}

type TicketTypeSales struct {
	TicketType string          `json:"ticketType"`
	Tickets    int             `json:"tickets"`
	Seats      int             `json:"seats"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type EventAnalytics struct {
	EventID             string            `json:"eventId"`
	EventName           string            `json:"eventName"`
	Status              string            `json:"status"`
	SeatsAmount         int               `json:"seatsAmount"`
	AvailableSeats      int               `json:"availableSeats"`
	OccupancyPercentage float64           `json:"occupancyPercentage"`
	Revenue             decimal.Decimal   `json:"revenue"`
	TicketsSold         int               `json:"ticketsSold"`
	SeatsSold           int               `json:"seatsSold"`
	AverageTicketPrice  decimal.Decimal   `json:"averageTicketPrice"`
	Daily               []EventSalesDaily `json:"daily"`
	ByTicketType        []TicketTypeSales `json:"byTicketType"`
}

type OverviewMetrics struct {
	TotalEvents    int64           `json:"totalEvents"`
	ActiveEvents   int64           `json:"activeEvents"`
	TotalTickets   int64           `json:"totalTickets"`
	TotalSeats     int64           `json:"totalSeats"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	AvgUtilization float64         `json:"avgUtilization"`
	TopEvents      []EventRevenue  `json:"topEvents"`
}

type EventRevenue struct {
	EventID     uuid.UUID       `json:"eventId"`
	Name        string          `json:"name"`
	Revenue     decimal.Decimal `json:"revenue"`
	SeatsAmount int             `json:"seatsAmount"`
	SeatsSold   int             `json:"seatsSold"`
}
