package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTypeTicketPurchased EventType = "ticket.purchased"
)

// header carrying the EventType of a message
const headerEventType = "event_type"

// TicketPurchased is published once per committed booking.
type TicketPurchased struct {
	ID            uuid.UUID       `json:"id"`
	TicketID      uuid.UUID       `json:"ticketId"`
	Reference     string          `json:"reference"`
	EventID       uuid.UUID       `json:"eventId"`
	UserID        uuid.UUID       `json:"userId"`
	UserEmail     string          `json:"userEmail,omitempty"`
	UserName      string          `json:"userName,omitempty"`
	TicketType    string          `json:"ticketType"`
	Seats         []string        `json:"seats"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PaymentStatus string          `json:"paymentStatus"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func (e *TicketPurchased) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps all sales of one event on one partition, in order.
func (e *TicketPurchased) PartitionKey() string {
	return e.EventID.String()
}

func ParseTicketPurchased(data []byte) (*TicketPurchased, error) {
	var evt TicketPurchased
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket event: %w", err)
	}
	if evt.TicketID == uuid.Nil || evt.EventID == uuid.Nil {
		return nil, fmt.Errorf("ticket event is missing ids")
	}
	return &evt, nil
}
