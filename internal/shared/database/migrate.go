package database

import (
	"ticketly/internal/analytics"
	"ticketly/internal/events"
	"ticketly/internal/tickets"
	"ticketly/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&events.Event{},
		&tickets.Ticket{},
		&analytics.EventSalesDaily{},
		&analytics.ProcessedTicket{},
	)
}
