package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ticketly/internal/events"
	"ticketly/internal/seats"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reservation is what a booking writes: the ticket and the event's new
// seat map.
type Reservation struct {
	Ticket   *Ticket
	SeatsMap seats.SeatMap
}

// PrepareFunc turns the locked event into a reservation. Returning an
// error rolls the booking back.
type PrepareFunc func(event *events.Event) (*Reservation, error)

type Repository interface {
	// Book locks the event row, runs prepare against it and commits the
	// seat map, counters and ticket in one transaction.
	Book(ctx context.Context, eventID uuid.UUID, prepare PrepareFunc) (*Ticket, error)

	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*Ticket, error)
	GetUserTickets(ctx context.Context, userID uuid.UUID, query TicketListQuery) ([]Ticket, int64, error)
	GetUserTicket(ctx context.Context, userID, ticketID uuid.UUID) (*Ticket, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Book(ctx context.Context, eventID uuid.UUID, prepare PrepareFunc) (*Ticket, error) {
	var booked *Ticket

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event events.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", eventID).
			First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return events.ErrEventNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		res, err := prepare(&event)
		if err != nil {
			return err
		}

		seatsJSON, err := json.Marshal(res.SeatsMap)
		if err != nil {
			return fmt.Errorf("failed to encode seat map: %w", err)
		}

		result := tx.Model(&events.Event{}).
			Where("id = ? AND version = ?", event.ID, event.Version).
			Updates(map[string]interface{}{
				"seats_map":       gorm.Expr("?::jsonb", string(seatsJSON)),
				"available_seats": event.SeatsAmount - res.SeatsMap.Occupied(),
				"revenue":         gorm.Expr("revenue + ?", res.Ticket.Price),
				"version":         gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update event: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		if err := tx.Create(res.Ticket).Error; err != nil {
			// either the reference or the user's idempotency key
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTicket
			}
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		booked = res.Ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booked, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*Ticket, error) {
	var ticket Ticket
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetUserTickets(ctx context.Context, userID uuid.UUID, query TicketListQuery) ([]Ticket, int64, error) {
	var tickets []Ticket
	var totalCount int64

	baseQuery := r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("user_id = ?", userID)

	if query.EventID != "" {
		baseQuery = baseQuery.Where("event_id = ?", query.EventID)
	}
	if query.TicketType != "" {
		baseQuery = baseQuery.Where("ticket_type = ?", query.TicketType)
	}
	if query.Q != "" {
		seatJSON, _ := json.Marshal([]string{query.Q})
		baseQuery = baseQuery.Where("reference ILIKE ? OR seats_number @> ?::jsonb",
			"%"+query.Q+"%", string(seatJSON))
	}

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	q := baseQuery.Order("created_at DESC")
	if query.Limit > 0 {
		page := query.Page
		if page <= 0 {
			page = 1
		}
		q = q.Offset((page - 1) * query.Limit).Limit(query.Limit)
	}

	if err := q.Find(&tickets).Error; err != nil {
		return nil, 0, err
	}
	return tickets, totalCount, nil
}

func (r *repository) GetUserTicket(ctx context.Context, userID, ticketID uuid.UUID) (*Ticket, error) {
	var ticket Ticket
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", ticketID, userID).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}
