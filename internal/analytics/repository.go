package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ticketly/internal/notifications"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrEventNotFound = errors.New("event not found")

const topEventsLimit = 5

type Repository interface {
	// RecordSale folds a ticket event into the daily aggregate. It reports
	// false when the ticket was already counted.
	RecordSale(ctx context.Context, evt *notifications.TicketPurchased) (bool, error)

	GetEventAnalytics(ctx context.Context, eventID uuid.UUID) (*EventAnalytics, error)
	GetOverview(ctx context.Context) (*OverviewMetrics, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RecordSale(ctx context.Context, evt *notifications.TicketPurchased) (bool, error) {
	recorded := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mark := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&ProcessedTicket{TicketID: evt.TicketID})
		if mark.Error != nil {
			return fmt.Errorf("failed to mark ticket processed: %w", mark.Error)
		}
		if mark.RowsAffected == 0 {
			return nil
		}

		row := EventSalesDaily{
			EventID:     evt.EventID,
			Date:        saleDay(evt.OccurredAt),
			TicketsSold: 1,
			SeatsSold:   evt.Quantity,
			Revenue:     evt.Price,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"tickets_sold": gorm.Expr("event_sales_daily.tickets_sold + EXCLUDED.tickets_sold"),
				"seats_sold":   gorm.Expr("event_sales_daily.seats_sold + EXCLUDED.seats_sold"),
				"revenue":      gorm.Expr("event_sales_daily.revenue + EXCLUDED.revenue"),
				"updated_at":   gorm.Expr("NOW()"),
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to upsert daily sales: %w", err)
		}

		recorded = true
		return nil
	})
	return recorded, err
}

func saleDay(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *repository) GetEventAnalytics(ctx context.Context, eventID uuid.UUID) (*EventAnalytics, error) {
	var event struct {
		ID             uuid.UUID
		Name           string
		Status         string
		SeatsAmount    int
		AvailableSeats int
		Revenue        decimal.Decimal
	}
	res := r.db.WithContext(ctx).Table("events").
		Select("id, name, status, seats_amount, available_seats, revenue").
		Where("id = ?", eventID).
		Scan(&event)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to get event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrEventNotFound
	}

	analytics := &EventAnalytics{
		EventID:        event.ID.String(),
		EventName:      event.Name,
		Status:         event.Status,
		SeatsAmount:    event.SeatsAmount,
		AvailableSeats: event.AvailableSeats,
		Revenue:        event.Revenue,
		Daily:          []EventSalesDaily{},
		ByTicketType:   []TicketTypeSales{},
	}
	if event.SeatsAmount > 0 {
		sold := float64(event.SeatsAmount - event.AvailableSeats)
		analytics.OccupancyPercentage = math.Round(sold/float64(event.SeatsAmount)*10000) / 100
	}

	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("date ASC").
		Find(&analytics.Daily).Error; err != nil {
		return nil, fmt.Errorf("failed to get daily sales: %w", err)
	}

	// Ticket counts come from the tickets table so they are exact even
	// while the consumer is behind.
	if err := r.db.WithContext(ctx).Table("tickets").
		Select("ticket_type, COUNT(*) AS tickets, COALESCE(SUM(quantity), 0) AS seats, COALESCE(SUM(price), 0) AS revenue").
		Where("event_id = ?", eventID).
		Group("ticket_type").
		Order("revenue DESC").
		Scan(&analytics.ByTicketType).Error; err != nil {
		return nil, fmt.Errorf("failed to get ticket type breakdown: %w", err)
	}

	for _, t := range analytics.ByTicketType {
		analytics.TicketsSold += t.Tickets
		analytics.SeatsSold += t.Seats
	}
	if analytics.TicketsSold > 0 {
		analytics.AverageTicketPrice = event.Revenue.
			Div(decimal.NewFromInt(int64(analytics.TicketsSold))).
			Round(2)
	}

	return analytics, nil
}

func (r *repository) GetOverview(ctx context.Context) (*OverviewMetrics, error) {
	overview := &OverviewMetrics{TopEvents: []EventRevenue{}}

	var totals struct {
		TotalEvents    int64
		ActiveEvents   int64
		TotalRevenue   decimal.Decimal
		AvgUtilization float64
	}
	err := r.db.WithContext(ctx).Table("events").
		Select(`COUNT(*) AS total_events,
			COUNT(*) FILTER (WHERE status = 'active') AS active_events,
			COALESCE(SUM(revenue), 0) AS total_revenue,
			COALESCE(AVG((seats_amount - available_seats) * 100.0 / NULLIF(seats_amount, 0)), 0) AS avg_utilization`).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get event totals: %w", err)
	}
	overview.TotalEvents = totals.TotalEvents
	overview.ActiveEvents = totals.ActiveEvents
	overview.TotalRevenue = totals.TotalRevenue
	overview.AvgUtilization = math.Round(totals.AvgUtilization*100) / 100

	var tickets struct {
		TotalTickets int64
		TotalSeats   int64
	}
	if err := r.db.WithContext(ctx).Table("tickets").
		Select("COUNT(*) AS total_tickets, COALESCE(SUM(quantity), 0) AS total_seats").
		Scan(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to get ticket totals: %w", err)
	}
	overview.TotalTickets = tickets.TotalTickets
	overview.TotalSeats = tickets.TotalSeats

	if err := r.db.WithContext(ctx).Table("events").
		Select("id AS event_id, name, revenue, seats_amount, seats_amount - available_seats AS seats_sold").
		Order("revenue DESC").
		Limit(topEventsLimit).
		Scan(&overview.TopEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to get top events: %w", err)
	}

	return overview, nil
}
