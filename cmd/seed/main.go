package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/users"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db     *database.DB
	events events.Service
}

func main() {
	fmt.Println("🌱 Starting Ticketly Database Seeder...")

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:     db,
		events: events.NewService(events.NewRepository(db.PostgreSQL), nil),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates every table, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"analytics_processed_tickets",
		"event_sales_daily",
		"tickets",
		"events",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	userIDs, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	if err := s.SeedEvents(ctx, userIDs["admin"]); err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	// Stale holds and cached listings would point at truncated rows
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedUsers creates one admin and a few customers. Every account uses
// the password "password123".
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	seed := []struct {
		key   string
		name  string
		email string
		role  users.Role
	}{
		{"admin", "Admin User", "admin@ticketly.dev", users.RoleAdmin},
		{"alice", "Alice Johnson", "alice@example.com", users.RoleUser},
		{"bob", "Bob Smith", "bob@example.com", users.RoleUser},
		{"carol", "Carol White", "carol@example.com", users.RoleUser},
	}

	ids := make(map[string]uuid.UUID, len(seed))
	for _, u := range seed {
		user := users.User{
			ID:       uuid.New(),
			Name:     u.name,
			Email:    u.email,
			Password: string(hashed),
			Role:     u.role,
		}
		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", u.email, err)
		}
		ids[u.key] = user.ID
		fmt.Printf("    ✓ %s (%s)\n", user.Email, user.Role)
	}

	return ids, nil
}

// SeedEvents creates events through the event service so slugs, seat
// maps and ticket types are built exactly as the API builds them.
func (s *Seeder) SeedEvents(ctx context.Context, adminID uuid.UUID) error {
	fmt.Println("  🎫 Seeding events...")

	price := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}
	now := time.Now()

	requests := []events.CreateEventRequest{
		{
			Name:        "Summer Jazz Night",
			Description: "An evening of live jazz under the stars.",
			Category:    "Music",
			DateTime:    now.AddDate(0, 1, 0),
			Organizer:   "Blue Note Collective",
			Emoji:       "🎷",
			Popularity:  events.PopularityHigh,
			Status:      events.StatusActive,
			Tags:        []string{"jazz", "outdoor"},
			Venue: events.VenueRequest{
				Name:     "Riverside Amphitheater",
				Address:  events.Address{Street: "1 River Rd", City: "Austin", State: "TX", ZipCode: "73301"},
				Capacity: 120,
			},
			RowPricing: &events.RowPricingRequest{
				VIP:     decimal.RequireFromString("150.00"),
				Premium: decimal.RequireFromString("90.00"),
				General: decimal.RequireFromString("45.00"),
			},
		},
		{
			Name:        "Go Conference 2026",
			Description: "Two days of talks on Go in production.",
			Category:    "Technology",
			DateTime:    now.AddDate(0, 2, 0),
			Organizer:   "Gophers United",
			Emoji:       "🐹",
			Popularity:  events.PopularityMedium,
			Status:      events.StatusUpcoming,
			Tags:        []string{"golang", "conference"},
			Venue: events.VenueRequest{
				Name:     "Convention Center Hall B",
				Address:  events.Address{Street: "500 Main St", City: "Denver", State: "CO", ZipCode: "80202"},
				Capacity: 60,
			},
			TicketTypes: seats.PriceList{
				{Tier: seats.TierVIP, Name: "Speaker Dinner", Price: decimal.RequireFromString("300.00"), Capacity: 10},
				{Tier: seats.TierGeneral, Name: "Conference Pass", Price: decimal.RequireFromString("120.00")},
			},
		},
		{
			Name:        "Community Theater: Hamlet",
			Description: "A local production of the classic tragedy.",
			Category:    "Theater",
			DateTime:    now.AddDate(0, 0, 10),
			Organizer:   "Downtown Players",
			Emoji:       "🎭",
			Popularity:  events.PopularityLow,
			Status:      events.StatusActive,
			Tags:        []string{"theater"},
			Venue: events.VenueRequest{
				Name:     "Downtown Playhouse",
				Address:  events.Address{Street: "22 Elm St", City: "Portland", State: "OR", ZipCode: "97205"},
				Capacity: 40,
			},
			Price: price("25.00"),
		},
	}

	for _, req := range requests {
		event, err := s.events.CreateEvent(ctx, adminID, req)
		if err != nil {
			return fmt.Errorf("failed to create event %q: %w", req.Name, err)
		}
		fmt.Printf("    ✓ %s (%d seats, %s)\n", event.Name, event.SeatsAmount, event.Slug)
	}

	return nil
}
