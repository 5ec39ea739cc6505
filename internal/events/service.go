package events

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"ticketly/internal/seats"
	"ticketly/internal/shared/constants"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrPricingRequired = errors.New("ticketTypes, rowPricing or price is required")
	ErrEventInPast     = errors.New("event date must be in the future")
	ErrInvalidEmoji    = errors.New("emoji must be at most 2 characters")
	ErrHasSales        = errors.New("event already has ticket sales")
)

const (
	defaultPageLimit = 10
	maxSlugAttempts  = 20
	reconcileBatch   = 100
)

type Service interface {
	CreateEvent(ctx context.Context, userID uuid.UUID, req CreateEventRequest) (*Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	// GetSeating implements seats.SeatingReader
	GetSeating(ctx context.Context, id uuid.UUID) (*seats.EventSeating, error)
	InvalidateEvent(ctx context.Context, id uuid.UUID)

	// Scheduled jobs
	SyncStatuses(ctx context.Context) error
	ReconcileAvailability(ctx context.Context) error
}

type service struct {
	repo         Repository
	cacheService cache.Service
	now          func() time.Time
}

// NewService builds the event service. cacheService may be nil.
func NewService(repo Repository, cacheService cache.Service) Service {
	return &service{
		repo:         repo,
		cacheService: cacheService,
		now:          time.Now,
	}
}

// Cache helper methods
func (s *service) setCache(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Set(ctx, key, value, ttl); err != nil {
		logger.GetDefault().WithError(err).Warn("failed to cache", "key", key)
	}
}

func (s *service) getCache(ctx context.Context, key string, dest interface{}) error {
	if s.cacheService == nil {
		return cache.ErrCacheMiss
	}
	return s.cacheService.Get(ctx, key, dest)
}

// InvalidateEvent drops the cached detail and every cached listing.
func (s *service) InvalidateEvent(ctx context.Context, id uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if id != uuid.Nil {
		if err := s.cacheService.Delete(ctx, constants.BuildEventDetailKey(id.String())); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to invalidate event cache", "event_id", id.String())
		}
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_EVENT_LIST); err != nil {
		logger.GetDefault().WithError(err).Warn("failed to invalidate event list cache")
	}
}

func (s *service) CreateEvent(ctx context.Context, userID uuid.UUID, req CreateEventRequest) (*Event, error) {
	now := s.now()
	if !req.DateTime.After(now) {
		return nil, ErrEventInPast
	}
	if utf8.RuneCountInString(req.Emoji) > 2 {
		return nil, ErrInvalidEmoji
	}

	capacity := req.Venue.Capacity
	seatMap := seats.NewSeatMap(capacity)

	ticketTypes, err := buildPriceList(seatMap, req)
	if err != nil {
		return nil, err
	}
	if err := ticketTypes.Validate(capacity); err != nil {
		return nil, err
	}

	eventSlug, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate slug: %w", err)
	}

	status := req.Status
	if status == "" {
		status = StatusUpcoming
	}
	popularity := req.Popularity
	if popularity == "" {
		popularity = PopularityMedium
	}

	event := &Event{
		Name:        strings.TrimSpace(req.Name),
		Slug:        eventSlug,
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		DateTime:    req.DateTime,
		Organizer:   req.Organizer,
		Emoji:       req.Emoji,
		Popularity:  popularity,
		Status:      status,
		Tags:        cleanTags(req.Tags),
		Venue: Venue{
			Name:     req.Venue.Name,
			Address:  req.Venue.Address,
			Capacity: capacity,
		},
		SeatsAmount:    capacity,
		AvailableSeats: capacity,
		SeatsMap:       seatMap,
		TicketTypes:    ticketTypes,
		Version:        1,
		CreatedBy:      userID,
	}
	event.computeOccupancy()

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logger.GetDefault().LogEventCreated(ctx, event.ID.String(), userID.String(), capacity)
	s.InvalidateEvent(ctx, uuid.Nil)

	return event, nil
}

func buildPriceList(m seats.SeatMap, req CreateEventRequest) (seats.PriceList, error) {
	switch {
	case len(req.TicketTypes) > 0:
		return req.TicketTypes, nil
	case req.RowPricing != nil:
		p := req.RowPricing
		return seats.RowTiers(m, p.VIP, p.Premium, p.General), nil
	case req.Price != nil:
		return seats.SinglePrice(seats.TierGeneral, "Regular", *req.Price), nil
	}
	return nil, ErrPricingRequired
}

func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "event"
	}
	result := base

	for i := 1; i <= maxSlugAttempts; i++ {
		exists, err := s.repo.SlugExists(ctx, result)
		if err != nil {
			return "", err
		}
		if !exists {
			return result, nil
		}
		result = fmt.Sprintf("%s-%d", base, i)
	}

	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	cacheKey := constants.BuildEventDetailKey(id.String())

	var cached Event
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	s.setCache(ctx, cacheKey, event, constants.TTL_EVENT_DETAIL)
	return event, nil
}

func (s *service) GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error) {
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = defaultPageLimit
	}

	cacheKey := constants.BuildEventListKey(query.Page, query.Limit, query.Status, query.Category, query.Q)
	var cached PaginatedEvents
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	events, total, err := s.repo.GetAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if events == nil {
		events = []Event{}
	}

	result := &PaginatedEvents{
		Events:     events,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(query.Limit))),
	}

	s.setCache(ctx, cacheKey, result, constants.TTL_EVENT_LIST)
	return result, nil
}

func (s *service) UpdateEvent(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*Event, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.DateTime != nil {
		if !req.DateTime.After(s.now()) {
			return nil, ErrEventInPast
		}
		updates["date_time"] = *req.DateTime
	}
	if req.Organizer != nil {
		updates["organizer"] = *req.Organizer
	}
	if req.Emoji != nil {
		if utf8.RuneCountInString(*req.Emoji) > 2 {
			return nil, ErrInvalidEmoji
		}
		updates["emoji"] = *req.Emoji
	}
	if req.Popularity != nil {
		updates["popularity"] = *req.Popularity
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Tags != nil {
		updates["tags"] = gormJSON(cleanTags(req.Tags))
	}
	if req.VenueName != nil {
		updates["venue_name"] = *req.VenueName
	}
	if req.Address != nil {
		updates["venue_address_street"] = req.Address.Street
		updates["venue_address_city"] = req.Address.City
		updates["venue_address_state"] = req.Address.State
		updates["venue_address_zip_code"] = req.Address.ZipCode
	}

	if req.Capacity != nil || len(req.TicketTypes) > 0 {
		if current.HasSales() {
			return nil, ErrHasSales
		}

		capacity := current.SeatsAmount
		seatMap := current.SeatsMap
		if req.Capacity != nil && *req.Capacity != capacity {
			capacity = *req.Capacity
			seatMap = seats.NewSeatMap(capacity)
		}

		ticketTypes := current.TicketTypes
		if len(req.TicketTypes) > 0 {
			ticketTypes = req.TicketTypes
		}
		if err := ticketTypes.Validate(capacity); err != nil {
			return nil, err
		}

		updates["venue_capacity"] = capacity
		updates["seats_amount"] = capacity
		updates["available_seats"] = capacity
		updates["seats_map"] = gormJSON(seatMap)
		updates["ticket_types"] = gormJSON(ticketTypes)
	}

	if len(updates) == 0 {
		return current, nil
	}
	updates["updated_at"] = s.now()

	updated, err := s.repo.Update(ctx, id, current.Version, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.InvalidateEvent(ctx, id)
	return updated, nil
}

func (s *service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tickets, err := s.repo.CountTickets(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count tickets: %w", err)
	}
	if tickets > 0 || event.HasSales() {
		return ErrHasSales
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.InvalidateEvent(ctx, id)
	return nil
}

// GetSeating always reads the database; seat maps are never served from
// the cache when booking.
func (s *service) GetSeating(ctx context.Context, id uuid.UUID) (*seats.EventSeating, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return event.Seating(s.now()), nil
}

func (s *service) SyncStatuses(ctx context.Context) error {
	activated, closed, err := s.repo.SyncStatuses(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to sync event statuses: %w", err)
	}

	if activated > 0 || closed > 0 {
		logger.GetDefault().InfoWithContext(ctx, "event statuses synced", map[string]interface{}{
			"activated": activated,
			"closed":    closed,
		})
		s.InvalidateEvent(ctx, uuid.Nil)
	}
	return nil
}

// ReconcileAvailability recomputes availableSeats from the seat map and
// repairs any drift.
func (s *service) ReconcileAvailability(ctx context.Context) error {
	fixed := 0
	err := s.repo.ForEachEvent(ctx, reconcileBatch, func(e *Event) error {
		want := e.SeatsAmount - e.SeatsMap.Occupied()
		if want == e.AvailableSeats {
			return nil
		}

		logger.GetDefault().Warn("available seats drift",
			"event_id", e.ID.String(),
			"stored", e.AvailableSeats,
			"derived", want,
		)
		updated, err := s.repo.SetAvailableSeats(ctx, e.ID, e.Version, want)
		if err != nil {
			return err
		}
		if !updated {
			// booked since the read; the booking wrote its own count
			return nil
		}
		s.InvalidateEvent(ctx, e.ID)
		fixed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile availability: %w", err)
	}

	if fixed > 0 {
		logger.GetDefault().Info("availability reconciled", "events_fixed", fixed)
	}
	return nil
}
