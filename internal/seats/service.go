package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketly/internal/shared/config"
	"ticketly/pkg/logger"
	"ticketly/pkg/metrics"

	"github.com/google/uuid"
)

type Service interface {
	// Seat map
	GetSeatLayout(ctx context.Context, eventID uuid.UUID) (*SeatLayoutResponse, error)
	CheckAvailability(ctx context.Context, eventID uuid.UUID, rawKeys []string) (*SeatAvailabilityResponse, error)

	// Holds
	HoldSeats(ctx context.Context, userID, eventID uuid.UUID, rawKeys []string) (*SeatHoldResponse, error)
	ReleaseHold(ctx context.Context, holdID string, userID uuid.UUID) error
	GetHold(ctx context.Context, holdID string, userID uuid.UUID) (*SeatHoldDetails, error)
	ValidateHold(ctx context.Context, holdID string, userID, eventID uuid.UUID, keys []SeatKey) (*HoldValidationResult, error)
	GetUserHolds(ctx context.Context, userID uuid.UUID) ([]SeatHoldDetails, error)
	SeatsHeldByOthers(ctx context.Context, eventID, userID uuid.UUID, keys []SeatKey) ([]string, error)
}

type service struct {
	holds   HoldRepository
	seating SeatingReader
	config  *config.Config
}

func NewService(holds HoldRepository, seating SeatingReader, cfg *config.Config) Service {
	return &service{
		holds:   holds,
		seating: seating,
		config:  cfg,
	}
}

//  SEAT MAP

func (s *service) GetSeatLayout(ctx context.Context, eventID uuid.UUID) (*SeatLayoutResponse, error) {
	seating, err := s.seating.GetSeating(ctx, eventID)
	if err != nil {
		return nil, err
	}

	m := seating.SeatMap
	layout := &SeatLayoutResponse{
		EventID:        eventID.String(),
		Rows:           len(m),
		Columns:        m.Columns(),
		SeatsAmount:    m.Count(),
		AvailableSeats: m.Free(),
		SeatsMap:       m,
		RowLabels:      make([]string, len(m)),
		TicketTypes:    seating.TicketTypes,
		Held:           []string{},
		Tiers:          make([][]string, len(m)),
	}

	var free []string
	for r, row := range m {
		layout.RowLabels[r] = RowLabel(r)
		layout.Tiers[r] = make([]string, len(row))
		for c, v := range row {
			k := SeatKey{Row: r, Col: c}
			if t, err := seating.TicketTypes.Lookup(m, k); err == nil {
				layout.Tiers[r][c] = t.Tier
			}
			if v == SeatFree {
				free = append(free, k.String())
			}
		}
	}

	holders, err := s.holds.GetSeatHolders(ctx, eventID.String(), free)
	if err != nil {
		// The map itself is still correct without the hold overlay
		logger.GetDefault().WithError(err).Warn("failed to read seat holds", "event_id", eventID.String())
		return layout, nil
	}
	for _, k := range free {
		if _, held := holders[k]; held {
			layout.Held = append(layout.Held, k)
		}
	}

	return layout, nil
}

func (s *service) CheckAvailability(ctx context.Context, eventID uuid.UUID, rawKeys []string) (*SeatAvailabilityResponse, error) {
	keys, err := ParseSeatKeys(rawKeys)
	if err != nil {
		return nil, err
	}

	seating, err := s.seating.GetSeating(ctx, eventID)
	if err != nil {
		return nil, err
	}

	holders, err := s.holds.GetSeatHolders(ctx, eventID.String(), KeyStrings(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to check seat holds: %w", err)
	}

	resp := &SeatAvailabilityResponse{EventID: eventID.String()}
	for _, k := range keys {
		if !seating.SeatMap.Contains(k) {
			return nil, fmt.Errorf("%w: %s", ErrSeatNotFound, k)
		}

		state := StateFree
		switch {
		case seating.SeatMap.IsOccupied(k):
			state = StateOccupied
		case holders[k.String()] != (SeatHolder{}):
			state = StateHeld
		}

		resp.Seats = append(resp.Seats, SeatAvailabilityInfo{
			Key:       k.String(),
			Label:     k.Label(),
			Available: state == StateFree,
			State:     state,
		})
	}

	return resp, nil
}

//  SEAT HOLDING

func (s *service) HoldSeats(ctx context.Context, userID, eventID uuid.UUID, rawKeys []string) (*SeatHoldResponse, error) {
	if len(rawKeys) == 0 {
		return nil, ErrNoSeats
	}
	if limit := s.config.Booking.MaxSeatsPerTicket; limit > 0 && len(rawKeys) > limit {
		return nil, fmt.Errorf("%w: at most %d", ErrTooManySeats, limit)
	}

	keys, err := ParseSeatKeys(rawKeys)
	if err != nil {
		return nil, err
	}
	SortKeys(keys)

	seating, err := s.seating.GetSeating(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !seating.Bookable {
		return nil, ErrEventNotBookable
	}

	// Occupied seats are rejected before touching Redis
	if _, err := seating.SeatMap.Reserve(keys); err != nil {
		if errors.Is(err, ErrSeatTaken) {
			metrics.TrackSeatConflict(eventID.String(), "taken")
		}
		metrics.TrackHoldOperation("create", "rejected")
		return nil, err
	}

	seatsPriced, total, _, err := seating.TicketTypes.Quote(seating.SeatMap, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to price seats: %w", err)
	}

	holdID := uuid.New().String()
	ttl := time.Duration(holdSeconds(s.config.Redis.SeatHoldTTL)) * time.Second
	seatKeys := KeyStrings(keys)

	conflicts, err := s.holds.CreateHold(ctx, holdID, userID.String(), eventID.String(), seatKeys, ttl)
	if err != nil {
		metrics.TrackHoldOperation("create", "error")
		return nil, fmt.Errorf("failed to hold seats atomically: %w", err)
	}
	if len(conflicts) > 0 {
		metrics.TrackSeatConflict(eventID.String(), "held")
		metrics.TrackHoldOperation("create", "conflict")
		return nil, &ConflictError{Reason: ErrSeatHeld, Seats: conflicts}
	}

	metrics.TrackHoldOperation("create", "success")
	logger.GetDefault().LogHoldCreated(ctx, holdID, eventID.String(), userID.String(), len(keys), ttl)

	return &SeatHoldResponse{
		HoldID:     holdID,
		EventID:    eventID.String(),
		UserID:     userID.String(),
		Seats:      seatsPriced,
		TotalPrice: total,
		ExpiresAt:  time.Now().Add(ttl),
		TTL:        int(ttl.Seconds()),
	}, nil
}

func (s *service) ReleaseHold(ctx context.Context, holdID string, userID uuid.UUID) error {
	owner := ""
	if userID != uuid.Nil {
		owner = userID.String()
	}

	released, err := s.holds.ReleaseHold(ctx, holdID, owner)
	if err != nil {
		metrics.TrackHoldOperation("release", "error")
		return err
	}

	metrics.TrackHoldOperation("release", "success")
	logger.GetDefault().LogHoldReleased(ctx, holdID, fmt.Sprintf("released %d seats", released))
	return nil
}

func (s *service) GetHold(ctx context.Context, holdID string, userID uuid.UUID) (*SeatHoldDetails, error) {
	details, err := s.holds.GetHoldDetails(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if details.UserID != userID.String() {
		return nil, ErrHoldForbidden
	}
	return details, nil
}

// ValidateHold checks that holdID belongs to userID, is for eventID,
// is still live and covers every key.
func (s *service) ValidateHold(ctx context.Context, holdID string, userID, eventID uuid.UUID, keys []SeatKey) (*HoldValidationResult, error) {
	details, err := s.holds.GetHoldDetails(ctx, holdID)
	if err != nil {
		if errors.Is(err, ErrHoldNotFound) {
			return &HoldValidationResult{Valid: false, Reason: ErrHoldNotFound.Error()}, nil
		}
		return nil, err
	}

	if details.UserID != userID.String() {
		return &HoldValidationResult{Valid: false, Reason: ErrHoldForbidden.Error()}, nil
	}
	if details.EventID != eventID.String() {
		return &HoldValidationResult{Valid: false, Reason: "hold is for a different event"}, nil
	}
	if details.TTL <= 0 {
		return &HoldValidationResult{Valid: false, Reason: ErrHoldExpired.Error()}, nil
	}

	held := make(map[string]struct{}, len(details.SeatKeys))
	for _, k := range details.SeatKeys {
		held[k] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := held[k.String()]; !ok {
			return &HoldValidationResult{Valid: false, Reason: ErrHoldMismatch.Error(), Details: details}, nil
		}
	}

	return &HoldValidationResult{
		Valid:   true,
		Details: details,
		TTL:     details.TTL,
	}, nil
}

func (s *service) GetUserHolds(ctx context.Context, userID uuid.UUID) ([]SeatHoldDetails, error) {
	holdIDs, err := s.holds.GetUserHolds(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get user holds: %w", err)
	}

	holds := make([]SeatHoldDetails, 0, len(holdIDs))
	for _, id := range holdIDs {
		details, err := s.holds.GetHoldDetails(ctx, id)
		if err != nil {
			// expired between SMEMBERS and HGETALL
			continue
		}
		holds = append(holds, *details)
	}
	return holds, nil
}

// SeatsHeldByOthers returns the keys currently held by someone other
// than userID.
func (s *service) SeatsHeldByOthers(ctx context.Context, eventID, userID uuid.UUID, keys []SeatKey) ([]string, error) {
	holders, err := s.holds.GetSeatHolders(ctx, eventID.String(), KeyStrings(keys))
	if err != nil {
		return nil, err
	}

	var others []string
	for _, k := range keys {
		if h, ok := holders[k.String()]; ok && h.UserID != userID.String() {
			others = append(others, k.String())
		}
	}
	return others, nil
}
