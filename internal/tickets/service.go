package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/payments"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/constants"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"
	"ticketly/pkg/metrics"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize   = 256
	publishTimeout  = 5 * time.Second
	maxBookAttempts = 3
)

// HoldService is the part of the seat module checkout relies on.
type HoldService interface {
	ValidateHold(ctx context.Context, holdID string, userID, eventID uuid.UUID, keys []seats.SeatKey) (*seats.HoldValidationResult, error)
	SeatsHeldByOthers(ctx context.Context, eventID, userID uuid.UUID, keys []seats.SeatKey) ([]string, error)
	ReleaseHold(ctx context.Context, holdID string, userID uuid.UUID) error
}

// EventCache drops cached copies of an event after its seats change.
type EventCache interface {
	InvalidateEvent(ctx context.Context, id uuid.UUID)
}

// UserDirectory resolves the contact details put on ticket events.
type UserDirectory interface {
	GetUserContact(ctx context.Context, userID uuid.UUID) (email, name string, err error)
}

type Service interface {
	// Purchase books req.SeatsNumber for req.User. actorID is the
	// authenticated caller; only admins may book for someone else.
	Purchase(ctx context.Context, actorID uuid.UUID, isAdmin bool, req PurchaseRequest) (*Ticket, error)
	GetUserTickets(ctx context.Context, userID uuid.UUID, query TicketListQuery) (*PaginatedTickets, error)
	GetUserTicket(ctx context.Context, userID, ticketID uuid.UUID) (*Ticket, error)
	QRCode(ctx context.Context, userID, ticketID uuid.UUID, size int) ([]byte, error)
}

type service struct {
	repo      Repository
	processor payments.Processor
	config    config.BookingConfig

	holds        HoldService
	eventCache   EventCache
	cacheService cache.Service
	producer     notifications.TicketEventProducer
	directory    UserDirectory

	now func() time.Time
}

// Option wires an optional collaborator into the service.
type Option func(*service)

func WithHoldService(holds HoldService) Option {
	return func(s *service) { s.holds = holds }
}

func WithEventCache(eventCache EventCache) Option {
	return func(s *service) { s.eventCache = eventCache }
}

func WithCacheService(cacheService cache.Service) Option {
	return func(s *service) { s.cacheService = cacheService }
}

func WithProducer(producer notifications.TicketEventProducer) Option {
	return func(s *service) {
		if producer != nil {
			s.producer = producer
		}
	}
}

func WithUserDirectory(directory UserDirectory) Option {
	return func(s *service) { s.directory = directory }
}

func NewService(repo Repository, processor payments.Processor, cfg config.BookingConfig, opts ...Option) Service {
	s := &service{
		repo:      repo,
		processor: processor,
		config:    cfg,
		producer:  notifications.NoopProducer{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

//  CHECKOUT

func (s *service) Purchase(ctx context.Context, actorID uuid.UUID, isAdmin bool, req PurchaseRequest) (*Ticket, error) {
	start := s.now()

	if req.User != actorID && !isAdmin {
		return nil, ErrForbidden
	}

	if len(req.SeatsNumber) == 0 {
		return nil, seats.ErrNoSeats
	}
	if limit := s.config.MaxSeatsPerTicket; limit > 0 && len(req.SeatsNumber) > limit {
		return nil, fmt.Errorf("%w: at most %d", seats.ErrTooManySeats, limit)
	}
	keys, err := seats.ParseSeatKeys(req.SeatsNumber)
	if err != nil {
		return nil, err
	}
	seats.SortKeys(keys)

	if req.Quantity != 0 && req.Quantity != len(keys) {
		return nil, ErrQuantityMismatch
	}

	idemKey := strings.TrimSpace(req.IdempotencyKey)
	if idemKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, req.User, idemKey)
		if err == nil {
			return s.replay(existing, start), nil
		}
		if !errors.Is(err, ErrTicketNotFound) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	if err := s.checkHolds(ctx, req, keys); err != nil {
		if errors.Is(err, seats.ErrSeatConflict) {
			metrics.TrackBooking(metrics.ResultConflict, time.Since(start))
		}
		return nil, err
	}

	payment, err := s.processor.Tokenize(ctx, req.PaymentDetails)
	if err != nil {
		metrics.TrackBooking(metrics.ResultRejected, time.Since(start))
		return nil, err
	}

	var ticket *Ticket
	for attempt := 1; ; attempt++ {
		ticket, err = s.repo.Book(ctx, req.Event, func(event *events.Event) (*Reservation, error) {
			return s.reserve(event, req, keys, payment, idemKey)
		})
		if !errors.Is(err, ErrDuplicateTicket) {
			break
		}
		if idemKey != "" {
			// a concurrent request with the same key committed first
			if existing, findErr := s.repo.FindByIdempotencyKey(ctx, req.User, idemKey); findErr == nil {
				return s.replay(existing, start), nil
			}
		}
		// reference collision; reserve draws a new ticket id
		if attempt == maxBookAttempts {
			break
		}
	}
	if err != nil {
		return nil, s.bookingFailed(ctx, req, err, start)
	}

	s.afterCommit(ctx, req, ticket)

	metrics.TrackBooking(metrics.ResultSuccess, time.Since(start))
	metrics.TrackSeatsSold(ticket.EventID.String(), ticket.Quantity)
	logger.GetDefault().LogTicketPurchased(ctx, ticket.ID.String(), ticket.EventID.String(),
		ticket.UserID.String(), ticket.Quantity, ticket.Price.StringFixed(2))

	return ticket, nil
}

func (s *service) replay(ticket *Ticket, start time.Time) *Ticket {
	ticket.Replayed = true
	metrics.TrackBooking(metrics.ResultReplay, time.Since(start))
	return ticket
}

// checkHolds validates the caller's hold and rejects seats another user
// is holding. Without a seat module every seat counts as unheld.
func (s *service) checkHolds(ctx context.Context, req PurchaseRequest, keys []seats.SeatKey) error {
	if s.holds == nil {
		return nil
	}

	if req.HoldID != "" {
		result, err := s.holds.ValidateHold(ctx, req.HoldID, req.User, req.Event, keys)
		if err != nil {
			return fmt.Errorf("failed to validate hold: %w", err)
		}
		if !result.Valid {
			return fmt.Errorf("%w: %s", ErrInvalidHold, result.Reason)
		}
	}

	held, err := s.holds.SeatsHeldByOthers(ctx, req.Event, req.User, keys)
	if err != nil {
		// Holds are advisory; the row lock still decides the booking
		logger.GetDefault().WithError(err).Warn("failed to read seat holds", "event_id", req.Event.String())
		return nil
	}
	if len(held) > 0 {
		metrics.TrackSeatConflict(req.Event.String(), "held")
		logger.GetDefault().LogSeatConflict(ctx, req.Event.String(), req.User.String(), held)
		return &seats.ConflictError{Reason: seats.ErrSeatHeld, Seats: held}
	}
	return nil
}

// reserve runs inside the booking transaction with the event row locked.
func (s *service) reserve(event *events.Event, req PurchaseRequest, keys []seats.SeatKey, payment *payments.PaymentDetails, idemKey string) (*Reservation, error) {
	now := s.now()
	if !event.IsBookable(now) {
		return nil, seats.ErrEventNotBookable
	}

	seatsMap, err := event.SeatsMap.Reserve(keys)
	if err != nil {
		return nil, err
	}

	priced, total, tier, err := event.TicketTypes.Quote(event.SeatsMap, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to price seats: %w", err)
	}

	if req.TicketType != "" && req.TicketType != seats.TierMixed && !event.TicketTypes.Has(req.TicketType) {
		return nil, fmt.Errorf("%w: %s", seats.ErrTierNotOfferedHere, req.TicketType)
	}
	if req.Price != nil && !req.Price.Equal(total) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrPriceMismatch, total.StringFixed(2), req.Price.StringFixed(2))
	}

	status := StatusReserved
	if payment.PaymentStatus == payments.StatusCompleted {
		status = StatusPaid
	}

	id := uuid.New()
	ticket := &Ticket{
		ID:             id,
		Reference:      newReference(id, now),
		EventID:        event.ID,
		UserID:         req.User,
		TicketType:     tier,
		SeatsNumber:    seats.KeyStrings(keys),
		Seats:          priced,
		Price:          total,
		Quantity:       len(keys),
		Status:         status,
		PaymentDetails: *payment,
		QRCode:         s.ticketURL(req.User, id),
	}
	if idemKey != "" {
		ticket.IdempotencyKey = &idemKey
	}

	return &Reservation{Ticket: ticket, SeatsMap: seatsMap}, nil
}

func (s *service) bookingFailed(ctx context.Context, req PurchaseRequest, err error, start time.Time) error {
	switch {
	case errors.Is(err, seats.ErrSeatConflict):
		var conflict *seats.ConflictError
		if errors.As(err, &conflict) {
			metrics.TrackSeatConflict(req.Event.String(), "taken")
			logger.GetDefault().LogSeatConflict(ctx, req.Event.String(), req.User.String(), conflict.Seats)
		}
		metrics.TrackBooking(metrics.ResultConflict, time.Since(start))
	case errors.Is(err, ErrConcurrentUpdate):
		metrics.TrackBooking(metrics.ResultConflict, time.Since(start))
	case errors.Is(err, ErrPriceMismatch), errors.Is(err, seats.ErrEventNotBookable),
		errors.Is(err, seats.ErrTierNotOfferedHere), errors.Is(err, seats.ErrSeatNotFound):
		metrics.TrackBooking(metrics.ResultRejected, time.Since(start))
	default:
		metrics.TrackBooking(metrics.ResultError, time.Since(start))
		logger.GetDefault().ErrorWithContext(ctx, "ticket booking failed", err, map[string]interface{}{
			"event_id": req.Event.String(),
			"user_id":  req.User.String(),
		})
	}
	return err
}

// afterCommit runs the side effects of a committed booking. None of them
// can fail the request.
func (s *service) afterCommit(ctx context.Context, req PurchaseRequest, ticket *Ticket) {
	if req.HoldID != "" && s.holds != nil {
		if err := s.holds.ReleaseHold(ctx, req.HoldID, req.User); err != nil && !errors.Is(err, seats.ErrHoldNotFound) {
			logger.GetDefault().WithError(err).Warn("failed to release hold after booking", "hold_id", req.HoldID)
		}
	}

	if s.eventCache != nil {
		s.eventCache.InvalidateEvent(ctx, ticket.EventID)
	}
	if s.cacheService != nil {
		if err := s.cacheService.Delete(ctx, constants.BuildUserTicketsKey(ticket.UserID.String())); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to invalidate user tickets cache", "user_id", ticket.UserID.String())
		}
	}

	s.publish(ctx, ticket)
}

func (s *service) publish(ctx context.Context, ticket *Ticket) {
	evt := &notifications.TicketPurchased{
		ID:            uuid.New(),
		TicketID:      ticket.ID,
		Reference:     ticket.Reference,
		EventID:       ticket.EventID,
		UserID:        ticket.UserID,
		TicketType:    ticket.TicketType,
		Seats:         ticket.SeatsNumber,
		Quantity:      ticket.Quantity,
		Price:         ticket.Price,
		PaymentStatus: string(ticket.PaymentDetails.PaymentStatus),
		OccurredAt:    ticket.CreatedAt,
	}

	if s.directory != nil {
		email, name, err := s.directory.GetUserContact(ctx, ticket.UserID)
		if err != nil {
			logger.GetDefault().WithError(err).Warn("failed to load user contact", "user_id", ticket.UserID.String())
		}
		evt.UserEmail, evt.UserName = email, name
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.producer.PublishTicketPurchased(pubCtx, evt); err != nil {
		logger.GetDefault().WithError(err).Error("failed to publish ticket event", "ticket_id", ticket.ID.String())
	}
}

func (s *service) ticketURL(userID, ticketID uuid.UUID) string {
	return fmt.Sprintf("%s/tickets/%s/%s", strings.TrimRight(s.config.PublicBaseURL, "/"), userID, ticketID)
}

// newReference builds TKT-YYYYMMDD-XXXXXXXXXXXXXXXX from the first 8
// bytes of the ticket id.
func newReference(id uuid.UUID, now time.Time) string {
	return fmt.Sprintf("TKT-%s-%X", now.UTC().Format("20060102"), id[:8])
}

//  RETRIEVAL

func (s *service) GetUserTickets(ctx context.Context, userID uuid.UUID, query TicketListQuery) (*PaginatedTickets, error) {
	cacheable := s.cacheService != nil && query == (TicketListQuery{})
	key := constants.BuildUserTicketsKey(userID.String())

	if cacheable {
		var cached PaginatedTickets
		if err := s.cacheService.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	tickets, total, err := s.repo.GetUserTickets(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get user tickets: %w", err)
	}
	if tickets == nil {
		tickets = []Ticket{}
	}

	result := &PaginatedTickets{
		Tickets:    tickets,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
	}

	if cacheable {
		if err := s.cacheService.Set(ctx, key, result, constants.TTL_USER_TICKETS); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to cache user tickets", "user_id", userID.String())
		}
	}
	return result, nil
}

func (s *service) GetUserTicket(ctx context.Context, userID, ticketID uuid.UUID) (*Ticket, error) {
	return s.repo.GetUserTicket(ctx, userID, ticketID)
}

// QRCode renders the ticket URL as a PNG of size x size pixels.
func (s *service) QRCode(ctx context.Context, userID, ticketID uuid.UUID, size int) ([]byte, error) {
	ticket, err := s.repo.GetUserTicket(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = s.config.QRCodeSize
	}
	if size == 0 {
		size = defaultQRSize
	}

	content := ticket.QRCode
	if content == "" {
		content = s.ticketURL(ticket.UserID, ticket.ID)
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}
