package seats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ticketly/internal/shared/config"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSeating struct {
	seating *EventSeating
	err     error
}

func (f *fakeSeating) GetSeating(ctx context.Context, eventID uuid.UUID) (*EventSeating, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.seating, nil
}

type holdRecord struct {
	userID  string
	eventID string
	keys    []string
}

// memHolds mirrors the Redis scripts: a seat can be held by one hold at a
// time and CreateHold is all-or-nothing.
type memHolds struct {
	mu    sync.Mutex
	holds map[string]holdRecord
	seats map[string]SeatHolder
}

func newMemHolds() *memHolds {
	return &memHolds{holds: map[string]holdRecord{}, seats: map[string]SeatHolder{}}
}

func (m *memHolds) CreateHold(ctx context.Context, holdID, userID, eventID string, seatKeys []string, ttl time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var conflicts []string
	for _, k := range seatKeys {
		if _, ok := m.seats[eventID+":"+k]; ok {
			conflicts = append(conflicts, k)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}
	for _, k := range seatKeys {
		m.seats[eventID+":"+k] = SeatHolder{UserID: userID, HoldID: holdID}
	}
	m.holds[holdID] = holdRecord{userID: userID, eventID: eventID, keys: seatKeys}
	return nil, nil
}

func (m *memHolds) ReleaseHold(ctx context.Context, holdID, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[holdID]
	if !ok {
		return 0, ErrHoldNotFound
	}
	if userID != "" && h.userID != userID {
		return 0, ErrHoldForbidden
	}
	for _, k := range h.keys {
		delete(m.seats, h.eventID+":"+k)
	}
	delete(m.holds, holdID)
	return len(h.keys), nil
}

func (m *memHolds) GetHoldDetails(ctx context.Context, holdID string) (*SeatHoldDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	return &SeatHoldDetails{HoldID: holdID, UserID: h.userID, EventID: h.eventID, SeatKeys: h.keys, TTL: 600}, nil
}

func (m *memHolds) GetSeatHolders(ctx context.Context, eventID string, seatKeys []string) (map[string]SeatHolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]SeatHolder{}
	for _, k := range seatKeys {
		if h, ok := m.seats[eventID+":"+k]; ok {
			out[k] = h
		}
	}
	return out, nil
}

func (m *memHolds) GetUserHolds(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, h := range m.holds {
		if h.userID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memHolds) PreloadScripts(ctx context.Context) error { return nil }

func newSeatFixture(t *testing.T) (Service, *memHolds, *EventSeating) {
	t.Helper()

	m := NewSeatMap(20)
	m[0][0] = SeatOccupied
	seating := &EventSeating{
		EventID:     uuid.New(),
		SeatMap:     m,
		TicketTypes: SinglePrice(TierGeneral, "Regular", decimal.RequireFromString("25.00")),
		Bookable:    true,
	}

	cfg := &config.Config{}
	cfg.Booking.MaxSeatsPerTicket = 4
	cfg.Redis.SeatHoldTTL = 10 * time.Minute

	holds := newMemHolds()
	return NewService(holds, &fakeSeating{seating: seating}, cfg), holds, seating
}

func TestHoldSeats(t *testing.T) {
	svc, _, seating := newSeatFixture(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	hold, err := svc.HoldSeats(ctx, alice, seating.EventID, []string{"0-2", "A-2"})
	require.NoError(t, err)
	assert.Len(t, hold.Seats, 2)
	assert.Equal(t, "0-1", hold.Seats[0].Key, "keys are sorted and canonical")
	assert.True(t, hold.TotalPrice.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 600, hold.TTL)

	t.Run("overlapping hold conflicts", func(t *testing.T) {
		_, err := svc.HoldSeats(ctx, bob, seating.EventID, []string{"0-2", "0-3"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatHeld)

		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, []string{"0-2"}, conflict.Seats)
	})

	t.Run("sold seat is rejected", func(t *testing.T) {
		_, err := svc.HoldSeats(ctx, bob, seating.EventID, []string{"0-0"})
		assert.ErrorIs(t, err, ErrSeatTaken)
	})

	t.Run("limits", func(t *testing.T) {
		_, err := svc.HoldSeats(ctx, bob, seating.EventID, nil)
		assert.ErrorIs(t, err, ErrNoSeats)

		_, err = svc.HoldSeats(ctx, bob, seating.EventID, []string{"1-0", "1-1", "1-2", "1-3", "1-4"})
		assert.ErrorIs(t, err, ErrTooManySeats)
	})

	t.Run("release frees the seats", func(t *testing.T) {
		assert.ErrorIs(t, svc.ReleaseHold(ctx, hold.HoldID, bob), ErrHoldForbidden)
		require.NoError(t, svc.ReleaseHold(ctx, hold.HoldID, alice))

		_, err := svc.HoldSeats(ctx, bob, seating.EventID, []string{"0-2"})
		assert.NoError(t, err)
	})
}

func TestHoldSeats_ConcurrentSingleWinner(t *testing.T) {
	svc, _, seating := newSeatFixture(t)

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.HoldSeats(context.Background(), uuid.New(), seating.EventID, []string{"1-1", "1-2"}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestHoldSeats_NotBookable(t *testing.T) {
	svc, _, seating := newSeatFixture(t)
	seating.Bookable = false

	_, err := svc.HoldSeats(context.Background(), uuid.New(), seating.EventID, []string{"0-1"})
	assert.ErrorIs(t, err, ErrEventNotBookable)
}

func TestValidateHold(t *testing.T) {
	svc, _, seating := newSeatFixture(t)
	ctx := context.Background()
	alice := uuid.New()

	hold, err := svc.HoldSeats(ctx, alice, seating.EventID, []string{"2-0", "2-1"})
	require.NoError(t, err)

	keys, _ := ParseSeatKeys([]string{"2-0", "2-1"})
	res, err := svc.ValidateHold(ctx, hold.HoldID, alice, seating.EventID, keys)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = svc.ValidateHold(ctx, hold.HoldID, uuid.New(), seating.EventID, keys)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ErrHoldForbidden.Error(), res.Reason)

	wider, _ := ParseSeatKeys([]string{"2-0", "2-1", "2-2"})
	res, err = svc.ValidateHold(ctx, hold.HoldID, alice, seating.EventID, wider)
	require.NoError(t, err)
	assert.Equal(t, ErrHoldMismatch.Error(), res.Reason)

	res, err = svc.ValidateHold(ctx, uuid.NewString(), alice, seating.EventID, keys)
	require.NoError(t, err)
	assert.Equal(t, ErrHoldNotFound.Error(), res.Reason)

	others, err := svc.SeatsHeldByOthers(ctx, seating.EventID, uuid.New(), wider)
	require.NoError(t, err)
	assert.Equal(t, []string{"2-0", "2-1"}, others)

	mine, err := svc.SeatsHeldByOthers(ctx, seating.EventID, alice, wider)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestGetSeatLayout(t *testing.T) {
	svc, _, seating := newSeatFixture(t)
	ctx := context.Background()

	_, err := svc.HoldSeats(ctx, uuid.New(), seating.EventID, []string{"0-1"})
	require.NoError(t, err)

	layout, err := svc.GetSeatLayout(ctx, seating.EventID)
	require.NoError(t, err)
	assert.Equal(t, 20, layout.SeatsAmount)
	assert.Equal(t, 19, layout.AvailableSeats)
	assert.Equal(t, []string{"0-1"}, layout.Held)
	assert.Equal(t, "A", layout.RowLabels[0])
	assert.Equal(t, TierGeneral, layout.Tiers[0][0])

	avail, err := svc.CheckAvailability(ctx, seating.EventID, []string{"0-0", "0-1", "0-2"})
	require.NoError(t, err)
	states := []string{avail.Seats[0].State, avail.Seats[1].State, avail.Seats[2].State}
	assert.Equal(t, []string{StateOccupied, StateHeld, StateFree}, states)

	_, err = svc.CheckAvailability(ctx, seating.EventID, []string{"40-0"})
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestHoldRepository_GetSeatHolders(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewHoldRepository(client)

	mock.ExpectMGet("seat_hold:evt-1:0-1", "seat_hold:evt-1:0-2").
		SetVal([]interface{}{"user-1:hold-1", nil})

	holders, err := repo.GetSeatHolders(context.Background(), "evt-1", []string{"0-1", "0-2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]SeatHolder{"0-1": {UserID: "user-1", HoldID: "hold-1"}}, holders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepository_GetHoldDetailsMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewHoldRepository(client)

	mock.ExpectHGetAll("hold:missing").SetVal(map[string]string{})

	_, err := repo.GetHoldDetails(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrHoldNotFound)
}

func TestHoldSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int
	}{
		{10 * time.Minute, 600},
		{1500 * time.Millisecond, 2},
		{500 * time.Millisecond, 1},
		{0, 1},
		{-time.Second, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, holdSeconds(tt.ttl), tt.ttl.String())
	}
}

func TestHoldSeats_SubSecondTTL(t *testing.T) {
	svc, _, seating := newSeatFixture(t)
	svc.(*service).config.Redis.SeatHoldTTL = 500 * time.Millisecond

	hold, err := svc.HoldSeats(context.Background(), uuid.New(), seating.EventID, []string{"3-0"})
	require.NoError(t, err)
	assert.Equal(t, 1, hold.TTL)
}

func TestHoldRepository_CreateHoldNeverSendsZeroTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewHoldRepository(client)

	mock.ExpectEvalSha(holdSeatsScript.Hash(), []string{"hold-1"}, "user-1", "evt-1", "1", "0-1").
		SetVal([]interface{}{int64(1), "ok"})

	conflicts, err := repo.CreateHold(context.Background(), "hold-1", "user-1", "evt-1", []string{"0-1"}, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
