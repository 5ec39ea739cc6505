package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ticketly/internal/payments"
	"ticketly/internal/seats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hundred() Pricer {
	return FlatPricer(decimal.NewFromInt(100))
}

func TestSelectionToggle(t *testing.T) {
	m := seats.SeatMap{{0, 0, 1}, {0, 0}}
	sel := NewSelection(m, hundred())

	assert.True(t, sel.Toggle(0, 1))
	assert.True(t, sel.Toggle(0, 0))
	assert.Equal(t, 2, sel.SelectedCount())
	assert.True(t, sel.TotalPrice().Equal(decimal.NewFromInt(200)))
	assert.Equal(t, []string{"0-0", "0-1"}, sel.SelectedKeys())

	// toggling twice restores the previous state
	assert.True(t, sel.Toggle(1, 1))
	assert.False(t, sel.Toggle(1, 1))
	assert.False(t, sel.IsSelected(1, 1))
	assert.True(t, sel.TotalPrice().Equal(decimal.NewFromInt(200)))

	// occupied and out of range seats are ignored
	assert.False(t, sel.Toggle(0, 2))
	assert.False(t, sel.Toggle(1, 2))
	assert.False(t, sel.Toggle(-1, 0))
	assert.Equal(t, 2, sel.SelectedCount())

	sel.Clear()
	assert.Zero(t, sel.SelectedCount())
	assert.True(t, sel.TotalPrice().IsZero())
}

func TestSelectionTierPricing(t *testing.T) {
	m := seats.NewSeatMap(12)
	list := seats.PriceList{
		{Tier: seats.TierVIP, Price: decimal.NewFromInt(80), Capacity: 4},
		{Tier: seats.TierGeneral, Price: decimal.NewFromInt(30)},
	}
	sel := NewSelection(m, TierPricer(m, list))

	require.True(t, sel.Toggle(0, 0))
	require.True(t, sel.Toggle(2, 0))
	assert.True(t, sel.TotalPrice().Equal(decimal.NewFromInt(110)), sel.TotalPrice().String())
}

func validCard() payments.CardInput {
	return payments.CardInput{
		PaymentMethod: payments.MethodCard,
		CardName:      "Grace Hopper",
		CardNumber:    "5555 5555 5555 4444",
		ExpiryDate:    "08/31",
		CVC:           "321",
	}
}

func TestCheckout(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	event := &Event{ID: uuid.New(), SeatsMap: seats.SeatMap{{0, 0, 0}}}
	user := uuid.New()

	_, err := checkoutAt(NewSelection(event.SeatsMap, hundred()), event, user, "", validCard(), now)
	assert.ErrorIs(t, err, ErrEmptySelection)

	sel := NewSelection(event.SeatsMap, hundred())
	sel.Toggle(0, 2)
	sel.Toggle(0, 0)

	expired := validCard()
	expired.ExpiryDate = "09/26"
	_, err = checkoutAt(sel, event, user, "", expired, now)
	assert.ErrorIs(t, err, payments.ErrInvalidExpiry)

	req, err := checkoutAt(sel, event, user, seats.TierGeneral, validCard(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"0-0", "0-2"}, req.SeatsNumber)
	assert.Equal(t, 2, req.Quantity)
	assert.True(t, req.Price.Equal(decimal.NewFromInt(200)))
	assert.NotEmpty(t, req.IdempotencyKey)
	assert.Equal(t, 2, sel.SelectedCount())
}

func TestCheckoutWithHold(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	event := &Event{ID: uuid.New(), SeatsMap: seats.SeatMap{{0, 0, 0}}}
	user := uuid.New()

	sel := NewSelection(event.SeatsMap, hundred())
	sel.Toggle(0, 0)
	sel.Toggle(0, 1)

	hold := &Hold{
		HoldID:    uuid.NewString(),
		EventID:   event.ID.String(),
		Seats:     []seats.PricedSeat{{Key: "0-0"}, {Key: "0-1"}},
		ExpiresAt: now.Add(5 * time.Minute),
	}

	req, err := checkoutAt(sel, event, user, "", validCard(), now, WithHold(hold))
	require.NoError(t, err)
	assert.Equal(t, hold.HoldID, req.HoldID)

	req, err = checkoutAt(sel, event, user, "", validCard(), now)
	require.NoError(t, err)
	assert.Empty(t, req.HoldID)

	t.Run("hold must cover the selection", func(t *testing.T) {
		sel.Toggle(0, 2)
		defer sel.Toggle(0, 2)
		_, err := checkoutAt(sel, event, user, "", validCard(), now, WithHold(hold))
		assert.ErrorIs(t, err, ErrHoldMismatch)
	})

	t.Run("hold for another event", func(t *testing.T) {
		other := *hold
		other.EventID = uuid.NewString()
		_, err := checkoutAt(sel, event, user, "", validCard(), now, WithHold(&other))
		assert.ErrorIs(t, err, ErrHoldMismatch)
	})

	t.Run("expired hold", func(t *testing.T) {
		_, err := checkoutAt(sel, event, user, "", validCard(), now.Add(time.Hour), WithHold(hold))
		assert.ErrorIs(t, err, ErrHoldExpired)
	})
}

func envelopeBody(status int, message string, data, errs interface{}) []byte {
	body := map[string]interface{}{
		"status":      "success",
		"status_code": status,
		"success":     status < 400,
		"message":     message,
	}
	if status >= 400 {
		body["status"] = "error"
	}
	if data != nil {
		body["data"] = data
	}
	if errs != nil {
		body["errors"] = errs
	}
	b, _ := json.Marshal(body)
	return b
}

func testRequest(sel *Selection) *TicketRequest {
	req, _ := checkoutAt(sel, &Event{ID: uuid.New()}, uuid.New(), "", validCard(),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return req
}

func TestBuyTicketsRetriesWithSameIdempotencyKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()

		assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(envelopeBody(http.StatusCreated, "ticket checkout completed!!",
			map[string]interface{}{"id": uuid.NewString(), "reference": "TKT-20261018-0A1B2C", "price": "200"}, nil))
	}))
	defer srv.Close()

	sel := NewSelection(seats.SeatMap{{0, 0}}, hundred())
	sel.Toggle(0, 0)
	sel.Toggle(0, 1)
	req := testRequest(sel)

	c := NewClient(srv.URL, WithToken("t0k"), WithRetries(3, time.Millisecond))
	ticket, err := c.BuyTickets(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "TKT-20261018-0A1B2C", ticket.Reference)

	require.Len(t, keys, 3)
	for _, k := range keys {
		assert.Equal(t, req.IdempotencyKey, k)
	}
}

func TestBuyTicketsReportsReservationFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sel := NewSelection(seats.SeatMap{{0, 0}}, hundred())
	sel.Toggle(0, 1)
	req := testRequest(sel)

	c := NewClient(srv.URL, WithRetries(2, time.Millisecond))
	ticket, err := c.BuyTickets(context.Background(), req)
	assert.Nil(t, ticket)
	assert.ErrorIs(t, err, ErrReservationFailed)
	assert.Equal(t, "connection error, can't reserve your tickets", err.Error())
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	// the selection survives a failed purchase
	assert.Equal(t, []string{"0-1"}, sel.SelectedKeys())
}

func TestBuyTicketsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	sel := NewSelection(seats.SeatMap{{0}}, hundred())
	sel.Toggle(0, 0)

	c := NewClient(url, WithRetries(1, time.Millisecond))
	_, err := c.BuyTickets(context.Background(), testRequest(sel))
	assert.ErrorIs(t, err, ErrReservationFailed)
}

func TestBuyTicketsConflictIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write(envelopeBody(http.StatusConflict, "seat conflict", nil,
			map[string]interface{}{"reason": "seat already taken", "conflicts": []string{"0-0"}}))
	}))
	defer srv.Close()

	sel := NewSelection(seats.SeatMap{{0}}, hundred())
	sel.Toggle(0, 0)

	c := NewClient(srv.URL, WithRetries(3, time.Millisecond))
	_, err := c.BuyTickets(context.Background(), testRequest(sel))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSeatConflict)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"0-0"}, apiErr.Conflicts)
	assert.Equal(t, "seat conflict", apiErr.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetEventAndTickets(t *testing.T) {
	eventID, userID := uuid.New(), uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/"+eventID.String(), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(envelopeBody(http.StatusOK, "ok", map[string]interface{}{
			"id":          eventID.String(),
			"name":        "Opera",
			"seatsMap":    [][]int{{0, 1}},
			"ticketTypes": []map[string]interface{}{{"tier": "general", "price": "15", "capacity": 0}},
		}, nil))
	})
	mux.HandleFunc("/api/tickets/"+userID.String(), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(envelopeBody(http.StatusOK, "get user tickets completed!!", map[string]interface{}{
			"tickets":    []map[string]interface{}{{"reference": "TKT-1"}},
			"totalCount": 1,
		}, nil))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)
	event, err := c.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, "Opera", event.Name)

	sel := event.NewSelection()
	assert.False(t, sel.Toggle(0, 1))
	assert.True(t, sel.Toggle(0, 0))
	assert.True(t, sel.TotalPrice().Equal(decimal.NewFromInt(15)))

	list, err := c.GetUserTickets(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.TotalCount)

	_, err = c.GetTicket(context.Background(), userID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(20*time.Millisecond), WithRetries(0, 0))
	start := time.Now()
	_, err := c.GetEvent(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
