package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() *TicketPurchased {
	return &TicketPurchased{
		TicketID:      uuid.New(),
		Reference:     "TKT-20261018-ABC123",
		EventID:       uuid.New(),
		UserID:        uuid.New(),
		TicketType:    "vip",
		Seats:         []string{"0-1", "0-2"},
		Quantity:      2,
		Price:         decimal.RequireFromString("150.50"),
		PaymentStatus: "completed",
	}
}

func TestPublishTicketPurchased(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)

	evt := sampleEvent()
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != evt.EventID.String() {
			return errors.New("message not keyed by event id")
		}
		if msg.Topic != "ticket-events" {
			return errors.New("wrong topic")
		}
		body, _ := msg.Value.Encode()
		decoded, err := ParseTicketPurchased(body)
		if err != nil {
			return err
		}
		if !decoded.Price.Equal(evt.Price) {
			return errors.New("price changed in transit")
		}
		return nil
	})

	p := NewTicketProducer(mp, "ticket-events")
	require.NoError(t, p.PublishTicketPurchased(context.Background(), evt))
	assert.NotEqual(t, uuid.Nil, evt.ID)
	assert.False(t, evt.OccurredAt.IsZero())
	require.NoError(t, p.Close())
}

func TestPublishTicketPurchased_BrokerError(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewTicketProducer(mp, "ticket-events")
	err := p.PublishTicketPurchased(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestParseTicketPurchased_MissingIDs(t *testing.T) {
	_, err := ParseTicketPurchased([]byte(`{"reference":"x"}`))
	assert.Error(t, err)

	_, err = ParseTicketPurchased([]byte(`not json`))
	assert.Error(t, err)
}

type flakyHandler struct {
	failures int
	calls    int
	last     *TicketPurchased
}

func (h *flakyHandler) HandleTicketPurchased(_ context.Context, evt *TicketPurchased) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("database unavailable")
	}
	h.last = evt
	return nil
}

func messageFor(t *testing.T, evt *TicketPurchased, eventType string) *sarama.ConsumerMessage {
	t.Helper()
	body, err := evt.ToJSON()
	require.NoError(t, err)
	return &sarama.ConsumerMessage{
		Value: body,
		Headers: []*sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(eventType)},
		},
	}
}

func TestProcessMessage_RetriesWithBackoff(t *testing.T) {
	h := &flakyHandler{failures: 2}
	cgh := &ConsumerGroupHandler{handler: h, maxRetries: 3, backoff: time.Millisecond}

	evt := sampleEvent()
	require.NoError(t, cgh.ProcessMessage(context.Background(), messageFor(t, evt, string(EventTypeTicketPurchased))))
	assert.Equal(t, 3, h.calls)
	require.NotNil(t, h.last)
	assert.Equal(t, evt.TicketID, h.last.TicketID)
}

func TestProcessMessage_GivesUp(t *testing.T) {
	h := &flakyHandler{failures: 10}
	cgh := &ConsumerGroupHandler{handler: h, maxRetries: 2, backoff: time.Millisecond}

	err := cgh.ProcessMessage(context.Background(), messageFor(t, sampleEvent(), string(EventTypeTicketPurchased)))
	require.Error(t, err)
	assert.Equal(t, 3, h.calls)
}

func TestProcessMessage_SkipsOtherTypesAndPoison(t *testing.T) {
	h := &flakyHandler{}
	cgh := &ConsumerGroupHandler{handler: h, maxRetries: 1, backoff: time.Millisecond}

	require.NoError(t, cgh.ProcessMessage(context.Background(), messageFor(t, sampleEvent(), "ticket.refunded")))
	require.NoError(t, cgh.ProcessMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}))
	assert.Zero(t, h.calls)
}
