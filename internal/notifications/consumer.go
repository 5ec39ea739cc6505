package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// TicketEventHandler processes decoded booking events
type TicketEventHandler interface {
	HandleTicketPurchased(ctx context.Context, evt *TicketPurchased) error
}

type TicketEventConsumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeout       time.Duration
	Heartbeat            time.Duration
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig(brokers []string, groupID, topic string) *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              brokers,
		GroupID:              groupID,
		Topics:               []string{topic},
		SessionTimeout:       30 * time.Second,
		Heartbeat:            3 * time.Second,
		MaxProcessingTime:    time.Minute,
		OffsetOldest:         true,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

type KafkaTicketConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	handler       TicketEventHandler
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewKafkaTicketConsumer(config *ConsumerConfig, handler TicketEventHandler) (TicketEventConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = config.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = config.Heartbeat
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &KafkaTicketConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		handler:       handler,
	}, nil
}

func (c *KafkaTicketConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, c.cancel = context.WithCancel(ctx)

	log.Printf("📥 Starting %d ticket consumer workers for topics: %v", numWorkers, c.config.Topics)

	go c.handleErrors()

	for i := 0; i < numWorkers; i++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			c.runWorker(ctx, workerID)
		}(i)
	}

	return nil
}

func (c *KafkaTicketConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &ConsumerGroupHandler{
		handler:    c.handler,
		workerID:   workerID,
		maxRetries: c.config.MaxRetries,
		backoff:    c.config.RetryBackoffDuration,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.config.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			log.Printf("📥 Worker %d error consuming messages: %v", workerID, err)
			time.Sleep(time.Second)
		}
		if ctx.Err() != nil {
			log.Printf("📥 Worker %d shutting down", workerID)
			return
		}
	}
}

func (c *KafkaTicketConsumer) handleErrors() {
	for err := range c.consumerGroup.Errors() {
		log.Printf("📥 Consumer group error: %v", err)
	}
}

func (c *KafkaTicketConsumer) Stop() error {
	log.Println("📥 Stopping ticket consumer...")
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}

	log.Println("📥 Ticket consumer stopped")
	return nil
}

// ConsumerGroupHandler implements sarama.ConsumerGroupHandler
type ConsumerGroupHandler struct {
	handler    TicketEventHandler
	workerID   int
	maxRetries int
	backoff    time.Duration
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Printf("📥 Worker %d: Consumer group session started", h.workerID)
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Printf("📥 Worker %d: Consumer group session ended", h.workerID)
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			if err := h.ProcessMessage(session.Context(), message); err != nil {
				// left uncommitted; redelivered after a rebalance
				log.Printf("📥 Worker %d: Error processing message at offset %d: %v", h.workerID, message.Offset, err)
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// ProcessMessage decodes one record and hands it to the handler. Records
// of other event types are skipped.
func (h *ConsumerGroupHandler) ProcessMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	if t := headerValue(message, headerEventType); t != "" && t != string(EventTypeTicketPurchased) {
		return nil
	}

	evt, err := ParseTicketPurchased(message.Value)
	if err != nil {
		// poison message; retrying cannot help
		log.Printf("📥 Worker %d: dropping malformed message at offset %d: %v", h.workerID, message.Offset, err)
		return nil
	}

	return h.executeWithRetry(ctx, evt)
}

func (h *ConsumerGroupHandler) executeWithRetry(ctx context.Context, evt *TicketPurchased) error {
	for attempt := 0; ; attempt++ {
		err := h.handler.HandleTicketPurchased(ctx, evt)
		if err == nil {
			if attempt > 0 {
				log.Printf("📥 Worker %d: processed ticket %s after %d retries", h.workerID, evt.Reference, attempt)
			}
			return nil
		}

		if attempt >= h.maxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		// Exponential backoff
		delay := h.backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func headerValue(message *sarama.ConsumerMessage, key string) string {
	for _, h := range message.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
