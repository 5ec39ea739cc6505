package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// TicketEventProducer publishes booking events
type TicketEventProducer interface {
	PublishTicketPurchased(ctx context.Context, evt *TicketPurchased) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka ticket producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

func DefaultKafkaProducerConfig(brokers []string, topic string) *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          brokers,
		Topic:            topic,
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// SaramaConfig builds the producer side sarama configuration
func (c *KafkaProducerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = c.RequiredAcks
	saramaConfig.Producer.Compression = c.CompressionType
	saramaConfig.Producer.Retry.Max = c.RetryMax
	saramaConfig.Producer.Timeout = c.Timeout
	saramaConfig.Producer.Idempotent = c.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = c.MaxMessageBytes

	// idempotent producer requires a single in-flight request
	if c.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps an event's sales on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	return saramaConfig
}

type KafkaTicketProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaTicketProducer creates a new Kafka ticket event producer
func NewKafkaTicketProducer(config *KafkaProducerConfig) (TicketEventProducer, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, config.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("📤 Kafka ticket producer created successfully")
	return NewTicketProducer(producer, config.Topic), nil
}

// NewTicketProducer wraps an existing sarama producer
func NewTicketProducer(producer sarama.SyncProducer, topic string) *KafkaTicketProducer {
	return &KafkaTicketProducer{producer: producer, topic: topic}
}

// PublishTicketPurchased publishes a single booking event to Kafka
func (p *KafkaTicketProducer) PublishTicketPurchased(ctx context.Context, evt *TicketPurchased) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	messageBytes, err := evt.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.PartitionKey()),
		Value: sarama.ByteEncoder(messageBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(EventTypeTicketPurchased)},
			{Key: []byte("message_id"), Value: []byte(evt.ID.String())},
			{Key: []byte("ticket_id"), Value: []byte(evt.TicketID.String())},
			{Key: []byte("producer"), Value: []byte("ticketly")},
		},
		Timestamp: evt.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send ticket event to Kafka: %w", err)
	}

	log.Printf("📤 Ticket event published - Topic: %s, Partition: %d, Offset: %d, Ticket: %s",
		p.topic, partition, offset, evt.Reference)
	return nil
}

// Close closes the Kafka producer
func (p *KafkaTicketProducer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		log.Printf("📤 Kafka ticket producer closed")
	}
	return nil
}

// NoopProducer is used when Kafka is disabled
type NoopProducer struct{}

func (NoopProducer) PublishTicketPurchased(context.Context, *TicketPurchased) error { return nil }

func (NoopProducer) Close() error { return nil }
