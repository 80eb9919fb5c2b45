// Package events publishes meeting lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ethanbaker/minutes/internal/metrics"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives an event after every successful processing run
const DefaultTopic = "meetings.processed"

// ProcessedEvent describes the result of one processing run
type ProcessedEvent struct {
	MeetingID   string    `json:"meeting_id"`
	Summary     string    `json:"summary"`
	Decisions   int       `json:"decisions"`
	ActionItems int       `json:"action_items"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Config holds Kafka publisher configuration
type Config struct {
	Brokers []string
	Topic   string
}

// writer is the part of kafka.Writer the publisher uses
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes processed-meeting events to a Kafka topic. Without brokers
// it only logs them
type Publisher struct {
	writer  writer
	topic   string
	enabled bool
	metrics *metrics.Metrics
}

// New creates a publisher. A nil config or empty broker list disables Kafka
func New(cfg *Config, m *metrics.Metrics) *Publisher {
	if m == nil {
		m = metrics.Default
	}

	if cfg == nil || len(cfg.Brokers) == 0 {
		log.Printf("[EVENTS]: Kafka disabled, using log-only mode")
		topic := DefaultTopic
		if cfg != nil && cfg.Topic != "" {
			topic = cfg.Topic
		}
		return &Publisher{topic: topic, metrics: m}
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{Dial: dialer.DialFunc},
	}

	log.Printf("[EVENTS]: Kafka publisher initialized (brokers=%v, topic=%s)", cfg.Brokers, topic)

	return &Publisher{writer: w, topic: topic, enabled: true, metrics: m}
}

// Topic returns the topic events are written to
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishProcessed publishes a processed-meeting event keyed by meeting id
func (p *Publisher) PublishProcessed(ctx context.Context, event ProcessedEvent) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if !p.enabled || p.writer == nil {
		log.Printf("[EVENTS]: %s %s", p.topic, payload)
		p.metrics.RecordPublish(p.topic, nil, time.Since(start).Seconds())
		return nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.MeetingID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(p.topic)},
		},
	})
	p.metrics.RecordPublish(p.topic, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close flushes and closes the Kafka writer
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
