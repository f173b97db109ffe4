// Package kafka publishes eventstream payloads to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/atelieredu/traza/pkg/eventstream"
)

// Config holds Kafka publisher settings.
type Config struct {
	// Brokers is the bootstrap broker list, e.g. ["localhost:9092"].
	Brokers []string

	// Topic receives every event type; consumers filter on event_type.
	Topic string
}

// Publisher writes events to Kafka, keyed by session id so one session's
// events stay ordered within a partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafkago.Hash{},
		},
	}, nil
}

// PublishTrace writes a trace-recorded event.
func (p *Publisher) PublishTrace(ctx context.Context, event *eventstream.TraceRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.Trace.SessionID, event)
}

// PublishRisk writes a risk-detected event.
func (p *Publisher) PublishRisk(ctx context.Context, event *eventstream.RiskDetectedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.Risk.SessionID, event)
}

func (p *Publisher) publish(ctx context.Context, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
