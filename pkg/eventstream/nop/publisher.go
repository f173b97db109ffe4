package nop

import (
	"context"

	"github.com/atelieredu/traza/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTrace validates input and otherwise does nothing.
func (p *Publisher) PublishTrace(_ context.Context, event *eventstream.TraceRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// PublishRisk validates input and otherwise does nothing.
func (p *Publisher) PublishRisk(_ context.Context, event *eventstream.RiskDetectedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
