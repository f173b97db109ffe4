package eventstream

import "context"

// Publisher publishes trace and risk events to an event stream backend.
// Publishing is best-effort from the gateway's point of view: a failed
// publish is logged, never surfaced to the student.
type Publisher interface {
	PublishTrace(ctx context.Context, event *TraceRecordedEvent) error
	PublishRisk(ctx context.Context, event *RiskDetectedEvent) error
	Close() error
}
