package eventstream

import (
	"time"

	"github.com/atelieredu/traza/pkg/cognitive"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTraceRecorded is emitted after a trace is persisted.
	EventTypeTraceRecorded = "traza.trace.recorded"

	// EventTypeRiskDetected is emitted after the risk analyst records a
	// new risk.
	EventTypeRiskDetected = "traza.risk.detected"
)

// TraceRecordedEvent is a transport-neutral event payload for a persisted
// trace.
type TraceRecordedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Trace         cognitive.Trace `json:"trace"`
}

// RiskDetectedEvent is a transport-neutral event payload for a newly
// detected risk.
type RiskDetectedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Risk          cognitive.Risk `json:"risk"`
}
