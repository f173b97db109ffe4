package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/logger"
	"github.com/atelieredu/traza/pkg/storage"
)

// DefaultKAnonymity is the k used when a request does not name one.
const DefaultKAnonymity = 5

// ErrNoData is returned when nothing matches the export filters.
var ErrNoData = errors.New("no data matches the export filters")

// Request selects and configures one export run. Zero include flags mean
// everything is included.
type Request struct {
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ActivityIDs []string   `json:"activity_ids,omitempty"`

	IncludeSessions    bool `json:"include_sessions"`
	IncludeTraces      bool `json:"include_traces"`
	IncludeRisks       bool `json:"include_risks"`
	IncludeEvaluations bool `json:"include_evaluations"`

	// KAnonymity is the minimum equivalence-class size. Defaults to
	// DefaultKAnonymity when zero.
	KAnonymity int `json:"k_anonymity,omitempty"`

	// NoiseEpsilon, when positive, adds Laplace noise with this epsilon
	// to evaluation scores.
	NoiseEpsilon float64 `json:"noise_epsilon,omitempty"`
}

func (r Request) includeAll() bool {
	return !r.IncludeSessions && !r.IncludeTraces && !r.IncludeRisks && !r.IncludeEvaluations
}

// Dataset is the anonymized export payload.
type Dataset struct {
	Sessions    []SessionRecord    `json:"sessions,omitempty"`
	Traces      []TraceRecord      `json:"traces,omitempty"`
	Risks       []RiskRecord       `json:"risks,omitempty"`
	Evaluations []EvaluationRecord `json:"evaluations,omitempty"`
}

// TotalRecords counts every record across data types.
func (d *Dataset) TotalRecords() int {
	return len(d.Sessions) + len(d.Traces) + len(d.Risks) + len(d.Evaluations)
}

// quasiKeys returns one (activity_id, week) quasi-identifier key per
// record, the grouping the k-anonymity check runs over.
func (d *Dataset) quasiKeys() []string {
	keys := make([]string, 0, d.TotalRecords())
	for _, r := range d.Sessions {
		keys = append(keys, r.ActivityID+"|"+r.Week)
	}
	for _, r := range d.Traces {
		keys = append(keys, r.ActivityID+"|"+r.Week)
	}
	for _, r := range d.Risks {
		keys = append(keys, r.ActivityID+"|"+r.Week)
	}
	for _, r := range d.Evaluations {
		keys = append(keys, r.ActivityID+"|"+r.Week)
	}
	return keys
}

// Result is one completed export.
type Result struct {
	ExportID     string           `json:"export_id"`
	GeneratedAt  time.Time        `json:"generated_at"`
	TotalRecords int              `json:"total_records"`
	KAnonymity   int              `json:"k_anonymity"`
	Report       ValidationReport `json:"validation_report"`
	Data         *Dataset         `json:"data"`
}

// Exporter assembles, anonymizes, and validates research datasets.
type Exporter struct {
	store storage.Store
	anon  *Anonymizer
	log   *slog.Logger

	// random feeds the Laplace noise sampler; swappable in tests.
	random func() float64

	// defaultK applies when a request carries no k of its own.
	defaultK int
}

// SetDefaultK overrides the k-anonymity floor used for requests that
// don't specify one. Values below 1 are ignored.
func (e *Exporter) SetDefaultK(k int) {
	if k > 0 {
		e.defaultK = k
	}
}

// NewExporter creates an exporter over store. secret keys the pseudonym
// hash; the same secret yields stable pseudonyms across exports.
func NewExporter(store storage.Store, secret []byte, log *slog.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{
		store:    store,
		anon:     NewAnonymizer(secret),
		log:      log,
		random:   rand.Float64,
		defaultK: DefaultKAnonymity,
	}
}

// Export runs one export: fetch matching sessions and their dependent
// records, anonymize everything, then validate. A dataset that fails
// privacy validation is rejected whole with PrivacyValidationError.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	k := req.KAnonymity
	if k <= 0 {
		k = e.defaultK
	}

	sessions, err := e.matchingSessions(ctx, req)
	if err != nil {
		return nil, err
	}

	dataset, err := e.buildDataset(ctx, req, sessions)
	if err != nil {
		return nil, err
	}
	if dataset.TotalRecords() == 0 {
		return nil, ErrNoData
	}

	report := Validate(dataset, k)
	if !report.Valid {
		e.log.Warn("export rejected by privacy validation",
			"errors", report.Errors,
			"k_anonymity", k,
		)
		return nil, PrivacyValidationError{Report: report}
	}

	result := &Result{
		ExportID:     uuid.NewString()[:8],
		GeneratedAt:  time.Now().UTC(),
		TotalRecords: dataset.TotalRecords(),
		KAnonymity:   k,
		Report:       report,
		Data:         dataset,
	}
	e.log.Info("export completed",
		"export_id", result.ExportID,
		"total_records", result.TotalRecords,
		"k_anonymity", k,
	)
	return result, nil
}

func (e *Exporter) matchingSessions(ctx context.Context, req Request) ([]*cognitive.Session, error) {
	sessions, err := e.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var activities map[string]bool
	if len(req.ActivityIDs) > 0 {
		activities = make(map[string]bool, len(req.ActivityIDs))
		for _, id := range req.ActivityIDs {
			activities[id] = true
		}
	}

	matched := make([]*cognitive.Session, 0, len(sessions))
	for _, s := range sessions {
		if req.StartDate != nil && s.StartedAt.Before(*req.StartDate) {
			continue
		}
		if req.EndDate != nil && s.StartedAt.After(*req.EndDate) {
			continue
		}
		if activities != nil && !activities[s.ActivityID] {
			continue
		}
		matched = append(matched, s)
	}
	return matched, nil
}

func (e *Exporter) buildDataset(ctx context.Context, req Request, sessions []*cognitive.Session) (*Dataset, error) {
	all := req.includeAll()
	dataset := &Dataset{}

	for _, session := range sessions {
		if all || req.IncludeSessions {
			dataset.Sessions = append(dataset.Sessions, e.anon.AnonymizeSession(session))
		}
		if all || req.IncludeTraces {
			traces, err := e.store.GetTracesBySession(ctx, session.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load traces for session %s: %w", session.ID, err)
			}
			for _, t := range traces {
				dataset.Traces = append(dataset.Traces, e.anon.AnonymizeTrace(t))
			}
		}
		if all || req.IncludeRisks {
			risks, err := e.store.GetRisksBySession(ctx, session.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load risks for session %s: %w", session.ID, err)
			}
			for _, r := range risks {
				dataset.Risks = append(dataset.Risks, e.anon.AnonymizeRisk(r))
			}
		}
		if all || req.IncludeEvaluations {
			evals, err := e.store.GetEvaluationsBySession(ctx, session.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load evaluations for session %s: %w", session.ID, err)
			}
			for _, ev := range evals {
				record := e.anon.AnonymizeEvaluation(ev)
				if req.NoiseEpsilon > 0 {
					record.Score = e.noisy(record.Score, req.NoiseEpsilon)
					for name, v := range record.Dimensions {
						record.Dimensions[name] = e.noisy(v, req.NoiseEpsilon)
					}
				}
				dataset.Evaluations = append(dataset.Evaluations, record)
			}
		}
	}
	return dataset, nil
}

// noisy adds Laplace noise with scale 1/epsilon, clamped back to [0, 1].
func (e *Exporter) noisy(score, epsilon float64) float64 {
	u := e.random() - 0.5
	m := 1 - 2*math.Abs(u)
	if m <= 0 {
		m = math.SmallestNonzeroFloat64
	}
	noise := -math.Copysign(1, u) * math.Log(m) / epsilon
	return math.Min(1, math.Max(0, score+noise))
}
