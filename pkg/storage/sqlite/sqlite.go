// Package sqlite provides a SQLite-backed implementation of the storage
// interfaces using the github.com/mattn/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	student_id  TEXT NOT NULL,
	activity_id TEXT NOT NULL,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	ended_at    TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sessions_student ON sessions(student_id);

CREATE TABLE IF NOT EXISTS traces (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	student_id       TEXT NOT NULL,
	activity_id      TEXT NOT NULL,
	trace_level      TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	cognitive_state  TEXT NOT NULL,
	cognitive_intent TEXT NOT NULL,
	ai_involvement   REAL,
	content          TEXT NOT NULL,
	response         TEXT NOT NULL,
	metadata         TEXT,
	created_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_traces_session ON traces(session_id);
CREATE INDEX IF NOT EXISTS idx_traces_student ON traces(student_id);

CREATE TABLE IF NOT EXISTS risks (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	student_id       TEXT NOT NULL,
	activity_id      TEXT NOT NULL,
	risk_type        TEXT NOT NULL,
	risk_level       TEXT NOT NULL,
	dimension        TEXT NOT NULL,
	description      TEXT NOT NULL,
	evidence         TEXT,
	trace_ids        TEXT,
	recommendations  TEXT,
	resolved         INTEGER NOT NULL DEFAULT 0,
	resolution_notes TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risks_session ON risks(session_id);
CREATE INDEX IF NOT EXISTS idx_risks_student ON risks(student_id);

CREATE TABLE IF NOT EXISTS evaluations (
	id                 TEXT PRIMARY KEY,
	session_id         TEXT NOT NULL,
	student_id         TEXT NOT NULL,
	activity_id        TEXT NOT NULL,
	overall_competency TEXT NOT NULL,
	overall_score      REAL NOT NULL,
	dimensions         TEXT,
	key_strengths      TEXT,
	improvement_areas  TEXT,
	reasoning          TEXT NOT NULL,
	code_evolution     TEXT NOT NULL DEFAULT '',
	dependency_metrics TEXT,
	created_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session_id);
`

// Store implements storage.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and applies the
// schema. ":memory:" gives an ephemeral database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalStrings(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}

// SaveSession inserts or replaces a session row.
func (s *Store) SaveSession(ctx context.Context, session *cognitive.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("cannot store session without id")
	}

	var endedAt any
	if session.EndedAt != nil {
		endedAt = *session.EndedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, student_id, activity_id, mode, status, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			status = excluded.status,
			ended_at = excluded.ended_at`,
		session.ID, session.StudentID, session.ActivityID,
		string(session.Mode), string(session.Status), session.StartedAt, endedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*cognitive.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, activity_id, mode, status, started_at, ended_at
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetSessionsByStudent returns a student's sessions, oldest first.
func (s *Store) GetSessionsByStudent(ctx context.Context, studentID string) ([]*cognitive.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, activity_id, mode, status, started_at, ended_at
		FROM sessions WHERE student_id = ? ORDER BY started_at`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []*cognitive.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// ListSessions returns every stored session, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]*cognitive.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, activity_id, mode, status, started_at, ended_at
		FROM sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []*cognitive.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*cognitive.Session, error) {
	var (
		session cognitive.Session
		mode    string
		status  string
		endedAt sql.NullTime
	)
	err := row.Scan(&session.ID, &session.StudentID, &session.ActivityID,
		&mode, &status, &session.StartedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{Kind: "session"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	session.Mode = cognitive.AgentMode(mode)
	session.Status = cognitive.SessionStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	return &session, nil
}

// SaveTrace appends a trace row. Traces are immutable, so a duplicate id
// is a constraint violation rather than an upsert.
func (s *Store) SaveTrace(ctx context.Context, trace *cognitive.Trace) error {
	if trace == nil || trace.ID == "" {
		return fmt.Errorf("cannot store trace without id")
	}

	metadata, err := marshalJSON(trace.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var involvement any
	if trace.AIInvolvement != nil {
		involvement = *trace.AIInvolvement
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO traces (id, session_id, student_id, activity_id, trace_level,
			interaction_type, cognitive_state, cognitive_intent, ai_involvement,
			content, response, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trace.ID, trace.SessionID, trace.StudentID, trace.ActivityID,
		string(trace.Level), string(trace.InteractionType), string(trace.CognitiveState),
		trace.CognitiveIntent, involvement, trace.Content, trace.Response,
		metadata, trace.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save trace: %w", err)
	}
	return nil
}

const traceColumns = `id, session_id, student_id, activity_id, trace_level,
	interaction_type, cognitive_state, cognitive_intent, ai_involvement,
	content, response, metadata, created_at`

// GetTrace retrieves a trace by id.
func (s *Store) GetTrace(ctx context.Context, id string) (*cognitive.Trace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+traceColumns+` FROM traces WHERE id = ?`, id)
	trace, err := scanTrace(row)
	if storage.IsNotFound(err) {
		return nil, storage.NotFoundError{Kind: "trace", ID: id}
	}
	return trace, err
}

// GetTracesBySession returns the session's traces ordered by creation
// time; rowid breaks timestamp ties in insertion order.
func (s *Store) GetTracesBySession(ctx context.Context, sessionID string) ([]*cognitive.Trace, error) {
	return s.queryTraces(ctx,
		`SELECT `+traceColumns+` FROM traces WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID)
}

// GetTracesByStudent returns a student's traces across sessions.
func (s *Store) GetTracesByStudent(ctx context.Context, studentID string) ([]*cognitive.Trace, error) {
	return s.queryTraces(ctx,
		`SELECT `+traceColumns+` FROM traces WHERE student_id = ? ORDER BY created_at, rowid`,
		studentID)
}

func (s *Store) queryTraces(ctx context.Context, query string, arg any) ([]*cognitive.Trace, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer rows.Close()

	var out []*cognitive.Trace
	for rows.Next() {
		trace, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, trace)
	}
	return out, rows.Err()
}

func scanTrace(row rowScanner) (*cognitive.Trace, error) {
	var (
		trace       cognitive.Trace
		level       string
		interaction string
		state       string
		involvement sql.NullFloat64
		metadata    sql.NullString
	)
	err := row.Scan(&trace.ID, &trace.SessionID, &trace.StudentID, &trace.ActivityID,
		&level, &interaction, &state, &trace.CognitiveIntent, &involvement,
		&trace.Content, &trace.Response, &metadata, &trace.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{Kind: "trace"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan trace: %w", err)
	}
	trace.Level = cognitive.TraceLevel(level)
	trace.InteractionType = cognitive.InteractionType(interaction)
	trace.CognitiveState = cognitive.CognitiveState(state)
	if involvement.Valid {
		v := involvement.Float64
		trace.AIInvolvement = &v
	}
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &trace.Metadata)
	}
	return &trace, nil
}

// SaveRisk appends a risk row.
func (s *Store) SaveRisk(ctx context.Context, risk *cognitive.Risk) error {
	if risk == nil || risk.ID == "" {
		return fmt.Errorf("cannot store risk without id")
	}

	evidence, err := marshalJSON(risk.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	traceIDs, err := marshalJSON(risk.TraceIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal trace ids: %w", err)
	}
	recommendations, err := marshalJSON(risk.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risks (id, session_id, student_id, activity_id, risk_type,
			risk_level, dimension, description, evidence, trace_ids,
			recommendations, resolved, resolution_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		risk.ID, risk.SessionID, risk.StudentID, risk.ActivityID,
		string(risk.Type), string(risk.Level), string(risk.Dimension),
		risk.Description, evidence, traceIDs, recommendations,
		risk.Resolved, risk.ResolutionNotes, risk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save risk: %w", err)
	}
	return nil
}

const riskColumns = `id, session_id, student_id, activity_id, risk_type,
	risk_level, dimension, description, evidence, trace_ids,
	recommendations, resolved, resolution_notes, created_at`

// GetRisk retrieves a risk by id.
func (s *Store) GetRisk(ctx context.Context, id string) (*cognitive.Risk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+riskColumns+` FROM risks WHERE id = ?`, id)
	risk, err := scanRisk(row)
	if storage.IsNotFound(err) {
		return nil, storage.NotFoundError{Kind: "risk", ID: id}
	}
	return risk, err
}

// GetRisksBySession returns the session's risks ordered by creation time.
func (s *Store) GetRisksBySession(ctx context.Context, sessionID string) ([]*cognitive.Risk, error) {
	return s.queryRisks(ctx,
		`SELECT `+riskColumns+` FROM risks WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID)
}

// GetRisksByStudent returns a student's risks.
func (s *Store) GetRisksByStudent(ctx context.Context, studentID string) ([]*cognitive.Risk, error) {
	return s.queryRisks(ctx,
		`SELECT `+riskColumns+` FROM risks WHERE student_id = ? ORDER BY created_at, rowid`,
		studentID)
}

func (s *Store) queryRisks(ctx context.Context, query string, arg any) ([]*cognitive.Risk, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query risks: %w", err)
	}
	defer rows.Close()

	var out []*cognitive.Risk
	for rows.Next() {
		risk, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, risk)
	}
	return out, rows.Err()
}

func scanRisk(row rowScanner) (*cognitive.Risk, error) {
	var (
		risk            cognitive.Risk
		riskType        string
		level           string
		dimension       string
		evidence        sql.NullString
		traceIDs        sql.NullString
		recommendations sql.NullString
	)
	err := row.Scan(&risk.ID, &risk.SessionID, &risk.StudentID, &risk.ActivityID,
		&riskType, &level, &dimension, &risk.Description, &evidence, &traceIDs,
		&recommendations, &risk.Resolved, &risk.ResolutionNotes, &risk.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{Kind: "risk"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan risk: %w", err)
	}
	risk.Type = cognitive.RiskType(riskType)
	risk.Level = cognitive.RiskLevel(level)
	risk.Dimension = cognitive.RiskDimension(dimension)
	risk.Evidence = unmarshalStrings(evidence)
	risk.TraceIDs = unmarshalStrings(traceIDs)
	risk.Recommendations = unmarshalStrings(recommendations)
	return &risk, nil
}

// ResolveRisk marks a risk resolved and returns the updated record.
func (s *Store) ResolveRisk(ctx context.Context, id, notes string) (*cognitive.Risk, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE risks SET resolved = 1, resolution_notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve risk: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, storage.NotFoundError{Kind: "risk", ID: id}
	}
	return s.GetRisk(ctx, id)
}

// SaveEvaluation appends an evaluation row.
func (s *Store) SaveEvaluation(ctx context.Context, eval *cognitive.Evaluation) error {
	if eval == nil || eval.ID == "" {
		return fmt.Errorf("cannot store evaluation without id")
	}

	dimensions, err := marshalJSON(eval.Dimensions)
	if err != nil {
		return fmt.Errorf("failed to marshal dimensions: %w", err)
	}
	strengths, err := marshalJSON(eval.KeyStrengths)
	if err != nil {
		return fmt.Errorf("failed to marshal strengths: %w", err)
	}
	areas, err := marshalJSON(eval.ImprovementAreas)
	if err != nil {
		return fmt.Errorf("failed to marshal improvement areas: %w", err)
	}
	metrics, err := marshalJSON(eval.AIDependencyMetrics)
	if err != nil {
		return fmt.Errorf("failed to marshal dependency metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, session_id, student_id, activity_id,
			overall_competency, overall_score, dimensions, key_strengths,
			improvement_areas, reasoning, code_evolution, dependency_metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eval.ID, eval.SessionID, eval.StudentID, eval.ActivityID,
		string(eval.OverallCompetency), eval.OverallScore, dimensions,
		strengths, areas, eval.Reasoning, eval.CodeEvolution, metrics, eval.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

const evalColumns = `id, session_id, student_id, activity_id, overall_competency,
	overall_score, dimensions, key_strengths, improvement_areas, reasoning,
	code_evolution, dependency_metrics, created_at`

// GetEvaluationsBySession returns the session's evaluations oldest first.
func (s *Store) GetEvaluationsBySession(ctx context.Context, sessionID string) ([]*cognitive.Evaluation, error) {
	return s.queryEvaluations(ctx,
		`SELECT `+evalColumns+` FROM evaluations WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID)
}

// GetEvaluationsByStudent returns a student's evaluations.
func (s *Store) GetEvaluationsByStudent(ctx context.Context, studentID string) ([]*cognitive.Evaluation, error) {
	return s.queryEvaluations(ctx,
		`SELECT `+evalColumns+` FROM evaluations WHERE student_id = ? ORDER BY created_at, rowid`,
		studentID)
}

func (s *Store) queryEvaluations(ctx context.Context, query string, arg any) ([]*cognitive.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var out []*cognitive.Evaluation
	for rows.Next() {
		var (
			eval       cognitive.Evaluation
			competency string
			dims       sql.NullString
			strengths  sql.NullString
			areas      sql.NullString
			metrics    sql.NullString
		)
		err := rows.Scan(&eval.ID, &eval.SessionID, &eval.StudentID, &eval.ActivityID,
			&competency, &eval.OverallScore, &dims, &strengths, &areas,
			&eval.Reasoning, &eval.CodeEvolution, &metrics, &eval.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		eval.OverallCompetency = cognitive.CompetencyLevel(competency)
		if dims.Valid && dims.String != "" {
			_ = json.Unmarshal([]byte(dims.String), &eval.Dimensions)
		}
		eval.KeyStrengths = unmarshalStrings(strengths)
		eval.ImprovementAreas = unmarshalStrings(areas)
		if metrics.Valid && metrics.String != "" {
			_ = json.Unmarshal([]byte(metrics.String), &eval.AIDependencyMetrics)
		}
		out = append(out, &eval)
	}
	return out, rows.Err()
}
