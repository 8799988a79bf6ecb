package pkg

import (
	"time"
)

// Shared domain types for the GapLens workflow core.

// SessionStatus is the lifecycle state of a session. Transitions are
// one-directional: pending -> running -> completed|failed.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal transition.
func CanTransition(s, next SessionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// SessionState is the durable record of one pipeline run. Context grows
// monotonically (keys are never removed or overwritten) and StageHistory is
// append-only. Exactly one engine execution may own a session id at a time.
type SessionState struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Status       SessionStatus  `json:"status"`
	Context      map[string]any `json:"context"`
	StageHistory []StageRecord  `json:"stage_history"`
}

// StageRecord is one completed (or terminally failed) stage invocation.
// Immutable once appended to a session's history.
type StageRecord struct {
	StageName      string         `json:"stage_name"`
	InputSnapshot  map[string]any `json:"input_snapshot"`
	OutputSnapshot map[string]any `json:"output_snapshot,omitempty"`
	PatternTag     string         `json:"reasoning_pattern_tag,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Error          string         `json:"error,omitempty"`
}

// TraceOutcome classifies a traced invocation.
type TraceOutcome string

const (
	OutcomeOK       TraceOutcome = "ok"
	OutcomeFallback TraceOutcome = "fallback"
	OutcomeError    TraceOutcome = "error"
)

// TraceEntry is one audit record of a stage or backend invocation. The engine
// only ever appends these; nothing reads them back to drive control flow.
type TraceEntry struct {
	Actor      string         `json:"actor"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	Outputs    map[string]any `json:"outputs,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Outcome    TraceOutcome   `json:"outcome"`
	Timestamp  time.Time      `json:"timestamp"`
}

// LongTermEntry is one (category, key) record in the long-term knowledge
// tier. Last write wins; there is no versioning.
type LongTermEntry struct {
	Category  string    `json:"category"`
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionResult is what a run returns to the caller: the terminal status plus
// the full context and history. Err carries the structured failure when
// Status is failed.
type SessionResult struct {
	SessionID      string         `json:"session_id"`
	Status         SessionStatus  `json:"status"`
	Context        map[string]any `json:"context"`
	StageHistory   []StageRecord  `json:"stage_history"`
	Err            error          `json:"-"`
	ErrorMessage   string         `json:"error,omitempty"`
	ProcessingTime int64          `json:"processing_time_ms"`
}
