package backend

import (
	"context"
	"time"

	"gaplens/pkg"
)

// Params are the generation parameters a stage requests for a backend call.
// They also key the selector's instance cache.
type Params struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Result is the checked outcome of one Generate call. Fallback is a designed
// control-flow branch here, not an exception path: callers inspect Outcome
// and Err instead of recovering from a panic or a raw error.
type Result struct {
	Text     string
	Backend  string
	Outcome  pkg.TraceOutcome
	Duration time.Duration
	Err      error
}

// Backend is a text-generation capability. Generate never panics and never
// returns a partially filled Result: on failure Outcome is OutcomeError and
// Err holds a typed backend error.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string, params Params) Result
}
