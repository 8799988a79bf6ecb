package core

import (
	"context"
	"reflect"

	"gaplens/internal/backend"
	"gaplens/internal/storage"
)

// Kind is the coarse value shape a stage declares for each output key.
// Output validation checks both the exact key set and these kinds.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// KindOf classifies a context value into a Kind, or "" when the value fits
// none of them.
func KindOf(value any) Kind {
	if value == nil {
		return ""
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Slice, reflect.Array:
		return KindList
	case reflect.Map:
		return KindMap
	default:
		return ""
	}
}

// StageInput is everything a stage gets to work with: a read-only view of the
// session context, the resolved backend, its generation parameters, and the
// memory store for long-term writes.
type StageInput struct {
	Context map[string]any
	Backend backend.Backend
	Params  backend.Params
	Store   storage.MemoryStore
}

// StageOutput is a successful stage result. Data keys must exactly match the
// stage's declared outputs; PatternTag is pure audit metadata and must never
// influence engine control flow.
type StageOutput struct {
	Data       map[string]any
	PatternTag string
	Confidence float64
}

// Stage is one pipeline step. DeclaredInputs are preconditions the engine
// checks before invocation; DeclaredOutputs are postconditions it validates
// after. Execute either returns a complete StageOutput or an error; backend
// faults surface as typed backend errors so the engine can apply its
// one-retry fallback policy.
type Stage interface {
	Name() string
	DeclaredInputs() []string
	DeclaredOutputs() map[string]Kind
	Execute(ctx context.Context, in StageInput) (*StageOutput, error)
}

// RunRequest asks the engine for one execution. An empty SessionID creates a
// fresh session; a known id resumes from the first stage not yet in its
// history.
type RunRequest struct {
	SessionID string
	UserInput string
}
