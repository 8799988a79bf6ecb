package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gaplens/internal/backend"
	"gaplens/internal/storage"
	"gaplens/pkg"
)

// Options configure a workflow engine.
type Options struct {
	// Stages is the ordered pipeline. The order is configuration; stage N+1
	// depends on keys written by stage N.
	Stages []Stage
	// BackendName and Params are the backend configuration requested for
	// every stage, resolved per call through the selector.
	BackendName string
	Params      backend.Params
}

// Engine drives the fixed stage sequence against a session, persisting after
// every stage so a crash leaves a resumable record, never a corrupted one.
// Each session runs strictly sequentially; distinct sessions run
// concurrently and independently.
type Engine struct {
	stages      []Stage
	selector    *backend.Selector
	store       storage.MemoryStore
	backendName string
	params      backend.Params

	mu     sync.Mutex
	active map[string]struct{}
}

// NewEngine creates an engine over an explicitly constructed store and
// selector. The engine owns no hidden global state.
func NewEngine(store storage.MemoryStore, selector *backend.Selector, opts Options) (*Engine, error) {
	if len(opts.Stages) == 0 {
		return nil, fmt.Errorf("at least one stage is required")
	}
	seen := make(map[string]struct{}, len(opts.Stages))
	for _, stage := range opts.Stages {
		if _, dup := seen[stage.Name()]; dup {
			return nil, fmt.Errorf("duplicate stage name: %s", stage.Name())
		}
		seen[stage.Name()] = struct{}{}
	}
	return &Engine{
		stages:      opts.Stages,
		selector:    selector,
		store:       store,
		backendName: opts.BackendName,
		params:      opts.Params,
		active:      make(map[string]struct{}),
	}, nil
}

// Run executes the pipeline for one session. Stage failures come back inside
// the SessionResult with status failed and a structured Err; the Go error
// return is reserved for persistence failures and caller mistakes (busy
// session). Run never lets a raw fault escape.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*pkg.SessionResult, error) {
	start := time.Now()

	session, err := e.acquireSession(ctx, req)
	if err != nil {
		return nil, err
	}
	defer e.release(session.ID)

	if session.Status.Terminal() {
		log.Info().Str("session_id", session.ID).Str("status", string(session.Status)).
			Msg("session already terminal, returning recorded result")
		return e.result(session, nil, start), nil
	}

	if session.Status == pkg.StatusPending {
		session.Status = pkg.StatusRunning
		session.UpdatedAt = time.Now().UTC()
		if err := storage.Persist(ctx, e.store, session); err != nil {
			return e.result(session, err, start), err
		}
	}

	done := make(map[string]struct{}, len(session.StageHistory))
	for _, record := range session.StageHistory {
		done[record.StageName] = struct{}{}
	}

	for _, stage := range e.stages {
		if _, ok := done[stage.Name()]; ok {
			log.Debug().Str("session_id", session.ID).Str("stage", stage.Name()).
				Msg("stage already recorded, skipping")
			continue
		}
		if stageErr := e.runStage(ctx, session, stage); stageErr != nil {
			session.Status = pkg.StatusFailed
			session.UpdatedAt = time.Now().UTC()
			if persistErr := storage.Persist(ctx, e.store, session); persistErr != nil {
				return e.result(session, stageErr, start), persistErr
			}
			return e.result(session, stageErr, start), nil
		}
	}

	session.Status = pkg.StatusCompleted
	session.UpdatedAt = time.Now().UTC()
	if err := storage.Persist(ctx, e.store, session); err != nil {
		return e.result(session, err, start), err
	}
	log.Info().Str("session_id", session.ID).Int("stages", len(session.StageHistory)).
		Dur("elapsed", time.Since(start)).Msg("workflow completed")
	return e.result(session, nil, start), nil
}

// GetSession returns a read-only copy of a session record.
func (e *Engine) GetSession(ctx context.Context, id string) (*pkg.SessionState, error) {
	return e.store.GetSession(ctx, id)
}

// PutLongTerm stores a long-term knowledge value, last write wins.
func (e *Engine) PutLongTerm(ctx context.Context, category, key string, value any) error {
	return e.store.PutLongTerm(ctx, category, key, value)
}

// GetLongTerm returns a long-term knowledge value or pkg.ErrLongTermNotFound.
func (e *Engine) GetLongTerm(ctx context.Context, category, key string) (any, error) {
	return e.store.GetLongTerm(ctx, category, key)
}

// acquireSession loads or creates the session and claims single-writer
// ownership of its id for the duration of this run.
func (e *Engine) acquireSession(ctx context.Context, req RunRequest) (*pkg.SessionState, error) {
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	e.mu.Lock()
	if _, busy := e.active[id]; busy {
		e.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, pkg.ErrSessionBusy)
	}
	e.active[id] = struct{}{}
	e.mu.Unlock()

	session, err := e.store.GetSession(ctx, id)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pkg.ErrSessionNotFound) {
		e.release(id)
		return nil, err
	}

	now := time.Now().UTC()
	session = &pkg.SessionState{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    pkg.StatusPending,
		Context:   map[string]any{"raw_input": req.UserInput},
	}
	if err := storage.Persist(ctx, e.store, session); err != nil {
		e.release(id)
		return nil, err
	}
	log.Info().Str("session_id", id).Msg("session created")
	return session, nil
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.active, id)
	e.mu.Unlock()
}

// runStage runs one stage end to end: precondition check, backend
// resolution, execution with the one-retry fallback policy, output
// validation, context merge, and persistence.
func (e *Engine) runStage(ctx context.Context, session *pkg.SessionState, stage Stage) error {
	if missing := missingInputs(stage, session.Context); len(missing) > 0 {
		err := &pkg.MissingInputError{Stage: stage.Name(), Missing: missing}
		log.Error().Str("session_id", session.ID).Str("stage", stage.Name()).
			Strs("missing", missing).Msg("stage preconditions not met")
		return err
	}

	resolution := e.selector.Resolve(ctx, e.backendName, e.params)
	if resolution.Fallback {
		e.trace(ctx, pkg.TraceEntry{
			Actor:     e.backendName,
			Outputs:   map[string]any{"reason": resolution.Reason},
			Outcome:   pkg.OutcomeFallback,
			Timestamp: time.Now().UTC(),
		})
	}

	inputSnapshot, err := snapshotInputs(stage, session.Context)
	if err != nil {
		return &pkg.StageExecutionError{Stage: stage.Name(), Cause: err}
	}

	stageStart := time.Now()
	output, execErr := e.execute(ctx, session, stage, resolution.Backend)
	if execErr != nil {
		return execErr
	}

	if err := validateOutput(stage, session.Context, output); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Str("stage", stage.Name()).
			Msg("stage output rejected")
		return err
	}

	outputSnapshot, err := storage.CloneContext(output.Data)
	if err != nil {
		return &pkg.StageExecutionError{Stage: stage.Name(), Cause: err}
	}
	for key, value := range outputSnapshot {
		session.Context[key] = value
	}

	confidence := output.Confidence
	session.StageHistory = append(session.StageHistory, pkg.StageRecord{
		StageName:      stage.Name(),
		InputSnapshot:  inputSnapshot,
		OutputSnapshot: outputSnapshot,
		PatternTag:     output.PatternTag,
		Confidence:     &confidence,
		Timestamp:      time.Now().UTC(),
	})
	session.UpdatedAt = time.Now().UTC()

	e.trace(ctx, pkg.TraceEntry{
		Actor:      stage.Name(),
		Inputs:     inputSnapshot,
		Outputs:    map[string]any{"keys": outputKeys(outputSnapshot)},
		DurationMS: time.Since(stageStart).Milliseconds(),
		Outcome:    pkg.OutcomeOK,
		Timestamp:  time.Now().UTC(),
	})

	if err := storage.Persist(ctx, e.store, session); err != nil {
		return err
	}
	log.Info().Str("session_id", session.ID).Str("stage", stage.Name()).
		Dur("elapsed", time.Since(stageStart)).Msg("stage completed")
	return nil
}

// execute invokes the stage, retrying exactly once with the stub backend on
// a recoverable backend fault. There is never a second live attempt.
func (e *Engine) execute(ctx context.Context, session *pkg.SessionState, stage Stage, b backend.Backend) (*StageOutput, error) {
	in := StageInput{Context: session.Context, Backend: b, Params: e.params, Store: e.store}
	output, err := stage.Execute(ctx, in)
	if err == nil {
		return output, nil
	}
	if !pkg.IsRecoverableBackendError(err) {
		return nil, &pkg.StageExecutionError{Stage: stage.Name(), Cause: err}
	}

	log.Warn().Err(err).Str("session_id", session.ID).Str("stage", stage.Name()).
		Msg("backend fault, retrying stage on stub backend")
	e.trace(ctx, pkg.TraceEntry{
		Actor:     b.Name(),
		Outputs:   map[string]any{"reason": err.Error(), "stage": stage.Name()},
		Outcome:   pkg.OutcomeFallback,
		Timestamp: time.Now().UTC(),
	})

	in.Backend = e.selector.Fallback()
	output, err = stage.Execute(ctx, in)
	if err != nil {
		return nil, &pkg.StageExecutionError{Stage: stage.Name(), Cause: err}
	}
	return output, nil
}

// trace appends an audit entry. Trace writes are best effort: a failed
// append is logged but never fails the session, since nothing downstream
// consumes the stream.
func (e *Engine) trace(ctx context.Context, entry pkg.TraceEntry) {
	if err := e.store.AppendTrace(ctx, entry); err != nil {
		log.Warn().Err(err).Str("actor", entry.Actor).Msg("trace append failed")
	}
}

func (e *Engine) result(session *pkg.SessionState, err error, start time.Time) *pkg.SessionResult {
	result := &pkg.SessionResult{
		SessionID:      session.ID,
		Status:         session.Status,
		Context:        session.Context,
		StageHistory:   session.StageHistory,
		Err:            err,
		ProcessingTime: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.ErrorMessage = err.Error()
	}
	return result
}

func missingInputs(stage Stage, contextData map[string]any) []string {
	var missing []string
	for _, key := range stage.DeclaredInputs() {
		if _, ok := contextData[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func snapshotInputs(stage Stage, contextData map[string]any) (map[string]any, error) {
	consumed := make(map[string]any, len(stage.DeclaredInputs()))
	for _, key := range stage.DeclaredInputs() {
		consumed[key] = contextData[key]
	}
	return storage.CloneContext(consumed)
}

// validateOutput enforces the stage's output contract: exact key set,
// declared kinds, a confidence inside [0,1], and no collision with keys
// already in the context (context is additive-merge only).
func validateOutput(stage Stage, contextData map[string]any, output *StageOutput) error {
	if output == nil {
		return &pkg.ValidationError{Stage: stage.Name(), Reason: "stage returned no output"}
	}
	declared := stage.DeclaredOutputs()
	for key, kind := range declared {
		value, ok := output.Data[key]
		if !ok {
			return &pkg.ValidationError{Stage: stage.Name(), Reason: fmt.Sprintf("missing declared output %q", key)}
		}
		if got := KindOf(value); got != kind {
			return &pkg.ValidationError{
				Stage:  stage.Name(),
				Reason: fmt.Sprintf("output %q has kind %s, declared %s", key, got, kind),
			}
		}
	}
	for key := range output.Data {
		if _, ok := declared[key]; !ok {
			return &pkg.ValidationError{Stage: stage.Name(), Reason: fmt.Sprintf("undeclared output %q", key)}
		}
		if _, exists := contextData[key]; exists {
			return &pkg.ValidationError{Stage: stage.Name(), Reason: fmt.Sprintf("context key collision on %q", key)}
		}
	}
	if output.Confidence < 0 || output.Confidence > 1 {
		return &pkg.ValidationError{
			Stage:  stage.Name(),
			Reason: fmt.Sprintf("confidence %.3f outside [0,1]", output.Confidence),
		}
	}
	return nil
}

func outputKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
