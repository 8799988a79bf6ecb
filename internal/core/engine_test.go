package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaplens/internal/backend"
	"gaplens/internal/core"
	"gaplens/internal/dataset"
	"gaplens/internal/stages"
	"gaplens/internal/storage"
	"gaplens/pkg"
)

func newTestEngine(t *testing.T, store storage.MemoryStore, backendName string) *core.Engine {
	t.Helper()
	provider := dataset.NewMockProvider()
	pipeline, err := stages.Build([]string{"perception", "analysis", "decision"}, provider)
	require.NoError(t, err)
	engine, err := core.NewEngine(store, backend.NewSelector(backend.Config{}), core.Options{
		Stages:      pipeline,
		BackendName: backendName,
		Params:      backend.Params{Model: "test-model", MaxTokens: 100},
	})
	require.NoError(t, err)
	return engine
}

// scriptedStage lets tests inject arbitrary stage behavior.
type scriptedStage struct {
	name    string
	inputs  []string
	outputs map[string]core.Kind
	execute func(ctx context.Context, in core.StageInput) (*core.StageOutput, error)
}

func (s *scriptedStage) Name() string             { return s.name }
func (s *scriptedStage) DeclaredInputs() []string { return s.inputs }
func (s *scriptedStage) DeclaredOutputs() map[string]core.Kind {
	return s.outputs
}
func (s *scriptedStage) Execute(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
	return s.execute(ctx, in)
}

func TestRunCompletesFullPipeline(t *testing.T) {
	store := storage.NewMemStore()
	engine := newTestEngine(t, store, "")

	result, err := engine.Run(context.Background(), core.RunRequest{
		UserInput: "What skills do we need for a React project?",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, pkg.StatusCompleted, result.Status)
	require.Len(t, result.StageHistory, 3)
	assert.Equal(t, "perception", result.StageHistory[0].StageName)
	assert.Equal(t, "analysis", result.StageHistory[1].StageName)
	assert.Equal(t, "decision", result.StageHistory[2].StageName)

	for _, key := range []string{"raw_input", "intent", "entities", "normalized_question", "gap_analysis", "recommendations"} {
		assert.Contains(t, result.Context, key)
	}
	entities, ok := result.Context["entities"].([]any)
	require.True(t, ok)
	assert.Contains(t, entities, "React")

	report, ok := result.Context["gap_analysis"].(map[string]any)
	require.True(t, ok)
	gaps, ok := report["gaps"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, gaps)
	assert.Equal(t, "React", gaps[0].(map[string]any)["skill"])
	assert.NotEmpty(t, result.Context["recommendations"])

	// Each record carries its reasoning tag and a confidence in range.
	tags := []string{"react", "rewoo", "tot"}
	for i, record := range result.StageHistory {
		assert.Equal(t, tags[i], record.PatternTag)
		require.NotNil(t, record.Confidence)
		assert.GreaterOrEqual(t, *record.Confidence, 0.0)
		assert.LessOrEqual(t, *record.Confidence, 1.0)
	}

	saved, err := store.GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, pkg.StatusCompleted, saved.Status)
	assert.Len(t, saved.StageHistory, 3)
}

func TestResumeSkipsRecordedStages(t *testing.T) {
	store := storage.NewMemStore()
	provider := dataset.NewMockProvider()

	var perceptionCalls int
	counting := &scriptedStage{
		name:   "perception",
		inputs: []string{"raw_input"},
		outputs: map[string]core.Kind{
			"intent": core.KindString, "entities": core.KindList, "normalized_question": core.KindString,
		},
		execute: func(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
			perceptionCalls++
			return &core.StageOutput{
				Data: map[string]any{
					"intent":              "skill_analysis",
					"entities":            []any{"React"},
					"normalized_question": "what skills do we need for a react project?",
				},
				PatternTag: "react",
				Confidence: 0.8,
			}, nil
		},
	}
	engine, err := core.NewEngine(store, backend.NewSelector(backend.Config{}), core.Options{
		Stages: []core.Stage{counting, stages.NewAnalysis(provider), stages.NewDecision(provider)},
	})
	require.NoError(t, err)

	// Session interrupted after perception: one record, still running.
	now := time.Now().UTC()
	require.NoError(t, store.SaveSession(context.Background(), &pkg.SessionState{
		ID:        "sess-resume",
		CreatedAt: now,
		UpdatedAt: now,
		Status:    pkg.StatusRunning,
		Context: map[string]any{
			"raw_input":           "What skills do we need for a React project?",
			"intent":              "skill_analysis",
			"entities":            []any{"React"},
			"normalized_question": "what skills do we need for a react project?",
		},
		StageHistory: []pkg.StageRecord{{
			StageName:      "perception",
			InputSnapshot:  map[string]any{"raw_input": "What skills do we need for a React project?"},
			OutputSnapshot: map[string]any{"intent": "skill_analysis"},
			Timestamp:      now,
		}},
	}))

	result, err := engine.Run(context.Background(), core.RunRequest{SessionID: "sess-resume"})
	require.NoError(t, err)

	assert.Equal(t, pkg.StatusCompleted, result.Status)
	assert.Zero(t, perceptionCalls, "recorded stage must not re-execute")
	require.Len(t, result.StageHistory, 3)
	assert.Equal(t, "analysis", result.StageHistory[1].StageName)
	assert.Equal(t, "decision", result.StageHistory[2].StageName)
}

func TestResumeTerminalSessionReturnsUnchanged(t *testing.T) {
	store := storage.NewMemStore()
	engine := newTestEngine(t, store, "")

	now := time.Now().UTC()
	require.NoError(t, store.SaveSession(context.Background(), &pkg.SessionState{
		ID:        "sess-done",
		CreatedAt: now,
		UpdatedAt: now,
		Status:    pkg.StatusFailed,
		Context:   map[string]any{"raw_input": "anything"},
	}))

	result, err := engine.Run(context.Background(), core.RunRequest{SessionID: "sess-done"})
	require.NoError(t, err)
	assert.Equal(t, pkg.StatusFailed, result.Status)
	assert.Empty(t, result.StageHistory)
}

func TestMissingCredentialsFallsBackToStub(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	store := storage.NewMemStore()
	engine := newTestEngine(t, store, "openai")

	result, err := engine.Run(context.Background(), core.RunRequest{
		UserInput: "Do we have a GraphQL gap?",
	})
	require.NoError(t, err)
	assert.Equal(t, pkg.StatusCompleted, result.Status)

	traces, err := store.ReadTraces(context.Background())
	require.NoError(t, err)
	fallbacks := 0
	for _, entry := range traces {
		if entry.Outcome == pkg.OutcomeFallback {
			fallbacks++
			assert.Equal(t, "openai", entry.Actor)
		}
	}
	assert.GreaterOrEqual(t, fallbacks, 1, "credential absence must leave a fallback trace")
}

func TestMissingInputFailsWithoutTouchingHistory(t *testing.T) {
	store := storage.NewMemStore()
	engine := newTestEngine(t, store, "")

	// Perception is recorded but its context keys are gone, so analysis
	// cannot meet its preconditions.
	now := time.Now().UTC()
	require.NoError(t, store.SaveSession(context.Background(), &pkg.SessionState{
		ID:        "sess-corrupt",
		CreatedAt: now,
		UpdatedAt: now,
		Status:    pkg.StatusRunning,
		Context:   map[string]any{"raw_input": "whatever"},
		StageHistory: []pkg.StageRecord{{
			StageName: "perception",
			Timestamp: now,
		}},
	}))

	result, err := engine.Run(context.Background(), core.RunRequest{SessionID: "sess-corrupt"})
	require.NoError(t, err)

	assert.Equal(t, pkg.StatusFailed, result.Status)
	var missingErr *pkg.MissingInputError
	require.ErrorAs(t, result.Err, &missingErr)
	assert.Equal(t, "analysis", missingErr.Stage)
	assert.Contains(t, missingErr.Missing, "normalized_question")
	assert.Len(t, result.StageHistory, 1, "failed stage must not append a record")

	saved, err := store.GetSession(context.Background(), "sess-corrupt")
	require.NoError(t, err)
	assert.Equal(t, pkg.StatusFailed, saved.Status)
	assert.Len(t, saved.StageHistory, 1)
}

func TestBackendFaultRetriesOnceWithStub(t *testing.T) {
	store := storage.NewMemStore()

	attempts := 0
	flaky := &scriptedStage{
		name:    "flaky",
		inputs:  []string{"raw_input"},
		outputs: map[string]core.Kind{"answer": core.KindString},
		execute: func(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
			attempts++
			if attempts == 1 {
				return nil, &pkg.BackendUnavailableError{Backend: "openai", Cause: errors.New("connection refused")}
			}
			assert.Equal(t, backend.StubName, in.Backend.Name())
			return &core.StageOutput{Data: map[string]any{"answer": "from stub"}, Confidence: 0.5}, nil
		},
	}
	engine, err := core.NewEngine(store, backend.NewSelector(backend.Config{}), core.Options{
		Stages: []core.Stage{flaky},
	})
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), core.RunRequest{UserInput: "q"})
	require.NoError(t, err)
	assert.Equal(t, pkg.StatusCompleted, result.Status)
	assert.Equal(t, 2, attempts)

	traces, err := store.ReadTraces(context.Background())
	require.NoError(t, err)
	fallbacks := 0
	for _, entry := range traces {
		if entry.Outcome == pkg.OutcomeFallback {
			fallbacks++
		}
	}
	assert.Equal(t, 1, fallbacks)
}

func TestBackendFaultNeverRetriesTwice(t *testing.T) {
	store := storage.NewMemStore()

	attempts := 0
	broken := &scriptedStage{
		name:    "broken",
		inputs:  []string{"raw_input"},
		outputs: map[string]core.Kind{"answer": core.KindString},
		execute: func(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
			attempts++
			return nil, &pkg.BackendTimeoutError{Backend: "openai", Timeout: time.Second}
		},
	}
	engine, err := core.NewEngine(store, backend.NewSelector(backend.Config{}), core.Options{
		Stages: []core.Stage{broken},
	})
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), core.RunRequest{UserInput: "q"})
	require.NoError(t, err)
	assert.Equal(t, pkg.StatusFailed, result.Status)
	assert.Equal(t, 2, attempts, "exactly one retry, never a third attempt")

	var stageErr *pkg.StageExecutionError
	require.ErrorAs(t, result.Err, &stageErr)
	assert.Equal(t, "broken", stageErr.Stage)
}

func TestOutputValidation(t *testing.T) {
	cases := []struct {
		name    string
		outputs map[string]core.Kind
		output  *core.StageOutput
		reason  string
	}{
		{
			name:    "undeclared key",
			outputs: map[string]core.Kind{"answer": core.KindString},
			output:  &core.StageOutput{Data: map[string]any{"answer": "ok", "extra": 1}, Confidence: 0.5},
			reason:  "undeclared output",
		},
		{
			name:    "missing key",
			outputs: map[string]core.Kind{"answer": core.KindString},
			output:  &core.StageOutput{Data: map[string]any{}, Confidence: 0.5},
			reason:  "missing declared output",
		},
		{
			name:    "kind mismatch",
			outputs: map[string]core.Kind{"answer": core.KindString},
			output:  &core.StageOutput{Data: map[string]any{"answer": 42}, Confidence: 0.5},
			reason:  "has kind number",
		},
		{
			name:    "confidence out of range",
			outputs: map[string]core.Kind{"answer": core.KindString},
			output:  &core.StageOutput{Data: map[string]any{"answer": "ok"}, Confidence: 1.5},
			reason:  "outside [0,1]",
		},
		{
			name:    "context collision",
			outputs: map[string]core.Kind{"answer": core.KindString, "raw_input": core.KindString},
			output:  &core.StageOutput{Data: map[string]any{"raw_input": "clobber", "answer": "ok"}, Confidence: 0.5},
			reason:  "collision",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := storage.NewMemStore()
			bad := &scriptedStage{
				name:    "bad",
				inputs:  []string{"raw_input"},
				outputs: tc.outputs,
				execute: func(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
					return tc.output, nil
				},
			}
			engine, err := core.NewEngine(store, backend.NewSelector(backend.Config{}), core.Options{
				Stages: []core.Stage{bad},
			})
			require.NoError(t, err)

			result, err := engine.Run(context.Background(), core.RunRequest{UserInput: "q"})
			require.NoError(t, err)
			assert.Equal(t, pkg.StatusFailed, result.Status)

			var validationErr *pkg.ValidationError
			require.ErrorAs(t, result.Err, &validationErr)
			assert.Contains(t, validationErr.Reason, tc.reason)
			assert.Empty(t, result.StageHistory)
		})
	}
}

func TestLongTermLastWriteWins(t *testing.T) {
	store := storage.NewMemStore()
	engine := newTestEngine(t, store, "")
	ctx := context.Background()

	require.NoError(t, engine.PutLongTerm(ctx, "insights", "react_gap", "low"))
	require.NoError(t, engine.PutLongTerm(ctx, "insights", "react_gap", "closed"))

	value, err := engine.GetLongTerm(ctx, "insights", "react_gap")
	require.NoError(t, err)
	assert.Equal(t, "closed", value)

	_, err = engine.GetLongTerm(ctx, "insights", "unknown")
	assert.ErrorIs(t, err, pkg.ErrLongTermNotFound)
}

func TestConcurrentSessionsAreIsolated(t *testing.T) {
	store := storage.NewMemStore()
	engine := newTestEngine(t, store, "")

	questions := []string{
		"What skills do we need for a React project?",
		"Is the team ready for Kubernetes?",
	}
	results := make([]*pkg.SessionResult, len(questions))

	var wg sync.WaitGroup
	for i, question := range questions {
		wg.Add(1)
		go func(i int, question string) {
			defer wg.Done()
			result, err := engine.Run(context.Background(), core.RunRequest{UserInput: question})
			assert.NoError(t, err)
			results[i] = result
		}(i, question)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.NotEqual(t, results[0].SessionID, results[1].SessionID)
	for _, result := range results {
		assert.Equal(t, pkg.StatusCompleted, result.Status)
		assert.Len(t, result.StageHistory, 3)
	}
	assert.Equal(t, questions[0], results[0].Context["raw_input"])
	assert.Equal(t, questions[1], results[1].Context["raw_input"])
}

func TestSecondRunOnActiveSessionIsRejected(t *testing.T) {
	store := storage.NewMemStore()

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := &scriptedStage{
		name:    "blocking",
		inputs:  []string{"raw_input"},
		outputs: map[string]core.Kind{"answer": core.KindString},
		execute: func(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
			close(started)
			<-release
			return &core.StageOutput{Data: map[string]any{"answer": "done"}, Confidence: 1}, nil
		},
	}
	engine, err := core.NewEngine(store, backend.NewSelector(backend.Config{}), core.Options{
		Stages: []core.Stage{blocking},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, runErr := engine.Run(context.Background(), core.RunRequest{SessionID: "sess-busy", UserInput: "q"})
		assert.NoError(t, runErr)
	}()

	<-started
	_, err = engine.Run(context.Background(), core.RunRequest{SessionID: "sess-busy"})
	assert.ErrorIs(t, err, pkg.ErrSessionBusy)

	close(release)
	wg.Wait()
}

func TestPersistenceFailureSurfacesAsError(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemStore(), failSaves: true}
	engine := newTestEngine(t, store, "")

	_, err := engine.Run(context.Background(), core.RunRequest{UserInput: "q"})
	var persistErr *pkg.SessionPersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "save_session", persistErr.Op)
}

// failingStore wraps a real store and fails every SaveSession.
type failingStore struct {
	storage.MemoryStore
	failSaves bool
}

func (f *failingStore) SaveSession(ctx context.Context, session *pkg.SessionState) error {
	if f.failSaves {
		return errors.New("disk full")
	}
	return f.MemoryStore.SaveSession(ctx, session)
}
