package storage

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"gaplens/pkg"
)

// MemoryStore is the durable persistence contract for the workflow core:
// one record per session, a last-write-wins long-term knowledge tier, and an
// append-only trace stream. Sessions are fully independent; no operation on
// one session may block or observe another.
type MemoryStore interface {
	// SaveSession rewrites the durable record for session.ID. Called after
	// every stage, not batched at session end.
	SaveSession(ctx context.Context, session *pkg.SessionState) error
	// GetSession returns a copy of the session record, or
	// pkg.ErrSessionNotFound. Safe for concurrent readers.
	GetSession(ctx context.Context, id string) (*pkg.SessionState, error)

	// PutLongTerm overwrites any prior value for (category, key).
	PutLongTerm(ctx context.Context, category, key string, value any) error
	// GetLongTerm returns the latest value for (category, key), or
	// pkg.ErrLongTermNotFound.
	GetLongTerm(ctx context.Context, category, key string) (any, error)

	// AppendTrace appends one audit entry. There is no update or delete.
	AppendTrace(ctx context.Context, entry pkg.TraceEntry) error
	// ReadTraces returns the trace stream in append order. Audit and test
	// use only; engine logic never calls it.
	ReadTraces(ctx context.Context) ([]pkg.TraceEntry, error)

	Close() error
}

// Persist writes a session record with the store's single-retry discipline:
// one retry on failure, then the error surfaces as SessionPersistenceError.
func Persist(ctx context.Context, store MemoryStore, session *pkg.SessionState) error {
	err := store.SaveSession(ctx, session)
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Str("session_id", session.ID).Msg("session write failed, retrying once")
	if err = store.SaveSession(ctx, session); err != nil {
		return &pkg.SessionPersistenceError{Op: "save_session", Cause: err}
	}
	return nil
}

// CloneSession deep-copies a session through a JSON round trip. This both
// isolates callers from shared maps and enforces the JSON-serializable
// constraint on context values.
func CloneSession(session *pkg.SessionState) (*pkg.SessionState, error) {
	data, err := sonic.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	var out pkg.SessionState
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", session.ID, err)
	}
	return &out, nil
}

// CloneContext deep-copies a context map the same way as CloneSession.
func CloneContext(contextData map[string]any) (map[string]any, error) {
	if contextData == nil {
		return map[string]any{}, nil
	}
	data, err := sonic.Marshal(contextData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode context: %w", err)
	}
	out := make(map[string]any, len(contextData))
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode context: %w", err)
	}
	return out, nil
}
