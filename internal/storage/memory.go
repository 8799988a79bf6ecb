package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gaplens/pkg"
)

// MemStore is an in-memory MemoryStore for development and tests. All reads
// and writes go through JSON deep copies, so callers can never share mutable
// state with the store.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*pkg.SessionState
	longterm map[string]pkg.LongTermEntry
	trace    []pkg.TraceEntry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]*pkg.SessionState),
		longterm: make(map[string]pkg.LongTermEntry),
	}
}

func longtermKey(category, key string) string {
	return category + "/" + key
}

// SaveSession stores a deep copy of the session record.
func (m *MemStore) SaveSession(ctx context.Context, session *pkg.SessionState) error {
	if session.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	clone, err := CloneSession(session)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = clone
	return nil
}

// GetSession returns a deep copy of the session record.
func (m *MemStore) GetSession(ctx context.Context, id string) (*pkg.SessionState, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, pkg.ErrSessionNotFound
	}
	return CloneSession(session)
}

// PutLongTerm overwrites the value for (category, key).
func (m *MemStore) PutLongTerm(ctx context.Context, category, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.longterm[longtermKey(category, key)] = pkg.LongTermEntry{
		Category:  category,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// GetLongTerm returns the latest value for (category, key).
func (m *MemStore) GetLongTerm(ctx context.Context, category, key string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.longterm[longtermKey(category, key)]
	if !ok {
		return nil, pkg.ErrLongTermNotFound
	}
	return entry.Value, nil
}

// AppendTrace appends one audit entry.
func (m *MemStore) AppendTrace(ctx context.Context, entry pkg.TraceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = append(m.trace, entry)
	return nil
}

// ReadTraces returns a copy of the trace stream in append order.
func (m *MemStore) ReadTraces(ctx context.Context) ([]pkg.TraceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pkg.TraceEntry, len(m.trace))
	copy(out, m.trace)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }
