package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"gaplens/pkg"
)

// FileStore is a JSON-file MemoryStore. Layout under the base directory:
//
//	sessions/<id>.json        one record per session
//	longterm/<category>.json  map of key -> entry, last write wins
//	trace.log                 append-only JSON lines
type FileStore struct {
	baseDir string
	mu      sync.Mutex
	traceF  *os.File
}

// NewFileStore creates the directory layout and opens the trace log for
// appending.
func NewFileStore(baseDir string) (*FileStore, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "sessions"), filepath.Join(baseDir, "longterm")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	traceF, err := os.OpenFile(filepath.Join(baseDir, "trace.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace log: %w", err)
	}
	return &FileStore{baseDir: baseDir, traceF: traceF}, nil
}

func (f *FileStore) sessionPath(id string) string {
	return filepath.Join(f.baseDir, "sessions", id+".json")
}

func (f *FileStore) longtermPath(category string) string {
	return filepath.Join(f.baseDir, "longterm", category+".json")
}

// SaveSession rewrites the session file.
func (f *FileStore) SaveSession(ctx context.Context, session *pkg.SessionState) error {
	if session.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if strings.ContainsAny(session.ID, `/\`) {
		return fmt.Errorf("session id %q contains path separators", session.ID)
	}
	data, err := sonic.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.WriteFile(f.sessionPath(session.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// GetSession reads the session file.
func (f *FileStore) GetSession(ctx context.Context, id string) (*pkg.SessionState, error) {
	data, err := os.ReadFile(f.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkg.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var session pkg.SessionState
	if err := sonic.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

func (f *FileStore) loadCategory(category string) (map[string]pkg.LongTermEntry, error) {
	entries := make(map[string]pkg.LongTermEntry)
	data, err := os.ReadFile(f.longtermPath(category))
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to read long-term file: %w", err)
	}
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse long-term file: %w", err)
	}
	return entries, nil
}

// PutLongTerm rewrites the category file with the new value in place.
func (f *FileStore) PutLongTerm(ctx context.Context, category, key string, value any) error {
	if strings.ContainsAny(category, `/\`) {
		return fmt.Errorf("category %q contains path separators", category)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.loadCategory(category)
	if err != nil {
		return err
	}
	entries[key] = pkg.LongTermEntry{
		Category:  category,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := sonic.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal long-term data: %w", err)
	}
	if err := os.WriteFile(f.longtermPath(category), data, 0o644); err != nil {
		return fmt.Errorf("failed to write long-term file: %w", err)
	}
	return nil
}

// GetLongTerm reads the latest value for (category, key).
func (f *FileStore) GetLongTerm(ctx context.Context, category, key string) (any, error) {
	f.mu.Lock()
	entries, err := f.loadCategory(category)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[key]
	if !ok {
		return nil, pkg.ErrLongTermNotFound
	}
	return entry.Value, nil
}

// AppendTrace appends one JSON line to the trace log.
func (f *FileStore) AppendTrace(ctx context.Context, entry pkg.TraceEntry) error {
	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.traceF.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append trace entry: %w", err)
	}
	return nil
}

// ReadTraces parses the whole trace log in append order.
func (f *FileStore) ReadTraces(ctx context.Context) ([]pkg.TraceEntry, error) {
	f.mu.Lock()
	data, err := os.ReadFile(filepath.Join(f.baseDir, "trace.log"))
	f.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read trace log: %w", err)
	}
	var entries []pkg.TraceEntry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry pkg.TraceEntry
		if err := sonic.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse trace line: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close closes the trace log.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.traceF.Close()
}
