package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"gaplens/pkg"
)

const traceStreamKey = "trace:log"

// RedisStore is a Redis-backed MemoryStore. Sessions are JSON values under
// session:<id>, long-term entries are hash fields under longterm:<category>
// (HSET is last-write-wins by construction), and the trace stream is an
// RPUSH-only list.
type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
}

// NewRedisStore connects using a redis URL and verifies the connection.
// sessionTTL of zero keeps session records forever.
func NewRedisStore(ctx context.Context, redisURL string, sessionTTL time.Duration) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client, sessionTTL: sessionTTL}, nil
}

func sessionKey(id string) string        { return "session:" + id }
func categoryKey(category string) string { return "longterm:" + category }

// SaveSession rewrites the session record.
func (r *RedisStore) SaveSession(ctx context.Context, session *pkg.SessionState) error {
	if session.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	data, err := sonic.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), data, r.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	return nil
}

// GetSession reads the session record.
func (r *RedisStore) GetSession(ctx context.Context, id string) (*pkg.SessionState, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkg.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}
	var session pkg.SessionState
	if err := sonic.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse session record: %w", err)
	}
	return &session, nil
}

// PutLongTerm overwrites the hash field for (category, key).
func (r *RedisStore) PutLongTerm(ctx context.Context, category, key string, value any) error {
	entry := pkg.LongTermEntry{
		Category:  category,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal long-term entry: %w", err)
	}
	if err := r.client.HSet(ctx, categoryKey(category), key, data).Err(); err != nil {
		return fmt.Errorf("failed to write long-term entry: %w", err)
	}
	return nil
}

// GetLongTerm reads the latest value for (category, key).
func (r *RedisStore) GetLongTerm(ctx context.Context, category, key string) (any, error) {
	data, err := r.client.HGet(ctx, categoryKey(category), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkg.ErrLongTermNotFound
		}
		return nil, fmt.Errorf("failed to read long-term entry: %w", err)
	}
	var entry pkg.LongTermEntry
	if err := sonic.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to parse long-term entry: %w", err)
	}
	return entry.Value, nil
}

// AppendTrace pushes one entry onto the trace list.
func (r *RedisStore) AppendTrace(ctx context.Context, entry pkg.TraceEntry) error {
	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if err := r.client.RPush(ctx, traceStreamKey, data).Err(); err != nil {
		return fmt.Errorf("failed to append trace entry: %w", err)
	}
	return nil
}

// ReadTraces returns the whole trace list in append order.
func (r *RedisStore) ReadTraces(ctx context.Context) ([]pkg.TraceEntry, error) {
	items, err := r.client.LRange(ctx, traceStreamKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read trace list: %w", err)
	}
	entries := make([]pkg.TraceEntry, 0, len(items))
	for _, item := range items {
		var entry pkg.TraceEntry
		if err := sonic.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse trace entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
