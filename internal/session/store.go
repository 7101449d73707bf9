// Package session keeps each browser's conversation state between requests.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"coopleo-web/internal/conversation"
)

// Store persists conversation state by session id. Load returns nil, nil for
// an unknown session.
type Store interface {
	Load(ctx context.Context, id string) (*conversation.State, error)
	Save(ctx context.Context, id string, state conversation.State) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*conversation.State, error) {
	m.mu.RLock()
	data, ok := m.states[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var s conversation.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}
	return &s, nil
}

// Save stores an encoded copy so later mutations of state are not shared.
func (m *MemoryStore) Save(ctx context.Context, id string, state conversation.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.mu.Lock()
	m.states[id] = data
	m.mu.Unlock()
	return nil
}

// RedisStore keeps state as JSON under chat_session:<id>. Every save refreshes
// the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "chat_session:" + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (*conversation.State, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}

	var s conversation.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, id string, state conversation.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
	return nil
}
