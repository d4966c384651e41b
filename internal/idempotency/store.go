// Package idempotency replays responses of mutating requests that carry an
// Idempotency-Key header.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Response is a captured HTTP response. Pending marks a key reserved by a
// request that has not finished yet.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Pending     bool   `json:"pending,omitempty"`
}

// Store keeps captured responses for a limited time.
type Store interface {
	Get(ctx context.Context, key string) (*Response, bool, error)
	// Reserve marks key as in flight. It returns false when the key already
	// holds a pending or captured response.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Put replaces the reservation with the captured response.
	Put(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}

type memoryEntry struct {
	resp      Response
	expiresAt time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Response, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	resp := entry.resp
	resp.Body = append([]byte(nil), entry.resp.Body...)
	return &resp, true, nil
}

// Reserve implements Store.
func (s *MemoryStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if entry, ok := s.entries[key]; ok && (entry.expiresAt.IsZero() || now.Before(entry.expiresAt)) {
		return false, nil
	}
	entry := memoryEntry{resp: Response{Pending: true}}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.entries[key] = entry
	return true, nil
}

// Release implements Store.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Put implements Store. A non-positive ttl keeps the entry until restart.
func (s *MemoryStore) Put(_ context.Context, key string, resp Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{resp: resp}
	entry.resp.Body = append([]byte(nil), resp.Body...)
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

// RedisStore shares captured responses across instances through Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. Keys are namespaced under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "payda:idempotency:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*Response, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var resp Response
	if errUnmarshal := json.Unmarshal(raw, &resp); errUnmarshal != nil {
		return nil, false, errUnmarshal
	}
	return &resp, true, nil
}

// Reserve implements Store with SET NX.
func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	payload, errMarshal := json.Marshal(Response{Pending: true})
	if errMarshal != nil {
		return false, errMarshal
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.SetNX(ctx, s.prefix+key, payload, ttl).Result()
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	payload, errMarshal := json.Marshal(resp)
	if errMarshal != nil {
		return errMarshal
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.prefix+key, payload, ttl).Err()
}
