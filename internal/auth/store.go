package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"applybro-backend/internal/shared/storage/cache"
)

const refreshKeyPrefix = "auth:refresh:"

// RefreshStore keeps the hash of the one refresh token currently valid per user.
type RefreshStore interface {
	Save(ctx context.Context, userID, tokenHash string, ttl time.Duration) error
	Matches(ctx context.Context, userID, tokenHash string) (bool, error)
	Delete(ctx context.Context, userID string) error
}

// RedisStore keeps refresh hashes in Redis so every API instance sees rotations.
type RedisStore struct {
	Cache *cache.Redis
}

func NewRedisStore(c *cache.Redis) *RedisStore {
	return &RedisStore{Cache: c}
}

func (s *RedisStore) Save(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	return s.Cache.Set(ctx, refreshKey(userID), tokenHash, ttl)
}

func (s *RedisStore) Matches(ctx context.Context, userID, tokenHash string) (bool, error) {
	stored, err := s.Cache.Get(ctx, refreshKey(userID))
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return equalHash(stored, tokenHash), nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.Cache.Del(ctx, refreshKey(userID))
}

// MemoryStore is used when no Redis is configured. Entries expire lazily.
type MemoryStore struct {
	items map[string]memoryEntry
	mu    sync.Mutex
	now   func() time.Time
}

type memoryEntry struct {
	hash string
	exp  time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{items: make(map[string]memoryEntry), now: now}
}

func (s *MemoryStore) Save(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	_ = ctx
	s.mu.Lock()
	s.items[userID] = memoryEntry{hash: tokenHash, exp: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Matches(ctx context.Context, userID, tokenHash string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[userID]
	if !ok {
		return false, nil
	}
	if s.now().After(entry.exp) {
		delete(s.items, userID)
		return false, nil
	}
	return equalHash(entry.hash, tokenHash), nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.items, userID)
	s.mu.Unlock()
	return nil
}

func refreshKey(userID string) string {
	return refreshKeyPrefix + strings.TrimSpace(userID)
}

func equalHash(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
