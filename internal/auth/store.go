package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore is the revocation set: a collection of literal token
// strings treated as permanently invalid. The ttl passed to Revoke is
// the remaining lifetime of the token; a store may use it to expire the
// entry once the token would have died on its own anyway.
type TokenStore interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) bool
}

// MemoryStore keeps revoked tokens in process memory. Entries with a
// positive ttl are ignored after their deadline but never removed from
// the map, so the set grows for the life of the process. Use the Redis
// store when the deployment needs shared state or bounded memory.
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // zero value = revoked forever
}

// NewMemoryStore returns an empty in-process revocation set.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryStore) Revoke(_ context.Context, token string, ttl time.Duration) error {
	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().UTC().Add(ttl)
	}
	s.mu.Lock()
	s.revoked[token] = deadline
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, token string) bool {
	s.mu.RLock()
	deadline, ok := s.revoked[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if deadline.IsZero() {
		return true
	}
	return time.Now().UTC().Before(deadline)
}

// RedisStore keeps the revocation set in Redis so multiple instances
// share it. Each entry carries a TTL equal to the token's remaining
// lifetime, keeping the set from growing without bound.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an existing Redis client. The prefix namespaces
// the keys ("revoked" by default when empty).
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(token string) string { return s.prefix + ":" + token }

func (s *RedisStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0 // 0 = no expiry
	}
	return s.rdb.Set(ctx, s.key(token), "1", ttl).Err()
}

// IsRevoked treats Redis failures as "not revoked" so an outage does not
// lock every session out; the error is logged for operators.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) bool {
	n, err := s.rdb.Exists(ctx, s.key(token)).Result()
	if err != nil {
		log.Printf("auth: revocation lookup failed: %v", err)
		return false
	}
	return n > 0
}
