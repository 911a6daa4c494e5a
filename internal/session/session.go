// Package session maps opaque login tokens to account ids.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedammareid/finance/pkg/interfaces"
)

var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// RedisStore keeps sessions in any KeyValueClient with a TTL per entry.
type RedisStore struct {
	client interfaces.KeyValueClient
	ttl    time.Duration
}

var (
	_ interfaces.SessionStore = (*RedisStore)(nil)
	_ interfaces.SessionStore = (*MemoryStore)(nil)
)

func NewRedisStore(client interfaces.KeyValueClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, accountID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, keyPrefix+token, strconv.FormatInt(accountID, 10), s.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrNotFound
	}
	val, found, err := s.client.Get(ctx, keyPrefix+token)
	if err != nil {
		return 0, fmt.Errorf("read session: %w", err)
	}
	if !found {
		return 0, ErrNotFound
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %q: %w", val, err)
	}
	return id, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

type memoryEntry struct {
	accountID int64
	expires   time.Time
}

// MemoryStore is the single-process fallback used when no redis address is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, accountID int64) (string, error) {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[token] = memoryEntry{accountID: accountID, expires: s.now().Add(s.ttl)}
	return token, nil
}

func (s *MemoryStore) Lookup(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return 0, ErrNotFound
	}
	if s.ttl > 0 && !s.now().Before(e.expires) {
		delete(s.entries, token)
		return 0, ErrNotFound
	}
	return e.accountID, nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// sweep drops expired entries. Caller holds s.mu.
func (s *MemoryStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for token, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, token)
		}
	}
}
