package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrPendingNotFound is returned when a nonce has no stashed token, either
// because it was never stored, has expired or was already redeemed.
var ErrPendingNotFound = errors.New("pending token not found")

// PendingTTL is how long a stashed token waits for its redirect.
const PendingTTL = ProofTTL

// PendingStore holds external tokens for exactly one redirect.
type PendingStore interface {
	Put(ctx context.Context, nonce, token string, ttl time.Duration) error
	// Pop returns and removes the token stored under nonce.
	Pop(ctx context.Context, nonce string) (string, error)
}

type pendingEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryPendingStore is the in-process PendingStore.
type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	now     func() time.Time
}

// NewMemoryPendingStore creates an empty store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{entries: make(map[string]pendingEntry), now: time.Now}
}

func (s *MemoryPendingStore) Put(_ context.Context, nonce, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[nonce] = pendingEntry{token: token, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryPendingStore) Pop(_ context.Context, nonce string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[nonce]
	if !ok {
		return "", ErrPendingNotFound
	}
	delete(s.entries, nonce)
	if s.now().After(e.expiresAt) {
		return "", ErrPendingNotFound
	}
	return e.token, nil
}

// Cleanup removes expired entries and returns how many were dropped.
func (s *MemoryPendingStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisPendingStore shares pending tokens between portal replicas.
type RedisPendingStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPendingStore wraps an existing client. Keys are prefixed with
// "mr:pending:".
func NewRedisPendingStore(client redis.UniversalClient) *RedisPendingStore {
	return &RedisPendingStore{client: client, prefix: "mr:pending:"}
}

// DialRedisPendingStore connects to addr and checks the connection.
func DialRedisPendingStore(ctx context.Context, addr, password string, db int) (*RedisPendingStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisPendingStore(client), nil
}

func (s *RedisPendingStore) Put(ctx context.Context, nonce, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+nonce, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to stash pending token: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Pop(ctx context.Context, nonce string) (string, error) {
	token, err := s.client.GetDel(ctx, s.prefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrPendingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to pop pending token: %w", err)
	}
	return token, nil
}

// Close closes the underlying client.
func (s *RedisPendingStore) Close() error {
	return s.client.Close()
}
