package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testPendingStore(t *testing.T, s PendingStore) {
	t.Helper()
	ctx := context.Background()

	if err := s.Put(ctx, "n1", "tok1", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Pop(ctx, "n1")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got != "tok1" {
		t.Errorf("expected tok1, got %s", got)
	}
	if _, err := s.Pop(ctx, "n1"); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("second pop should miss, got %v", err)
	}
	if _, err := s.Pop(ctx, "never"); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("unknown nonce should miss, got %v", err)
	}
}

func TestMemoryPendingStore(t *testing.T) {
	testPendingStore(t, NewMemoryPendingStore())
}

func TestMemoryPendingStore_Expiry(t *testing.T) {
	s := NewMemoryPendingStore()
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Put(ctx, "old", "a", time.Minute)
	s.Put(ctx, "new", "b", time.Hour)
	now = now.Add(2 * time.Minute)

	if _, err := s.Pop(ctx, "old"); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("expired entry should miss, got %v", err)
	}
	s.Put(ctx, "stale", "c", time.Second)
	now = now.Add(time.Minute)
	if n := s.Cleanup(); n != 1 {
		t.Errorf("expected 1 swept, got %d", n)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 remaining, got %d", s.Len())
	}
}

func TestRedisPendingStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			),
		),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("Host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("MappedPort: %v", err)
	}

	s, err := DialRedisPendingStore(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	if err != nil {
		t.Fatalf("DialRedisPendingStore: %v", err)
	}
	defer s.Close()
	testPendingStore(t, s)
}
