package security

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestGuard(t *testing.T) (*FailureGuard, *time.Time) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logrus.New()
	log.SetOutput(io.Discard)

	g := NewFailureGuard(ctx, "test", log)
	now := time.Now()
	g.now = func() time.Time { return now }

	return g, &now
}

func TestFailureGuard_ResetClearsCount(t *testing.T) {
	g, _ := newTestGuard(t)

	g.Fail("key1")
	g.Fail("key1")
	g.Reset("key1")

	for range DefaultMaxAttempts - 1 {
		g.Fail("key1")
	}

	if g.Blocked("key1") {
		t.Fatal("key should not be blocked after reset")
	}
}

func TestFailureGuard_BlocksAtMax(t *testing.T) {
	g, _ := newTestGuard(t)

	for range DefaultMaxAttempts - 1 {
		g.Fail("badkey")
	}

	if g.Blocked("badkey") {
		t.Fatal("key should not be blocked before max failures")
	}

	g.Fail("badkey")

	if !g.Blocked("badkey") {
		t.Fatal("key should be blocked after max failures")
	}

	if g.Blocked("otherkey") {
		t.Error("unrelated key blocked")
	}
}

func TestFailureGuard_LockoutExpires(t *testing.T) {
	g, now := newTestGuard(t)

	for range DefaultMaxAttempts {
		g.Fail("k")
	}

	*now = now.Add(DefaultLockout + time.Second)

	if g.Blocked("k") {
		t.Error("lockout did not expire")
	}

	g.cleanup()

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.records) != 0 {
		t.Errorf("%d records left after cleanup", len(g.records))
	}
}

func TestFailureGuard_WindowRestartsCount(t *testing.T) {
	g, now := newTestGuard(t)

	for range DefaultMaxAttempts - 1 {
		g.Fail("k")
	}

	*now = now.Add(DefaultWindow + time.Second)
	g.Fail("k")

	if g.Blocked("k") {
		t.Error("failures outside the window were counted")
	}
}

func TestFailureGuard_EvictOldest(t *testing.T) {
	g, now := newTestGuard(t)

	g.Fail("old")
	*now = now.Add(time.Second)
	g.Fail("new")

	g.mu.Lock()
	g.evictOldest(1)
	_, hasNew := g.records[hashKey("new")]
	n := len(g.records)
	g.mu.Unlock()

	if n != 1 || !hasNew {
		t.Errorf("evictOldest kept %d records, new present=%v", n, hasNew)
	}
}
