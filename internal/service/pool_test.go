package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/persistorai/podrestore/internal/models"
)

func TestResolveAll_CommitsEveryKey(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}

	var got []string

	err := resolveAll(context.Background(), 2, time.Second, keys,
		func(_ context.Context, key string) models.Lookup[string] {
			return models.Found(key + "!")
		},
		func(r resolved[string]) error {
			v, _ := r.lookup.Get()
			got = append(got, v)
			return nil
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slices.Sort(got)

	if !slices.Equal(got, []string{"a!", "b!", "c!", "d!", "e!"}) {
		t.Errorf("got %v", got)
	}
}

func TestResolveAll_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32

	keys := make([]string, 20)
	for i := range keys {
		keys[i] = fmt.Sprint(i)
	}

	err := resolveAll(context.Background(), 3, time.Second, keys,
		func(_ context.Context, key string) models.Lookup[string] {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)
			running.Add(-1)

			return models.Found(key)
		},
		func(resolved[string]) error { return nil },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestResolveAll_PerLookupTimeout(t *testing.T) {
	var unresolved int

	start := time.Now()

	err := resolveAll(context.Background(), 4, 20*time.Millisecond, []string{"slow", "fast"},
		func(ctx context.Context, key string) models.Lookup[string] {
			if key == "fast" {
				return models.Found(key)
			}

			<-ctx.Done()

			return models.Unresolvable[string](ctx.Err())
		},
		func(r resolved[string]) error {
			if _, ok := r.lookup.Get(); !ok {
				unresolved++

				if !errors.Is(r.lookup.Reason(), context.DeadlineExceeded) {
					t.Errorf("reason = %v, want deadline exceeded", r.lookup.Reason())
				}
			}

			return nil
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if unresolved != 1 {
		t.Errorf("unresolved = %d, want 1", unresolved)
	}

	if time.Since(start) > time.Second {
		t.Error("slow lookup was not bounded")
	}
}

func TestResolveAll_StopsOnCommitError(t *testing.T) {
	keys := make([]string, 50)
	for i := range keys {
		keys[i] = fmt.Sprint(i)
	}

	boom := errors.New("boom")

	var commits int

	err := resolveAll(context.Background(), 1, time.Second, keys,
		func(_ context.Context, key string) models.Lookup[string] {
			return models.Found(key)
		},
		func(resolved[string]) error {
			commits++
			return boom
		},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}

	if commits != 1 {
		t.Errorf("commit called %d times after failure, want 1", commits)
	}
}

func TestResolveAll_NoKeys(t *testing.T) {
	err := resolveAll(context.Background(), 0, time.Second, nil,
		func(context.Context, string) models.Lookup[string] {
			t.Error("locate called without keys")
			return models.Found("")
		},
		func(resolved[string]) error { return nil },
	)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"b", "a", "b", "c", "a"})

	if !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("dedupe = %v", got)
	}
}

func TestAccountLocks_Serializes(t *testing.T) {
	locks := newAccountLocks()
	id := uuid.New()

	unlock, err := locks.lock(context.Background(), id)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := locks.lock(ctx, id); !errors.Is(err, models.ErrImportInProgress) {
		t.Fatalf("expected ErrImportInProgress while held, got %v", err)
	}

	// Other accounts are independent.
	other, err := locks.lock(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("lock on other account: %v", err)
	}
	other()

	unlock()

	again, err := locks.lock(context.Background(), id)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()

	locks.mu.Lock()
	defer locks.mu.Unlock()

	if len(locks.locks) != 0 {
		t.Errorf("%d lock entries leaked", len(locks.locks))
	}
}

func TestAccountLocks_WaiterProceedsAfterRelease(t *testing.T) {
	locks := newAccountLocks()
	id := uuid.New()

	unlock, err := locks.lock(context.Background(), id)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	acquired := make(chan struct{})

	go func() {
		u, err := locks.lock(context.Background(), id)
		if err == nil {
			u()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}
