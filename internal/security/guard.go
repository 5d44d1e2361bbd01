// Package security tracks repeated authentication failures so callers can
// lock out API keys and account credentials under attack.
package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Default guard limits.
const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
	DefaultLockout     = 5 * time.Minute
	cleanupPeriod      = 60 * time.Second
	maxRecords         = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// FailureGuard counts failures per secret-derived key and locks a key out
// once it fails MaxAttempts times within Window. Keys are stored hashed.
type FailureGuard struct {
	name        string
	maxAttempts int
	window      time.Duration
	lockout     time.Duration

	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
	now     func() time.Time
}

// NewFailureGuard creates a guard with the default limits and starts a
// background cleanup goroutine that stops when ctx is cancelled. name labels
// the guard in log lines.
func NewFailureGuard(ctx context.Context, name string, log *logrus.Logger) *FailureGuard {
	g := &FailureGuard{
		name:        name,
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
		lockout:     DefaultLockout,
		records:     make(map[string]*failureRecord),
		log:         log,
		now:         time.Now,
	}
	go g.cleanupLoop(ctx)

	return g
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// Blocked reports whether key is currently locked out.
func (g *FailureGuard) Blocked(key string) bool {
	kh := hashKey(key)

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[kh]

	return ok && !rec.lockedAt.IsZero() && g.now().Sub(rec.lockedAt) < g.lockout
}

// Fail records a failed attempt for key.
func (g *FailureGuard) Fail(key string) {
	kh := hashKey(key)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[kh]
	if !ok || now.Sub(rec.firstFail) > g.window {
		g.records[kh] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	rec.attempts++
	if rec.attempts >= g.maxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithFields(logrus.Fields{
			"guard":    g.name,
			"key_hash": kh[:16] + "...",
		}).Warn("locked out after repeated authentication failures")
	}
}

// Reset clears failure tracking for key (call on success).
func (g *FailureGuard) Reset(key string) {
	kh := hashKey(key)

	g.mu.Lock()
	delete(g.records, kh)
	g.mu.Unlock()
}

func (g *FailureGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}

func (g *FailureGuard) cleanup() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		if !rec.lockedAt.IsZero() {
			if now.Sub(rec.lockedAt) >= g.lockout {
				delete(g.records, k)
			}
		} else if now.Sub(rec.firstFail) >= g.window {
			delete(g.records, k)
		}
	}

	if len(g.records) > maxRecords {
		g.evictOldest(len(g.records) - maxRecords)
	}
}

// evictOldest removes n entries with the oldest firstFail times.
// Caller must hold g.mu.
func (g *FailureGuard) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}

	entries := make([]entry, 0, len(g.records))
	for k, rec := range g.records {
		entries = append(entries, entry{k, rec.firstFail})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})

	for i := range n {
		delete(g.records, entries[i].key)
	}
}
