package ws

import (
	"sort"
	"sync"
	"time"
)

const (
	defaultBufferMaxLen = 500
	defaultBufferMaxAge = 30 * time.Minute
)

// EventBuffer stores recent events per account so a client that connects
// mid-import can catch up.
type EventBuffer struct {
	mu     sync.RWMutex
	events map[string][]Event
	maxAge time.Duration
	maxLen int
	now    func() time.Time
}

// NewEventBuffer creates an EventBuffer with the given limits. Stale accounts
// are dropped by Evict, which the hub calls periodically.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	return &EventBuffer{
		events: make(map[string][]Event),
		maxAge: maxAge,
		maxLen: maxLen,
		now:    time.Now,
	}
}

// Evict drops accounts whose newest event is older than the max age.
func (eb *EventBuffer) Evict() {
	cutoff := eb.now().Add(-eb.maxAge)

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for account, buf := range eb.events {
		if len(buf) == 0 || buf[len(buf)-1].Time.Before(cutoff) {
			delete(eb.events, account)
		}
	}
}

// Append stores an event for replay, evicting expired and excess entries.
func (eb *EventBuffer) Append(event *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	buf := eb.events[event.Account]

	cutoff := eb.now().Add(-eb.maxAge)
	start := sort.Search(len(buf), func(i int) bool { return !buf[i].Time.Before(cutoff) })
	buf = append(buf[start:], *event)

	if len(buf) > eb.maxLen {
		buf = buf[len(buf)-eb.maxLen:]
	}

	eb.events[event.Account] = buf
}

// Since returns a copy of the account's events with ID > lastEventID.
func (eb *EventBuffer) Since(account string, lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	buf := eb.events[account]
	lo := sort.Search(len(buf), func(i int) bool { return buf[i].ID > lastEventID })

	if lo >= len(buf) {
		return nil
	}

	result := make([]Event, len(buf)-lo)
	copy(result, buf[lo:])

	return result
}

// OldestID returns the oldest buffered event ID for an account, or 0 if empty.
func (eb *EventBuffer) OldestID(account string) uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	buf := eb.events[account]
	if len(buf) == 0 {
		return 0
	}

	return buf[0].ID
}
