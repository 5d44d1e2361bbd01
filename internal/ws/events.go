package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id"`
	Account string          `json:"account"`
	Data    json.RawMessage `json:"data"`
	Time    time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client that the requested events are gone and it
// should re-read the account instead.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence tracks monotonic event IDs per account.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{counters: make(map[string]uint64)}
}

// Next returns the next sequence number for an account.
func (es *EventSequence) Next(account string) uint64 {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.counters[account]++

	return es.counters[account]
}
