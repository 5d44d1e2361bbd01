// Package ws streams import progress events to WebSocket clients watching
// an account.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/metrics"
)

// Hub limits and channel buffer sizes.
const (
	broadcastBuffer      = 256
	registerBuffer       = 64
	maxClients           = 500
	maxClientsPerAccount = 10
	evictInterval        = 5 * time.Minute
)

// maxBroadcastPayload bounds a single event message. Completion events carry
// the import warnings, so this is larger than a plain notification.
const maxBroadcastPayload = 64 << 10

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

type accountMessage struct {
	account string
	msg     []byte
}

// Hub manages WebSocket clients per account and fans events out to them.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	accounts   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan accountMessage
	shutdown   chan struct{}
	done       chan struct{}
	count      atomic.Int64
	log        *logrus.Logger
	seq        *EventSequence
	buffer     *EventBuffer
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		accounts:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan accountMessage, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
}

// Run starts the hub event loop. It should be run as a goroutine.
// It exits when Shutdown is called or the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	evict := time.NewTicker(evictInterval)
	defer evict.Stop()

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case m := <-h.broadcast:
			for client := range h.accounts[m.account] {
				select {
				case client.send <- m.msg:
				default:
					h.log.WithField("account", m.account).Warn("client too slow, dropping connection")
					h.remove(client)
				}
			}

		case <-evict.C:
			h.buffer.Evict()
		}
	}
}

func (h *Hub) add(client *Client) {
	if int(h.count.Load()) >= maxClients {
		h.log.Warn("global connection limit reached, dropping client")
		client.closeSend()

		return
	}

	clients := h.accounts[client.Account]
	if len(clients) >= maxClientsPerAccount {
		h.log.WithField("account", client.Account).Warn("per-account connection limit reached, dropping client")
		client.closeSend()

		return
	}

	if clients == nil {
		clients = make(map[*Client]struct{})
		h.accounts[client.Account] = clients
	}

	clients[client] = struct{}{}
	h.setCount(h.count.Load() + 1)
	h.log.WithFields(logrus.Fields{"account": client.Account, "total": h.count.Load()}).Info("client registered")
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.accounts[client.Account]
	if !ok {
		return
	}

	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	client.closeSend()

	if len(clients) == 0 {
		delete(h.accounts, client.Account)
	}

	h.setCount(h.count.Load() - 1)
	h.log.WithFields(logrus.Fields{"account": client.Account, "total": h.count.Load()}).Info("client unregistered")
}

func (h *Hub) setCount(n int64) {
	h.count.Store(n)
	metrics.WSConnections.Set(float64(n))
}

// BroadcastEvent assigns a sequence ID, buffers the event for replay and
// sends it to every client watching account. Oversized events are dropped.
func (h *Hub) BroadcastEvent(eventType, account string, data json.RawMessage) {
	evt := Event{
		Type:    eventType,
		ID:      h.seq.Next(account),
		Account: account,
		Data:    data,
		Time:    time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"account":      account,
			"type":         eventType,
			"payload_size": len(msg),
		}).Warn("dropping oversized event")

		return
	}

	h.buffer.Append(&evt)

	select {
	case h.broadcast <- accountMessage{account: account, msg: msg}:
	default:
		h.log.Warn("broadcast channel full, dropping event")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Shutdown sends a shutdown frame to every connected client, waits for their
// write pumps to flush, then closes all connections. It blocks until the
// drain completes or times out.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

func (h *Hub) drainClients() {
	if h.count.Load() == 0 {
		return
	}

	h.log.WithField("clients", h.count.Load()).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	h.each(func(c *Client) {
		select {
		case c.send <- shutdownMsg:
		default:
		}
	})

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

wait:
	for {
		pending := false
		h.each(func(c *Client) {
			if len(c.send) > 0 {
				pending = true
			}
		})

		if !pending {
			break
		}

		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")
			break wait
		case <-ticker.C:
		}
	}

	h.each(func(c *Client) { c.closeSend() })
	h.accounts = make(map[string]map[*Client]struct{})
	h.setCount(0)
}

func (h *Hub) each(fn func(*Client)) {
	for _, clients := range h.accounts {
		for c := range clients {
			fn(c)
		}
	}
}

// ReplayEvents sends buffered events after lastEventID to the client.
// Returns false if the requested ID is older than the buffer.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID(client.Account)
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(client.Account, lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		select {
		case client.send <- msg:
		default:
			return true
		}
	}

	return true
}
