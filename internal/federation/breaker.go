package federation

import (
	"fmt"
	"sync"
	"time"
)

// Circuit breaker configuration.
const (
	cbFailureThreshold = 5
	cbCooldown         = 30 * time.Second
)

// Circuit breaker states.
const (
	cbClosed   = iota // Normal operation.
	cbOpen            // Fail fast.
	cbHalfOpen        // Probe with one request.
)

type hostBreaker struct {
	state         int
	failures      int
	lastFailureAt time.Time
}

// breakerSet keeps one circuit breaker per remote host so a dead pod stops
// costing a full timeout for every item that references it.
type breakerSet struct {
	mu    sync.Mutex
	hosts map[string]*hostBreaker
	now   func() time.Time
}

func newBreakerSet() *breakerSet {
	return &breakerSet{hosts: make(map[string]*hostBreaker), now: time.Now}
}

// allow checks whether a request to host may proceed. An open breaker turns
// half-open after the cooldown and lets one trial request through.
func (s *breakerSet) allow(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.hosts[host]
	if !ok {
		return nil
	}

	switch b.state {
	case cbOpen:
		if s.now().Sub(b.lastFailureAt) >= cbCooldown {
			b.state = cbHalfOpen

			return nil
		}

		return fmt.Errorf("%w: %w: %s", ErrUnreachable, ErrCircuitOpen, host)
	case cbHalfOpen:
		// Already probing.
		return fmt.Errorf("%w: %w: %s", ErrUnreachable, ErrCircuitOpen, host)
	}

	return nil
}

func (s *breakerSet) recordSuccess(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.hosts, host)
}

func (s *breakerSet) recordFailure(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.hosts[host]
	if !ok {
		b = &hostBreaker{}
		s.hosts[host] = b
	}

	b.failures++
	b.lastFailureAt = s.now()

	if b.failures >= cbFailureThreshold || b.state == cbHalfOpen {
		b.state = cbOpen
	}
}
