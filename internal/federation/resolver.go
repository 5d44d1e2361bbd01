package federation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/persistorai/podrestore/internal/models"
)

// Discoverer performs an uncached handle lookup.
type Discoverer interface {
	Discover(ctx context.Context, handle models.Handle) (*Identity, error)
}

type cachedIdentity struct {
	identity  *Identity
	err       error
	fetchedAt time.Time
}

// Resolver turns handles into identities, caching both hits and NotFound
// answers for ttl and collapsing concurrent lookups of the same handle.
// Unreachable answers are never cached.
type Resolver struct {
	discoverer Discoverer
	ttl        time.Duration
	cache      sync.Map
	group      singleflight.Group
	now        func() time.Time
}

// NewResolver creates a Resolver. A zero ttl disables caching across calls
// but still collapses concurrent lookups.
func NewResolver(d Discoverer, ttl time.Duration) *Resolver {
	return &Resolver{discoverer: d, ttl: ttl, now: time.Now}
}

// Resolve returns the identity for handle, ErrNotFound, or ErrUnreachable.
func (r *Resolver) Resolve(ctx context.Context, handle string) (*Identity, error) {
	h, err := models.ParseHandle(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	key := h.String()

	if entry, ok := r.lookup(key); ok {
		return copyIdentity(entry.identity), entry.err
	}

	val, err, _ := r.group.Do(key, func() (any, error) {
		if entry, ok := r.lookup(key); ok {
			return entry.identity, entry.err
		}

		id, err := r.discoverer.Discover(ctx, h)
		if err == nil || errors.Is(err, ErrNotFound) {
			r.cache.Store(key, cachedIdentity{identity: id, err: err, fetchedAt: r.now()})
		}

		return id, err
	})
	if err != nil {
		return nil, err
	}

	id, ok := val.(*Identity)
	if !ok {
		return nil, fmt.Errorf("federation: unexpected singleflight result type %T", val)
	}

	return copyIdentity(id), nil
}

func (r *Resolver) lookup(key string) (cachedIdentity, bool) {
	cached, ok := r.cache.Load(key)
	if !ok {
		return cachedIdentity{}, false
	}

	entry, valid := cached.(cachedIdentity)
	if valid && r.now().Sub(entry.fetchedAt) < r.ttl {
		return entry, true
	}

	r.cache.Delete(key)

	return cachedIdentity{}, false
}

func copyIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}

	out := *id

	return &out
}
