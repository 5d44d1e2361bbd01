package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/persistorai/podrestore/internal/models"
)

// accountLocks serializes import runs per account.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*accountLock
}

type accountLock struct {
	sem  chan struct{}
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*accountLock)}
}

// lock blocks until the account is free or ctx is done. The returned func
// releases the lock.
func (l *accountLocks) lock(ctx context.Context, id uuid.UUID) (func(), error) {
	l.mu.Lock()
	al, ok := l.locks[id]
	if !ok {
		al = &accountLock{sem: make(chan struct{}, 1)}
		l.locks[id] = al
	}
	al.refs++
	l.mu.Unlock()

	select {
	case al.sem <- struct{}{}:
		return func() {
			<-al.sem
			l.release(id, al)
		}, nil
	case <-ctx.Done():
		l.release(id, al)
		return nil, fmt.Errorf("%w: %w", models.ErrImportInProgress, ctx.Err())
	}
}

func (l *accountLocks) release(id uuid.UUID, al *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	al.refs--
	if al.refs == 0 {
		delete(l.locks, id)
	}
}
