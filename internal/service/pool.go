package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/persistorai/podrestore/internal/models"
)

// resolved pairs an archive reference with the outcome of resolving it.
type resolved[T any] struct {
	key    string
	lookup models.Lookup[T]
}

// resolveAll runs locate for every key on at most workers goroutines, each
// bounded by its own timeout so a slow host never cancels its siblings.
// commit is called for every outcome from the calling goroutine only, which
// makes it the single writer for the run. The first commit error stops
// dispatching further keys and is returned once in-flight lookups finish.
func resolveAll[T any](
	ctx context.Context,
	workers int,
	timeout time.Duration,
	keys []string,
	locate func(ctx context.Context, key string) models.Lookup[T],
	commit func(r resolved[T]) error,
) error {
	if workers < 1 {
		workers = 1
	}

	results := make(chan resolved[T])
	stop := make(chan struct{})

	var g errgroup.Group
	g.SetLimit(workers)

	go func() {
		defer close(results)

	dispatch:
		for _, key := range keys {
			select {
			case <-stop:
				break dispatch
			default:
			}

			g.Go(func() error {
				lctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				l := locate(lctx, key)

				select {
				case results <- resolved[T]{key: key, lookup: l}:
				case <-stop:
				}

				return nil
			})
		}

		g.Wait() //nolint:errcheck // workers never return errors.
	}()

	var commitErr error

	for r := range results {
		if commitErr != nil {
			continue
		}

		if err := commit(r); err != nil {
			commitErr = err
			close(stop)
		}
	}

	return commitErr
}

// dedupe drops repeated keys, keeping first occurrences in order.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))

	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, k)
	}

	return out
}
