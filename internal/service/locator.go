package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/federation"
	"github.com/persistorai/podrestore/internal/models"
)

// locatorStore is the subset of ImportStore the EntityLocator reads and writes.
type locatorStore interface {
	TagStore
	ContentStore
	PersonStore
}

// EntityLocator turns archive references (tag names, handles, post GUIDs) into
// local entities, fetching from remote pods when they are not known locally.
// Person and content lookups never return errors; failures come back as
// Unresolvable so callers can skip the item and move on.
type EntityLocator struct {
	store    locatorStore
	resolver IdentityResolver
	fetcher  ContentFetcher
	log      *logrus.Logger
}

// NewEntityLocator creates an EntityLocator.
func NewEntityLocator(store locatorStore, resolver IdentityResolver, fetcher ContentFetcher, log *logrus.Logger) *EntityLocator {
	return &EntityLocator{store: store, resolver: resolver, fetcher: fetcher, log: log}
}

// LocateTag finds or creates the tag with the normalized form of name.
// Invalid names return models.ErrInvalidTagName.
func (l *EntityLocator) LocateTag(ctx context.Context, name string) (*models.Tag, error) {
	normalized, err := models.NormalizeTagName(name)
	if err != nil {
		return nil, err
	}

	tag, err := l.store.FindOrCreateTag(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("locating tag %q: %w", normalized, err)
	}

	return tag, nil
}

// LocatePerson returns the local person for handle, resolving and storing the
// remote identity when it is not known yet.
func (l *EntityLocator) LocatePerson(ctx context.Context, handle string) models.Lookup[*models.Person] {
	h, err := models.ParseHandle(handle)
	if err != nil {
		return models.Unresolvable[*models.Person](err)
	}

	p, err := l.store.FindPersonByHandle(ctx, h.String())
	if err == nil {
		return models.Found(p)
	}

	if !errors.Is(err, models.ErrPersonNotFound) {
		l.log.WithError(err).WithField("handle", h.String()).Error("person lookup failed")
		return models.Unresolvable[*models.Person](err)
	}

	id, err := l.resolver.Resolve(ctx, h.String())
	if err != nil {
		return models.Unresolvable[*models.Person](err)
	}

	p, err = l.store.UpsertPerson(ctx, *id)
	if err != nil {
		l.log.WithError(err).WithField("handle", h.String()).Error("storing resolved person failed")
		return models.Unresolvable[*models.Person](err)
	}

	return models.Found(p)
}

// LocateContent returns the local post with guid. Unknown posts are fetched
// from the pod of authorHint, stored together with their author, and
// returned.
func (l *EntityLocator) LocateContent(ctx context.Context, guid, authorHint string) models.Lookup[*models.Content] {
	if err := models.ValidateGUID(guid); err != nil {
		return models.Unresolvable[*models.Content](err)
	}

	c, err := l.store.FindContentByGUID(ctx, guid)
	if err == nil {
		return models.Found(c)
	}

	if !errors.Is(err, models.ErrContentNotFound) {
		l.log.WithError(err).WithField("guid", guid).Error("content lookup failed")
		return models.Unresolvable[*models.Content](err)
	}

	if authorHint == "" {
		return models.Unresolvable[*models.Content](fmt.Errorf("%w: no author to fetch %s from", federation.ErrNotFound, guid))
	}

	hint, err := l.resolver.Resolve(ctx, authorHint)
	if err != nil {
		return models.Unresolvable[*models.Content](err)
	}

	rc, err := l.fetcher.FetchContent(ctx, hint, guid)
	if err != nil {
		return models.Unresolvable[*models.Content](err)
	}

	author := l.LocatePerson(ctx, rc.Author)

	p, ok := author.Get()
	if !ok {
		return models.Unresolvable[*models.Content](author.Reason())
	}

	c, err = l.store.UpsertRemoteContent(ctx, p.ID, *rc)
	if err != nil {
		l.log.WithError(err).WithField("guid", guid).Error("storing fetched content failed")
		return models.Unresolvable[*models.Content](err)
	}

	return models.Found(c)
}
