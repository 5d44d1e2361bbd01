package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/persistorai/podrestore/internal/models"
)

// ContactGroupStore provides contact group ("aspect") access.
type ContactGroupStore struct {
	Base
}

// NewContactGroupStore creates a new ContactGroupStore.
func NewContactGroupStore(base Base) *ContactGroupStore {
	return &ContactGroupStore{Base: base}
}

// FindContactGroup returns the account's group with the given name.
func (s *ContactGroupStore) FindContactGroup(ctx context.Context, accountID uuid.UUID, name string) (*models.ContactGroup, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		"SELECT "+contactGroupColumns+" FROM contact_groups WHERE account_id = $1 AND name = $2",
		accountID, name)

	g, err := scanContactGroup(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrContactGroupNotFound
		}

		return nil, fmt.Errorf("finding contact group %q: %w", name, err)
	}

	return g, nil
}

// FindOrCreateContactGroup returns the account's group with the given name,
// creating it with chat enabled as given when absent. An existing group keeps
// its chat flag. The boolean reports whether the group was created.
func (s *ContactGroupStore) FindOrCreateContactGroup(
	ctx context.Context, accountID uuid.UUID, name string, chat bool,
) (*models.ContactGroup, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var g models.ContactGroup
	var wasInserted bool

	err := s.Pool.QueryRow(ctx, `
		INSERT INTO contact_groups (account_id, name, chat_enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, name) DO UPDATE SET name = contact_groups.name
		RETURNING `+contactGroupColumns+`, (xmax = 0) AS was_inserted`,
		accountID, name, chat,
	).Scan(&g.ID, &g.AccountID, &g.Name, &g.ChatEnabled, &g.CreatedAt, &wasInserted)
	if err != nil {
		return nil, false, fmt.Errorf("upserting contact group %q: %w", name, err)
	}

	return &g, wasInserted, nil
}

// TagStore provides tag and tag following access.
type TagStore struct {
	Base
}

// NewTagStore creates a new TagStore.
func NewTagStore(base Base) *TagStore {
	return &TagStore{Base: base}
}

// FindOrCreateTag returns the tag with the given normalized name, creating
// it when absent.
func (s *TagStore) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var t models.Tag

	err := s.Pool.QueryRow(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = tags.name
		RETURNING id, name, created_at`,
		name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting tag %q: %w", name, err)
	}

	return &t, nil
}

// FollowTag makes the account follow the tag. It reports false when the
// account already followed it.
func (s *TagStore) FollowTag(ctx context.Context, accountID, tagID uuid.UUID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO tag_followings (account_id, tag_id) VALUES ($1, $2)
		ON CONFLICT (account_id, tag_id) DO NOTHING`,
		accountID, tagID,
	)
	if err != nil {
		return false, fmt.Errorf("inserting tag following: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
