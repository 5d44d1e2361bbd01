package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/persistorai/podrestore/internal/federation"
	"github.com/persistorai/podrestore/internal/models"
)

// ContentStore provides access to posts and participations.
type ContentStore struct {
	Base
}

// NewContentStore creates a new ContentStore.
func NewContentStore(base Base) *ContentStore {
	return &ContentStore{Base: base}
}

// FindContentByGUID returns the post with the given guid.
func (s *ContentStore) FindContentByGUID(ctx context.Context, guid string) (*models.Content, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, "SELECT "+contentColumns+" FROM content WHERE guid = $1", guid)

	c, err := scanContent(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrContentNotFound
		}

		return nil, fmt.Errorf("finding content %s: %w", guid, err)
	}

	return c, nil
}

// UpsertRemoteContent stores a fetched post authored by authorID. A post
// already stored under the same guid is returned as is.
func (s *ContentStore) UpsertRemoteContent(
	ctx context.Context, authorID uuid.UUID, rc federation.RemoteContent,
) (*models.Content, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	createdAt := rc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO content (guid, author_id, text, public, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guid) DO UPDATE SET guid = content.guid
		RETURNING `+contentColumns,
		rc.GUID, authorID, rc.Text, rc.Public, createdAt,
	)

	c, err := scanContent(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("upserting content %s: %w", rc.GUID, err)
	}

	return c, nil
}

// Participate subscribes the account to the post. It reports false when the
// account already participated.
func (s *ContentStore) Participate(ctx context.Context, accountID, contentID uuid.UUID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO participations (account_id, content_id) VALUES ($1, $2)
		ON CONFLICT (account_id, content_id) DO NOTHING`,
		accountID, contentID,
	)
	if err != nil {
		return false, fmt.Errorf("inserting participation: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
