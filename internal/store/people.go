package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/persistorai/podrestore/internal/federation"
	"github.com/persistorai/podrestore/internal/models"
)

// PersonStore provides access to people and the contacts linking accounts
// to them.
type PersonStore struct {
	Base
}

// NewPersonStore creates a new PersonStore.
func NewPersonStore(base Base) *PersonStore {
	return &PersonStore{Base: base}
}

// FindPersonByHandle returns the person with the given canonical handle.
func (s *PersonStore) FindPersonByHandle(ctx context.Context, handle string) (*models.Person, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, "SELECT "+personColumns+" FROM people WHERE handle = $1", handle)

	p, err := scanPerson(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPersonNotFound
		}

		return nil, fmt.Errorf("finding person %q: %w", handle, err)
	}

	return p, nil
}

// UpsertPerson stores a resolved identity. A known person gets its pod and
// profile URLs refreshed; a guid, once known, is kept.
func (s *PersonStore) UpsertPerson(ctx context.Context, id federation.Identity) (*models.Person, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO people (handle, guid, pod_url, profile_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (handle) DO UPDATE SET
			guid        = COALESCE(NULLIF(people.guid, ''), EXCLUDED.guid),
			pod_url     = EXCLUDED.pod_url,
			profile_url = EXCLUDED.profile_url,
			resolved_at = NOW()
		RETURNING `+personColumns,
		id.Handle, id.GUID, id.PodURL, id.ProfileURL,
	)

	p, err := scanPerson(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("upserting person %q: %w", id.Handle, err)
	}

	return p, nil
}

// AddContact links the account to the person. An existing contact is
// returned unchanged; the boolean reports whether it was created.
func (s *PersonStore) AddContact(
	ctx context.Context, accountID, personID uuid.UUID, sharing, receiving bool,
) (*models.Contact, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c models.Contact
	var wasInserted bool

	err := s.Pool.QueryRow(ctx, `
		INSERT INTO contacts (account_id, person_id, sharing, receiving)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, person_id) DO UPDATE SET account_id = contacts.account_id
		RETURNING id, account_id, person_id, sharing, receiving, created_at, (xmax = 0) AS was_inserted`,
		accountID, personID, sharing, receiving,
	).Scan(&c.ID, &c.AccountID, &c.PersonID, &c.Sharing, &c.Receiving, &c.CreatedAt, &wasInserted)
	if err != nil {
		return nil, false, fmt.Errorf("upserting contact: %w", err)
	}

	return &c, wasInserted, nil
}

// AddMembership puts the contact into the group. It reports false when the
// contact was already a member.
func (s *PersonStore) AddMembership(ctx context.Context, contactID, groupID uuid.UUID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO contact_group_memberships (contact_id, group_id) VALUES ($1, $2)
		ON CONFLICT (contact_id, group_id) DO NOTHING`,
		contactID, groupID,
	)
	if err != nil {
		return false, fmt.Errorf("inserting group membership: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
