package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/persistorai/podrestore/internal/models"
)

// AccountStore provides account, profile and settings access.
type AccountStore struct {
	Base
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(base Base) *AccountStore {
	return &AccountStore{Base: base}
}

// FindAccountByUsername returns the account named username.
func (s *AccountStore) FindAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM "+accountFrom+" WHERE a.username = $1", username)

	a, err := scanAccount(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}

		return nil, fmt.Errorf("finding account %q: %w", username, err)
	}

	return a, nil
}

// FindOrCreateAccount returns the account named na.Username, creating it with
// default settings and an empty profile when absent. The boolean reports
// whether the account was created. An email already used by another account
// returns models.ErrAccountExists.
func (s *AccountStore) FindOrCreateAccount(ctx context.Context, na models.NewAccount) (*models.Account, bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(na.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hashing password: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("creating account: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var id uuid.UUID

	err = tx.QueryRow(ctx, `
		INSERT INTO accounts (username, email, password_hash, getting_started)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
		RETURNING id`,
		na.Username, na.Email, string(hash), na.GettingStarted,
	).Scan(&id)

	created := true

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		created = false
	case isUniqueViolation(err, "accounts_email_key"):
		return nil, false, fmt.Errorf("email %q: %w", na.Email, models.ErrAccountExists)
	case err != nil:
		return nil, false, fmt.Errorf("inserting account: %w", err)
	default:
		if _, err := tx.Exec(ctx, "INSERT INTO profiles (account_id) VALUES ($1)", id); err != nil {
			return nil, false, fmt.Errorf("inserting profile: %w", err)
		}
	}

	row := tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM "+accountFrom+" WHERE a.username = $1", na.Username)

	a, err := scanAccount(row.Scan)
	if err != nil {
		return nil, false, fmt.Errorf("reading account %q: %w", na.Username, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing account: %w", err)
	}

	return a, created, nil
}

// buildProfileUpdate constructs the SET clause and arguments for UpdateProfile.
func buildProfileUpdate(patch models.ProfilePatch) (setClauses []string, args []any) {
	add := func(column string, v any) {
		args = append(args, v)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for _, f := range []struct {
		column string
		value  *string
	}{
		{"first_name", patch.FirstName},
		{"last_name", patch.LastName},
		{"full_name", patch.FullName},
		{"image_url", patch.ImageURL},
		{"image_url_small", patch.ImageURLSmall},
		{"image_url_medium", patch.ImageURLMedium},
		{"bio", patch.Bio},
		{"gender", patch.Gender},
		{"location", patch.Location},
		{"tag_string", patch.TagString},
	} {
		if f.value != nil {
			add(f.column, *f.value)
		}
	}

	for _, f := range []struct {
		column string
		value  *bool
	}{
		{"searchable", patch.Searchable},
		{"public_details", patch.PublicDetails},
		{"nsfw", patch.NSFW},
	} {
		if f.value != nil {
			add(f.column, *f.value)
		}
	}

	if patch.Birthday != nil {
		add("birthday", *patch.Birthday)
	}

	return setClauses, args
}

// UpdateProfile overwrites the profile fields set in patch.
func (s *AccountStore) UpdateProfile(ctx context.Context, accountID uuid.UUID, patch models.ProfilePatch) error {
	setClauses, args := buildProfileUpdate(patch)
	if len(setClauses) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(
		"UPDATE profiles SET %s, updated_at = NOW() WHERE account_id = $%d",
		strings.Join(setClauses, ", "), len(args)+1,
	)
	args = append(args, accountID)

	tag, err := s.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrAccountNotFound
	}

	return nil
}

// buildSettingsUpdate constructs the SET clause and arguments for UpdateSettings.
func buildSettingsUpdate(patch models.SettingsPatch) (setClauses []string, args []any) {
	add := func(column string, v any) {
		args = append(args, v)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Language != nil {
		add("language", *patch.Language)
	}

	if patch.StripExif != nil {
		add("strip_exif", *patch.StripExif)
	}

	if patch.ShowCommunitySpotlightInStream != nil {
		add("show_community_spotlight_in_stream", *patch.ShowCommunitySpotlightInStream)
	}

	if patch.AutoFollowBack != nil {
		add("auto_follow_back", *patch.AutoFollowBack)
	}

	if patch.AutoFollowBackGroupID != nil {
		add("auto_follow_back_group_id", *patch.AutoFollowBackGroupID)
	}

	return setClauses, args
}

// UpdateSettings overwrites the settings set in patch.
func (s *AccountStore) UpdateSettings(ctx context.Context, accountID uuid.UUID, patch models.SettingsPatch) error {
	setClauses, args := buildSettingsUpdate(patch)
	if len(setClauses) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(
		"UPDATE accounts SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(setClauses, ", "), len(args)+1,
	)
	args = append(args, accountID)

	tag, err := s.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrAccountNotFound
	}

	return nil
}

// AccountSummary returns the account named username together with its
// contact groups, followed tags, participations and contacts.
func (s *AccountStore) AccountSummary(ctx context.Context, username string) (*models.AccountSummary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading account summary: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	row := tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM "+accountFrom+" WHERE a.username = $1", username)

	a, err := scanAccount(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}

		return nil, fmt.Errorf("finding account %q: %w", username, err)
	}

	sum := &models.AccountSummary{Account: *a}

	rows, err := tx.Query(ctx,
		"SELECT "+contactGroupColumns+" FROM contact_groups WHERE account_id = $1 ORDER BY name", a.ID)
	if err != nil {
		return nil, fmt.Errorf("listing contact groups: %w", err)
	}

	sum.ContactGroups, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ContactGroup, error) {
		g, err := scanContactGroup(row.Scan)
		if err != nil {
			return models.ContactGroup{}, err
		}

		return *g, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning contact groups: %w", err)
	}

	for _, q := range []struct {
		dst   *[]string
		query string
	}{
		{&sum.FollowedTags, `SELECT t.name FROM tag_followings f JOIN tags t ON t.id = f.tag_id
			WHERE f.account_id = $1 ORDER BY t.name`},
		{&sum.Participations, `SELECT c.guid FROM participations pa JOIN content c ON c.id = pa.content_id
			WHERE pa.account_id = $1 ORDER BY pa.created_at`},
		{&sum.Contacts, `SELECT pe.handle FROM contacts co JOIN people pe ON pe.id = co.person_id
			WHERE co.account_id = $1 ORDER BY pe.handle`},
	} {
		rows, err := tx.Query(ctx, q.query, a.ID)
		if err != nil {
			return nil, fmt.Errorf("listing account edges: %w", err)
		}

		*q.dst, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, fmt.Errorf("scanning account edges: %w", err)
		}
	}

	return sum, nil
}
