package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/persistorai/podrestore/internal/models"
)

// accountColumns lists the columns selected for account queries. Queries
// must alias accounts as a and profiles as p.
const accountColumns = `a.id, a.username, a.email, a.password_hash, a.getting_started,
	a.language, a.strip_exif, a.show_community_spotlight_in_stream,
	a.auto_follow_back, a.auto_follow_back_group_id, a.created_at, a.updated_at,
	p.first_name, p.last_name, p.full_name, p.image_url, p.image_url_small,
	p.image_url_medium, p.bio, p.gender, p.birthday, p.location, p.searchable,
	p.public_details, p.nsfw, p.tag_string`

const accountFrom = `accounts a JOIN profiles p ON p.account_id = a.id`

// scanAccount scans a single row into a models.Account.
func scanAccount(scan func(dest ...any) error) (*models.Account, error) {
	var a models.Account
	var groupID *uuid.UUID
	var birthday *time.Time

	err := scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.GettingStarted,
		&a.Settings.Language,
		&a.Settings.StripExif,
		&a.Settings.ShowCommunitySpotlightInStream,
		&a.Settings.AutoFollowBack,
		&groupID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.Profile.FirstName,
		&a.Profile.LastName,
		&a.Profile.FullName,
		&a.Profile.ImageURL,
		&a.Profile.ImageURLSmall,
		&a.Profile.ImageURLMedium,
		&a.Profile.Bio,
		&a.Profile.Gender,
		&birthday,
		&a.Profile.Location,
		&a.Profile.Searchable,
		&a.Profile.PublicDetails,
		&a.Profile.NSFW,
		&a.Profile.TagString,
	)
	if err != nil {
		return nil, err
	}

	a.Settings.AutoFollowBackGroupID = groupID
	a.Profile.Birthday = birthday

	return &a, nil
}

const contactGroupColumns = `id, account_id, name, chat_enabled, created_at`

func scanContactGroup(scan func(dest ...any) error) (*models.ContactGroup, error) {
	var g models.ContactGroup
	if err := scan(&g.ID, &g.AccountID, &g.Name, &g.ChatEnabled, &g.CreatedAt); err != nil {
		return nil, err
	}

	return &g, nil
}

const personColumns = `id, handle, guid, pod_url, profile_url, resolved_at`

func scanPerson(scan func(dest ...any) error) (*models.Person, error) {
	var p models.Person
	if err := scan(&p.ID, &p.Handle, &p.GUID, &p.PodURL, &p.ProfileURL, &p.ResolvedAt); err != nil {
		return nil, err
	}

	return &p, nil
}

const contentColumns = `id, guid, author_id, text, public, created_at`

func scanContent(scan func(dest ...any) error) (*models.Content, error) {
	var c models.Content
	if err := scan(&c.ID, &c.GUID, &c.AuthorID, &c.Text, &c.Public, &c.CreatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}
