package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/persistorai/podrestore/internal/federation"
	"github.com/persistorai/podrestore/internal/models"
)

// AccountStore is the account repository the importer depends on.
type AccountStore interface {
	FindAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	// FindOrCreateAccount returns the account with the given username, creating
	// it when absent. The bool reports whether it was created.
	FindOrCreateAccount(ctx context.Context, acct models.NewAccount) (*models.Account, bool, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, patch models.ProfilePatch) error
	UpdateSettings(ctx context.Context, accountID uuid.UUID, patch models.SettingsPatch) error
}

// ContactGroupStore manages an account's contact groups.
type ContactGroupStore interface {
	FindContactGroup(ctx context.Context, accountID uuid.UUID, name string) (*models.ContactGroup, error)
	FindOrCreateContactGroup(ctx context.Context, accountID uuid.UUID, name string, chatEnabled bool) (*models.ContactGroup, bool, error)
}

// TagStore manages tags and tag followings.
type TagStore interface {
	FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error)
	// FollowTag inserts the following if absent and reports whether it was created.
	FollowTag(ctx context.Context, accountID, tagID uuid.UUID) (bool, error)
}

// ContentStore manages posts and participations.
type ContentStore interface {
	FindContentByGUID(ctx context.Context, guid string) (*models.Content, error)
	UpsertRemoteContent(ctx context.Context, authorID uuid.UUID, rc federation.RemoteContent) (*models.Content, error)
	// Participate inserts the participation if absent and reports whether it was created.
	Participate(ctx context.Context, accountID, contentID uuid.UUID) (bool, error)
}

// PersonStore manages people and contacts.
type PersonStore interface {
	FindPersonByHandle(ctx context.Context, handle string) (*models.Person, error)
	UpsertPerson(ctx context.Context, id federation.Identity) (*models.Person, error)
	AddContact(ctx context.Context, accountID, personID uuid.UUID, sharing, receiving bool) (*models.Contact, bool, error)
	AddMembership(ctx context.Context, contactID, groupID uuid.UUID) (bool, error)
}

// ImportStore is everything an import run reads and writes.
type ImportStore interface {
	AccountStore
	ContactGroupStore
	TagStore
	ContentStore
	PersonStore
}

// IdentityResolver turns a handle into a remote identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, handle string) (*federation.Identity, error)
}

// ContentFetcher retrieves a post from its author's pod.
type ContentFetcher interface {
	FetchContent(ctx context.Context, author *federation.Identity, guid string) (*federation.RemoteContent, error)
}
