package models

import (
	"time"

	"github.com/google/uuid"
)

// Default values for a freshly created account.
const (
	DefaultLanguage = "en"
	// NoYear is the placeholder year for birthdays archived without one.
	NoYear = 1004
)

// Account is a local account an archive is restored into.
type Account struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	GettingStarted bool      `json:"getting_started"`
	Settings       Settings  `json:"settings"`
	Profile        Profile   `json:"profile"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Settings are the account-level preferences an archive can carry.
type Settings struct {
	Language                       string     `json:"language"`
	StripExif                      bool       `json:"strip_exif"`
	ShowCommunitySpotlightInStream bool       `json:"show_community_spotlight_in_stream"`
	AutoFollowBack                 bool       `json:"auto_follow_back"`
	AutoFollowBackGroupID          *uuid.UUID `json:"auto_follow_back_group_id,omitempty"`
}

// DefaultSettings returns the settings of a new account.
func DefaultSettings() Settings {
	return Settings{
		Language:                       DefaultLanguage,
		StripExif:                      true,
		ShowCommunitySpotlightInStream: true,
	}
}

// Profile is the public profile owned one-to-one by an account.
type Profile struct {
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	FullName       string     `json:"full_name"`
	ImageURL       string     `json:"image_url"`
	ImageURLSmall  string     `json:"image_url_small"`
	ImageURLMedium string     `json:"image_url_medium"`
	Bio            string     `json:"bio"`
	Gender         string     `json:"gender"`
	Birthday       *time.Time `json:"birthday,omitempty"`
	Location       string     `json:"location"`
	Searchable     bool       `json:"searchable"`
	PublicDetails  bool       `json:"public_details"`
	NSFW           bool       `json:"nsfw"`
	TagString      string     `json:"tag_string"`
}

// DefaultProfile returns the profile of a new account.
func DefaultProfile() Profile {
	return Profile{Searchable: true}
}

// ProfilePatch carries profile fields to overwrite. Nil fields are left alone.
type ProfilePatch struct {
	FirstName      *string
	LastName       *string
	FullName       *string
	ImageURL       *string
	ImageURLSmall  *string
	ImageURLMedium *string
	Bio            *string
	Gender         *string
	Birthday       *time.Time
	Location       *string
	Searchable     *bool
	PublicDetails  *bool
	NSFW           *bool
	TagString      *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p == ProfilePatch{}
}

// Apply writes the patch onto an in-memory profile.
func (p ProfilePatch) Apply(dst *Profile) {
	setString(&dst.FirstName, p.FirstName)
	setString(&dst.LastName, p.LastName)
	setString(&dst.FullName, p.FullName)
	setString(&dst.ImageURL, p.ImageURL)
	setString(&dst.ImageURLSmall, p.ImageURLSmall)
	setString(&dst.ImageURLMedium, p.ImageURLMedium)
	setString(&dst.Bio, p.Bio)
	setString(&dst.Gender, p.Gender)
	setString(&dst.Location, p.Location)
	setString(&dst.TagString, p.TagString)
	setBool(&dst.Searchable, p.Searchable)
	setBool(&dst.PublicDetails, p.PublicDetails)
	setBool(&dst.NSFW, p.NSFW)

	if p.Birthday != nil {
		b := *p.Birthday
		dst.Birthday = &b
	}
}

// SettingsPatch carries settings to overwrite. Nil fields are left alone.
type SettingsPatch struct {
	Language                       *string
	StripExif                      *bool
	ShowCommunitySpotlightInStream *bool
	AutoFollowBack                 *bool
	AutoFollowBackGroupID          *uuid.UUID
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p == SettingsPatch{}
}

// Apply writes the patch onto in-memory settings.
func (p SettingsPatch) Apply(dst *Settings) {
	setString(&dst.Language, p.Language)
	setBool(&dst.StripExif, p.StripExif)
	setBool(&dst.ShowCommunitySpotlightInStream, p.ShowCommunitySpotlightInStream)
	setBool(&dst.AutoFollowBack, p.AutoFollowBack)

	if p.AutoFollowBackGroupID != nil {
		id := *p.AutoFollowBackGroupID
		dst.AutoFollowBackGroupID = &id
	}
}

// NewAccount is the input for creating an account.
type NewAccount struct {
	Username       string
	Email          string
	Password       string
	GettingStarted bool
}

// AccountSummary is an account together with its social graph, as returned
// by the inspection endpoint.
type AccountSummary struct {
	Account        Account        `json:"account"`
	ContactGroups  []ContactGroup `json:"contact_groups"`
	FollowedTags   []string       `json:"followed_tags"`
	Participations []string       `json:"participations"`
	Contacts       []string       `json:"contacts"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
