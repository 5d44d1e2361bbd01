// Package models defines data types for account archives and the accounts they restore into.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Archive is the exported snapshot of one account. Only the user section is
// required; everything else is optional and absent fields leave the target
// account untouched. Version is carried through but never interpreted.
type Archive struct {
	Version json.RawMessage `json:"version,omitempty"`
	User    *UserSection    `json:"user"`
}

// UserSection is the "user" object of an archive.
type UserSection struct {
	Username                       *string            `json:"username,omitempty"`
	Email                          *string            `json:"email,omitempty"`
	Language                       *string            `json:"language,omitempty"`
	StripExif                      *bool              `json:"strip_exif,omitempty"`
	ShowCommunitySpotlightInStream *bool              `json:"show_community_spotlight_in_stream,omitempty"`
	AutoFollowBack                 *bool              `json:"auto_follow_back,omitempty"`
	AutoFollowBackAspect           *string            `json:"auto_follow_back_aspect,omitempty"`
	Profile                        *ProfileSection    `json:"profile"`
	ContactGroups                  []ContactGroupData `json:"contact_groups,omitempty"`
	Contacts                       []ContactData      `json:"contacts,omitempty"`
	FollowedTags                   []string           `json:"followed_tags,omitempty"`
	PostSubscriptions              []string           `json:"post_subscriptions,omitempty"`

	fieldErrs []error
}

// UnmarshalJSON decodes the user section one field at a time. A field of the
// wrong JSON type is left absent and kept as a FieldError.
func (u *UserSection) UnmarshalJSON(b []byte) error {
	d, err := newFieldDecoder(b, "user.")
	if err != nil {
		return fmt.Errorf("%w: user is not an object", ErrMalformedArchive)
	}

	decodeField(d, "username", &u.Username)
	decodeField(d, "email", &u.Email)
	decodeField(d, "language", &u.Language)
	decodeField(d, "strip_exif", &u.StripExif)
	decodeField(d, "show_community_spotlight_in_stream", &u.ShowCommunitySpotlightInStream)
	decodeField(d, "auto_follow_back", &u.AutoFollowBack)
	decodeField(d, "auto_follow_back_aspect", &u.AutoFollowBackAspect)
	decodeField(d, "profile", &u.Profile)
	decodeField(d, "contact_groups", &u.ContactGroups)
	decodeField(d, "contacts", &u.Contacts)
	decodeField(d, "followed_tags", &u.FollowedTags)
	decodeField(d, "post_subscriptions", &u.PostSubscriptions)

	u.fieldErrs = d.errs

	return nil
}

// ProfileSection wraps the federation entity the profile was exported as.
type ProfileSection struct {
	EntityData *EntityData `json:"entity_data"`
}

// EntityData holds the archived author handle and profile fields.
type EntityData struct {
	Author         string  `json:"author"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	FullName       *string `json:"full_name,omitempty"`
	ImageURL       *string `json:"image_url,omitempty"`
	ImageURLSmall  *string `json:"image_url_small,omitempty"`
	ImageURLMedium *string `json:"image_url_medium,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	Birthday       *string `json:"birthday,omitempty"`
	Location       *string `json:"location,omitempty"`
	Searchable     *bool   `json:"searchable,omitempty"`
	Public         *bool   `json:"public,omitempty"`
	NSFW           *bool   `json:"nsfw,omitempty"`
	TagString      *string `json:"tag_string,omitempty"`

	fieldErrs []error
}

// UnmarshalJSON decodes the profile entity one field at a time, like
// UserSection.
func (e *EntityData) UnmarshalJSON(b []byte) error {
	d, err := newFieldDecoder(b, "user.profile.entity_data.")
	if err != nil {
		return fmt.Errorf("%w: entity_data is not an object", ErrMalformedArchive)
	}

	decodeField(d, "author", &e.Author)
	decodeField(d, "first_name", &e.FirstName)
	decodeField(d, "last_name", &e.LastName)
	decodeField(d, "full_name", &e.FullName)
	decodeField(d, "image_url", &e.ImageURL)
	decodeField(d, "image_url_small", &e.ImageURLSmall)
	decodeField(d, "image_url_medium", &e.ImageURLMedium)
	decodeField(d, "bio", &e.Bio)
	decodeField(d, "gender", &e.Gender)
	decodeField(d, "birthday", &e.Birthday)
	decodeField(d, "location", &e.Location)
	decodeField(d, "searchable", &e.Searchable)
	decodeField(d, "public", &e.Public)
	decodeField(d, "nsfw", &e.NSFW)
	decodeField(d, "tag_string", &e.TagString)

	e.fieldErrs = d.errs

	return nil
}

// fieldDecoder holds the raw members of one archive object and collects the
// fields that could not be decoded.
type fieldDecoder struct {
	prefix string
	raw    map[string]json.RawMessage
	errs   []error
}

func newFieldDecoder(b []byte, prefix string) (*fieldDecoder, error) {
	d := &fieldDecoder{prefix: prefix}
	if err := json.Unmarshal(b, &d.raw); err != nil {
		return nil, err
	}

	return d, nil
}

// decodeField stores the member named key into dst. dst is only written when
// the member decodes cleanly.
func decodeField[T any](d *fieldDecoder, key string, dst *T) {
	raw, ok := d.raw[key]
	if !ok {
		return
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		d.errs = append(d.errs, &FieldError{Field: d.prefix + key, Err: fmt.Errorf("%w: %v", ErrWrongType, err)})

		return
	}

	*dst = v
}

// ContactGroupData describes one archived contact group ("aspect").
type ContactGroupData struct {
	Name        string `json:"name"`
	ChatEnabled *bool  `json:"chat_enabled,omitempty"`
}

// ContactData describes one archived contact.
type ContactData struct {
	AccountID  string   `json:"account_id"`
	Groups     []string `json:"contact_groups_membership,omitempty"`
	Following  *bool    `json:"following,omitempty"`
	Sharing    *bool    `json:"sharing,omitempty"`
	PersonGUID string   `json:"person_guid,omitempty"`
}

// SettingsData is the settings-shaped subset of the user section.
type SettingsData struct {
	ContactGroups                  []ContactGroupData
	Language                       *string
	StripExif                      *bool
	ShowCommunitySpotlightInStream *bool
	AutoFollowBack                 *bool
	AutoFollowBackAspect           *string
}

// ArchiveStats counts what an archive would feed into an import.
type ArchiveStats struct {
	ContactGroups     int `json:"contact_groups"`
	Contacts          int `json:"contacts"`
	FollowedTags      int `json:"followed_tags"`
	PostSubscriptions int `json:"post_subscriptions"`
}

// ParseArchive decodes an archive document and checks its required structure.
// Unknown keys are ignored. Anything that is not a JSON object, or that lacks
// the user section or its author handle, yields ErrMalformedArchive. Optional
// fields of the wrong type are dropped and reported by FieldErrors.
func ParseArchive(r io.Reader) (*Archive, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	return DecodeArchive(raw)
}

// DecodeArchive is ParseArchive for an in-memory document.
func DecodeArchive(raw []byte) (*Archive, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: document is not a JSON object", ErrMalformedArchive)
	}

	var a Archive
	if err := json.Unmarshal(trimmed, &a); err != nil {
		if errors.Is(err, ErrMalformedArchive) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return &a, nil
}

// Validate checks the structure every import depends on.
func (a *Archive) Validate() error {
	if a == nil || a.User == nil {
		return fmt.Errorf("%w: missing user section", ErrMalformedArchive)
	}

	if a.User.Profile == nil || a.User.Profile.EntityData == nil {
		return fmt.Errorf("%w: missing user.profile.entity_data", ErrMalformedArchive)
	}

	if strings.TrimSpace(a.User.Profile.EntityData.Author) == "" {
		return fmt.Errorf("%w: missing user.profile.entity_data.author", ErrMalformedArchive)
	}

	return nil
}

// FieldErrors lists the archived fields that were dropped while decoding
// because their JSON type was wrong.
func (a *Archive) FieldErrors() []error {
	if a == nil || a.User == nil {
		return nil
	}

	errs := slices.Clone(a.User.fieldErrs)
	if a.User.Profile != nil && a.User.Profile.EntityData != nil {
		errs = append(errs, a.User.Profile.EntityData.fieldErrs...)
	}

	return errs
}

// AuthorHandle returns the handle the archive was exported from.
func (a *Archive) AuthorHandle() string {
	return strings.TrimSpace(a.User.Profile.EntityData.Author)
}

// EntityData returns the archived profile entity.
func (a *Archive) EntityData() *EntityData {
	return a.User.Profile.EntityData
}

// Settings returns the settings-shaped subset of the user section.
func (a *Archive) Settings() SettingsData {
	u := a.User

	return SettingsData{
		ContactGroups:                  u.ContactGroups,
		Language:                       u.Language,
		StripExif:                      u.StripExif,
		ShowCommunitySpotlightInStream: u.ShowCommunitySpotlightInStream,
		AutoFollowBack:                 u.AutoFollowBack,
		AutoFollowBackAspect:           u.AutoFollowBackAspect,
	}
}

// Email returns the archived email address, or "" when absent.
func (a *Archive) Email() string {
	if a.User.Email == nil {
		return ""
	}

	return strings.TrimSpace(*a.User.Email)
}

// Stats counts the social-graph items in the archive.
func (a *Archive) Stats() ArchiveStats {
	return ArchiveStats{
		ContactGroups:     len(a.User.ContactGroups),
		Contacts:          len(a.User.Contacts),
		FollowedTags:      len(a.User.FollowedTags),
		PostSubscriptions: len(a.User.PostSubscriptions),
	}
}
