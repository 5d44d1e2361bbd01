package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a hashtag, unique by normalized name.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagFollowing links an account to a tag it follows.
type TagFollowing struct {
	AccountID uuid.UUID `json:"account_id"`
	TagID     uuid.UUID `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactGroup is a named group of contacts owned by an account.
type ContactGroup struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Name        string    `json:"name"`
	ChatEnabled bool      `json:"chat_enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// Person is the local record of a (possibly remote) author.
type Person struct {
	ID         uuid.UUID `json:"id"`
	Handle     string    `json:"handle"`
	GUID       string    `json:"guid,omitempty"`
	PodURL     string    `json:"pod_url"`
	ProfileURL string    `json:"profile_url,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Content is a post that accounts can participate in.
type Content struct {
	ID        uuid.UUID `json:"id"`
	GUID      string    `json:"guid"`
	AuthorID  uuid.UUID `json:"author_id"`
	Text      string    `json:"text"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// Participation links an account to a post it is subscribed to.
type Participation struct {
	AccountID uuid.UUID `json:"account_id"`
	ContentID uuid.UUID `json:"content_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact links an account to a person it shares with or receives from.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	PersonID  uuid.UUID `json:"person_id"`
	Sharing   bool      `json:"sharing"`
	Receiving bool      `json:"receiving"`
	CreatedAt time.Time `json:"created_at"`
}
