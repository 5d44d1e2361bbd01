package client

import (
	"encoding/json"
	"time"
)

// ImportOptions selects which parts of an archive are applied.
type ImportOptions struct {
	ImportProfile  bool
	ImportSettings bool
	DryRun         bool
}

// DefaultImportOptions enables the profile and settings sections.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{ImportProfile: true, ImportSettings: true}
}

// ImportRequest is the payload for creating-or-finding an account and
// importing an archive into it. Archive is the raw archive document.
type ImportRequest struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Archive  json.RawMessage `json:"archive"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	RunID                string    `json:"run_id"`
	Username             string    `json:"username"`
	DryRun               bool      `json:"dry_run"`
	AccountCreated       bool      `json:"account_created"`
	ProfileFields        int       `json:"profile_fields"`
	SettingsFields       int       `json:"settings_fields"`
	ContactGroupsCreated int       `json:"contact_groups_created"`
	ContactsCreated      int       `json:"contacts_created"`
	TagsFollowed         int       `json:"tags_followed"`
	SubscriptionsCreated int       `json:"subscriptions_created"`
	Skipped              int       `json:"skipped"`
	Warnings             []string  `json:"warnings,omitempty"`
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
}

// ArchiveStats counts the social-graph items in an archive.
type ArchiveStats struct {
	ContactGroups     int `json:"contact_groups"`
	Contacts          int `json:"contacts"`
	FollowedTags      int `json:"followed_tags"`
	PostSubscriptions int `json:"post_subscriptions"`
}

// ValidationReport is returned by the archive validation endpoint.
type ValidationReport struct {
	Valid    bool         `json:"valid"`
	Author   string       `json:"author,omitempty"`
	Stats    ArchiveStats `json:"stats"`
	Problems []string     `json:"problems,omitempty"`
}

// Settings are an account's preferences.
type Settings struct {
	Language                       string  `json:"language"`
	StripExif                      bool    `json:"strip_exif"`
	ShowCommunitySpotlightInStream bool    `json:"show_community_spotlight_in_stream"`
	AutoFollowBack                 bool    `json:"auto_follow_back"`
	AutoFollowBackGroupID          *string `json:"auto_follow_back_group_id,omitempty"`
}

// Profile is an account's public profile.
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

// Account is a local account.
type Account struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	GettingStarted bool      `json:"getting_started"`
	Settings       Settings  `json:"settings"`
	Profile        Profile   `json:"profile"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ContactGroup is a named group of contacts.
type ContactGroup struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ChatEnabled bool   `json:"chat_enabled"`
}

// AccountSummary is an account with its social graph.
type AccountSummary struct {
	Account        Account        `json:"account"`
	ContactGroups  []ContactGroup `json:"contact_groups"`
	FollowedTags   []string       `json:"followed_tags"`
	Participations []string       `json:"participations"`
	Contacts       []string       `json:"contacts"`
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        int64          `json:"id"`
	RunID     string         `json:"run_id"`
	Action    string         `json:"action"`
	Username  string         `json:"username"`
	Actor     string         `json:"actor,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	EventClients  int     `json:"event_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadyResponse is returned by the readiness endpoint.
type ReadyResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int               `json:"schema_version"`
}

// AuditQueryOptions holds parameters for querying audit logs.
type AuditQueryOptions struct {
	Username string
	Action   string
	Since    *time.Time
	Limit    int
	Offset   int
}
