package models

import (
	"fmt"
	"regexp"
	"time"
)

// ImportOptions selects which parts of an archive an import applies.
type ImportOptions struct {
	// ImportProfile merges the archived profile fields into the account profile.
	ImportProfile bool `json:"import_profile"`
	// ImportSettings merges account settings and contact groups.
	ImportSettings bool `json:"import_settings"`
	// DryRun validates and counts what would be applied without contacting
	// remote pods or writing anything.
	DryRun bool `json:"dry_run"`
	// Actor names the API client that started the run, for the audit trail.
	Actor string `json:"-"`
}

// DefaultImportOptions enables every section.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{ImportProfile: true, ImportSettings: true}
}

// ImportResult summarises the outcome of an import run.
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

// Warn records a skipped item.
func (r *ImportResult) Warn(format string, args ...any) {
	r.Skipped++
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// EdgesCreated is the number of social-graph links the run created.
func (r *ImportResult) EdgesCreated() int {
	return r.ContactGroupsCreated + r.ContactsCreated + r.TagsFollowed + r.SubscriptionsCreated
}

// ValidationReport is the outcome of checking an archive without importing it.
type ValidationReport struct {
	Valid    bool         `json:"valid"`
	Author   string       `json:"author,omitempty"`
	Stats    ArchiveStats `json:"stats"`
	Problems []string     `json:"problems,omitempty"`
}

// ImportRequest is the body of the import endpoint.
type ImportRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Archive  *Archive `json:"archive"`
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Max lengths for account credentials.
const (
	MaxUsernameLen = 32
	MaxPasswordLen = 72
)

// ValidateUsername checks a local account name.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrMissingUsername
	}

	if len(username) > MaxUsernameLen {
		return ErrFieldTooLong("username", MaxUsernameLen)
	}

	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}

	return nil
}

// Validate checks required fields and lengths.
func (r *ImportRequest) Validate() error {
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}

	if r.Password == "" {
		return ErrMissingPassword
	}

	if len(r.Password) > MaxPasswordLen {
		return ErrFieldTooLong("password", MaxPasswordLen)
	}

	if r.Archive == nil {
		return ErrMissingArchive
	}

	return r.Archive.Validate()
}
