package models

import (
	"errors"
	"fmt"
	"time"
)

// AuditEntry records one import run against an account.
type AuditEntry struct {
	ID        int64          `json:"id"`
	RunID     string         `json:"run_id"`
	Action    string         `json:"action"`
	Username  string         `json:"username"`
	Actor     string         `json:"actor,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Audit actions.
const (
	AuditActionImport  = "archive.import"
	AuditActionRestore = "archive.restore"
	AuditActionDryRun  = "archive.dry_run"
	AuditActionFailed  = "archive.failed"
)

// ErrUnknownAuditAction is returned when an audit filter names no known action.
var ErrUnknownAuditAction = errors.New("unknown audit action")

var auditActions = map[string]bool{
	AuditActionImport:  true,
	AuditActionRestore: true,
	AuditActionDryRun:  true,
	AuditActionFailed:  true,
}

// AuditQueryOpts holds filters for querying the audit log.
type AuditQueryOpts struct {
	Username string
	Action   string
	Since    *time.Time
	Limit    int
	Offset   int
}

// Validate checks the optional username and action filters.
func (o AuditQueryOpts) Validate() error {
	if o.Username != "" {
		if err := ValidateUsername(o.Username); err != nil {
			return err
		}
	}

	if o.Action != "" && !auditActions[o.Action] {
		return fmt.Errorf("%w: %q", ErrUnknownAuditAction, o.Action)
	}

	return nil
}
