// Package domain defines the canonical service interfaces shared across API
// layers (REST, WebSocket, client). Consumers should depend on these interfaces
// rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/podrestore/internal/models"
)

// ImportService defines archive import operations.
type ImportService interface {
	ImportNew(ctx context.Context, req models.ImportRequest, opts models.ImportOptions) (*models.ImportResult, error)
	Restore(ctx context.Context, username string, archive *models.Archive, opts models.ImportOptions) (*models.ImportResult, error)
	ValidateArchive(ctx context.Context, archive *models.Archive) *models.ValidationReport
}

// AccountService defines account inspection operations.
type AccountService interface {
	GetAccountSummary(ctx context.Context, username string) (*models.AccountSummary, error)
}

// AuditService defines audit log query and maintenance operations.
type AuditService interface {
	Auditor
	QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
	PurgeOldEntries(ctx context.Context, retentionDays int) (int, error)
}

// Auditor is the minimal interface for recording audit entries.
// Used by services and handlers for fire-and-forget audit logging.
type Auditor interface {
	RecordAudit(ctx context.Context, runID, action, username, actor string, detail map[string]any) error
}
