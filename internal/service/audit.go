package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/domain"
	"github.com/persistorai/podrestore/internal/models"
)

// Auditor is an alias for the canonical domain.Auditor interface.
type Auditor = domain.Auditor

// AuditQueryStore is the data-access interface AuditService depends on.
// It reuses domain.AuditService since the method sets are identical, avoiding duplication.
type AuditQueryStore = domain.AuditService

// Compile-time check: *AuditService must satisfy domain.AuditService.
var _ domain.AuditService = (*AuditService)(nil)

// AuditService validates audit filters and logs failed runs and purges.
type AuditService struct {
	store AuditQueryStore
	log   *logrus.Logger
}

// NewAuditService creates an AuditService.
func NewAuditService(store AuditQueryStore, log *logrus.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// RecordAudit inserts an audit log entry. Failed runs are also logged so
// they surface without querying the audit table.
func (s *AuditService) RecordAudit(
	ctx context.Context, runID, action, username, actor string, detail map[string]any,
) error {
	if action == models.AuditActionFailed {
		s.log.WithFields(logrus.Fields{
			"run_id":   runID,
			"username": username,
			"actor":    actor,
			"error":    detail["error"],
		}).Warn("archive.failed")
	}

	return s.store.RecordAudit(ctx, runID, action, username, actor, detail)
}

// QueryAudit returns audit entries matching the given filters.
func (s *AuditService) QueryAudit(
	ctx context.Context, opts models.AuditQueryOpts,
) ([]models.AuditEntry, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	return s.store.QueryAudit(ctx, opts)
}

// PurgeOldEntries deletes audit entries older than retentionDays and logs the result.
func (s *AuditService) PurgeOldEntries(ctx context.Context, retentionDays int) (int, error) {
	deleted, err := s.store.PurgeOldEntries(ctx, retentionDays)
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"retention_days": retentionDays,
		"deleted":        deleted,
	}).Info("audit.purge")

	return deleted, nil
}
