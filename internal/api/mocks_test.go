package api_test

import (
	"context"
	"errors"

	"github.com/persistorai/podrestore/internal/models"
)

// mockImporter implements api.ImportService for testing.
type mockImporter struct {
	importNewFn func(ctx context.Context, req models.ImportRequest, opts models.ImportOptions) (*models.ImportResult, error)
	restoreFn   func(ctx context.Context, username string, archive *models.Archive, opts models.ImportOptions) (*models.ImportResult, error)
	validateFn  func(ctx context.Context, archive *models.Archive) *models.ValidationReport
}

func (m *mockImporter) ImportNew(ctx context.Context, req models.ImportRequest, opts models.ImportOptions) (*models.ImportResult, error) {
	return m.importNewFn(ctx, req, opts)
}

func (m *mockImporter) Restore(ctx context.Context, username string, archive *models.Archive, opts models.ImportOptions) (*models.ImportResult, error) {
	return m.restoreFn(ctx, username, archive, opts)
}

func (m *mockImporter) ValidateArchive(ctx context.Context, archive *models.Archive) *models.ValidationReport {
	return m.validateFn(ctx, archive)
}

// mockAccounts implements api.AccountService for testing.
type mockAccounts struct {
	summaryFn func(ctx context.Context, username string) (*models.AccountSummary, error)
}

func (m *mockAccounts) GetAccountSummary(ctx context.Context, username string) (*models.AccountSummary, error) {
	return m.summaryFn(ctx, username)
}

// mockAuditRepo implements api.AuditRepository for testing.
type mockAuditRepo struct {
	queryFn func(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
	purgeFn func(ctx context.Context, retentionDays int) (int, error)
}

func (m *mockAuditRepo) RecordAudit(context.Context, string, string, string, string, map[string]any) error {
	return nil
}

func (m *mockAuditRepo) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return m.queryFn(ctx, opts)
}

func (m *mockAuditRepo) PurgeOldEntries(ctx context.Context, retentionDays int) (int, error) {
	return m.purgeFn(ctx, retentionDays)
}

// mockKeyLookup implements middleware.KeyLookup for testing.
type mockKeyLookup struct {
	keys map[string]string
}

func (m *mockKeyLookup) LookupAPIKey(_ context.Context, apiKey string) (string, error) {
	if name, ok := m.keys[apiKey]; ok {
		return name, nil
	}

	return "", errors.New("unknown key")
}
