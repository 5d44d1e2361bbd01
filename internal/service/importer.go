// Package service implements account archive imports: merging an archived
// profile, settings and social graph into a local account.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/persistorai/podrestore/internal/domain"
	"github.com/persistorai/podrestore/internal/metrics"
	"github.com/persistorai/podrestore/internal/models"
)

// Import modes, used as metric and audit labels.
const (
	modeImport  = "import"
	modeRestore = "restore"
	modeDryRun  = "dry_run"
)

// Compile-time check: *ArchiveImporter must satisfy domain.ImportService.
var _ domain.ImportService = (*ArchiveImporter)(nil)

// ImporterConfig bounds the remote work of an import run.
type ImporterConfig struct {
	// Workers is the number of concurrent remote lookups.
	Workers int
	// LookupTimeout bounds a single person or post resolution.
	LookupTimeout time.Duration
	// RunTimeout bounds all remote work of one run. Items still unresolved
	// when it expires are skipped.
	RunTimeout time.Duration
}

// DefaultImporterConfig returns the production defaults.
func DefaultImporterConfig() ImporterConfig {
	return ImporterConfig{Workers: 4, LookupTimeout: 30 * time.Second, RunTimeout: 5 * time.Minute}
}

// ArchiveImporter merges archives into local accounts.
type ArchiveImporter struct {
	store       ImportStore
	locator     *EntityLocator
	events      EventPublisher
	auditWorker AuditEnqueuer
	locks       *accountLocks
	cfg         ImporterConfig
	log         *logrus.Logger
}

// NewArchiveImporter creates an ArchiveImporter. events and auditWorker may be nil.
func NewArchiveImporter(
	store ImportStore,
	resolver IdentityResolver,
	fetcher ContentFetcher,
	events EventPublisher,
	auditWorker AuditEnqueuer,
	cfg ImporterConfig,
	log *logrus.Logger,
) *ArchiveImporter {
	def := DefaultImporterConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}

	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}

	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}

	return &ArchiveImporter{
		store:       store,
		locator:     NewEntityLocator(store, resolver, fetcher, log),
		events:      events,
		auditWorker: auditWorker,
		locks:       newAccountLocks(),
		cfg:         cfg,
		log:         log,
	}
}

// FindOrCreateUser returns the account named username, creating it from the
// archive when absent. A new account takes the archive's email, has
// getting_started cleared and gets the archived profile and settings applied.
// An existing account is only returned when password matches it.
func (s *ArchiveImporter) FindOrCreateUser(
	ctx context.Context, archive *models.Archive, username, password string,
) (*models.Account, bool, error) {
	if err := archive.Validate(); err != nil {
		return nil, false, err
	}

	email := archive.Email()
	if email == "" {
		return nil, false, models.ErrMissingEmail
	}

	acct, created, err := s.store.FindOrCreateAccount(ctx, models.NewAccount{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, false, fmt.Errorf("finding or creating account %q: %w", username, err)
	}

	if !created {
		if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
			return nil, false, models.ErrAccountExists
		}

		return acct, false, nil
	}

	delta := mergeProfile(archive.EntityData(), acct.Profile)
	s.logRejected(username, archive.FieldErrors())
	s.logRejected(username, delta.errs)

	if !delta.patch.Empty() {
		if err := s.store.UpdateProfile(ctx, acct.ID, delta.patch); err != nil {
			return nil, false, fmt.Errorf("applying profile to new account %q: %w", username, err)
		}

		delta.patch.Apply(&acct.Profile)
	}

	settings, err := applySettings(ctx, s.store, acct, archive)
	s.logRejected(username, settings.errs)

	if err != nil {
		return nil, false, fmt.Errorf("applying settings to new account %q: %w", username, err)
	}

	s.log.WithFields(logrus.Fields{"account": username, "author": archive.AuthorHandle()}).Info("account created from archive")

	return acct, true, nil
}

func (s *ArchiveImporter) logRejected(username string, errs []error) {
	for _, e := range errs {
		s.log.WithField("account", username).WithError(e).Info("archived field not applied")
	}
}

// ImportNew finds or creates the requested account and imports the archive
// into it.
func (s *ArchiveImporter) ImportNew(
	ctx context.Context, req models.ImportRequest, opts models.ImportOptions,
) (*models.ImportResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if opts.DryRun {
		return s.dryRun(req.Username, req.Archive, opts), nil
	}

	acct, created, err := s.FindOrCreateUser(ctx, req.Archive, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	result, err := s.run(ctx, acct, req.Archive, opts, modeImport)
	if err != nil {
		return nil, err
	}

	result.AccountCreated = created

	return result, nil
}

// Restore imports the archive into the existing account named username.
func (s *ArchiveImporter) Restore(
	ctx context.Context, username string, archive *models.Archive, opts models.ImportOptions,
) (*models.ImportResult, error) {
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}

	if err := archive.Validate(); err != nil {
		return nil, err
	}

	acct, err := s.store.FindAccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return s.dryRun(username, archive, opts), nil
	}

	return s.run(ctx, acct, archive, opts, modeRestore)
}

// Import merges archive into account. Only a malformed archive, a missing
// account, or a storage failure return an error; unresolvable references are
// skipped and listed in the result's warnings.
func (s *ArchiveImporter) Import(
	ctx context.Context, account *models.Account, archive *models.Archive, opts models.ImportOptions,
) (*models.ImportResult, error) {
	if err := archive.Validate(); err != nil {
		return nil, err
	}

	if account == nil {
		return nil, models.ErrAccountNotFound
	}

	if opts.DryRun {
		return s.dryRun(account.Username, archive, opts), nil
	}

	return s.run(ctx, account, archive, opts, modeRestore)
}

// ValidateArchive checks an archive and reports what an import would skip.
func (s *ArchiveImporter) ValidateArchive(_ context.Context, archive *models.Archive) *models.ValidationReport {
	if err := archive.Validate(); err != nil {
		return &models.ValidationReport{Problems: []string{err.Error()}}
	}

	dry := s.dryRun("", archive, models.DefaultImportOptions())

	return &models.ValidationReport{
		Valid:    true,
		Author:   archive.AuthorHandle(),
		Stats:    archive.Stats(),
		Problems: dry.Warnings,
	}
}

func (s *ArchiveImporter) run(
	ctx context.Context, account *models.Account, archive *models.Archive, opts models.ImportOptions, mode string,
) (*models.ImportResult, error) {
	start := time.Now()

	budget, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	unlock, err := s.locks.lock(budget, account.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := &importRun{
		ArchiveImporter: s,
		ctx:             ctx,
		budget:          budget,
		account:         account,
		archive:         archive,
		opts:            opts,
		result: &models.ImportResult{
			RunID:     uuid.NewString(),
			Username:  account.Username,
			StartedAt: start.UTC(),
		},
	}

	publish(s.events, s.log, EventImportStarted, account.Username, map[string]any{
		"run_id": r.result.RunID, "mode": mode, "author": archive.AuthorHandle(),
	})

	if err := r.execute(); err != nil {
		metrics.ImportsTotal.WithLabelValues(mode, "failed").Inc()
		s.audit(r, models.AuditActionFailed, mode, err)
		publish(s.events, s.log, EventImportFailed, account.Username, map[string]any{
			"run_id": r.result.RunID, "error": err.Error(),
		})

		return nil, err
	}

	r.result.FinishedAt = time.Now().UTC()

	metrics.ImportsTotal.WithLabelValues(mode, "completed").Inc()
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	action := models.AuditActionImport
	if mode == modeRestore {
		action = models.AuditActionRestore
	}

	s.audit(r, action, mode, nil)
	publish(s.events, s.log, EventImportCompleted, account.Username, r.result)

	s.log.WithFields(logrus.Fields{
		"account":       account.Username,
		"run_id":        r.result.RunID,
		"edges_created": r.result.EdgesCreated(),
		"skipped":       r.result.Skipped,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("archive import completed")

	return r.result, nil
}

func (s *ArchiveImporter) audit(r *importRun, action, mode string, runErr error) {
	detail := map[string]any{
		"mode":          mode,
		"author":        r.archive.AuthorHandle(),
		"edges_created": r.result.EdgesCreated(),
		"skipped":       r.result.Skipped,
	}

	if runErr != nil {
		detail["error"] = runErr.Error()
	}

	auditAsync(s.auditWorker, &AuditJob{
		RunID:    r.result.RunID,
		Action:   action,
		Username: r.account.Username,
		Actor:    r.opts.Actor,
		Detail:   detail,
	})
}

// dryRun validates every section the options enable and counts what a real
// run would process. Nothing remote is contacted and nothing is written.
func (s *ArchiveImporter) dryRun(username string, archive *models.Archive, opts models.ImportOptions) *models.ImportResult {
	result := &models.ImportResult{
		RunID:     uuid.NewString(),
		Username:  username,
		DryRun:    true,
		StartedAt: time.Now().UTC(),
	}

	warnAll(result, archive.FieldErrors())

	if opts.ImportProfile {
		delta := mergeProfile(archive.EntityData(), models.DefaultProfile())
		result.ProfileFields = delta.fields
		warnAll(result, delta.errs)
	}

	if opts.ImportSettings {
		delta := mergeSettings(archive.Settings())
		result.SettingsFields = delta.fields
		warnAll(result, delta.errs)

		if delta.aspectSet {
			result.SettingsFields++
		}
	}

	groups := make(map[string]struct{})
	for _, g := range archive.User.ContactGroups {
		name, err := normalizeGroupName(g.Name)
		if err != nil {
			result.Warn("contact group %q skipped: %v", g.Name, err)
			continue
		}

		groups[name] = struct{}{}
	}

	result.ContactGroupsCreated = len(groups)

	tags := make(map[string]struct{})
	for _, name := range archive.User.FollowedTags {
		n, err := models.NormalizeTagName(name)
		if err != nil {
			result.Warn("tag %q skipped: %v", name, err)
			continue
		}

		tags[n] = struct{}{}
	}

	result.TagsFollowed = len(tags)

	for _, key := range dedupe(contactKeys(archive.User.Contacts)) {
		if _, err := models.ParseHandle(key); err != nil {
			result.Warn("contact %q skipped: %v", key, err)
			continue
		}

		result.ContactsCreated++
	}

	for _, guid := range dedupe(archive.User.PostSubscriptions) {
		if err := models.ValidateGUID(guid); err != nil {
			result.Warn("subscription %q skipped: %v", guid, err)
			continue
		}

		result.SubscriptionsCreated++
	}

	result.FinishedAt = time.Now().UTC()
	metrics.ImportsTotal.WithLabelValues(modeDryRun, "completed").Inc()

	return result
}

func warnAll(result *models.ImportResult, errs []error) {
	for _, e := range errs {
		result.Warn("%v", e)
	}
}
