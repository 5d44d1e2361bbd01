package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/models"
)

// AuditStore provides data access for the import_audit_log table.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// RecordAudit inserts an audit log entry for an import run.
func (s *AuditStore) RecordAudit(
	ctx context.Context,
	runID, action, username, actor string,
	detail map[string]any,
) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var detailJSON []byte
	if detail != nil {
		var err error

		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
	}

	var actorArg *string
	if actor != "" {
		actorArg = &actor
	}

	_, err := s.Pool.Exec(ctx, `
		INSERT INTO import_audit_log (run_id, action, username, actor, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		runID, action, username, actorArg, detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// buildAuditFilter builds WHERE clause and args from AuditQueryOpts.
func buildAuditFilter(opts models.AuditQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	if opts.Username != "" {
		conditions = append(conditions, "username = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Username)
		argIdx++
	}
	if opts.Action != "" {
		conditions = append(conditions, "action = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Action)
		argIdx++
	}
	if opts.Since != nil {
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// maxListLimit caps limit values for list queries.
const maxListLimit = 1000

// QueryAudit returns audit entries matching the given filters, newest first.
// Returns entries, hasMore flag, and any error.
func (s *AuditStore) QueryAudit(
	ctx context.Context, opts models.AuditQueryOpts,
) ([]models.AuditEntry, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	where, args, argIdx := buildAuditFilter(opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	limit = min(limit, maxListLimit)

	query := fmt.Sprintf(
		"SELECT id, run_id, action, username, actor, detail, created_at FROM import_audit_log %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, argIdx, argIdx+1,
	)
	args = append(args, limit+1, opts.Offset)

	entries, err := scanAuditRows(ctx, tx, query, args, s.Log)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	return entries, hasMore, nil
}

// scanAuditRows executes a query and scans audit entries from the result.
func scanAuditRows(ctx context.Context, tx pgx.Tx, query string, args []any, log *logrus.Logger) ([]models.AuditEntry, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var detailJSON []byte
		var actor *string

		if err := rows.Scan(&e.ID, &e.RunID, &e.Action, &e.Username, &actor, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if actor != nil {
			e.Actor = *actor
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				log.WithError(err).Warn("failed to unmarshal audit detail")
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}

	return entries, nil
}

// purgeBatchSize limits the number of rows deleted per statement to avoid
// holding long locks on import_audit_log.
const purgeBatchSize = 5000

// PurgeOldEntries deletes audit entries older than retentionDays in batches.
// Returns the number of deleted entries.
func (s *AuditStore) PurgeOldEntries(ctx context.Context, retentionDays int) (int, error) {
	var totalDeleted int

	for {
		batchCtx, cancel := withTimeout(ctx)

		tag, err := s.Pool.Exec(batchCtx,
			`DELETE FROM import_audit_log WHERE id IN (
				SELECT id FROM import_audit_log
				WHERE created_at < NOW() - make_interval(days => $1)
				LIMIT $2
			)`,
			retentionDays, purgeBatchSize,
		)
		cancel()

		if err != nil {
			return totalDeleted, fmt.Errorf("purging audit entries: %w", err)
		}

		deleted := int(tag.RowsAffected())
		totalDeleted += deleted

		if deleted < purgeBatchSize {
			break
		}
	}

	return totalDeleted, nil
}
