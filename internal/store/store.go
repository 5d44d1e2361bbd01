// Package store provides focused, single-concern data access stores
// for podrestore accounts and their social graph.
//
// Each store owns one domain (accounts, contact groups, tags, people,
// content, audit) and embeds shared helpers (Pool, logger) via the Base
// struct. Stores never import each other; shared logic lives in this file.
// Edge inserts use ON CONFLICT DO NOTHING so repeated imports are no-ops.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/dbpool"
	"github.com/persistorai/podrestore/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// pgUniqueViolation is the SQLSTATE of a unique constraint violation.
const pgUniqueViolation = "23505"

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// beginTx starts a read-write transaction.
func (b *Base) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, nil
}

// beginReadTx starts a read-only transaction.
func (b *Base) beginReadTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	return tx, nil
}

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to one constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}

	return constraint == "" || pgErr.ConstraintName == constraint
}

// APIKeyStore handles API key lookups (API key -> key name).
type APIKeyStore struct {
	Pool *dbpool.Pool
}

// NewAPIKeyStore creates a new APIKeyStore.
func NewAPIKeyStore(pool *dbpool.Pool) *APIKeyStore {
	return &APIKeyStore{Pool: pool}
}

// LookupAPIKey returns the name of the key whose hash matches apiKey. The
// name identifies the caller in the audit log.
func (s *APIKeyStore) LookupAPIKey(ctx context.Context, apiKey string) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var name string

	err := s.Pool.QueryRow(ctx, "SELECT name FROM api_keys WHERE api_key_hash = $1", hashAPIKey(apiKey)).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("looking up API key: %w", err)
	}

	return name, nil
}

// CreateAPIKey stores the hash of apiKey under name.
func (s *APIKeyStore) CreateAPIKey(ctx context.Context, name, apiKey string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.Pool.Exec(ctx, "INSERT INTO api_keys (name, api_key_hash) VALUES ($1, $2)", name, hashAPIKey(apiKey))
	if isUniqueViolation(err, "") {
		return fmt.Errorf("API key %q: %w", name, models.ErrDuplicateKey)
	}

	if err != nil {
		return fmt.Errorf("creating API key: %w", err)
	}

	return nil
}

func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))

	return hex.EncodeToString(hash[:])
}
