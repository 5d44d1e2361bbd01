// Package main is the podrestore server: it applies the schema, serves the
// REST API and runs archive imports against PostgreSQL.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/podrestore/internal/api"
	"github.com/persistorai/podrestore/internal/config"
	"github.com/persistorai/podrestore/internal/db"
	"github.com/persistorai/podrestore/internal/db/migrations"
	"github.com/persistorai/podrestore/internal/dbpool"
	"github.com/persistorai/podrestore/internal/federation"
	"github.com/persistorai/podrestore/internal/service"
	"github.com/persistorai/podrestore/internal/store"
	"github.com/persistorai/podrestore/internal/ws"
)

const (
	auditQueueSize  = 256
	shutdownTimeout = 15 * time.Second
)

func main() {
	root := &cobra.Command{
		Use:          "podrestore",
		Short:        "Account archive restore server",
		Version:      config.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newCreateKeyCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	log.SetOutput(os.Stdout)

	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}

	return log
}

// setup loads config and opens a migrated pool.
func setup(ctx context.Context) (*config.Config, *logrus.Logger, *dbpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return cfg, log, pool, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, pool, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			log.WithField("schema_version", db.SchemaVersion()).Info("schema up to date")
			return nil
		},
	}
}

func newCreateKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-key <name>",
		Short: "Issue an API key and print it once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, pool, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			key := "pr_" + hex.EncodeToString(buf)

			if err := store.NewAPIKeyStore(pool).CreateAPIKey(cmd.Context(), args[0], key); err != nil {
				return fmt.Errorf("storing key: %w", err)
			}

			fmt.Println(key)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, pool, err := setup(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	base := store.Base{Pool: pool, Log: log}
	importStore := store.NewImportStore(base)
	auditSvc := service.NewAuditService(store.NewAuditStore(base), log)
	accountSvc := service.NewAccountService(importStore)

	fed := federation.NewClient(federation.Options{
		Scheme:     cfg.DiscoveryScheme,
		Timeout:    cfg.DiscoveryTimeout,
		MaxRetries: uint64(cfg.DiscoveryRetries), //nolint:gosec // validated to 0..5.
	}, log)
	resolver := federation.NewResolver(fed, cfg.DiscoveryCacheTTL)

	auditWorker := service.NewAuditWorker(auditSvc, log, auditQueueSize)
	hub := ws.NewHub(log)

	importer := service.NewArchiveImporter(importStore, resolver, fed, hub, auditWorker, service.ImporterConfig{
		Workers:       cfg.ResolveWorkers,
		LookupTimeout: cfg.LookupTimeout,
		RunTimeout:    cfg.ImportTimeout,
	}, log)

	// Background workers stop on bgCtx; the HTTP server is drained first.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	workersDone := make(chan struct{})
	go func() {
		auditWorker.Run(bgCtx)
		close(workersDone)
	}()
	go hub.Run(bgCtx)

	handler := api.NewRouter(bgCtx, &api.RouterDeps{
		Log:             log,
		Pool:            pool,
		Hub:             hub,
		Importer:        importer,
		Accounts:        accountSvc,
		Audit:           auditSvc,
		KeyLookup:       store.NewAPIKeyStore(pool),
		CORSOrigins:     cfg.CORSOrigins,
		Version:         config.Version,
		MaxArchiveBytes: cfg.MaxArchiveBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No read or write timeout: the events stream is long-lived and import runs are
		// bounded by IMPORT_TIMEOUT in the service.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr(), "version": config.Version}).Info("podrestore listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server did not drain cleanly")
	}

	bgCancel()
	<-workersDone

	return nil
}
