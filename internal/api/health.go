// Package api provides HTTP handlers for podrestore.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/db"
	"github.com/persistorai/podrestore/internal/dbpool"
	"github.com/persistorai/podrestore/internal/ws"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      *dbpool.Pool
	hub       *ws.Hub
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler with the given dependencies.
func NewHealthHandler(pool *dbpool.Pool, hub *ws.Hub, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		hub:       hub,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int               `json:"schema_version"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	DBConnsInUse  int32   `json:"db_conns_in_use"`
	DBConnsIdle   int32   `json:"db_conns_idle"`
	EventClients  int     `json:"event_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	// Best-effort database ping (non-fatal for liveness).
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}

		resp.DBConnsInUse, resp.DBConnsIdle = h.pool.Stats()
	} else {
		resp.Database = "not_configured"
	}

	if h.hub != nil {
		resp.EventClients = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. It checks the database and that every
// embedded migration has been applied.
func (h *HealthHandler) Readiness(c *gin.Context) {
	want := db.SchemaVersion()
	checks := map[string]string{
		"database": "ok",
		"schema":   "ok",
	}
	status := "ready"
	statusCode := http.StatusOK

	notReady := func() {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	if h.pool == nil {
		checks["database"] = "not_configured"
		checks["schema"] = "unknown"
		notReady()
		c.JSON(statusCode, readinessResponse{Status: status, Checks: checks, SchemaVersion: want})

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.pool.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		checks["database"] = "error"
		checks["schema"] = "unknown"
		notReady()
	} else if err := h.checkSchema(ctx, want); err != nil {
		h.log.WithError(err).Error("readiness: schema check failed")
		checks["schema"] = "error"
		notReady()
	}

	c.JSON(statusCode, readinessResponse{
		Status:        status,
		Checks:        checks,
		SchemaVersion: want,
	})
}

// checkSchema compares the newest applied goose migration with the embedded set.
func (h *HealthHandler) checkSchema(ctx context.Context, want int) error {
	var applied int64
	err := h.pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied",
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	if applied < int64(want) {
		return fmt.Errorf("schema at version %d, want %d", applied, want)
	}

	return nil
}
