package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/dbpool"
	"github.com/persistorai/podrestore/internal/middleware"
	"github.com/persistorai/podrestore/internal/security"
	"github.com/persistorai/podrestore/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log             *logrus.Logger
	Pool            *dbpool.Pool
	Hub             *ws.Hub
	Importer        ImportService
	Accounts        AccountService
	Audit           AuditRepository
	KeyLookup       middleware.KeyLookup
	CORSOrigins     []string
	Version         string
	MaxArchiveBytes int64
}

// Router-level limits.
const (
	defaultBodyBytes = 64 << 10 // non-archive routes
	envelopeSlack    = 64 << 10 // room for username/password around an archive
	rateLimit        = 20       // requests per second per IP
	rateBurst        = 40
	importRate       = 1 // import runs per second per account
	importBurst      = 3
)

// archiveBodyLimits maps archive-carrying routes to their body limit.
func archiveBodyLimits(maxArchive int64) map[string]int64 {
	return map[string]int64{
		"/api/v1/accounts/import":           maxArchive + envelopeSlack,
		"/api/v1/accounts/:username/import": maxArchive,
		"/api/v1/archives/validate":         maxArchive,
	}
}

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(defaultBodyBytes, archiveBodyLimits(deps.MaxArchiveBytes)))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst, middleware.ByClientIP).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	keys := middleware.NewCachedKeyLookup(ctx, deps.KeyLookup)
	keyGuard := security.NewFailureGuard(ctx, "api_key", log)
	accountGuard := security.NewFailureGuard(ctx, "account", log)

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version)
	imports := NewImportHandler(deps.Importer, accountGuard, log)
	accounts := NewAccountHandler(deps.Accounts, log)
	audit := NewAuditHandler(deps.Audit, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// All other API routes require authentication.
	api.Use(middleware.AuthMiddleware(keys, log, keyGuard))

	// Imports are throttled per target account on top of the per-IP limit.
	importLimit := middleware.NewRateLimiter(ctx, importRate, importBurst, middleware.ByAccount).Handler()
	api.POST("/accounts/import", importLimit, imports.Import)
	api.POST("/accounts/:username/import", importLimit, imports.Restore)
	api.POST("/archives/validate", imports.Validate)

	// Accounts.
	api.GET("/accounts/:username", accounts.Get)
	api.GET("/accounts/:username/events", eventsHandler(ctx, log, deps.Hub, deps.CORSOrigins, keys))

	// Audit.
	api.GET("/audit", audit.Query)
	api.DELETE("/audit", audit.Purge)
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
