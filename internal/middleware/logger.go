package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/httputil"
)

// RequestLogger logs one structured line per request. Server errors log at
// Error, client errors at Warn, everything else at Info.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"request_id":  httputil.RequestID(c),
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})

		if clientID := c.GetString(clientRequestIDKey); clientID != "" {
			entry = entry.WithField(clientRequestIDKey, clientID)
		}

		if actor := c.GetString(ActorKey); actor != "" {
			entry = entry.WithField("actor", actor)
		}

		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
