package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/httputil"
)

const (
	// RequestIDHeader carries the server-assigned request ID.
	RequestIDHeader = "X-Request-ID"

	// ClientRequestIDHeader echoes a correlation ID supplied by the caller,
	// for example a migration script tagging each archive it uploads.
	ClientRequestIDHeader = "X-Client-Request-ID"

	clientRequestIDKey = "client_request_id"
)

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestID assigns every request a fresh server-side UUID. A well-formed
// X-Request-ID from the caller is kept as a separate correlation ID and echoed
// back in X-Client-Request-ID; it never replaces the canonical ID.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			if clientIDPattern.MatchString(clientID) {
				c.Set(clientRequestIDKey, clientID)
				c.Header(ClientRequestIDHeader, clientID)
			} else {
				log.WithField("request_id", id).Debug("ignoring malformed client request ID")
			}
		}

		c.Set(httputil.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
