package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/podrestore/internal/httputil"
)

// MaxBodySize caps request bodies. Routes listed in routeMax (by gin route
// pattern) get their own limit, typically the archive size; every other
// route gets defaultMax. A declared Content-Length over the limit is refused
// before the handler runs; an undeclared one is cut off by http.MaxBytesReader.
func MaxBodySize(defaultMax int64, routeMax map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultMax
		if n, ok := routeMax[c.FullPath()]; ok {
			limit = n
		}

		if c.Request.ContentLength > limit {
			httputil.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds the size limit")

			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
