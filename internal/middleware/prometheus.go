package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/podrestore/internal/metrics"
)

// PrometheusMiddleware records request duration, count and uploaded body
// size, labelled by route pattern.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(method, path, status).Inc()

		if c.Request.ContentLength > 0 {
			metrics.RequestBodyBytes.WithLabelValues(path).Observe(float64(c.Request.ContentLength))
		}
	}
}
