package middleware

import "github.com/gin-gonic/gin"

// apiSecurityHeaders are sent on every response. The API only serves JSON
// and the event stream, so nothing may be framed, embedded, or cached.
var apiSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

// SecurityHeaders sets the API's security response headers. HSTS is only
// sent when the request arrived over TLS, directly or via a proxy that says so.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range apiSecurityHeaders {
			c.Header(h[0], h[1])
		}

		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		c.Next()
	}
}
