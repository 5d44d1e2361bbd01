// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// RequestIDKey is the gin context key holding the canonical request ID.
const RequestIDKey = "request_id"

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestID returns the request ID set by the request ID middleware, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	RespondFieldError(c, status, code, message, "")
}

// RespondFieldError is RespondError for a problem tied to one archive or
// request field.
func RespondFieldError(c *gin.Context, status int, code, message, field string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Code:      code,
		Message:   message,
		Field:     field,
		RequestID: RequestID(c),
	})
}
