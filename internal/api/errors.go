package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/httputil"
	"github.com/persistorai/podrestore/internal/metrics"
	"github.com/persistorai/podrestore/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeMalformed       = "malformed_archive"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeBusy            = "import_in_progress"
	ErrCodeTooLarge        = "payload_too_large"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondFieldError is respondError for a rejected request or archive field.
func respondFieldError(c *gin.Context, status int, code, message, field string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondFieldError(c, status, code, message, field)
}

// respondServiceError maps a service error to its HTTP status. Anything not
// recognised is logged and reported as a 500 without detail.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, op string) {
	var (
		maxErr   *http.MaxBytesError
		fieldErr *models.FieldError
	)

	switch {
	case errors.As(err, &maxErr):
		respondError(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "archive exceeds the size limit")
	case errors.Is(err, models.ErrMalformedArchive):
		respondError(c, http.StatusBadRequest, ErrCodeMalformed, err.Error())
	case errors.As(err, &fieldErr):
		respondFieldError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error(), fieldErr.Field)
	case isValidationError(err):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, models.ErrAccountNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
	case errors.Is(err, models.ErrAccountExists):
		respondError(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, models.ErrImportInProgress):
		respondError(c, http.StatusConflict, ErrCodeBusy, err.Error())
	default:
		log.WithError(err).Error(op)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

// validationErrors are request problems the caller can fix.
var validationErrors = []error{
	models.ErrMissingUsername,
	models.ErrMissingPassword,
	models.ErrMissingArchive,
	models.ErrInvalidUsername,
	models.ErrMissingEmail,
	models.ErrTooLong,
	models.ErrUnknownAuditAction,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
