package models

import (
	"errors"
	"fmt"
)

// ErrMalformedArchive indicates the archive document lacks required structure.
var ErrMalformedArchive = errors.New("malformed archive")

// Sentinel errors for request validation.
var (
	ErrMissingUsername = errors.New("username is required")
	ErrMissingPassword = errors.New("password is required")
	ErrMissingArchive  = errors.New("archive is required")
	ErrInvalidUsername = errors.New("username may only contain lowercase letters, digits and underscores")
	ErrMissingEmail    = errors.New("archive has no email to create the account with")
)

// Sentinel errors for archive references that cannot become local entities.
var (
	ErrInvalidTagName = errors.New("invalid tag name")
	ErrInvalidGUID    = errors.New("invalid guid")
	ErrInvalidHandle  = errors.New("invalid handle")
	ErrInvalidDate    = errors.New("invalid date")
)

// Sentinel errors for entity lookups.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountExists        = errors.New("account already exists with different credentials")
	ErrContactGroupNotFound = errors.New("contact group not found")
	ErrContentNotFound      = errors.New("content not found")
	ErrPersonNotFound       = errors.New("person not found")
)

// ErrImportInProgress indicates another import is already running for the account.
var ErrImportInProgress = errors.New("an import is already running for this account")

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrTooLong is wrapped by every ErrFieldTooLong error.
var ErrTooLong = errors.New("too long")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d: %w", field, maxLen, ErrTooLong)
}

// ErrInvalidValue indicates an archived field value failed validation.
var ErrInvalidValue = errors.New("invalid value")

// ErrWrongType indicates an archived field holds a different JSON type than
// expected. The field is treated as absent.
var ErrWrongType = errors.New("wrong type")

// FieldError reports an archived field that was not applied because its
// value is invalid. The target keeps its prior value.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
