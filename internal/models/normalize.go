package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// MaxTagNameLen is the longest tag name accepted.
const MaxTagNameLen = 255

var guidPattern = regexp.MustCompile(`^[\w\-.@:]{16,255}$`)

// NormalizeTagName trims whitespace and a leading "#" and lower-cases the
// rest. Names that end up empty, too long, or containing whitespace or "#"
// yield ErrInvalidTagName.
func NormalizeTagName(name string) (string, error) {
	n := strings.TrimSpace(name)
	n = strings.TrimPrefix(n, "#")
	n = strings.ToLower(n)

	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTagName)
	}

	if len(n) > MaxTagNameLen {
		return "", fmt.Errorf("%w: %w", ErrInvalidTagName, ErrFieldTooLong("tag name", MaxTagNameLen))
	}

	if strings.IndexFunc(n, func(r rune) bool { return unicode.IsSpace(r) || r == '#' }) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTagName, name)
	}

	return n, nil
}

// ValidateGUID checks a content GUID: 16 to 255 word characters, dashes,
// dots, colons or "@".
func ValidateGUID(guid string) error {
	if !guidPattern.MatchString(guid) {
		return fmt.Errorf("%w: %q", ErrInvalidGUID, guid)
	}

	return nil
}

// Handle is a parsed "local-id@host" account handle.
type Handle struct {
	LocalID string
	Host    string
}

// ParseHandle splits and lower-cases a handle. An optional "acct:" prefix is
// accepted.
func ParseHandle(s string) (Handle, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "acct:")

	local, host, ok := strings.Cut(s, "@")
	if !ok || local == "" || host == "" || strings.ContainsAny(host, "@/ ") || strings.ContainsAny(local, " /") {
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}

	return Handle{LocalID: strings.ToLower(local), Host: strings.ToLower(host)}, nil
}

// String formats the handle as "local-id@host".
func (h Handle) String() string {
	return h.LocalID + "@" + h.Host
}

// ParseBirthday accepts "YYYY-MM-DD" or a yearless "MM-DD", which is stored
// with the placeholder year NoYear.
func ParseBirthday(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	if t, err := time.Parse("01-02", s); err == nil {
		return time.Date(NoYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("%w: birthday %q", ErrInvalidDate, s)
}

// DeriveFullName joins first and last name the way profiles display them.
func DeriveFullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
