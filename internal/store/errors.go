package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by guarded mutations when the target row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the target row belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrPouchIntegrity is returned when a calendar does not hold exactly 24 pouches.
	ErrPouchIntegrity = errors.New("calendar does not have exactly 24 pouches")
)

// isUniqueViolation matches modernc/sqlite constraint errors, which only
// surface as strings.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
