package database

import (
	"strings"
)

// IsUniqueViolation reports whether err was caused by a unique index
// conflict. It matches both the Postgres and the sqlite (test) drivers by
// message, since the drivers expose no shared error type.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
