package domain

import (
	"database/sql"
	"regexp"
	"strings"
)

// User 用户领域模型 (users 表)
// Email is the primary key; the legacy parent_email column is kept for data
// imported from the old dashboard and is never consulted for authorization.
type User struct {
	Email         string         `db:"email"`
	DisplayName   string         `db:"display_name"`
	ContactNumber sql.NullString `db:"contact_number"` // nullable
	ParentEmail   sql.NullString `db:"parent_email"`   // nullable, legacy
	UpdatedAt     sql.NullTime   `db:"updated_at"`
	UpdatedBy     sql.NullString `db:"updated_by"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail lower-cases and trims an email so it can act as a key.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// ValidEmail reports whether the (normalized) address is well formed.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(NormalizeEmail(email))
}
