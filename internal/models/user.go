package models

import (
	"strings"
	"time"
)

// User is an account stored in the users table.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Username       string    `db:"username" json:"username"`
	Name           string    `db:"name" json:"name"`
	Role           string    `db:"role" json:"role"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	IsSuperuser    bool      `db:"is_superuser" json:"is_superuser"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user may use admin endpoints.
func (u *User) IsAdmin() bool {
	return u.IsSuperuser || u.Role == RoleAdmin
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserUpdate carries the optional fields of a user update. Nil means unchanged.
// Password is plaintext and is hashed by the service before it reaches a
// repository; repositories only ever see HashedPassword.
type UserUpdate struct {
	Email          *string
	Username       *string
	Name           *string
	Password       *string
	HashedPassword *string
	Role           *string
	IsActive       *bool
	IsSuperuser    *bool
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Username == nil && u.Name == nil && u.Password == nil &&
		u.HashedPassword == nil && u.Role == nil && u.IsActive == nil && u.IsSuperuser == nil
}

// ListParams bounds a user listing.
type ListParams struct {
	Skip  int
	Limit int
}
