package models

import "time"

// User represents an application user stored in the users table. Accounts
// are created on registration and never deleted; the active flag is
// reserved for future account management.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
