// Package models defines the data structures shared by the auth service and
// the client.
package models

import (
	"encoding/json"
	"time"
)

// Role is the user's access level.
type Role string

const (
	// RoleUser is the default role.
	RoleUser Role = "USER"
	// RoleAdmin grants the admin dashboard.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account record held by the auth service.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Name is the display name.
	Name string
	// Email is the login, stored lower-cased.
	Email string
	// PasswordHash is the bcrypt hash of the password.
	PasswordHash []byte
	// Role is the access level.
	Role Role
	// CreatedAt is the registration time.
	CreatedAt time.Time
}

// Session is an issued bearer token.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// SessionOwner is a live session's expiry together with the user holding it.
type SessionOwner struct {
	User      User
	ExpiresAt time.Time
}

// Identity is what GET /auth/me reports about the authenticated user.
type Identity struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
	// Extra keeps fields the client does not know about.
	Extra map[string]json.RawMessage `json:"-"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

var knownIdentityFields = map[string]bool{"id": true, "name": true, "email": true, "role": true}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (i *Identity) UnmarshalJSON(data []byte) error {
	type plain Identity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range knownIdentityFields {
		delete(all, k)
	}
	*i = Identity(p)
	if len(all) > 0 {
		i.Extra = all
	}
	return nil
}

// IdentityFromUser projects a user record onto its public identity.
func IdentityFromUser(u User) Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
