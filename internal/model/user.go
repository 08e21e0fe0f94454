// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a community member.
//
// We use GitHub OAuth as the identity provider, and the GitHub login becomes the
// username. The UNIQUE constraint on username in the DB means one GitHub account
// maps to exactly one app account, and the atomic upsert in the store relies on it.
//
// WHY NO PASSWORD?
// Sign-in is delegated to GitHub. We never see or store a password.
//
// IsAdmin is provisioned out of band (cmd/admin). Nothing in the HTTP API writes it.
type User struct {
	ID       string `json:"id"       db:"id"`
	Username string `json:"username" db:"username"` // GitHub login, e.g. "sakif"
	IsAdmin  bool   `json:"isAdmin"  db:"is_admin"`

	// SealedGitHubToken is the user's GitHub access token, encrypted with
	// auth.TokenSealer. The `json:"-"` tag keeps it out of every API response.
	SealedGitHubToken string `json:"-" db:"github_token"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity is the request-scoped view of the caller. The auth middleware resolves
// it once per request and stores it in the request context; handlers and services
// receive it explicitly instead of reading any global session state.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Role names returned by GET /api/me.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Role returns RoleAdmin or RoleUser.
func (i Identity) Role() string {
	if i.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// IdentityOf builds the request identity for a stored user.
func IdentityOf(u *User) *Identity {
	return &Identity{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}
