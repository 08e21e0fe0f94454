package model

import "time"

// Repository is a community submission that links to an external source-code repository.
//
// LIFECYCLE:
//
//	pending (IsApproved=false) → approved (IsApproved=true) → removed (row deleted)
//
// There is no way back from approved to pending. Once a row shows up in the public
// listing it stays there until an admin deletes it.
//
// The `json:"..."` tags control the wire format. Struct tags are metadata attached
// to fields; encoding/json reads them when marshalling.
type Repository struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	TechStack   []string  `json:"techStack"` // ordered, free-form tags
	UserID      string    `json:"userId"`    // owner, always taken from the session
	IsApproved  bool      `json:"isApproved"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RepositoryInput is what a client may supply when submitting a repository.
//
// Note what is NOT here: UserID and IsApproved. The owner comes from the session
// and new rows always start pending, so there is nothing for a client to override.
// Unknown JSON fields like "userId" are simply dropped by the decoder.
type RepositoryInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	TechStack   []string `json:"techStack"`
}

// GitHubRepository is one of the caller's repositories on GitHub, offered as an
// import candidate. Input is pre-filled so the client can post it back unchanged.
type GitHubRepository struct {
	GitHubID int64           `json:"githubId"`
	FullName string          `json:"fullName"`
	Language string          `json:"language"`
	Input    RepositoryInput `json:"input"`
}
