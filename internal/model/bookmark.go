package model

import "time"

// Bookmark is a user's saved reference to a repository.
// (UserID, RepositoryID) is the primary key, so a user can bookmark a repository at most once.
type Bookmark struct {
	UserID       string    `json:"userId"`
	RepositoryID string    `json:"repositoryId"`
	CreatedAt    time.Time `json:"createdAt"`

	// Repository is populated by list queries that join the repositories table.
	Repository *Repository `json:"repository,omitempty"`
}
