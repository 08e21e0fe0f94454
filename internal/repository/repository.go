// Package repository declares the storage interfaces the service layer depends on.
//
// The word "repository" is overloaded in this project: the package name refers to the
// data-access pattern, while model.Repository is the domain entity (a link to a source-code
// repository). The interfaces below are named *Store to keep the two apart.
package repository

import (
	"context"

	"github.com/sakif/repohub/internal/model"
)

// UserStore persists users.
type UserStore interface {
	// UpsertByUsername atomically inserts the user or, if the username already exists,
	// refreshes its updated_at (and the sealed token when one is given). The stored row,
	// including IsAdmin, is written back into user.
	UpsertByUsername(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetAdmin(ctx context.Context, username string, isAdmin bool) error
	ListAdmins(ctx context.Context) ([]model.User, error)
}

// RepositoryFilter narrows ListRepositories. A nil pointer means "don't filter".
type RepositoryFilter struct {
	Approved *bool
	OwnerID  string
	// Query matches name or any tech-stack tag, case-insensitively.
	Query string
}

// RepositoryStore persists repository submissions.
type RepositoryStore interface {
	CreateRepository(ctx context.Context, repo *model.Repository) error
	GetRepository(ctx context.Context, id string) (*model.Repository, error)
	ListRepositories(ctx context.Context, filter RepositoryFilter) ([]model.Repository, error)
	// ApproveRepository sets is_approved and returns the updated row.
	ApproveRepository(ctx context.Context, id string) (*model.Repository, error)
	// DeleteRepository removes the row; bookmarks go with it (ON DELETE CASCADE).
	DeleteRepository(ctx context.Context, id string) error
	CountRepositories(ctx context.Context) (int, error)
}

// BookmarkStore persists bookmarks.
type BookmarkStore interface {
	// AddBookmark returns an ErrConflict AppError if the pair already exists.
	AddBookmark(ctx context.Context, b *model.Bookmark) error
	RemoveBookmark(ctx context.Context, userID, repositoryID string) error
	ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error)
}
