package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/metrics"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// BookmarkService manages a user's saved repositories.
// Every operation is scoped to userID; there is no way to read or change
// someone else's bookmarks.
type BookmarkService struct {
	bookmarks repository.BookmarkStore
	repos     repository.RepositoryStore
	metrics   Metrics
	logger    *slog.Logger
}

func NewBookmarkService(
	bookmarks repository.BookmarkStore,
	repos repository.RepositoryStore,
	m Metrics,
	logger *slog.Logger,
) *BookmarkService {
	return &BookmarkService{
		bookmarks: bookmarks,
		repos:     repos,
		metrics:   metricsOrNop(m),
		logger:    logger,
	}
}

// Add bookmarks repositoryID for userID.
//
// The repository must exist (NotFound otherwise). A second Add for the same pair
// returns apperror.ErrConflict and leaves exactly one row; uniqueness is enforced by
// the store's primary key, so concurrent duplicates are safe too.
func (s *BookmarkService) Add(ctx context.Context, userID, repositoryID string) (*model.Bookmark, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	repositoryID = strings.TrimSpace(repositoryID)
	if repositoryID == "" {
		return nil, apperror.ValidationFailed("repositoryId", "repository id is required")
	}

	repo, err := s.repos.GetRepository(ctx, repositoryID)
	if err != nil {
		return nil, err
	}

	b := &model.Bookmark{UserID: userID, RepositoryID: repositoryID}
	if err := s.bookmarks.AddBookmark(ctx, b); err != nil {
		return nil, fmt.Errorf("adding bookmark: %w", err)
	}
	b.Repository = repo

	s.metrics.BookmarkChanged(metrics.ActionAdd)
	s.logger.Info("bookmark added",
		slog.String("userID", userID),
		slog.String("repositoryID", repositoryID),
	)

	return b, nil
}

// Remove deletes the caller's bookmark. NotFound if there was none.
func (s *BookmarkService) Remove(ctx context.Context, userID, repositoryID string) error {
	if userID == "" {
		return apperror.Unauthenticated("authentication required")
	}
	repositoryID = strings.TrimSpace(repositoryID)
	if repositoryID == "" {
		return apperror.ValidationFailed("repositoryId", "repository id is required")
	}

	if err := s.bookmarks.RemoveBookmark(ctx, userID, repositoryID); err != nil {
		return fmt.Errorf("removing bookmark: %w", err)
	}

	s.metrics.BookmarkChanged(metrics.ActionRemove)
	return nil
}

// List returns the caller's bookmarks, each with its repository.
func (s *BookmarkService) List(ctx context.Context, userID string) ([]model.Bookmark, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	bookmarks, err := s.bookmarks.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	return bookmarks, nil
}
