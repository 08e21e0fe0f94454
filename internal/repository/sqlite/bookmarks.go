package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

var _ repository.BookmarkStore = (*DB)(nil)

// AddBookmark inserts a (user, repository) pair.
//
// ON CONFLICT DO NOTHING + RowsAffected turns "already bookmarked" into a plain
// zero-row insert instead of a constraint error, and it is race-free: two concurrent
// requests for the same pair get exactly one row and one Conflict.
func (db *DB) AddBookmark(ctx context.Context, b *model.Bookmark) error {
	b.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO bookmarks (user_id, repository_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id, repository_id) DO NOTHING`,
		b.UserID,
		b.RepositoryID,
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding bookmark %s/%s: %w", b.UserID, b.RepositoryID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("bookmark", b.RepositoryID)
	}
	return nil
}

// RemoveBookmark deletes the caller's bookmark by composite key.
func (db *DB) RemoveBookmark(ctx context.Context, userID, repositoryID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = ? AND repository_id = ?`,
		userID,
		repositoryID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing bookmark %s/%s: %w", userID, repositoryID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("bookmark", repositoryID)
	}
	return nil
}

// ListBookmarks returns the user's bookmarks, oldest first, each joined with its repository.
func (db *DB) ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT b.user_id, b.repository_id, b.created_at, `+repositoryColumns+`
		 FROM bookmarks b
		 JOIN repositories r ON r.id = b.repository_id
		 WHERE b.user_id = ?
		 ORDER BY b.rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bookmarks for %s: %w", userID, err)
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		var b model.Bookmark
		repo, err := scanRepository(prefixScanner{
			inner:  rows,
			prefix: []any{&b.UserID, &b.RepositoryID, &b.CreatedAt},
		})
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning bookmark row: %w", err)
		}
		b.Repository = repo
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookmarks: %w", err)
	}

	return bookmarks, nil
}

// prefixScanner lets scanRepository read the repository columns of a joined row
// while the leading bookmark columns go into prefix.
type prefixScanner struct {
	inner  scanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.inner.Scan(append(p.prefix, dest...)...)
}
