package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X.
var _ repository.RepositoryStore = (*DB)(nil)

const repositoryColumns = `r.id, r.name, r.description, r.url, r.tech_stack, r.user_id,
	r.is_approved, r.created_at, r.updated_at`

// CreateRepository inserts a new repository row.
//
// The row ALWAYS starts pending: is_approved is written as false here no matter what
// the caller put in repo.IsApproved. Approval is a separate transition (ApproveRepository).
//
// ID and timestamps are generated here and written back into repo (pointer receiver),
// so the caller gets the complete record without a second query.
func (db *DB) CreateRepository(ctx context.Context, repo *model.Repository) error {
	techStack, err := encodeTechStack(repo.TechStack)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tech stack: %w", err)
	}

	now := time.Now().UTC()
	repo.ID = xid.New().String()
	repo.IsApproved = false
	repo.CreatedAt = now
	repo.UpdatedAt = now
	if repo.TechStack == nil {
		repo.TechStack = []string{}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO repositories
		     (id, name, description, url, tech_stack, user_id, is_approved, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		repo.ID,
		repo.Name,
		repo.Description,
		repo.URL,
		techStack,
		repo.UserID,
		repo.CreatedAt,
		repo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating repository: %w", err)
	}

	return nil
}

// GetRepository retrieves a repository by ID.
// Returns apperror.ErrNotFound if it doesn't exist.
func (db *DB) GetRepository(ctx context.Context, id string) (*model.Repository, error) {
	repo, err := scanRepository(db.conn.QueryRowContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories r WHERE r.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("repository", id)
		}
		return nil, fmt.Errorf("sqlite: getting repository %s: %w", id, err)
	}
	return repo, nil
}

// ListRepositories returns the rows matching filter in insertion order.
//
// BUILDING THE WHERE CLAUSE:
// Conditions and their arguments are appended side by side, so placeholders and args
// always line up. Values are never formatted into the SQL string.
//
// No LIMIT: the listing is small and the API returns it whole.
func (db *DB) ListRepositories(ctx context.Context, filter repository.RepositoryFilter) ([]model.Repository, error) {
	var (
		where []string
		args  []any
	)

	if filter.Approved != nil {
		where = append(where, "r.is_approved = ?")
		args = append(args, *filter.Approved)
	}
	if filter.OwnerID != "" {
		where = append(where, "r.user_id = ?")
		args = append(args, filter.OwnerID)
	}
	// The text search runs in Go: SQLite's lower() only folds ASCII, so "Élan" would
	// never match "élan" in SQL.
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	query := `SELECT ` + repositoryColumns + ` FROM repositories r`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.rowid`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing repositories: %w", err)
	}
	defer rows.Close()

	repos := []model.Repository{}
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning repository row: %w", err)
		}
		if q != "" && !matchesQuery(repo, q) {
			continue
		}
		repos = append(repos, *repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating repositories: %w", err)
	}

	return repos, nil
}

// ApproveRepository moves a repository from pending to approved.
//
// IDEMPOTENT:
// Approving an already-approved row changes nothing, not even updated_at
// (the CASE keeps the old timestamp).
//
// NO OPTIMISTIC LOCKING:
// There is no version column. Two admins approving at the same time both succeed and
// SQLite's write lock serializes the UPDATEs; since both write the same value the
// outcome is the same either way.
func (db *DB) ApproveRepository(ctx context.Context, id string) (*model.Repository, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE repositories
		 SET updated_at  = CASE WHEN is_approved = 1 THEN updated_at ELSE ? END,
		     is_approved = 1
		 WHERE id = ?`,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: approving repository %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("repository", id)
	}

	return db.GetRepository(ctx, id)
}

// DeleteRepository physically removes a repository.
//
// Bookmarks pointing at it are removed by SQLite itself (ON DELETE CASCADE with
// foreign_keys enabled on every connection, see sqlite.go). The application never
// deletes bookmarks on this path.
func (db *DB) DeleteRepository(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM repositories WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting repository %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("repository", id)
	}

	return nil
}

// CountRepositories is used by cmd/seed to seed only an empty table.
func (db *DB) CountRepositories(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM repositories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting repositories: %w", err)
	}
	return n, nil
}

// scanRepository reads one row selected with repositoryColumns.
func scanRepository(s scanner) (*model.Repository, error) {
	var (
		repo      model.Repository
		techStack string
	)
	if err := s.Scan(
		&repo.ID,
		&repo.Name,
		&repo.Description,
		&repo.URL,
		&techStack,
		&repo.UserID,
		&repo.IsApproved,
		&repo.CreatedAt,
		&repo.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tags, err := decodeTechStack(techStack)
	if err != nil {
		return nil, fmt.Errorf("decoding tech stack of %s: %w", repo.ID, err)
	}
	repo.TechStack = tags

	return &repo, nil
}

// The tech stack is an ordered list of tags. SQLite has no array type, so it is stored
// as a JSON array in a TEXT column and decoded on read.
func encodeTechStack(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTechStack(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// matchesQuery reports whether the name or any tag contains q (already lowercased).
func matchesQuery(repo *model.Repository, q string) bool {
	if strings.Contains(strings.ToLower(repo.Name), q) {
		return true
	}
	for _, tag := range repo.TechStack {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
