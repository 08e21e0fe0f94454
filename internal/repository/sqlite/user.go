package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// compile-time check that *DB implements repository.UserStore
var _ repository.UserStore = (*DB)(nil)

const userColumns = `id, username, is_admin, github_token, created_at, updated_at`

// UpsertByUsername inserts the user, or refreshes the existing row with the same username.
//
// WHY ONE STATEMENT?
// "SELECT, and INSERT if missing" is a check-then-act race: two first logins for the
// same username could both see "missing" and the second INSERT would fail on the
// UNIQUE constraint. INSERT ... ON CONFLICT DO UPDATE resolves the conflict inside
// SQLite, atomically. The follow-up SELECT reads back the canonical row (existing id,
// is_admin); usernames are never deleted, so it always finds one.
//
// is_admin is never written here. A new row gets the column default (0) and an
// existing row keeps whatever the admin CLI set.
//
// An empty SealedGitHubToken keeps the stored token, so the lazy re-create path in
// the session resolver cannot wipe a token saved at sign-in.
func (db *DB) UpsertByUsername(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, github_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(username) DO UPDATE SET
		     github_token = CASE WHEN excluded.github_token <> '' THEN excluded.github_token
		                         ELSE users.github_token END,
		     updated_at   = excluded.updated_at`,
		xid.New().String(),
		user.Username,
		user.SealedGitHubToken,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user %q: %w", user.Username, err)
	}

	stored, err := db.GetUserByUsername(ctx, user.Username)
	if err != nil {
		return err
	}

	*user = *stored
	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by GitHub login.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

// SetAdmin grants or revokes admin rights. Only cmd/admin calls this.
func (db *DB) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_admin = ?, updated_at = ? WHERE username = ?`,
		isAdmin, time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting admin for %q: %w", username, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", username)
	}
	return nil
}

// ListAdmins returns every user with is_admin set, oldest first.
func (db *DB) ListAdmins(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_admin = 1 ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing admins: %w", err)
	}
	defer rows.Close()

	admins := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		admins = append(admins, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return admins, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(
		&u.ID,
		&u.Username,
		&u.IsAdmin,
		&u.SealedGitHubToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
