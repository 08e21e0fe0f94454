package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

func createTestRepository(t *testing.T, db *DB, ownerID, name string, tags ...string) *model.Repository {
	t.Helper()
	repo := &model.Repository{
		Name:        name,
		Description: name + " description",
		URL:         "https://github.com/example/" + name,
		TechStack:   tags,
		UserID:      ownerID,
	}
	if err := db.CreateRepository(context.Background(), repo); err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	return repo
}

func approved(v bool) *bool { return &v }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateRepository_StartsPending(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "octocat")

	// Even if a caller sets IsApproved, a new row is pending.
	repo := &model.Repository{
		Name:       "sneaky",
		URL:        "https://github.com/example/sneaky",
		UserID:     owner.ID,
		IsApproved: true,
	}
	if err := db.CreateRepository(context.Background(), repo); err != nil {
		t.Fatalf("CreateRepository() error = %v", err)
	}

	if repo.ID == "" {
		t.Error("CreateRepository() did not set ID")
	}
	if repo.IsApproved {
		t.Error("CreateRepository() returned IsApproved = true")
	}

	stored, err := db.GetRepository(context.Background(), repo.ID)
	if err != nil {
		t.Fatalf("GetRepository() error = %v", err)
	}
	if stored.IsApproved {
		t.Error("stored row has is_approved = 1")
	}
}

func TestCreateRepository_TechStackRoundTrip(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "octocat")
	created := createTestRepository(t, db, owner.ID, "refact", "AI", "Python")

	found, err := db.GetRepository(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetRepository() error = %v", err)
	}

	want := []string{"AI", "Python"}
	if len(found.TechStack) != len(want) {
		t.Fatalf("TechStack = %v, want %v", found.TechStack, want)
	}
	for i := range want {
		if found.TechStack[i] != want[i] {
			t.Errorf("TechStack[%d] = %q, want %q", i, found.TechStack[i], want[i])
		}
	}
}

func TestCreateRepository_NilTechStackIsEmpty(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "octocat")
	created := createTestRepository(t, db, owner.ID, "bare")

	found, _ := db.GetRepository(context.Background(), created.ID)
	if found.TechStack == nil || len(found.TechStack) != 0 {
		t.Errorf("TechStack = %#v, want empty non-nil slice", found.TechStack)
	}
}

func TestCreateRepository_UnknownOwner(t *testing.T) {
	db := newTestDB(t)

	repo := &model.Repository{Name: "orphan", URL: "https://x", UserID: "missing-user"}
	if err := db.CreateRepository(context.Background(), repo); err == nil {
		t.Fatal("CreateRepository() should fail the foreign key check for an unknown owner")
	}
}

func TestGetRepository_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRepository(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListRepositories_ApprovedOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "octocat")

	a := createTestRepository(t, db, owner.ID, "alpha")
	createTestRepository(t, db, owner.ID, "beta")
	c := createTestRepository(t, db, owner.ID, "gamma")

	for _, id := range []string{a.ID, c.ID} {
		if _, err := db.ApproveRepository(ctx, id); err != nil {
			t.Fatalf("ApproveRepository() error = %v", err)
		}
	}

	list, err := db.ListRepositories(ctx, repository.RepositoryFilter{Approved: approved(true)})
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	// insertion order
	if list[0].ID != a.ID || list[1].ID != c.ID {
		t.Errorf("order = [%s %s], want [%s %s]", list[0].ID, list[1].ID, a.ID, c.ID)
	}
	for _, r := range list {
		if !r.IsApproved {
			t.Errorf("listing returned unapproved row %s", r.ID)
		}
	}
}

func TestListRepositories_OwnerPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	mine := createTestRepository(t, db, alice.ID, "mine")
	createTestRepository(t, db, bob.ID, "theirs")
	done := createTestRepository(t, db, alice.ID, "done")
	if _, err := db.ApproveRepository(ctx, done.ID); err != nil {
		t.Fatalf("ApproveRepository() error = %v", err)
	}

	list, err := db.ListRepositories(ctx, repository.RepositoryFilter{
		Approved: approved(false),
		OwnerID:  alice.ID,
	})
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("ListRepositories() = %+v, want only %s", list, mine.ID)
	}
}

func TestListRepositories_Query(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "octocat")

	createTestRepository(t, db, owner.ID, "Daytona", "Golang")
	createTestRepository(t, db, owner.ID, "Remotion", "Typescript")
	createTestRepository(t, db, owner.ID, "Cal.com", "Typescript", "NextJs")
	createTestRepository(t, db, owner.ID, "100%_real", "C")

	tests := []struct {
		query string
		want  int
	}{
		{"golang", 1},     // tag, case-insensitive
		{"TYPESCRIPT", 2}, // tag on two rows
		{"remo", 1},       // name prefix
		{"next", 1},       // second tag
		{"%", 1},          // literal percent, not a wildcard
		{"_", 1},          // literal underscore
		{"rust", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			list, err := db.ListRepositories(ctx, repository.RepositoryFilter{Query: tt.query})
			if err != nil {
				t.Fatalf("ListRepositories() error = %v", err)
			}
			if len(list) != tt.want {
				t.Errorf("len = %d, want %d", len(list), tt.want)
			}
		})
	}
}

func TestListRepositories_QueryNonASCII(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "octocat")

	repo := createTestRepository(t, db, owner.ID, "Élan", "Ökosystem")
	if _, err := db.ApproveRepository(ctx, repo.ID); err != nil {
		t.Fatalf("ApproveRepository() error = %v", err)
	}
	createTestRepository(t, db, owner.ID, "Daytona", "Golang")

	approvedOnly := approved(true)
	for _, q := range []string{"Élan", "élan", "ÉLAN", "ökosystem", "Ökosystem", "ÖKO"} {
		t.Run(q, func(t *testing.T) {
			list, err := db.ListRepositories(ctx, repository.RepositoryFilter{Approved: approvedOnly, Query: q})
			if err != nil {
				t.Fatalf("ListRepositories() error = %v", err)
			}
			if len(list) != 1 || list[0].ID != repo.ID {
				t.Errorf("got %d rows, want only %s", len(list), repo.ID)
			}
		})
	}
}

// =========================================================================
// APPROVE / DELETE TESTS
// =========================================================================

func TestApproveRepository(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "octocat")
	repo := createTestRepository(t, db, owner.ID, "pending")

	updated, err := db.ApproveRepository(context.Background(), repo.ID)
	if err != nil {
		t.Fatalf("ApproveRepository() error = %v", err)
	}
	if !updated.IsApproved {
		t.Error("IsApproved = false after approve")
	}
}

func TestApproveRepository_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "octocat")
	repo := createTestRepository(t, db, owner.ID, "twice")

	first, err := db.ApproveRepository(ctx, repo.ID)
	if err != nil {
		t.Fatalf("first ApproveRepository() error = %v", err)
	}
	second, err := db.ApproveRepository(ctx, repo.ID)
	if err != nil {
		t.Fatalf("second ApproveRepository() error = %v", err)
	}

	if !second.IsApproved {
		t.Error("IsApproved = false after second approve")
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("UpdatedAt changed on re-approve: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestApproveRepository_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.ApproveRepository(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "octocat")
	repo := createTestRepository(t, db, owner.ID, "doomed")

	if err := db.DeleteRepository(ctx, repo.ID); err != nil {
		t.Fatalf("DeleteRepository() error = %v", err)
	}
	if _, err := db.GetRepository(ctx, repo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetRepository() after delete error = %v, want ErrNotFound", err)
	}

	if err := db.DeleteRepository(ctx, repo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteRepository() error = %v, want ErrNotFound", err)
	}
}

func TestCountRepositories(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "octocat")

	n, err := db.CountRepositories(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("CountRepositories() = %d, %v; want 0, nil", n, err)
	}

	createTestRepository(t, db, owner.ID, "one")
	createTestRepository(t, db, owner.ID, "two")

	n, _ = db.CountRepositories(context.Background())
	if n != 2 {
		t.Errorf("CountRepositories() = %d, want 2", n)
	}
}
