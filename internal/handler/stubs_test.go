package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/handler"
	"github.com/sakif/repohub/internal/model"
)

var (
	testAdmin  = &model.Identity{ID: "admin-1", Username: "root", IsAdmin: true}
	testMember = &model.Identity{ID: "user-1", Username: "octocat"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRequest builds a request with an optional JSON body and caller identity.
func newRequest(method, target, body string, who *model.Identity) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if who != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), who))
	}
	return req
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

// stubRepos implements handler.RepositoryService with function fields.
type stubRepos struct {
	submit              func(ctx context.Context, ownerID string, in model.RepositoryInput) (*model.Repository, error)
	submitMany          func(ctx context.Context, ownerID string, inputs []model.RepositoryInput) ([]model.Repository, error)
	listApproved        func(ctx context.Context, query string) ([]model.Repository, error)
	listPendingForOwner func(ctx context.Context, ownerID string) ([]model.Repository, error)
	listPending         func(ctx context.Context, actor *model.Identity) ([]model.Repository, error)
}

var _ handler.RepositoryService = (*stubRepos)(nil)

func (s *stubRepos) Submit(ctx context.Context, ownerID string, in model.RepositoryInput) (*model.Repository, error) {
	return s.submit(ctx, ownerID, in)
}

func (s *stubRepos) SubmitMany(ctx context.Context, ownerID string, inputs []model.RepositoryInput) ([]model.Repository, error) {
	return s.submitMany(ctx, ownerID, inputs)
}

func (s *stubRepos) ListApproved(ctx context.Context, query string) ([]model.Repository, error) {
	return s.listApproved(ctx, query)
}

func (s *stubRepos) ListPendingForOwner(ctx context.Context, ownerID string) ([]model.Repository, error) {
	return s.listPendingForOwner(ctx, ownerID)
}

func (s *stubRepos) ListPending(ctx context.Context, actor *model.Identity) ([]model.Repository, error) {
	return s.listPending(ctx, actor)
}

// stubApprovals implements handler.ApprovalService.
type stubApprovals struct {
	approve func(ctx context.Context, actor *model.Identity, repoID string) (*model.Repository, error)
	reject  func(ctx context.Context, actor *model.Identity, repoID string) error
}

var _ handler.ApprovalService = (*stubApprovals)(nil)

func (s *stubApprovals) Approve(ctx context.Context, actor *model.Identity, repoID string) (*model.Repository, error) {
	return s.approve(ctx, actor, repoID)
}

func (s *stubApprovals) Reject(ctx context.Context, actor *model.Identity, repoID string) error {
	return s.reject(ctx, actor, repoID)
}

// stubBookmarks implements handler.BookmarkService.
type stubBookmarks struct {
	add    func(ctx context.Context, userID, repositoryID string) (*model.Bookmark, error)
	remove func(ctx context.Context, userID, repositoryID string) error
	list   func(ctx context.Context, userID string) ([]model.Bookmark, error)
}

var _ handler.BookmarkService = (*stubBookmarks)(nil)

func (s *stubBookmarks) Add(ctx context.Context, userID, repositoryID string) (*model.Bookmark, error) {
	return s.add(ctx, userID, repositoryID)
}

func (s *stubBookmarks) Remove(ctx context.Context, userID, repositoryID string) error {
	return s.remove(ctx, userID, repositoryID)
}

func (s *stubBookmarks) List(ctx context.Context, userID string) ([]model.Bookmark, error) {
	return s.list(ctx, userID)
}
