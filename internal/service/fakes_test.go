package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// =========================================================================
// FAKE STORES
// =========================================================================
//
// Hand-written in-memory implementations of the store interfaces. The service
// doesn't know or care whether it talks to these or to SQLite.
//
// The repository fake is guarded by a mutex because SubmitMany calls it from
// several goroutines.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserStore struct {
	mu     sync.Mutex
	byID   map[string]*model.User
	nextID int

	// set to simulate database failures
	upsertErr error
	getErr    error
	upserts   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: make(map[string]*model.User)}
}

func (f *fakeUserStore) UpsertByUsername(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, u := range f.byID {
		if u.Username == user.Username {
			if user.SealedGitHubToken != "" {
				u.SealedGitHubToken = user.SealedGitHubToken
			}
			u.UpdatedAt = time.Now()
			*user = *u
			return nil
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserStore) SetAdmin(_ context.Context, username string, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			u.IsAdmin = isAdmin
			return nil
		}
	}
	return apperror.NotFound("user", username)
}

func (f *fakeUserStore) ListAdmins(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var admins []model.User
	for _, u := range f.byID {
		if u.IsAdmin {
			admins = append(admins, *u)
		}
	}
	return admins, nil
}

type fakeRepoStore struct {
	mu     sync.Mutex
	rows   []*model.Repository // insertion order
	nextID int

	createErr error
	// failNames makes CreateRepository fail for these names only
	failNames map[string]bool
	calls     int
}

func newFakeRepoStore() *fakeRepoStore {
	return &fakeRepoStore{failNames: map[string]bool{}}
}

func (f *fakeRepoStore) CreateRepository(_ context.Context, repo *model.Repository) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return f.createErr
	}
	if f.failNames[repo.Name] {
		return fmt.Errorf("sqlite: creating repository: disk full")
	}
	f.nextID++
	repo.ID = fmt.Sprintf("repo-%d", f.nextID)
	repo.IsApproved = false
	repo.CreatedAt = time.Now()
	repo.UpdatedAt = repo.CreatedAt
	stored := *repo
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakeRepoStore) find(id string) (int, *model.Repository) {
	for i, r := range f.rows {
		if r.ID == id {
			return i, r
		}
	}
	return -1, nil
}

func (f *fakeRepoStore) GetRepository(_ context.Context, id string) (*model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, r := f.find(id)
	if r == nil {
		return nil, apperror.NotFound("repository", id)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRepoStore) ListRepositories(_ context.Context, filter repository.RepositoryFilter) ([]model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := []model.Repository{}
	for _, r := range f.rows {
		if filter.Approved != nil && r.IsApproved != *filter.Approved {
			continue
		}
		if filter.OwnerID != "" && r.UserID != filter.OwnerID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRepoStore) ApproveRepository(_ context.Context, id string) (*model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, r := f.find(id)
	if r == nil {
		return nil, apperror.NotFound("repository", id)
	}
	r.IsApproved = true
	copied := *r
	return &copied, nil
}

func (f *fakeRepoStore) DeleteRepository(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	i, r := f.find(id)
	if r == nil {
		return apperror.NotFound("repository", id)
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return nil
}

func (f *fakeRepoStore) CountRepositories(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

// seed stores a repository directly, bypassing the service.
func (f *fakeRepoStore) seed(name string, approved bool, owner string) *model.Repository {
	repo := &model.Repository{Name: name, URL: "https://github.com/x/" + name, UserID: owner}
	_ = f.CreateRepository(context.Background(), repo)
	if approved {
		stored, _ := f.ApproveRepository(context.Background(), repo.ID)
		return stored
	}
	return repo
}

// callCount reports how many store operations ran, to check that refused calls
// never reach the store.
func (f *fakeRepoStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type bookmarkKey struct{ user, repo string }

type fakeBookmarkStore struct {
	mu    sync.Mutex
	rows  map[bookmarkKey]model.Bookmark
	order []bookmarkKey
	repos *fakeRepoStore
}

func newFakeBookmarkStore(repos *fakeRepoStore) *fakeBookmarkStore {
	return &fakeBookmarkStore{rows: map[bookmarkKey]model.Bookmark{}, repos: repos}
}

func (f *fakeBookmarkStore) AddBookmark(_ context.Context, b *model.Bookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := bookmarkKey{b.UserID, b.RepositoryID}
	if _, ok := f.rows[k]; ok {
		return apperror.Conflict("bookmark", b.RepositoryID)
	}
	b.CreatedAt = time.Now()
	f.rows[k] = *b
	f.order = append(f.order, k)
	return nil
}

func (f *fakeBookmarkStore) RemoveBookmark(_ context.Context, userID, repositoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := bookmarkKey{userID, repositoryID}
	if _, ok := f.rows[k]; !ok {
		return apperror.NotFound("bookmark", repositoryID)
	}
	delete(f.rows, k)
	return nil
}

func (f *fakeBookmarkStore) ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Bookmark{}
	for _, k := range f.order {
		b, ok := f.rows[k]
		if !ok || k.user != userID {
			continue
		}
		repo, err := f.repos.GetRepository(ctx, k.repo)
		if err != nil {
			continue
		}
		b.Repository = repo
		out = append(out, b)
	}
	return out, nil
}

// =========================================================================
// RECORDING METRICS
// =========================================================================

type recordingMetrics struct {
	mu     sync.Mutex
	events map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{events: map[string]int{}}
}

func (m *recordingMetrics) add(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[key]++
}

func (m *recordingMetrics) SubmissionRecorded(result string) { m.add("submission:" + result) }
func (m *recordingMetrics) ApprovalTransition(action string) { m.add("approval:" + action) }
func (m *recordingMetrics) BookmarkChanged(action string)    { m.add("bookmark:" + action) }

func (m *recordingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[key]
}

var (
	admin  = &model.Identity{ID: "admin-1", Username: "root", IsAdmin: true}
	member = &model.Identity{ID: "user-1", Username: "alice"}
)
