package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/model"
)

// BookmarkService is what BookmarkHandler needs from *service.BookmarkService.
type BookmarkService interface {
	Add(ctx context.Context, userID, repositoryID string) (*model.Bookmark, error)
	Remove(ctx context.Context, userID, repositoryID string) error
	List(ctx context.Context, userID string) ([]model.Bookmark, error)
}

// BookmarkHandler serves /api/bookmarks. Every route acts on the caller's own bookmarks.
type BookmarkHandler struct {
	bookmarks BookmarkService
}

func NewBookmarkHandler(bookmarks BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

// BookmarkRequest is the body of POST /api/bookmarks.
type BookmarkRequest struct {
	RepositoryID string `json:"repositoryId"`
}

// HandleList returns the caller's bookmarks with repository details.
//
// HTTP: GET /api/bookmarks
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	bookmarks, err := h.bookmarks.List(r.Context(), identity.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

// HandleAdd bookmarks a repository. 409 if it is already bookmarked.
//
// HTTP: POST /api/bookmarks
// REQUEST BODY: {"repositoryId": "..."}
func (h *BookmarkHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	var req BookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := h.bookmarks.Add(r.Context(), identity.ID, req.RepositoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HandleRemove deletes one of the caller's bookmarks.
//
// HTTP: DELETE /api/bookmarks/{repositoryId}
func (h *BookmarkHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	if err := h.bookmarks.Remove(r.Context(), identity.ID, chi.URLParam(r, "repositoryId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
