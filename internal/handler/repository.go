package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/model"
)

// RepositoryService is what RepositoryHandler needs from *service.RepositoryService.
type RepositoryService interface {
	Submit(ctx context.Context, ownerID string, in model.RepositoryInput) (*model.Repository, error)
	SubmitMany(ctx context.Context, ownerID string, inputs []model.RepositoryInput) ([]model.Repository, error)
	ListApproved(ctx context.Context, query string) ([]model.Repository, error)
	ListPendingForOwner(ctx context.Context, ownerID string) ([]model.Repository, error)
	ListPending(ctx context.Context, actor *model.Identity) ([]model.Repository, error)
}

// Rejecter deletes a repository. *service.ApprovalService implements it.
type Rejecter interface {
	Reject(ctx context.Context, actor *model.Identity, repoID string) error
}

// RepositoryHandler serves /api/repositories.
type RepositoryHandler struct {
	repos     RepositoryService
	approvals Rejecter
	logger    *slog.Logger
}

func NewRepositoryHandler(repos RepositoryService, approvals Rejecter, logger *slog.Logger) *RepositoryHandler {
	return &RepositoryHandler{repos: repos, approvals: approvals, logger: logger}
}

// HandleList is the public listing: approved repositories only.
//
// HTTP: GET /api/repositories[?q=golang]
// Auth: none
func (h *RepositoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repos.ListApproved(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// BatchResponse is the body of a bulk submission.
type BatchResponse struct {
	Created []model.Repository `json:"created"`
	Failed  int                `json:"failed"`
}

// HandleCreate submits one repository, or many.
//
// HTTP: POST /api/repositories
// Auth: Required
// REQUEST BODY: {"name", "description", "url", "techStack"} or an array of them.
//
// The owner is the caller. Extra fields such as "userId" or "isApproved" in the body
// are dropped by the decoder (RepositoryInput has no such fields).
//
// ARRAY RESPONSES:
// Each element succeeds or fails on its own. If anything was created the response is
// 201 {"created": [...], "failed": n}; only when nothing was created does the request
// fail, with the status of the underlying errors.
func (h *RepositoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, apperror.ValidationFailed("body", "request body is too large"))
		return
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		writeError(w, r, apperror.ValidationFailed("body", "request body is required"))
		return
	}

	if trimmed[0] != '[' {
		var in model.RepositoryInput
		if err := json.Unmarshal(trimmed, &in); err != nil {
			writeError(w, r, apperror.ValidationFailed("body", "invalid JSON body"))
			return
		}
		repo, err := h.repos.Submit(r.Context(), identity.ID, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, repo)
		return
	}

	var inputs []model.RepositoryInput
	if err := json.Unmarshal(trimmed, &inputs); err != nil {
		writeError(w, r, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	created, err := h.repos.SubmitMany(r.Context(), identity.ID, inputs)
	failures := multierr.Errors(err)

	if len(created) == 0 && err != nil {
		// A store failure anywhere in the batch makes the whole response a 500.
		for _, e := range failures {
			var appErr *apperror.AppError
			if !errors.As(e, &appErr) {
				writeError(w, r, e)
				return
			}
		}
		writeError(w, r, err)
		return
	}

	if len(failures) > 0 {
		h.logger.Warn("bulk import partially failed",
			slog.String("owner", identity.ID),
			slog.Int("created", len(created)),
			slog.Int("failed", len(failures)),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusCreated, BatchResponse{Created: created, Failed: len(failures)})
}

// HandlePendingForOwner lists the caller's own pending submissions.
//
// HTTP: GET /api/repositories/pending-for-owner
// Auth: Required
func (h *RepositoryHandler) HandlePendingForOwner(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	repos, err := h.repos.ListPendingForOwner(r.Context(), identity.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// HandlePendingForAdmin lists every pending submission.
//
// HTTP: GET /api/repositories/pending-for-admin
// Auth: Admin
func (h *RepositoryHandler) HandlePendingForAdmin(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	repos, err := h.repos.ListPending(r.Context(), identity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// HandleDelete removes a repository (same transition as rejecting it).
//
// HTTP: DELETE /api/repositories/{id}
// Auth: Admin
func (h *RepositoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := h.approvals.Reject(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
