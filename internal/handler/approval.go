package handler

import (
	"context"
	"net/http"

	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/model"
)

// ApprovalService is what ApprovalHandler needs from *service.ApprovalService.
type ApprovalService interface {
	Approve(ctx context.Context, actor *model.Identity, repoID string) (*model.Repository, error)
	Rejecter
}

// ApprovalHandler serves /api/approvals. Both routes sit behind auth.RequireAdmin;
// the service checks the admin flag again.
type ApprovalHandler struct {
	approvals ApprovalService
}

func NewApprovalHandler(approvals ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

// ApprovalRequest is the body of both approval routes.
type ApprovalRequest struct {
	RepoID string `json:"repoId"`
}

// HandleApprove publishes a pending repository.
//
// HTTP: POST /api/approvals
// REQUEST BODY: {"repoId": "..."}
func (h *ApprovalHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req ApprovalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	repo, err := h.approvals.Approve(r.Context(), identity, req.RepoID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

// HandleReject deletes a repository in any state.
//
// HTTP: DELETE /api/approvals
// REQUEST BODY: {"repoId": "..."}
func (h *ApprovalHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req ApprovalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.approvals.Reject(r.Context(), identity, req.RepoID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
