package handler

import (
	"context"
	"net/http"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/model"
)

// ImportSource lists import candidates. *service.GitHubService implements it.
type ImportSource interface {
	ImportCandidates(ctx context.Context, userID string) ([]model.GitHubRepository, error)
}

type GitHubHandler struct {
	source ImportSource
}

func NewGitHubHandler(source ImportSource) *GitHubHandler {
	return &GitHubHandler{source: source}
}

// HandleListRepos returns the caller's public GitHub repositories as import candidates.
//
// HTTP: GET /api/github/repos
// Auth: Required
func (h *GitHubHandler) HandleListRepos(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	repos, err := h.source.ImportCandidates(r.Context(), identity.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}
