package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/metrics"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// ApprovalService is the approval workflow:
//
//	pending ──Approve──▶ approved
//	   │                    │
//	   └──────Reject────────┴──▶ removed (row deleted, bookmarks cascade)
//
// There is no transition back to pending. Both operations are admin only; a
// non-admin actor is refused BEFORE the store is touched.
//
// CONCURRENCY:
// No optimistic locking. Two admins acting on the same row at once race, and the last
// write wins: approve+approve is harmless, approve+reject ends deleted or NotFound
// depending on order. That is accepted at this scale.
type ApprovalService struct {
	repos   repository.RepositoryStore
	metrics Metrics
	logger  *slog.Logger
}

func NewApprovalService(repos repository.RepositoryStore, m Metrics, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{
		repos:   repos,
		metrics: metricsOrNop(m),
		logger:  logger,
	}
}

// Approve publishes a pending repository. Approving twice is a no-op.
// Unknown ids return apperror.ErrNotFound.
func (s *ApprovalService) Approve(ctx context.Context, actor *model.Identity, repoID string) (*model.Repository, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	repoID = strings.TrimSpace(repoID)
	if repoID == "" {
		return nil, apperror.ValidationFailed("repoId", "repository id is required")
	}

	repo, err := s.repos.ApproveRepository(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("approving repository %s: %w", repoID, err)
	}

	s.metrics.ApprovalTransition(metrics.ActionApprove)
	s.logger.Info("repository approved",
		slog.String("id", repo.ID),
		slog.String("name", repo.Name),
		slog.String("admin", actor.Username),
	)

	return repo, nil
}

// Reject deletes a repository in any state. Its bookmarks are removed by the store
// (ON DELETE CASCADE).
func (s *ApprovalService) Reject(ctx context.Context, actor *model.Identity, repoID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	repoID = strings.TrimSpace(repoID)
	if repoID == "" {
		return apperror.ValidationFailed("repoId", "repository id is required")
	}

	if err := s.repos.DeleteRepository(ctx, repoID); err != nil {
		return fmt.Errorf("rejecting repository %s: %w", repoID, err)
	}

	s.metrics.ApprovalTransition(metrics.ActionReject)
	s.logger.Info("repository rejected",
		slog.String("id", repoID),
		slog.String("admin", actor.Username),
	)

	return nil
}
