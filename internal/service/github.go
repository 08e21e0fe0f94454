package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// GitHubClient lists a user's repositories on GitHub. *auth.GitHubProvider implements it.
type GitHubClient interface {
	ListPublicRepositories(ctx context.Context, accessToken string) ([]auth.GitHubRepo, error)
}

// GitHubService offers the caller's public GitHub repositories as import candidates.
// The client picks some and posts them back as a batch to POST /api/repositories.
type GitHubService struct {
	users  repository.UserStore
	sealer *auth.TokenSealer
	client GitHubClient
	logger *slog.Logger
}

func NewGitHubService(users repository.UserStore, sealer *auth.TokenSealer, client GitHubClient, logger *slog.Logger) *GitHubService {
	return &GitHubService{
		users:  users,
		sealer: sealer,
		client: client,
		logger: logger,
	}
}

// ImportCandidates returns the caller's public repositories, most recently updated
// first, each pre-filled as a submission (tech stack = the primary language, if any).
func (s *GitHubService) ImportCandidates(ctx context.Context, userID string) ([]model.GitHubRepository, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}

	token, err := s.sealer.Open(user.SealedGitHubToken)
	if err != nil {
		// Sealed with a different secret (JWT_SECRET rotated): a fresh sign-in fixes it.
		s.logger.Warn("cannot open stored GitHub token",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		token = ""
	}
	if token == "" {
		return nil, apperror.Unauthenticated("no GitHub access token on file, sign in with GitHub again")
	}

	repos, err := s.client.ListPublicRepositories(ctx, token)
	if err != nil {
		s.logger.Error("failed to list GitHub repositories",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing GitHub repositories: %w", err)
	}

	candidates := make([]model.GitHubRepository, 0, len(repos))
	for _, r := range repos {
		if r.Private {
			continue
		}
		candidates = append(candidates, toCandidate(r))
	}
	return candidates, nil
}

func toCandidate(r auth.GitHubRepo) model.GitHubRepository {
	c := model.GitHubRepository{
		GitHubID: r.ID,
		FullName: r.FullName,
		Input: model.RepositoryInput{
			Name:      r.Name,
			URL:       r.HTMLURL,
			TechStack: []string{},
		},
	}
	if r.Description != nil {
		c.Input.Description = *r.Description
	}
	if r.Language != nil && *r.Language != "" {
		c.Language = *r.Language
		c.Input.TechStack = []string{*r.Language}
	}
	return c
}
