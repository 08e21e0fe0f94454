package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/metrics"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// Validation constants.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
	MaxTechStackTags     = 20
	MaxTagLength         = 40

	// MaxBatchSize matches one page of the GitHub repos API, the source of bulk imports.
	MaxBatchSize = 100

	// importConcurrency bounds in-flight inserts during a bulk import.
	// SQLite serializes writers anyway; a few in flight hides per-statement latency.
	importConcurrency = 4
)

// RepositoryService handles submission and listing of repositories.
type RepositoryService struct {
	repos   repository.RepositoryStore
	metrics Metrics
	logger  *slog.Logger
}

func NewRepositoryService(repos repository.RepositoryStore, m Metrics, logger *slog.Logger) *RepositoryService {
	return &RepositoryService{
		repos:   repos,
		metrics: metricsOrNop(m),
		logger:  logger,
	}
}

// Submit validates and stores one submission owned by ownerID.
//
// ownerID comes from the session. The input type has no UserID or IsApproved field,
// so a client cannot pick the owner or pre-approve its own row; the store writes
// is_approved = false for every new row.
func (s *RepositoryService) Submit(ctx context.Context, ownerID string, in model.RepositoryInput) (*model.Repository, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	repo, err := normalize(in)
	if err != nil {
		s.metrics.SubmissionRecorded(metrics.ResultRejected)
		return nil, err
	}
	repo.UserID = ownerID

	if err := s.repos.CreateRepository(ctx, repo); err != nil {
		s.metrics.SubmissionRecorded(metrics.ResultFailed)
		s.logger.Error("failed to create repository",
			slog.String("name", repo.Name),
			slog.String("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating repository: %w", err)
	}

	s.metrics.SubmissionRecorded(metrics.ResultCreated)
	s.logger.Info("repository submitted",
		slog.String("id", repo.ID),
		slog.String("name", repo.Name),
		slog.String("owner", ownerID),
	)

	return repo, nil
}

// SubmitMany is the bulk import: every element is submitted on its own.
//
// There is NO transaction across the batch. Elements are created concurrently
// (at most importConcurrency at a time) and each one succeeds or fails alone, so
// partial success is normal. created keeps input order and holds only the rows that
// were stored; err combines every failure (multierr), each prefixed with its index.
func (s *RepositoryService) SubmitMany(ctx context.Context, ownerID string, inputs []model.RepositoryInput) (created []model.Repository, err error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	if len(inputs) == 0 {
		return nil, apperror.ValidationFailed("repositories", "at least one repository is required")
	}
	if len(inputs) > MaxBatchSize {
		return nil, apperror.ValidationFailed("repositories",
			fmt.Sprintf("at most %d repositories can be imported at once", MaxBatchSize))
	}

	results := make([]*model.Repository, len(inputs))
	errs := make([]error, len(inputs))

	// The group's functions never return an error: a failed element must not cancel
	// its siblings. Failures are collected per index instead.
	var g errgroup.Group
	g.SetLimit(importConcurrency)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			repo, err := s.Submit(ctx, ownerID, in)
			if err != nil {
				errs[i] = fmt.Errorf("repository %d: %w", i, err)
				return nil
			}
			results[i] = repo
			return nil
		})
	}
	_ = g.Wait()

	created = make([]model.Repository, 0, len(inputs))
	for i := range inputs {
		if results[i] != nil {
			created = append(created, *results[i])
		}
		err = multierr.Append(err, errs[i])
	}

	s.logger.Info("bulk import finished",
		slog.String("owner", ownerID),
		slog.Int("requested", len(inputs)),
		slog.Int("created", len(created)),
		slog.Int("failed", len(multierr.Errors(err))),
	)

	return created, err
}

// ListApproved is the public listing: approved rows only, insertion order.
// An empty query returns everything; otherwise name or tag must contain it.
func (s *RepositoryService) ListApproved(ctx context.Context, query string) ([]model.Repository, error) {
	approved := true
	repos, err := s.repos.ListRepositories(ctx, repository.RepositoryFilter{
		Approved: &approved,
		Query:    query,
	})
	if err != nil {
		s.logger.Error("failed to list repositories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing approved repositories: %w", err)
	}
	return repos, nil
}

// ListPendingForOwner returns the caller's own submissions still awaiting approval.
func (s *RepositoryService) ListPendingForOwner(ctx context.Context, ownerID string) ([]model.Repository, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	pending := false
	repos, err := s.repos.ListRepositories(ctx, repository.RepositoryFilter{
		Approved: &pending,
		OwnerID:  ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing pending repositories for %s: %w", ownerID, err)
	}
	return repos, nil
}

// ListPending returns every pending submission, for the admin review queue.
func (s *RepositoryService) ListPending(ctx context.Context, actor *model.Identity) ([]model.Repository, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	pending := false
	repos, err := s.repos.ListRepositories(ctx, repository.RepositoryFilter{Approved: &pending})
	if err != nil {
		return nil, fmt.Errorf("listing pending repositories: %w", err)
	}
	return repos, nil
}

// normalize validates a submission and returns the repository to store.
func normalize(in model.RepositoryInput) (*model.Repository, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "repository name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("repository name must be %d characters or less", MaxNameLength))
	}

	rawURL := strings.TrimSpace(in.URL)
	if rawURL == "" {
		return nil, apperror.ValidationFailed("url", "repository url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperror.ValidationFailed("url", "repository url must be an absolute http or https URL")
	}

	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	tags := make([]string, 0, len(in.TechStack))
	for _, tag := range in.TechStack {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, apperror.ValidationFailed("techStack",
				fmt.Sprintf("tech stack tags must be %d characters or less", MaxTagLength))
		}
		tags = append(tags, tag)
	}
	if len(tags) > MaxTechStackTags {
		return nil, apperror.ValidationFailed("techStack",
			fmt.Sprintf("at most %d tech stack tags are allowed", MaxTechStackTags))
	}

	return &model.Repository{
		Name:        name,
		Description: description,
		URL:         rawURL,
		TechStack:   tags,
	}, nil
}
