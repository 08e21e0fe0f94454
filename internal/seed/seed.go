// Package seed fills an empty database with a few well-known, already approved
// repositories so the public listing has something to show on a fresh install.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// Username owns every seeded repository.
const Username = "seed"

// Repositories is the seed set, in listing order.
var Repositories = []model.RepositoryInput{
	{
		Name:        "Daytona",
		Description: "The Open Source Dev Environment Manager.",
		URL:         "https://github.com/daytonaio/daytona",
		TechStack:   []string{"Golang"},
	},
	{
		Name:        "Refact.ai",
		Description: "WebUI for Fine-Tuning and Self-hosting of Open-Source Large Language Models for Coding",
		URL:         "https://github.com/smallcloudai/refact",
		TechStack:   []string{"AI", "Python"},
	},
	{
		Name:        "Cal.com",
		Description: "Scheduling infrastructure for absolutely everyone.",
		URL:         "https://github.com/calcom/cal.com",
		TechStack:   []string{"Typescript", "NextJs"},
	},
	{
		Name:        "Remotion",
		Description: "Make videos programmatically with React",
		URL:         "https://github.com/remotion-dev/remotion",
		TechStack:   []string{"Typescript"},
	},
}

// Run inserts Repositories (created, then approved) owned by the seed user. It does
// nothing if the repositories table already has rows, so running it twice is safe.
// Returns the number of repositories inserted.
func Run(ctx context.Context, users repository.UserStore, repos repository.RepositoryStore, logger *slog.Logger) (int, error) {
	n, err := repos.CountRepositories(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: counting repositories: %w", err)
	}
	if n > 0 {
		logger.Info("database already has repositories, skipping seed", slog.Int("count", n))
		return 0, nil
	}

	owner := &model.User{Username: Username}
	if err := users.UpsertByUsername(ctx, owner); err != nil {
		return 0, fmt.Errorf("seed: creating owner: %w", err)
	}

	for i, in := range Repositories {
		repo := &model.Repository{
			Name:        in.Name,
			Description: in.Description,
			URL:         in.URL,
			TechStack:   append([]string(nil), in.TechStack...),
			UserID:      owner.ID,
		}
		if err := repos.CreateRepository(ctx, repo); err != nil {
			return i, fmt.Errorf("seed: creating %s: %w", in.Name, err)
		}
		if _, err := repos.ApproveRepository(ctx, repo.ID); err != nil {
			return i, fmt.Errorf("seed: approving %s: %w", in.Name, err)
		}
		logger.Debug("seeded repository", slog.String("name", in.Name), slog.String("id", repo.ID))
	}

	return len(Repositories), nil
}
