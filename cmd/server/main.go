// Package main is the entry point for the repohub server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (internal/config: .env, environment, defaults)
// 2. Create dependencies (logger, data directory)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. This project
// has three: cmd/server (the API), cmd/seed (sample data) and cmd/admin (roles).
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/repohub/internal/config"
	"github.com/sakif/repohub/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text at debug level in development, JSON at info level in production.
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if !cfg.IsProduction() && (cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "") {
		logger.Warn("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set, GitHub sign-in will fail")
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
