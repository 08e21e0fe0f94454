// Command seed inserts the sample approved repositories into an empty database.
//
//	go run ./cmd/seed
//
// It reads DB_PATH like the server does and does nothing if repositories already exist.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/repohub/internal/config"
	sqliteRepo "github.com/sakif/repohub/internal/repository/sqlite"
	"github.com/sakif/repohub/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := seed.Run(ctx, db, db, logger)
	if err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}

	logger.Info("database seeded", slog.Int("inserted", n), slog.String("database", cfg.DBPath))
}
