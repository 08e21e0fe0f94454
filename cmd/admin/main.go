// Command admin manages admin roles. There is no HTTP endpoint that grants admin;
// this tool is the only way.
//
//	go run ./cmd/admin promote <username>
//	go run ./cmd/admin demote <username>
//	go run ./cmd/admin list-admins
//
// The user must have signed in at least once so the row exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sakif/repohub/internal/config"
	"github.com/sakif/repohub/internal/repository"
	sqliteRepo "github.com/sakif/repohub/internal/repository/sqlite"
)

const usage = `usage:
  admin promote <username>
  admin demote <username>
  admin list-admins`

var errUsage = errors.New(usage)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = run(ctx, db, os.Args[1:], os.Stdout)
	cancel()
	db.Close()

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("admin command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run executes one subcommand against users.
func run(ctx context.Context, users repository.UserStore, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "promote", "demote":
		if len(args) != 2 {
			return errUsage
		}
		isAdmin := args[0] == "promote"
		if err := users.SetAdmin(ctx, args[1], isAdmin); err != nil {
			return fmt.Errorf("%s %s: %w", args[0], args[1], err)
		}
		fmt.Fprintf(out, "%s: isAdmin=%t\n", args[1], isAdmin)
		return nil

	case "list-admins":
		admins, err := users.ListAdmins(ctx)
		if err != nil {
			return fmt.Errorf("listing admins: %w", err)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tSINCE")
		for _, u := range admins {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format(time.DateOnly))
		}
		return tw.Flush()

	default:
		return errUsage
	}
}
