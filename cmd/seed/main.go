// Command seed loads the demo fixture set into the database at DB_PATH.
//
// It is safe to run repeatedly: fixtures that already exist are left alone.
// Every seeded user's password is "testpass123".
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/octofit-tracker/internal/auth"
	"github.com/sakif/octofit-tracker/internal/config"
	"github.com/sakif/octofit-tracker/internal/repository/sqlite"
	"github.com/sakif/octofit-tracker/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := seed.New(db, auth.NewPasswordService(), logger).Run(ctx)
	if err != nil {
		return err
	}

	for _, f := range report.Failures() {
		logger.Error("fixture not loaded",
			slog.String("kind", f.Kind),
			slog.String("name", f.Name),
			slog.String("reason", f.Reason),
		)
	}
	for _, kind := range []string{"activity type", "user", "activity", "team", "challenge", "achievement"} {
		logger.Info("summary",
			slog.String("kind", kind),
			slog.Int("created", report.Count(kind, seed.Created)),
			slog.Int("alreadyExisted", report.Count(kind, seed.AlreadyExists)),
			slog.Int("failed", report.Count(kind, seed.Failed)),
		)
	}
	logger.Info("seeded users can log in", slog.String("password", seed.Password))
	return nil
}
