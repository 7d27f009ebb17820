// Command snapshot rebuilds the materialized leaderboards.
//
// Without flags it rebuilds every (type, period) pair. Run it from cron, e.g.
// every 15 minutes:
//
//	snapshot
//	snapshot -type team -period monthly
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sakif/octofit-tracker/internal/config"
	"github.com/sakif/octofit-tracker/internal/repository/sqlite"
	"github.com/sakif/octofit-tracker/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	rawType := fs.String("type", "", "leaderboard type: individual or team (default: all)")
	rawPeriod := fs.String("period", "", "period: daily, weekly, monthly or all_time (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	leaderboard := service.NewLeaderboardService(db, db, db, db, logger)
	now := time.Now()

	if *rawType == "" && *rawPeriod == "" {
		return leaderboard.MaterializeAll(ctx, now)
	}

	lt, period, err := service.ParseLeaderboard(*rawType, *rawPeriod)
	if err != nil {
		return err
	}
	n, err := leaderboard.Materialize(ctx, lt, period, now)
	if err != nil {
		return err
	}
	logger.Info("snapshot written",
		slog.String("type", string(lt)),
		slog.String("period", string(period)),
		slog.Int("entries", n),
	)
	return nil
}
