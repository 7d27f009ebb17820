// Package service holds the business rules of the tracker.
//
// LAYERS:
//
//	Handler (HTTP)    → parses requests, writes JSON responses
//	Service (rules)   → validates input, checks ownership, computes points
//	Repository (data) → reads and writes SQLite
//
// Services accept plain Go values, never *http.Request, so the seed and
// snapshot commands call the same code paths as the API. They return
// apperror values; the handler maps those to status codes.
//
// Every service takes its repositories as interfaces (internal/repository),
// so the tests in this package run against in-memory fakes.
package service

import (
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 2000

	// RecentWindow is how far back GET /api/activities/recent/ looks.
	RecentWindow = 7 * 24 * time.Hour

	// LeaderboardTopSize is the default page of the top-N leaderboard views.
	LeaderboardTopSize = 10
)

// clock is overridden in tests.
type clock func() time.Time

// requireName trims name and checks it is present and short enough.
func requireName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	if len(name) > MaxNameLength {
		return "", apperror.ValidationFailed(field, field+" must be 100 characters or less")
	}
	return name, nil
}

func checkDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if len(description) > MaxDescriptionLength {
		return "", apperror.ValidationFailed("description", "description must be 2000 characters or less")
	}
	return description, nil
}

// errAttr is the slog attribute every service uses for a failed call.
func errAttr(err error) slog.Attr {
	return slog.String("error", err.Error())
}
