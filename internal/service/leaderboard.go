package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// LeaderboardService reads ranked snapshots and regenerates them.
//
// READS are a filter on the stored snapshot ordered by rank. They never
// compute rankings from live data, so a snapshot is only as fresh as the
// last Materialize run (cmd/snapshot).
//
// MATERIALIZE computes standings for one (type, period):
//
//	individual → points each user earned inside the period window
//	team       → the sum of its members' window points
//
// ranks them with RankStandings and swaps the stored snapshot in one
// transaction. Subjects with no points in the window are left out.
type LeaderboardService struct {
	entries    repository.LeaderboardRepository
	activities repository.ActivityRepository
	users      repository.UserRepository
	teams      repository.TeamRepository
	logger     *slog.Logger
}

func NewLeaderboardService(
	entries repository.LeaderboardRepository,
	activities repository.ActivityRepository,
	users repository.UserRepository,
	teams repository.TeamRepository,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		entries:    entries,
		activities: activities,
		users:      users,
		teams:      teams,
		logger:     logger,
	}
}

// ParseLeaderboard validates raw query values, applying the defaults
// individual and weekly for empty strings.
func ParseLeaderboard(rawType, rawPeriod string) (model.LeaderboardType, model.Period, error) {
	t := model.LeaderboardType(rawType)
	if rawType == "" {
		t = model.LeaderboardIndividual
	}
	if !t.Valid() {
		return "", "", apperror.ValidationFailed("type", fmt.Sprintf("unknown leaderboard type %q", rawType))
	}

	p := model.Period(rawPeriod)
	if rawPeriod == "" {
		p = model.PeriodWeekly
	}
	if !p.Valid() {
		return "", "", apperror.ValidationFailed("period", fmt.Sprintf("unknown period %q", rawPeriod))
	}
	return t, p, nil
}

// Query returns the stored snapshot for (t, p) by ascending rank.
func (s *LeaderboardService) Query(ctx context.Context, t model.LeaderboardType, p model.Period, opts repository.ListOptions) ([]model.LeaderboardEntry, error) {
	if !t.Valid() {
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown leaderboard type %q", t))
	}
	if !p.Valid() {
		return nil, apperror.ValidationFailed("period", fmt.Sprintf("unknown period %q", p))
	}
	return s.entries.ListEntries(ctx, t, p, opts)
}

func (s *LeaderboardService) Get(ctx context.Context, id string) (*model.LeaderboardEntry, error) {
	return s.entries.GetEntry(ctx, id)
}

// Materialize regenerates the (t, p) snapshot as of now and returns the
// number of ranked entries.
func (s *LeaderboardService) Materialize(ctx context.Context, t model.LeaderboardType, p model.Period, now time.Time) (int, error) {
	if !p.Valid() {
		return 0, apperror.ValidationFailed("period", fmt.Sprintf("unknown period %q", p))
	}

	since, until := PeriodWindow(p, now)
	points, err := s.activities.PointsByUser(ctx, since, until)
	if err != nil {
		return 0, fmt.Errorf("service/leaderboard: summing points: %w", err)
	}

	var standings []model.Standing
	switch t {
	case model.LeaderboardIndividual:
		standings, err = s.userStandings(ctx, points)
	case model.LeaderboardTeam:
		standings, err = s.teamStandings(ctx, points)
	default:
		return 0, apperror.ValidationFailed("type", fmt.Sprintf("unknown leaderboard type %q", t))
	}
	if err != nil {
		return 0, err
	}

	entries := RankStandings(standings)
	if err := s.entries.ReplaceSnapshot(ctx, t, p, entries); err != nil {
		return 0, fmt.Errorf("service/leaderboard: replacing %s/%s snapshot: %w", t, p, err)
	}

	s.logger.Info("leaderboard materialized",
		slog.String("type", string(t)),
		slog.String("period", string(p)),
		slog.Int("entries", len(entries)),
	)
	return len(entries), nil
}

// MaterializeAll regenerates every (type, period) snapshot. It stops at the
// first failure.
func (s *LeaderboardService) MaterializeAll(ctx context.Context, now time.Time) error {
	for _, t := range []model.LeaderboardType{model.LeaderboardIndividual, model.LeaderboardTeam} {
		for _, p := range model.Periods {
			if _, err := s.Materialize(ctx, t, p, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *LeaderboardService) userStandings(ctx context.Context, points map[string]int) ([]model.Standing, error) {
	standings := make([]model.Standing, 0, len(points))
	for userID, pts := range points {
		if pts <= 0 {
			continue
		}
		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("service/leaderboard: loading user %s: %w", userID, err)
		}
		standings = append(standings, model.Standing{
			Ref:    model.UserRef(userID),
			Name:   user.Username,
			Points: pts,
		})
	}
	return standings, nil
}

func (s *LeaderboardService) teamStandings(ctx context.Context, points map[string]int) ([]model.Standing, error) {
	members, err := s.teams.TeamMemberIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/leaderboard: loading memberships: %w", err)
	}

	standings := make([]model.Standing, 0, len(members))
	for teamID, userIDs := range members {
		total := 0
		for _, userID := range userIDs {
			total += points[userID]
		}
		if total <= 0 {
			continue
		}
		team, err := s.teams.GetTeam(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("service/leaderboard: loading team %s: %w", teamID, err)
		}
		standings = append(standings, model.Standing{
			Ref:    model.TeamRef(teamID),
			Name:   team.Name,
			Points: total,
		})
	}
	return standings, nil
}
