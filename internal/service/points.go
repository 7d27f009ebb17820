package service

import (
	"cmp"
	"slices"
	"time"

	"github.com/sakif/octofit-tracker/internal/model"
)

// PointsFor returns the points an activity earns: the product of the amount
// logged and the type's per-unit base, truncated toward zero.
//
//	PointsFor(5, 15)   == 75
//	PointsFor(2.75, 10) == 27
func PointsFor(distanceOrDuration float64, basePointsPerUnit int) int {
	return int(distanceOrDuration * float64(basePointsPerUnit))
}

// ChallengeProgress turns per-participant window points into the progress
// view: percent of goal (0 when goal is not positive), sorted by points
// descending. The sort is stable, so ties keep the input (join) order.
func ChallengeProgress(goalPoints int, participants []model.ParticipantPoints) []model.ParticipantProgress {
	progress := make([]model.ParticipantProgress, 0, len(participants))
	for _, p := range participants {
		var percent float64
		if goalPoints > 0 {
			percent = float64(p.Points) / float64(goalPoints) * 100
		}
		progress = append(progress, model.ParticipantProgress{
			ID:              p.UserID,
			Username:        p.Username,
			Points:          p.Points,
			ProgressPercent: percent,
		})
	}

	slices.SortStableFunc(progress, func(a, b model.ParticipantProgress) int {
		return cmp.Compare(b.Points, a.Points)
	})
	return progress
}

// RankStandings orders standings by points (highest first), then name, then
// ID, and assigns ranks 1..n. Equal points still get distinct ranks because
// (type, period, rank) is unique in storage.
func RankStandings(standings []model.Standing) []model.LeaderboardEntry {
	sorted := slices.Clone(standings)
	slices.SortFunc(sorted, func(a, b model.Standing) int {
		return cmp.Or(
			cmp.Compare(b.Points, a.Points),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Ref.ID, b.Ref.ID),
		)
	})

	entries := make([]model.LeaderboardEntry, len(sorted))
	for i, s := range sorted {
		entries[i] = model.LeaderboardEntry{
			Rank:   i + 1,
			Ref:    s.Ref,
			Points: s.Points,
		}
	}
	return entries
}

// PeriodWindow returns the [since, until] range a period covers at now, in
// now's location. since is nil for all_time.
//
//	daily   → midnight today
//	weekly  → Monday 00:00 of the current week
//	monthly → the 1st of the current month, 00:00
func PeriodWindow(p model.Period, now time.Time) (since, until *time.Time) {
	until = &now

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var start time.Time
	switch p {
	case model.PeriodDaily:
		start = midnight
	case model.PeriodWeekly:
		// time.Weekday counts from Sunday = 0; shift so Monday = 0.
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		start = midnight.AddDate(0, 0, -daysSinceMonday)
	case model.PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return nil, until
	}
	return &start, until
}
