package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/octofit-tracker/internal/model"
)

func TestPointsFor(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		base     int
		expected int
	}{
		{"five km run at 15", 5, 15, 75},
		{"fraction truncates", 2.75, 10, 27},
		{"just under one point", 0.99, 1, 0},
		{"zero amount", 0, 15, 0},
		{"zero base", 30, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PointsFor(tt.amount, tt.base))
		})
	}
}

func TestChallengeProgress(t *testing.T) {
	participants := []model.ParticipantPoints{
		{UserID: "c", Username: "carol", Points: 0},
		{UserID: "a", Username: "alice", Points: 125},
		{UserID: "b", Username: "bob", Points: 50},
		{UserID: "d", Username: "diana", Points: 50},
	}

	progress := ChallengeProgress(500, participants)

	require.Len(t, progress, 4)
	assert.Equal(t, "alice", progress[0].Username)
	assert.Equal(t, 25.0, progress[0].ProgressPercent)
	// Ties keep join order.
	assert.Equal(t, "bob", progress[1].Username)
	assert.Equal(t, "diana", progress[2].Username)
	assert.Equal(t, 10.0, progress[1].ProgressPercent)
	assert.Equal(t, "carol", progress[3].Username)
}

func TestChallengeProgress_NonPositiveGoal(t *testing.T) {
	progress := ChallengeProgress(0, []model.ParticipantPoints{{UserID: "a", Points: 300}})

	require.Len(t, progress, 1)
	assert.Equal(t, 0.0, progress[0].ProgressPercent)
}

func TestRankStandings(t *testing.T) {
	standings := []model.Standing{
		{Ref: model.UserRef("u3"), Name: "charlie", Points: 40},
		{Ref: model.UserRef("u1"), Name: "alice", Points: 75},
		{Ref: model.UserRef("u2"), Name: "bob", Points: 40},
	}

	entries := RankStandings(standings)

	require.Len(t, entries, 3)
	assert.Equal(t, model.UserRef("u1"), entries[0].Ref)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, model.UserRef("u2"), entries[1].Ref, "bob before charlie on equal points")
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)
	// The input is left untouched.
	assert.Equal(t, "charlie", standings[0].Name)
}

func TestPeriodWindow(t *testing.T) {
	// Thursday 13 March 2025, 15:30 UTC.
	now := time.Date(2025, 3, 13, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period model.Period
		since  *time.Time
	}{
		{model.PeriodDaily, ptr(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))},
		{model.PeriodWeekly, ptr(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))},
		{model.PeriodMonthly, ptr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))},
		{model.PeriodAllTime, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			since, until := PeriodWindow(tt.period, now)
			require.NotNil(t, until)
			assert.Equal(t, now, *until)
			if tt.since == nil {
				assert.Nil(t, since)
				return
			}
			require.NotNil(t, since)
			assert.Equal(t, *tt.since, *since)
		})
	}
}

func TestPeriodWindow_WeeklyOnSunday(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)

	since, _ := PeriodWindow(model.PeriodWeekly, sunday)

	require.NotNil(t, since)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *since)
}

func ptr[T any](v T) *T { return &v }
