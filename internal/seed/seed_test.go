package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/octofit-tracker/internal/auth"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
	"github.com/sakif/octofit-tracker/internal/repository/sqlite"
)

var seedNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestSeeder(t *testing.T) (*Seeder, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, auth.NewPasswordServiceForTest(bcrypt.MinCost), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return seedNow }
	return s, db
}

// Every seeded user logs the same seven activities, worth
// 75 + 48 + 84 + 90 + 50 + 200 + 165 points.
const pointsPerUser = 712

func TestRun(t *testing.T) {
	s, db := newTestSeeder(t)
	ctx := context.Background()

	report, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Failures())

	for kind, want := range map[string]int{
		"activity type": 6,
		"user":          5,
		"activity":      35,
		"team":          3,
		"challenge":     3,
		"achievement":   6,
	} {
		assert.Equal(t, want, report.Count(kind, Created), kind)
	}

	alice, err := db.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	profile, err := db.GetProfileByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, pointsPerUser, profile.TotalPoints)
	assert.Equal(t, model.FitnessBeginner, profile.FitnessLevel)

	charlie, err := db.GetByUsername(ctx, "charlie")
	require.NoError(t, err)
	profile, err = db.GetProfileByUserID(ctx, charlie.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FitnessAdvanced, profile.FitnessLevel)

	activities, err := db.ListActivities(ctx, repository.ActivityFilter{UserID: alice.ID, Ordering: repository.OrderLoggedAtDesc})
	require.NoError(t, err)
	require.Len(t, activities, ActivitiesPerUser)
	assert.True(t, activities[0].LoggedAt.Equal(seedNow))
	assert.True(t, activities[6].LoggedAt.Equal(seedNow.AddDate(0, 0, -18)))
	assert.Equal(t, "Running session #1", activities[0].Description)

	teams, err := db.ListTeams(ctx, repository.TeamFilter{})
	require.NoError(t, err)
	require.Len(t, teams, 3)
	totals := map[string]int{}
	for _, team := range teams {
		totals[team.Name] = team.TotalPoints
	}
	assert.Equal(t, 3*pointsPerUser, totals["Fitness Warriors"])
	assert.Equal(t, 3*pointsPerUser, totals["Active Lifestyle"])
	assert.Equal(t, 2*pointsPerUser, totals["Running Club"])

	sprint, err := db.GetChallengeByName(ctx, "February Fitness Sprint")
	require.NoError(t, err)
	participants, err := db.ParticipantPoints(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, participants, ChallengeParticipants)
	assert.Equal(t, "alice", participants[0].Username)

	achievements, err := db.ListAchievements(ctx, repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, achievements, 6)
}

func TestRun_Idempotent(t *testing.T) {
	s, db := newTestSeeder(t)
	ctx := context.Background()

	_, err := s.Run(ctx)
	require.NoError(t, err)

	report, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Failures())
	assert.Zero(t, report.Count("", Created))
	assert.Equal(t, 6+5+3+3+6, report.Count("", AlreadyExists))

	alice, err := db.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	profile, err := db.GetProfileByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, pointsPerUser, profile.TotalPoints, "a second run must not log activities again")

	activities, err := db.ListActivities(ctx, repository.ActivityFilter{UserID: alice.ID})
	require.NoError(t, err)
	assert.Len(t, activities, ActivitiesPerUser)
}

func TestRun_PartialFixtures(t *testing.T) {
	s, db := newTestSeeder(t)
	ctx := context.Background()

	// A team name taken by someone else is reported as existing, not failed.
	outsider := &model.User{Username: "zed", Email: "zed@example.com", PasswordHash: "x"}
	require.NoError(t, db.CreateUserWithProfile(ctx, outsider, &model.UserProfile{}))
	require.NoError(t, db.CreateTeam(ctx, &model.Team{Name: "Running Club", CreatedByID: outsider.ID}))

	report, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Failures())
	assert.Equal(t, 2, report.Count("team", Created))
	assert.Equal(t, 1, report.Count("team", AlreadyExists))
}

func TestRun_Cancelled(t *testing.T) {
	s, _ := newTestSeeder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotEmpty(t, report.Failures())
}

func TestReport(t *testing.T) {
	r := Report{Outcomes: []Outcome{
		{Kind: "user", Name: "alice", Status: Created},
		{Kind: "user", Name: "bob", Status: Failed, Reason: "boom"},
		{Kind: "team", Name: "Runners", Status: Created},
	}}

	assert.Equal(t, 2, r.Count("", Created))
	assert.Equal(t, 1, r.Count("user", Created))
	assert.Zero(t, r.Count("team", AlreadyExists))
	require.Len(t, r.Failures(), 1)
	assert.Equal(t, "boom", r.Failures()[0].Reason)
}
