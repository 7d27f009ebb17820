// Package seed loads the demo fixture set: activity types, five users with a
// week of activities each, three teams, three challenges and six
// achievements.
//
// Every fixture goes through a create-or-get helper that reports an Outcome.
// A failed fixture is logged and skipped; the run always continues, and
// running it twice changes nothing the second time.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/auth"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository/sqlite"
	"github.com/sakif/octofit-tracker/internal/service"
)

// Password is shared by every seeded user.
const Password = "testpass123"

// Status is the result of one create-or-get call.
type Status string

const (
	Created       Status = "created"
	AlreadyExists Status = "already_exists"
	Failed        Status = "failed"
)

// Outcome records what happened to one fixture. Reason is set only when
// Status is Failed.
type Outcome struct {
	Kind   string
	Name   string
	Status Status
	Reason string
}

// Report collects every Outcome of a run, in order.
type Report struct {
	Outcomes []Outcome
}

// Count returns how many fixtures of kind ended with status. An empty kind
// matches every kind.
func (r *Report) Count(kind string, status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if (kind == "" || o.Kind == kind) && o.Status == status {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == Failed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Seeder writes fixtures through the same services the API uses, so points
// are credited by the ledger and team totals by recalculation.
type Seeder struct {
	db         *sqlite.DB
	passwords  *auth.PasswordService
	activities *service.ActivityService
	teams      *service.TeamService
	challenges *service.ChallengeService
	logger     *slog.Logger
	now        func() time.Time

	report Report
}

// New creates a Seeder over db.
func New(db *sqlite.DB, passwords *auth.PasswordService, logger *slog.Logger) *Seeder {
	return &Seeder{
		db:         db,
		passwords:  passwords,
		activities: service.NewActivityService(db, db, logger),
		teams:      service.NewTeamService(db, logger),
		challenges: service.NewChallengeService(db, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Run loads every fixture and returns the report. It returns an error only
// when ctx is cancelled.
func (s *Seeder) Run(ctx context.Context) (*Report, error) {
	s.report = Report{}
	now := s.now().UTC()

	types := s.activityTypes(ctx)
	users, fresh := s.users(ctx)
	if err := ctx.Err(); err != nil {
		return &s.report, err
	}

	s.activityLog(ctx, fresh, types, now)
	s.teamFixtures(ctx, users)
	s.challengeFixtures(ctx, users, now)
	s.achievements(ctx)

	s.logger.Info("seed complete",
		slog.Int("created", s.report.Count("", Created)),
		slog.Int("alreadyExisted", s.report.Count("", AlreadyExists)),
		slog.Int("failed", s.report.Count("", Failed)),
	)
	return &s.report, ctx.Err()
}

// record appends an outcome and logs it.
func (s *Seeder) record(kind, name string, err error, existed bool) Status {
	o := Outcome{Kind: kind, Name: name, Status: Created}
	switch {
	case err != nil:
		o.Status = Failed
		o.Reason = err.Error()
		s.logger.Warn("seed fixture failed",
			slog.String("kind", kind),
			slog.String("name", name),
			slog.String("reason", o.Reason),
		)
	case existed:
		o.Status = AlreadyExists
		s.logger.Debug("seed fixture already exists", slog.String("kind", kind), slog.String("name", name))
	default:
		s.logger.Info("seed fixture created", slog.String("kind", kind), slog.String("name", name))
	}
	s.report.Outcomes = append(s.report.Outcomes, o)
	return o.Status
}

// === Activity types ===

var activityTypeFixtures = []model.ActivityType{
	{Name: "Running", Description: "Outdoor or indoor running", BasePointsPerUnit: 15, Unit: model.UnitKilometers},
	{Name: "Walking", Description: "Casual or brisk walking", BasePointsPerUnit: 8, Unit: model.UnitKilometers},
	{Name: "Cycling", Description: "Cycling or stationary bike", BasePointsPerUnit: 12, Unit: model.UnitKilometers},
	{Name: "Strength Training", Description: "Weight training or bodyweight exercises", BasePointsPerUnit: 2, Unit: model.UnitMinutes},
	{Name: "Yoga", Description: "Yoga or pilates session", BasePointsPerUnit: 1, Unit: model.UnitMinutes},
	{Name: "Swimming", Description: "Swimming laps or recreational swimming", BasePointsPerUnit: 20, Unit: model.UnitKilometers},
}

func (s *Seeder) activityTypes(ctx context.Context) []*model.ActivityType {
	var types []*model.ActivityType
	for _, fixture := range activityTypeFixtures {
		at := fixture
		err := s.db.CreateActivityType(ctx, &at)
		existed := false
		if errors.Is(err, apperror.ErrConflict) {
			var found *model.ActivityType
			found, err = s.db.GetActivityTypeByName(ctx, at.Name)
			if err == nil {
				at, existed = *found, true
			}
		}
		if s.record("activity type", at.Name, err, existed) != Failed {
			types = append(types, &at)
		}
	}
	return types
}

// === Users ===

var userFixtures = []struct {
	username  string
	firstName string
	level     model.FitnessLevel
}{
	{"alice", "Alice", model.FitnessBeginner},
	{"bob", "Bob", model.FitnessIntermediate},
	{"charlie", "Charlie", model.FitnessAdvanced},
	{"diana", "Diana", model.FitnessIntermediate},
	{"eve", "Eve", model.FitnessBeginner},
}

// users returns every seeded user in fixture order, and separately the ones
// created by this run. Only new users get activities.
func (s *Seeder) users(ctx context.Context) (all, fresh []*model.User) {
	for _, f := range userFixtures {
		user, existed, err := s.user(ctx, f.username, f.firstName, f.level)
		if s.record("user", f.username, err, existed) == Failed {
			continue
		}
		all = append(all, user)
		if !existed {
			fresh = append(fresh, user)
		}
	}
	return all, fresh
}

func (s *Seeder) user(ctx context.Context, username, firstName string, level model.FitnessLevel) (*model.User, bool, error) {
	existing, err := s.db.GetByUsername(ctx, username)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, err
	}

	hash, err := s.passwords.Hash(Password)
	if err != nil {
		return nil, false, fmt.Errorf("hashing password: %w", err)
	}
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    firstName,
		PasswordHash: hash,
	}
	if err := s.db.CreateUserWithProfile(ctx, user, &model.UserProfile{FitnessLevel: level}); err != nil {
		return nil, false, err
	}
	return user, false, nil
}

// === Activities ===

// ActivitiesPerUser is how many activities each new user gets, one every
// three days going back from now.
const ActivitiesPerUser = 7

func (s *Seeder) activityLog(ctx context.Context, users []*model.User, types []*model.ActivityType, now time.Time) {
	if len(types) == 0 {
		return
	}
	for _, user := range users {
		for i := range ActivitiesPerUser {
			at := types[i%len(types)]
			amount := float64(30 + i*5)
			if at.Unit == model.UnitKilometers || at.Unit == model.UnitMiles {
				amount = float64(5 + i%10)
			}
			loggedAt := now.AddDate(0, 0, -3*i)
			name := fmt.Sprintf("%s/%s session #%d", user.Username, at.Name, i+1)

			_, err := s.activities.Record(ctx, user.ID, service.RecordInput{
				ActivityTypeID:     at.ID,
				DistanceOrDuration: amount,
				CaloriesBurned:     100 + i*20,
				Description:        fmt.Sprintf("%s session #%d", at.Name, i+1),
				LoggedAt:           &loggedAt,
			})
			s.record("activity", name, err, false)
		}
	}
}

// === Teams ===

var teamFixtures = []struct {
	name        string
	description string
	members     []int // indexes into the seeded users; the first creates the team
}{
	{"Fitness Warriors", "The hardcore fitness team", []int{0, 1, 2}},
	{"Active Lifestyle", "For those seeking a balanced active life", []int{2, 3, 4}},
	{"Running Club", "For running enthusiasts", []int{0, 3}},
}

func (s *Seeder) teamFixtures(ctx context.Context, users []*model.User) {
	for _, f := range teamFixtures {
		existed, err := s.team(ctx, users, f.name, f.description, f.members)
		s.record("team", f.name, err, existed)
	}
}

func (s *Seeder) team(ctx context.Context, users []*model.User, name, description string, members []int) (bool, error) {
	for _, i := range members {
		if i >= len(users) {
			return false, fmt.Errorf("member %d was not seeded", i)
		}
	}

	team, err := s.teams.Create(ctx, users[members[0]].ID, name, description)
	if errors.Is(err, apperror.ErrConflict) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	for _, i := range members[1:] {
		if _, err := s.teams.AddMember(ctx, team.ID, users[i].ID); err != nil {
			return false, fmt.Errorf("adding %s: %w", users[i].Username, err)
		}
	}
	return false, nil
}

// === Challenges ===

// ChallengeParticipants is how many of the seeded users join each challenge.
const ChallengeParticipants = 3

var challengeFixtures = []struct {
	name        string
	description string
	days        int
	goal        int
}{
	{"February Fitness Sprint", "Complete 500 points worth of activities in February", 28, 500},
	{"Running Marathon", "Log 100 km of running this month", 30, 1500},
	{"Strength Champion", "Complete 30 hours of strength training", 60, 3600},
}

func (s *Seeder) challengeFixtures(ctx context.Context, users []*model.User, now time.Time) {
	participants := users[:min(ChallengeParticipants, len(users))]
	for _, f := range challengeFixtures {
		existed, err := s.challenge(ctx, participants, service.ChallengeInput{
			Name:        f.name,
			Description: f.description,
			StartDate:   now,
			EndDate:     now.AddDate(0, 0, f.days),
			GoalPoints:  f.goal,
		})
		s.record("challenge", f.name, err, existed)
	}
}

// challenge looks the name up first since challenge names are not unique.
func (s *Seeder) challenge(ctx context.Context, participants []*model.User, in service.ChallengeInput) (bool, error) {
	_, err := s.db.GetChallengeByName(ctx, in.Name)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return false, err
	}

	c, err := s.challenges.Create(ctx, in)
	if err != nil {
		return false, err
	}
	for _, u := range participants {
		if _, err := s.challenges.Join(ctx, c.ID, u.ID); err != nil {
			return false, fmt.Errorf("joining %s: %w", u.Username, err)
		}
	}
	return false, nil
}

// === Achievements ===

var achievementFixtures = []model.Achievement{
	{Name: "First Steps", Description: "Log your first activity", Criteria: map[string]int{"activities_count": 1}},
	{Name: "Century Club", Description: "Reach 100 total points", Criteria: map[string]int{"total_points": 100}},
	{Name: "Running Star", Description: "Complete 50 km of running", Criteria: map[string]int{"running_km": 50}},
	{Name: "Strength Beast", Description: "Complete 50 hours of strength training", Criteria: map[string]int{"strength_minutes": 3000}},
	{Name: "Week Warrior", Description: "Log activities 7 days in a row", Criteria: map[string]int{"consecutive_days": 7}},
	{Name: "Thousand Pointer", Description: "Accumulate 1000 points", Criteria: map[string]int{"total_points": 1000}},
}

func (s *Seeder) achievements(ctx context.Context) {
	for _, fixture := range achievementFixtures {
		a := fixture
		err := s.db.CreateAchievement(ctx, &a)
		existed := false
		if errors.Is(err, apperror.ErrConflict) {
			_, err = s.db.GetAchievementByName(ctx, a.Name)
			existed = err == nil
		}
		s.record("achievement", a.Name, err, existed)
	}
}
