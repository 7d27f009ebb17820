package service

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// =========================================================================
// MOCK STORE
// =========================================================================
//
// mockStore is an in-memory stand-in for sqlite.DB. Like the real DB it
// implements every repository interface on one value, so a recorded
// activity is visible to the profile and team methods of the same store.
//
// Rows are stored by value and copied on the way out; callers cannot
// mutate the store through a returned pointer.
//
// Set failErr to make every write fail, simulating a storage outage.

type mockStore struct {
	nextID int

	users        map[string]model.User
	profiles     map[string]model.UserProfile // keyed by user ID
	types        map[string]model.ActivityType
	activities   map[string]model.Activity
	teams        map[string]model.Team
	members      map[string][]string // team ID -> user IDs in join order
	entries      map[string]model.LeaderboardEntry
	achievements map[string]model.Achievement
	earned       map[string][]string // user ID -> achievement IDs
	challenges   map[string]model.Challenge
	participants map[string][]string // challenge ID -> user IDs in join order

	failErr error
}

var (
	_ repository.UserRepository         = (*mockStore)(nil)
	_ repository.ProfileRepository      = (*mockStore)(nil)
	_ repository.ActivityTypeRepository = (*mockStore)(nil)
	_ repository.ActivityRepository     = (*mockStore)(nil)
	_ repository.TeamRepository         = (*mockStore)(nil)
	_ repository.LeaderboardRepository  = (*mockStore)(nil)
	_ repository.AchievementRepository  = (*mockStore)(nil)
	_ repository.ChallengeRepository    = (*mockStore)(nil)
)

func newMockStore() *mockStore {
	return &mockStore{
		users:        map[string]model.User{},
		profiles:     map[string]model.UserProfile{},
		types:        map[string]model.ActivityType{},
		activities:   map[string]model.Activity{},
		teams:        map[string]model.Team{},
		members:      map[string][]string{},
		entries:      map[string]model.LeaderboardEntry{},
		achievements: map[string]model.Achievement{},
		earned:       map[string][]string{},
		challenges:   map[string]model.Challenge{},
		participants: map[string][]string{},
	}
}

// discardLogger keeps test output clean.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (m *mockStore) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func page[T any](rows []T, opts repository.ListOptions) []T {
	if opts.Offset >= len(rows) {
		return []T{}
	}
	rows = rows[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}
	return rows
}

// --- users and profiles ---

func (m *mockStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (m *mockStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockStore) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range m.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (m *mockStore) ListUsers(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b model.User) int { return cmp.Compare(a.Username, b.Username) })
	return page(users, opts), nil
}

func (m *mockStore) UpdateGitHubProfile(_ context.Context, user *model.User) error {
	if m.failErr != nil {
		return m.failErr
	}
	stored, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored.Email = user.Email
	stored.AvatarURL = user.AvatarURL
	m.users[user.ID] = stored
	return nil
}

func (m *mockStore) CreateUserWithProfile(_ context.Context, user *model.User, profile *model.UserProfile) error {
	if m.failErr != nil {
		return m.failErr
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	if profile.FitnessLevel == "" {
		profile.FitnessLevel = model.FitnessBeginner
	}

	user.ID = m.newID("user")
	profile.ID = m.newID("profile")
	profile.UserID = user.ID
	profile.User = user.Summary()
	m.users[user.ID] = *user
	m.profiles[user.ID] = *profile
	return nil
}

func (m *mockStore) GetProfile(_ context.Context, id string) (*model.UserProfile, error) {
	for _, p := range m.profiles {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, apperror.NotFound("profile", id)
}

func (m *mockStore) GetProfileByUserID(_ context.Context, userID string) (*model.UserProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	return &p, nil
}

func (m *mockStore) ListProfiles(_ context.Context, opts repository.ListOptions) ([]model.UserProfile, error) {
	profiles := make([]model.UserProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		profiles = append(profiles, p)
	}
	slices.SortFunc(profiles, func(a, b model.UserProfile) int {
		return cmp.Or(cmp.Compare(b.TotalPoints, a.TotalPoints), cmp.Compare(a.User.Username, b.User.Username))
	})
	return page(profiles, opts), nil
}

func (m *mockStore) UpdateProfile(_ context.Context, profile *model.UserProfile) error {
	if m.failErr != nil {
		return m.failErr
	}
	stored, ok := m.profiles[profile.UserID]
	if !ok {
		return apperror.NotFound("profile", profile.ID)
	}
	// Total points are owned by the ledger.
	profile.TotalPoints = stored.TotalPoints
	m.profiles[profile.UserID] = *profile
	return nil
}

// addProfilePoints sets up a profile total without going through the ledger.
func (m *mockStore) addProfilePoints(userID string, points int) {
	p := m.profiles[userID]
	p.TotalPoints += points
	m.profiles[userID] = p
}

// --- activity types ---

func (m *mockStore) CreateActivityType(_ context.Context, t *model.ActivityType) error {
	for _, existing := range m.types {
		if existing.Name == t.Name {
			return apperror.Conflict("activity type", t.Name)
		}
	}
	t.ID = m.newID("type")
	m.types[t.ID] = *t
	return nil
}

func (m *mockStore) GetActivityType(_ context.Context, id string) (*model.ActivityType, error) {
	t, ok := m.types[id]
	if !ok {
		return nil, apperror.NotFound("activity type", id)
	}
	return &t, nil
}

func (m *mockStore) GetActivityTypeByName(_ context.Context, name string) (*model.ActivityType, error) {
	for _, t := range m.types {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("activity type", name)
}

func (m *mockStore) ListActivityTypes(_ context.Context) ([]model.ActivityType, error) {
	types := make([]model.ActivityType, 0, len(m.types))
	for _, t := range m.types {
		types = append(types, t)
	}
	slices.SortFunc(types, func(a, b model.ActivityType) int { return cmp.Compare(a.Name, b.Name) })
	return types, nil
}

// --- activities ---

func (m *mockStore) RecordActivity(_ context.Context, a *model.Activity) error {
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.users[a.UserID]; !ok {
		return apperror.NotFound("user", a.UserID)
	}
	p, ok := m.profiles[a.UserID]
	if !ok {
		return apperror.NotFound("profile", a.UserID)
	}

	a.ID = m.newID("activity")
	au := m.users[a.UserID]
	a.User = au.Summary()
	if a.ActivityTypeID != nil {
		t := m.types[*a.ActivityTypeID]
		a.ActivityType = &t
	}
	m.activities[a.ID] = *a
	p.TotalPoints += a.PointsEarned
	m.profiles[a.UserID] = p
	return nil
}

func (m *mockStore) GetActivity(_ context.Context, id string) (*model.Activity, error) {
	a, ok := m.activities[id]
	if !ok {
		return nil, apperror.NotFound("activity", id)
	}
	return &a, nil
}

func (m *mockStore) ListActivities(_ context.Context, f repository.ActivityFilter) ([]model.Activity, error) {
	var activities []model.Activity
	for _, a := range m.activities {
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.Since != nil && a.LoggedAt.Before(*f.Since) {
			continue
		}
		if f.Until != nil && a.LoggedAt.After(*f.Until) {
			continue
		}
		activities = append(activities, a)
	}
	slices.SortFunc(activities, func(a, b model.Activity) int {
		switch f.Ordering {
		case repository.OrderLoggedAtAsc:
			return a.LoggedAt.Compare(b.LoggedAt)
		case repository.OrderPointsDesc:
			return cmp.Compare(b.PointsEarned, a.PointsEarned)
		case repository.OrderPointsAsc:
			return cmp.Compare(a.PointsEarned, b.PointsEarned)
		}
		return b.LoggedAt.Compare(a.LoggedAt)
	})
	return page(activities, f.ListOptions), nil
}

func (m *mockStore) UpdateActivity(_ context.Context, a *model.Activity) error {
	if m.failErr != nil {
		return m.failErr
	}
	stored, ok := m.activities[a.ID]
	if !ok {
		return apperror.NotFound("activity", a.ID)
	}
	stored.Description = a.Description
	stored.CaloriesBurned = a.CaloriesBurned
	stored.LoggedAt = a.LoggedAt
	m.activities[a.ID] = stored
	return nil
}

func (m *mockStore) DeleteActivity(_ context.Context, id string) error {
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.activities[id]; !ok {
		return apperror.NotFound("activity", id)
	}
	delete(m.activities, id)
	return nil
}

func (m *mockStore) ActivityStats(_ context.Context, userID string) (*model.ActivityStats, error) {
	var stats model.ActivityStats
	for _, a := range m.activities {
		if a.UserID != userID {
			continue
		}
		stats.TotalActivities++
		stats.TotalPoints += a.PointsEarned
		stats.TotalCalories += a.CaloriesBurned
	}
	if stats.TotalActivities > 0 {
		stats.AveragePointsPerActivity = float64(stats.TotalPoints) / float64(stats.TotalActivities)
	}
	return &stats, nil
}

func (m *mockStore) PointsByUser(_ context.Context, since, until *time.Time) (map[string]int, error) {
	points := map[string]int{}
	for _, a := range m.activities {
		if since != nil && a.LoggedAt.Before(*since) {
			continue
		}
		if until != nil && a.LoggedAt.After(*until) {
			continue
		}
		points[a.UserID] += a.PointsEarned
	}
	return points, nil
}

// --- teams ---

func (m *mockStore) recalc(teamID string) int {
	total := 0
	for _, userID := range m.members[teamID] {
		total += m.profiles[userID].TotalPoints
	}
	t := m.teams[teamID]
	t.TotalPoints = total
	m.teams[teamID] = t
	return total
}

func (m *mockStore) CreateTeam(_ context.Context, team *model.Team) error {
	if m.failErr != nil {
		return m.failErr
	}
	for _, t := range m.teams {
		if t.Name == team.Name {
			return apperror.Conflict("team", team.Name)
		}
	}
	team.ID = m.newID("team")
	m.teams[team.ID] = *team
	m.members[team.ID] = []string{team.CreatedByID}
	m.recalc(team.ID)

	*team = m.teams[team.ID]
	team.MembersCount = 1
	return nil
}

func (m *mockStore) GetTeam(_ context.Context, id string) (*model.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, apperror.NotFound("team", id)
	}
	t.MembersCount = len(m.members[id])
	t.Members = nil
	for _, userID := range m.members[id] {
		u := m.users[userID]
		t.Members = append(t.Members, u.Summary())
	}
	return &t, nil
}

func (m *mockStore) ListTeams(_ context.Context, f repository.TeamFilter) ([]model.Team, error) {
	var teams []model.Team
	for id, t := range m.teams {
		if f.Search != "" && !strings.Contains(t.Name+" "+t.Description, f.Search) {
			continue
		}
		t.MembersCount = len(m.members[id])
		teams = append(teams, t)
	}
	slices.SortFunc(teams, func(a, b model.Team) int {
		return cmp.Or(cmp.Compare(b.TotalPoints, a.TotalPoints), cmp.Compare(a.Name, b.Name))
	})
	return page(teams, f.ListOptions), nil
}

func (m *mockStore) UpdateTeam(_ context.Context, team *model.Team) error {
	if m.failErr != nil {
		return m.failErr
	}
	stored, ok := m.teams[team.ID]
	if !ok {
		return apperror.NotFound("team", team.ID)
	}
	stored.Name = team.Name
	stored.Description = team.Description
	m.teams[team.ID] = stored
	return nil
}

func (m *mockStore) DeleteTeam(_ context.Context, id string) error {
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.teams[id]; !ok {
		return apperror.NotFound("team", id)
	}
	delete(m.teams, id)
	delete(m.members, id)
	return nil
}

func (m *mockStore) AddMember(_ context.Context, teamID, userID string) (int, error) {
	if m.failErr != nil {
		return 0, m.failErr
	}
	if _, ok := m.teams[teamID]; !ok {
		return 0, apperror.NotFound("team", teamID)
	}
	if _, ok := m.users[userID]; !ok {
		return 0, apperror.NotFound("user", userID)
	}
	if !slices.Contains(m.members[teamID], userID) {
		m.members[teamID] = append(m.members[teamID], userID)
	}
	return m.recalc(teamID), nil
}

func (m *mockStore) RemoveMember(_ context.Context, teamID, userID string) (int, error) {
	if m.failErr != nil {
		return 0, m.failErr
	}
	if _, ok := m.teams[teamID]; !ok {
		return 0, apperror.NotFound("team", teamID)
	}
	if _, ok := m.users[userID]; !ok {
		return 0, apperror.NotFound("user", userID)
	}
	m.members[teamID] = slices.DeleteFunc(m.members[teamID], func(id string) bool { return id == userID })
	return m.recalc(teamID), nil
}

func (m *mockStore) RecalculatePoints(_ context.Context, teamID string) (int, error) {
	if _, ok := m.teams[teamID]; !ok {
		return 0, apperror.NotFound("team", teamID)
	}
	return m.recalc(teamID), nil
}

func (m *mockStore) TeamMembers(_ context.Context, teamID string) ([]model.TeamMemberStats, error) {
	if _, ok := m.teams[teamID]; !ok {
		return nil, apperror.NotFound("team", teamID)
	}
	stats := []model.TeamMemberStats{}
	for _, userID := range m.members[teamID] {
		p := m.profiles[userID]
		stats = append(stats, model.TeamMemberStats{
			ID:           userID,
			Username:     m.users[userID].Username,
			TotalPoints:  p.TotalPoints,
			FitnessLevel: p.FitnessLevel,
		})
	}
	return stats, nil
}

func (m *mockStore) TeamMemberIDs(_ context.Context) (map[string][]string, error) {
	ids := make(map[string][]string, len(m.teams))
	for teamID := range m.teams {
		ids[teamID] = slices.Clone(m.members[teamID])
	}
	return ids, nil
}

// --- leaderboard ---

func (m *mockStore) ListEntries(_ context.Context, t model.LeaderboardType, p model.Period, opts repository.ListOptions) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	for _, e := range m.entries {
		if (t == "" || e.LeaderboardType == t) && (p == "" || e.Period == p) {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b model.LeaderboardEntry) int { return cmp.Compare(a.Rank, b.Rank) })
	return page(entries, opts), nil
}

func (m *mockStore) GetEntry(_ context.Context, id string) (*model.LeaderboardEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, apperror.NotFound("leaderboard entry", id)
	}
	return &e, nil
}

func (m *mockStore) ReplaceSnapshot(_ context.Context, t model.LeaderboardType, p model.Period, entries []model.LeaderboardEntry) error {
	if m.failErr != nil {
		return m.failErr
	}
	for _, e := range entries {
		if err := e.Ref.Validate(t); err != nil {
			return apperror.ValidationFailed("ref", err.Error())
		}
	}
	for id, e := range m.entries {
		if e.LeaderboardType == t && e.Period == p {
			delete(m.entries, id)
		}
	}
	for _, e := range entries {
		e.ID = m.newID("entry")
		e.LeaderboardType = t
		e.Period = p
		switch e.Ref.Kind {
		case model.RefUser:
			ru := m.users[e.Ref.ID]
			u := ru.Summary()
			e.User = &u
		case model.RefTeam:
			team := m.teams[e.Ref.ID]
			e.Team = &model.TeamSummary{ID: team.ID, Name: team.Name, TotalPoints: team.TotalPoints}
		}
		m.entries[e.ID] = e
	}
	return nil
}

// --- achievements ---

func (m *mockStore) CreateAchievement(_ context.Context, a *model.Achievement) error {
	for _, existing := range m.achievements {
		if existing.Name == a.Name {
			return apperror.Conflict("achievement", a.Name)
		}
	}
	a.ID = m.newID("achievement")
	m.achievements[a.ID] = *a
	return nil
}

func (m *mockStore) GetAchievement(_ context.Context, id string) (*model.Achievement, error) {
	a, ok := m.achievements[id]
	if !ok {
		return nil, apperror.NotFound("achievement", id)
	}
	return &a, nil
}

func (m *mockStore) GetAchievementByName(_ context.Context, name string) (*model.Achievement, error) {
	for _, a := range m.achievements {
		if a.Name == name {
			return &a, nil
		}
	}
	return nil, apperror.NotFound("achievement", name)
}

func (m *mockStore) ListAchievements(_ context.Context, opts repository.ListOptions) ([]model.Achievement, error) {
	achievements := make([]model.Achievement, 0, len(m.achievements))
	for _, a := range m.achievements {
		achievements = append(achievements, a)
	}
	slices.SortFunc(achievements, func(a, b model.Achievement) int { return cmp.Compare(a.Name, b.Name) })
	return page(achievements, opts), nil
}

func (m *mockStore) ListUserAchievements(_ context.Context, userID string) ([]model.Achievement, error) {
	achievements := []model.Achievement{}
	for _, id := range m.earned[userID] {
		achievements = append(achievements, m.achievements[id])
	}
	return achievements, nil
}

// --- challenges ---

func (m *mockStore) CreateChallenge(_ context.Context, c *model.Challenge) error {
	if m.failErr != nil {
		return m.failErr
	}
	c.ID = m.newID("challenge")
	m.challenges[c.ID] = *c
	return nil
}

func (m *mockStore) GetChallenge(_ context.Context, id string) (*model.Challenge, error) {
	c, ok := m.challenges[id]
	if !ok {
		return nil, apperror.NotFound("challenge", id)
	}
	c.ParticipantsCount = len(m.participants[id])
	return &c, nil
}

func (m *mockStore) GetChallengeByName(_ context.Context, name string) (*model.Challenge, error) {
	for _, c := range m.challenges {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, apperror.NotFound("challenge", name)
}

func (m *mockStore) ListChallenges(_ context.Context, f repository.ChallengeFilter) ([]model.Challenge, error) {
	var challenges []model.Challenge
	for id, c := range m.challenges {
		if f.Search != "" && !strings.Contains(c.Name+" "+c.Description, f.Search) {
			continue
		}
		if f.ActiveAt != nil && !c.ActiveAt(*f.ActiveAt) {
			continue
		}
		c.ParticipantsCount = len(m.participants[id])
		challenges = append(challenges, c)
	}
	slices.SortFunc(challenges, func(a, b model.Challenge) int { return b.StartDate.Compare(a.StartDate) })
	return page(challenges, f.ListOptions), nil
}

func (m *mockStore) UpdateChallenge(_ context.Context, c *model.Challenge) error {
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.challenges[c.ID]; !ok {
		return apperror.NotFound("challenge", c.ID)
	}
	m.challenges[c.ID] = *c
	return nil
}

func (m *mockStore) DeleteChallenge(_ context.Context, id string) error {
	if _, ok := m.challenges[id]; !ok {
		return apperror.NotFound("challenge", id)
	}
	delete(m.challenges, id)
	delete(m.participants, id)
	return nil
}

func (m *mockStore) AddParticipant(_ context.Context, challengeID, userID string) error {
	if _, ok := m.challenges[challengeID]; !ok {
		return apperror.NotFound("challenge", challengeID)
	}
	if _, ok := m.users[userID]; !ok {
		return apperror.NotFound("user", userID)
	}
	if !slices.Contains(m.participants[challengeID], userID) {
		m.participants[challengeID] = append(m.participants[challengeID], userID)
	}
	return nil
}

func (m *mockStore) RemoveParticipant(_ context.Context, challengeID, userID string) error {
	if _, ok := m.challenges[challengeID]; !ok {
		return apperror.NotFound("challenge", challengeID)
	}
	m.participants[challengeID] = slices.DeleteFunc(m.participants[challengeID], func(id string) bool { return id == userID })
	return nil
}

func (m *mockStore) ParticipantPoints(_ context.Context, challengeID string) ([]model.ParticipantPoints, error) {
	c, ok := m.challenges[challengeID]
	if !ok {
		return nil, apperror.NotFound("challenge", challengeID)
	}
	points := []model.ParticipantPoints{}
	for _, userID := range m.participants[challengeID] {
		total := 0
		for _, a := range m.activities {
			if a.UserID == userID && !a.LoggedAt.Before(c.StartDate) && !a.LoggedAt.After(c.EndDate) {
				total += a.PointsEarned
			}
		}
		points = append(points, model.ParticipantPoints{
			UserID:   userID,
			Username: m.users[userID].Username,
			Points:   total,
		})
	}
	return points, nil
}

// =========================================================================
// FIXTURE HELPERS
// =========================================================================

func (m *mockStore) mustUser(username string) *model.User {
	u := &model.User{Username: username}
	if err := m.CreateUserWithProfile(context.Background(), u, &model.UserProfile{}); err != nil {
		panic(err)
	}
	return u
}

func (m *mockStore) mustType(name string, base int, unit model.Unit) *model.ActivityType {
	t := &model.ActivityType{Name: name, BasePointsPerUnit: base, Unit: unit}
	if err := m.CreateActivityType(context.Background(), t); err != nil {
		panic(err)
	}
	return t
}

// logActivity records points for userID directly through the store.
func (m *mockStore) logActivity(userID string, points int, loggedAt time.Time) {
	a := &model.Activity{UserID: userID, PointsEarned: points, LoggedAt: loggedAt}
	if err := m.RecordActivity(context.Background(), a); err != nil {
		panic(err)
	}
}

func fixedClock(t time.Time) clock {
	return func() time.Time { return t }
}
