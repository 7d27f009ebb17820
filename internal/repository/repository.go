// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite provides the implementation; service
// tests provide in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/sakif/octofit-tracker/internal/model"
)

// ListOptions pages through a result set. A zero Limit means "use the
// storage default".
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores identities. New users are only created together with
// their profile (see ProfileRepository.CreateUserWithProfile).
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
	UpdateGitHubProfile(ctx context.Context, user *model.User) error
}

// ProfileRepository stores user profiles.
type ProfileRepository interface {
	// CreateUserWithProfile inserts a user and its profile in one transaction.
	CreateUserWithProfile(ctx context.Context, user *model.User, profile *model.UserProfile) error
	GetProfile(ctx context.Context, id string) (*model.UserProfile, error)
	GetProfileByUserID(ctx context.Context, userID string) (*model.UserProfile, error)
	// ListProfiles returns profiles ordered by total points, highest first.
	ListProfiles(ctx context.Context, opts ListOptions) ([]model.UserProfile, error)
	UpdateProfile(ctx context.Context, profile *model.UserProfile) error
}

// ActivityTypeRepository stores the activity catalog.
type ActivityTypeRepository interface {
	CreateActivityType(ctx context.Context, t *model.ActivityType) error
	GetActivityType(ctx context.Context, id string) (*model.ActivityType, error)
	GetActivityTypeByName(ctx context.Context, name string) (*model.ActivityType, error)
	ListActivityTypes(ctx context.Context) ([]model.ActivityType, error)
}

// ActivityOrdering selects the sort order of ListActivities.
type ActivityOrdering string

const (
	OrderLoggedAtDesc ActivityOrdering = "-logged_at"
	OrderLoggedAtAsc  ActivityOrdering = "logged_at"
	OrderPointsDesc   ActivityOrdering = "-points_earned"
	OrderPointsAsc    ActivityOrdering = "points_earned"
)

// ActivityFilter narrows ListActivities to one user and optionally a time
// window (inclusive on both ends).
type ActivityFilter struct {
	UserID   string
	Since    *time.Time
	Until    *time.Time
	Ordering ActivityOrdering
	ListOptions
}

// ActivityRepository stores logged activities and applies them to the
// points ledger.
type ActivityRepository interface {
	// RecordActivity inserts the activity and adds its PointsEarned to the
	// owner's profile total in a single transaction. If the profile update
	// fails the activity is not stored.
	RecordActivity(ctx context.Context, a *model.Activity) error
	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	ListActivities(ctx context.Context, f ActivityFilter) ([]model.Activity, error)
	// UpdateActivity persists description, calories and logged_at. Points and
	// type are immutable after recording.
	UpdateActivity(ctx context.Context, a *model.Activity) error
	DeleteActivity(ctx context.Context, id string) error
	ActivityStats(ctx context.Context, userID string) (*model.ActivityStats, error)
	// PointsByUser sums PointsEarned per user over activities logged in
	// [since, until]. A nil bound is open.
	PointsByUser(ctx context.Context, since, until *time.Time) (map[string]int, error)
}

// TeamFilter narrows ListTeams. Search matches name or description.
type TeamFilter struct {
	Search   string
	Ordering string
	ListOptions
}

// TeamRepository stores teams and their membership.
type TeamRepository interface {
	// CreateTeam inserts the team, adds the creator as a member and
	// recalculates total points, all in one transaction.
	CreateTeam(ctx context.Context, team *model.Team) error
	GetTeam(ctx context.Context, id string) (*model.Team, error)
	ListTeams(ctx context.Context, f TeamFilter) ([]model.Team, error)
	UpdateTeam(ctx context.Context, team *model.Team) error
	DeleteTeam(ctx context.Context, id string) error
	// AddMember and RemoveMember change membership and recalculate the team
	// total in the same transaction, returning the new total.
	AddMember(ctx context.Context, teamID, userID string) (int, error)
	RemoveMember(ctx context.Context, teamID, userID string) (int, error)
	// RecalculatePoints overwrites the team total with the sum of its
	// members' profile totals (members without a profile count as 0).
	RecalculatePoints(ctx context.Context, teamID string) (int, error)
	TeamMembers(ctx context.Context, teamID string) ([]model.TeamMemberStats, error)
	// TeamMemberIDs maps every team ID to its member user IDs.
	TeamMemberIDs(ctx context.Context) (map[string][]string, error)
}

// LeaderboardRepository stores materialized leaderboard snapshots.
type LeaderboardRepository interface {
	// ListEntries returns entries for (type, period) by ascending rank.
	ListEntries(ctx context.Context, t model.LeaderboardType, p model.Period, opts ListOptions) ([]model.LeaderboardEntry, error)
	GetEntry(ctx context.Context, id string) (*model.LeaderboardEntry, error)
	// ReplaceSnapshot swaps every entry of (type, period) for entries in one
	// transaction.
	ReplaceSnapshot(ctx context.Context, t model.LeaderboardType, p model.Period, entries []model.LeaderboardEntry) error
}

// AchievementRepository stores achievement definitions.
type AchievementRepository interface {
	CreateAchievement(ctx context.Context, a *model.Achievement) error
	GetAchievement(ctx context.Context, id string) (*model.Achievement, error)
	GetAchievementByName(ctx context.Context, name string) (*model.Achievement, error)
	ListAchievements(ctx context.Context, opts ListOptions) ([]model.Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]model.Achievement, error)
}

// ChallengeFilter narrows ListChallenges.
type ChallengeFilter struct {
	Search   string
	ActiveAt *time.Time
	ListOptions
}

// ChallengeRepository stores challenges and participants.
type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, c *model.Challenge) error
	GetChallenge(ctx context.Context, id string) (*model.Challenge, error)
	GetChallengeByName(ctx context.Context, name string) (*model.Challenge, error)
	ListChallenges(ctx context.Context, f ChallengeFilter) ([]model.Challenge, error)
	UpdateChallenge(ctx context.Context, c *model.Challenge) error
	DeleteChallenge(ctx context.Context, id string) error
	AddParticipant(ctx context.Context, challengeID, userID string) error
	RemoveParticipant(ctx context.Context, challengeID, userID string) error
	// ParticipantPoints returns every participant in join order with the
	// points they earned between the challenge start and end, inclusive.
	ParticipantPoints(ctx context.Context, challengeID string) ([]model.ParticipantPoints, error)
}
