package model

import (
	"fmt"
	"time"
)

// LeaderboardType partitions snapshots into individual and team rankings.
type LeaderboardType string

const (
	LeaderboardIndividual LeaderboardType = "individual"
	LeaderboardTeam       LeaderboardType = "team"
)

// Valid reports whether t is a known leaderboard type.
func (t LeaderboardType) Valid() bool {
	return t == LeaderboardIndividual || t == LeaderboardTeam
}

// Period is the time window a leaderboard snapshot covers.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

// Periods lists every period in display order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// RefKind tags what an EntryRef points at.
type RefKind string

const (
	RefUser RefKind = "user"
	RefTeam RefKind = "team"
)

// EntryRef identifies the subject of a leaderboard entry: exactly one user or
// exactly one team. The zero value is invalid.
//
// TAGGED VARIANT:
// Instead of two nullable foreign keys (user_id, team_id) where "exactly one
// is set" is a convention, the kind travels with the ID. Constructing a ref
// through UserRef or TeamRef is the only way to get a valid one.
type EntryRef struct {
	Kind RefKind
	ID   string
}

// UserRef returns a reference to the user with the given ID.
func UserRef(id string) EntryRef { return EntryRef{Kind: RefUser, ID: id} }

// TeamRef returns a reference to the team with the given ID.
func TeamRef(id string) EntryRef { return EntryRef{Kind: RefTeam, ID: id} }

// Validate checks the ref is well formed and matches the leaderboard type.
func (r EntryRef) Validate(t LeaderboardType) error {
	if r.ID == "" {
		return fmt.Errorf("entry ref has no id")
	}
	switch {
	case r.Kind == RefUser && t == LeaderboardIndividual:
		return nil
	case r.Kind == RefTeam && t == LeaderboardTeam:
		return nil
	}
	return fmt.Errorf("entry ref kind %q does not match leaderboard type %q", r.Kind, t)
}

// LeaderboardEntry is one row of a ranked snapshot.
//
// Ref is the source of truth; User or Team is filled in for responses
// depending on Ref.Kind, and the other stays nil.
type LeaderboardEntry struct {
	ID              string          `json:"id"`
	LeaderboardType LeaderboardType `json:"leaderboard_type"`
	Period          Period          `json:"period"`
	Rank            int             `json:"rank"`
	Ref             EntryRef        `json:"-"`
	User            *UserSummary    `json:"user"`
	Team            *TeamSummary    `json:"team"`
	Points          int             `json:"points"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TeamSummary is the compact team shape nested in leaderboard entries.
type TeamSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	MembersCount int    `json:"members_count"`
	TotalPoints  int    `json:"total_points"`
}

// Standing is a subject with the points it scored in a window, used when
// materializing a snapshot. Name breaks ties.
type Standing struct {
	Ref    EntryRef
	Name   string
	Points int
}
