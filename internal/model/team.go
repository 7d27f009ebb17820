package model

import "time"

// Team groups users competing together.
//
// TotalPoints is a snapshot: it is only refreshed by an explicit
// recalculation (team creation, add_member, remove_member), never by an
// activity being recorded.
type Team struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	CreatedByID  string        `json:"-"`
	CreatedBy    UserSummary   `json:"created_by"`
	Members      []UserSummary `json:"members"`
	MembersCount int           `json:"members_count"`
	TotalPoints  int           `json:"total_points"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TeamMemberStats is one row of the team members view.
type TeamMemberStats struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	TotalPoints  int          `json:"total_points"`
	FitnessLevel FitnessLevel `json:"fitness_level"`
}
