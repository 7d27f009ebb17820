package model

import "time"

// FitnessLevel is the self-reported experience of a user.
type FitnessLevel string

const (
	FitnessBeginner     FitnessLevel = "beginner"
	FitnessIntermediate FitnessLevel = "intermediate"
	FitnessAdvanced     FitnessLevel = "advanced"
)

// Valid reports whether l is one of the known fitness levels.
func (l FitnessLevel) Valid() bool {
	switch l {
	case FitnessBeginner, FitnessIntermediate, FitnessAdvanced:
		return true
	}
	return false
}

// UserProfile holds the fitness-specific data attached one-to-one to a User.
//
// TotalPoints is only ever changed by the points ledger (recording an
// activity adds its points). It is never negative and never written by a
// profile update.
type UserProfile struct {
	ID             string       `json:"id"`
	UserID         string       `json:"-"`
	User           UserSummary  `json:"user"`
	Bio            string       `json:"bio"`
	ProfilePicture string       `json:"profile_picture"`
	FitnessLevel   FitnessLevel `json:"fitness_level"`
	DateOfBirth    *time.Time   `json:"date_of_birth"`
	TotalPoints    int          `json:"total_points"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
