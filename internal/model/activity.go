package model

import "time"

// Unit is the measure an ActivityType is logged in.
type Unit string

const (
	UnitKilometers Unit = "km"
	UnitMiles      Unit = "miles"
	UnitMinutes    Unit = "minutes"
	UnitReps       Unit = "reps"
)

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitKilometers, UnitMiles, UnitMinutes, UnitReps:
		return true
	}
	return false
}

// ActivityType is a catalog entry describing how an exercise earns points.
// Names are unique. Types are reference data: created by the seed tool and
// exposed read-only over the API.
type ActivityType struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	BasePointsPerUnit int    `json:"base_points_per_unit"`
	Unit              Unit   `json:"unit"`
}

// Activity is a single logged exercise event.
//
// PointsEarned is derived once, when the activity is recorded:
//
//	points = trunc(DistanceOrDuration * ActivityType.BasePointsPerUnit)
//
// It is never recomputed afterwards, even if the type is later edited or
// removed (ActivityType then becomes nil).
type Activity struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"-"`
	User               UserSummary   `json:"user"`
	ActivityTypeID     *string       `json:"-"`
	ActivityType       *ActivityType `json:"activity_type"`
	DistanceOrDuration float64       `json:"distance_or_duration"`
	CaloriesBurned     int           `json:"calories_burned"`
	PointsEarned       int           `json:"points_earned"`
	Description        string        `json:"description"`
	LoggedAt           time.Time     `json:"logged_at"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ActivityStats aggregates every activity a user has logged.
type ActivityStats struct {
	TotalActivities          int     `json:"total_activities"`
	TotalPoints              int     `json:"total_points"`
	TotalCalories            int     `json:"total_calories"`
	AveragePointsPerActivity float64 `json:"average_points_per_activity"`
}
