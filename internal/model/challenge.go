package model

import "time"

// Challenge is a time-boxed points goal users can join.
type Challenge struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	GoalPoints        int       `json:"goal_points"`
	ParticipantsCount int       `json:"participants_count"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ActiveAt reports whether now falls inside [StartDate, EndDate].
// It is evaluated at read time, never stored.
func (c *Challenge) ActiveAt(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// ParticipantPoints is a participant with the points they earned inside a
// challenge window, in join order.
type ParticipantPoints struct {
	UserID   string
	Username string
	Points   int
}

// ParticipantProgress is one row of the challenge participants view.
type ParticipantProgress struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Points          int     `json:"points"`
	ProgressPercent float64 `json:"progress_percent"`
}
