package model

import "time"

// Achievement is a badge users can earn.
//
// Criteria is free-form metadata mapping a metric name to a threshold, for
// example {"total_points": 100} or {"consecutive_days": 7}. Nothing evaluates
// it: awarding achievements is not implemented, so the users set only changes
// through direct storage writes.
type Achievement struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	IconURL     string         `json:"icon_url"`
	Criteria    map[string]int `json:"criteria"`
	UsersCount  int            `json:"users_count"`
	CreatedAt   time.Time      `json:"created_at"`
}
