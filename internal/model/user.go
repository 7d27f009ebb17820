// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Go favours composition over
// inheritance, so related records (User and UserProfile) are separate structs
// linked by ID rather than a class hierarchy.
package model

import "time"

// User represents a registered identity.
//
// Users sign up either with a username/password (registration endpoint) or via
// GitHub OAuth. PasswordHash is empty for GitHub-only accounts and GitHubID is
// nil for password-only accounts.
//
// The `json:"-"` tag on PasswordHash keeps the hash out of every API response,
// even if a handler accidentally encodes a full User.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	AvatarURL    string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// UserSummary is the compact user shape nested inside other responses
// (activity owner, team members, leaderboard entries).
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Summary returns the nested representation of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
