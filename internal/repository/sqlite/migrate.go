package sqlite

import "fmt"

// migrations run in order on every start. Each statement is idempotent
// (CREATE ... IF NOT EXISTS), so re-running them against an existing
// database is a no-op.
var migrations = []struct {
	name string
	sql  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL DEFAULT '',
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			avatar_url    TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`},
	{"user_profiles", `
		CREATE TABLE IF NOT EXISTS user_profiles (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			bio             TEXT NOT NULL DEFAULT '',
			profile_picture TEXT NOT NULL DEFAULT '',
			fitness_level   TEXT NOT NULL DEFAULT 'beginner'
				CHECK (fitness_level IN ('beginner', 'intermediate', 'advanced')),
			date_of_birth   DATE,
			total_points    INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_user_profiles_total_points ON user_profiles(total_points DESC);
	`},
	{"activity_types", `
		CREATE TABLE IF NOT EXISTS activity_types (
			id                   TEXT PRIMARY KEY,
			name                 TEXT NOT NULL UNIQUE,
			description          TEXT NOT NULL DEFAULT '',
			base_points_per_unit INTEGER NOT NULL DEFAULT 10,
			unit                 TEXT NOT NULL DEFAULT 'minutes'
				CHECK (unit IN ('km', 'miles', 'minutes', 'reps'))
		);
	`},
	{"activities", `
		CREATE TABLE IF NOT EXISTS activities (
			id                   TEXT PRIMARY KEY,
			user_id              TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			activity_type_id     TEXT REFERENCES activity_types(id) ON DELETE SET NULL,
			distance_or_duration REAL NOT NULL CHECK (distance_or_duration >= 0),
			calories_burned      INTEGER NOT NULL DEFAULT 0 CHECK (calories_burned >= 0),
			points_earned        INTEGER NOT NULL DEFAULT 0 CHECK (points_earned >= 0),
			description          TEXT NOT NULL DEFAULT '',
			logged_at            DATETIME NOT NULL,
			created_at           DATETIME NOT NULL,
			updated_at           DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_activities_user_logged_at ON activities(user_id, logged_at DESC);
	`},
	{"teams", `
		CREATE TABLE IF NOT EXISTS teams (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL UNIQUE,
			description  TEXT NOT NULL DEFAULT '',
			created_by   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			total_points INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS team_members (
			team_id   TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (team_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id);
	`},
	{"leaderboard_entries", `
		CREATE TABLE IF NOT EXISTS leaderboard_entries (
			id               TEXT PRIMARY KEY,
			leaderboard_type TEXT NOT NULL CHECK (leaderboard_type IN ('individual', 'team')),
			period           TEXT NOT NULL DEFAULT 'weekly'
				CHECK (period IN ('daily', 'weekly', 'monthly', 'all_time')),
			rank             INTEGER NOT NULL CHECK (rank >= 1),
			user_id          TEXT REFERENCES users(id) ON DELETE CASCADE,
			team_id          TEXT REFERENCES teams(id) ON DELETE CASCADE,
			points           INTEGER NOT NULL CHECK (points >= 0),
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL,
			CHECK (
				(leaderboard_type = 'individual' AND user_id IS NOT NULL AND team_id IS NULL) OR
				(leaderboard_type = 'team' AND team_id IS NOT NULL AND user_id IS NULL)
			),
			UNIQUE (leaderboard_type, period, rank),
			UNIQUE (user_id, leaderboard_type, period),
			UNIQUE (team_id, leaderboard_type, period)
		);
	`},
	{"achievements", `
		CREATE TABLE IF NOT EXISTS achievements (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			icon_url    TEXT NOT NULL DEFAULT '',
			criteria    TEXT NOT NULL DEFAULT '{}',
			created_at  DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS user_achievements (
			achievement_id TEXT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			earned_at      DATETIME NOT NULL,
			PRIMARY KEY (achievement_id, user_id)
		);
	`},
	{"challenges", `
		CREATE TABLE IF NOT EXISTS challenges (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_date  DATETIME NOT NULL,
			end_date    DATETIME NOT NULL,
			goal_points INTEGER NOT NULL CHECK (goal_points >= 1),
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL,
			CHECK (end_date >= start_date)
		);
		CREATE INDEX IF NOT EXISTS idx_challenges_dates ON challenges(start_date, end_date);
		CREATE TABLE IF NOT EXISTS challenge_participants (
			challenge_id TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at    DATETIME NOT NULL,
			PRIMARY KEY (challenge_id, user_id)
		);
	`},
}

// migrate runs all database migrations.
func (db *DB) migrate() error {
	for _, m := range migrations {
		if _, err := db.conn.Exec(m.sql); err != nil {
			return fmt.Errorf("creating %s: %w", m.name, err)
		}
	}
	return nil
}
