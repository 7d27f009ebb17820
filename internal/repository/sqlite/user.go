package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// compile-time check that *DB implements the user and profile repositories
var (
	_ repository.UserRepository    = (*DB)(nil)
	_ repository.ProfileRepository = (*DB)(nil)
)

const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name,
	u.password_hash, u.github_id, u.avatar_url, u.created_at, u.updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&githubID,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

// CreateUserWithProfile inserts the user and its profile in one transaction.
//
// This replaces a "profile is created when a user is saved" hook: the call
// site that creates an identity asks for both rows explicitly, and either
// both exist afterwards or neither does.
//
// A duplicate username or GitHub ID returns apperror.ErrConflict.
func (db *DB) CreateUserWithProfile(ctx context.Context, user *model.User, profile *model.UserProfile) error {
	ts := now()
	user.ID = xid.New().String()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	profile.ID = xid.New().String()
	profile.UserID = user.ID
	profile.User = user.Summary()
	profile.TotalPoints = 0
	profile.CreatedAt = ts
	profile.UpdatedAt = ts
	if profile.FitnessLevel == "" {
		profile.FitnessLevel = model.FitnessBeginner
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		var githubID any
		if user.GitHubID != nil {
			githubID = *user.GitHubID
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, username, email, first_name, last_name, password_hash,
				github_id, avatar_url, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Username,
			user.Email,
			user.FirstName,
			user.LastName,
			user.PasswordHash,
			githubID,
			user.AvatarURL,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", user.Username)
			}
			return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_profiles (id, user_id, bio, profile_picture, fitness_level,
				date_of_birth, total_points, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			profile.ID,
			profile.UserID,
			profile.Bio,
			profile.ProfilePicture,
			string(profile.FitnessLevel),
			nullDate(profile),
			profile.CreatedAt,
			profile.UpdatedAt,
		)
		if err != nil {
			if isCheckViolation(err) {
				return apperror.ValidationFailed("fitness_level", "invalid fitness level")
			}
			return fmt.Errorf("sqlite: inserting profile for user %s: %w", user.ID, err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByUsername retrieves a user by login name.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

// GetByGitHubID retrieves the user linked to a GitHub account.
func (db *DB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.github_id = ?`, githubID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

// ListUsers returns users ordered by username.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u ORDER BY u.username LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateGitHubProfile refreshes the fields GitHub owns (email, avatar) after
// a repeat OAuth login.
func (db *DB) UpdateGitHubProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		user.Email, user.AvatarURL, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return checkAffected(res, "user", user.ID)
}

// =========================================================================
// PROFILES
// =========================================================================

const profileSelect = `
	SELECT p.id, p.user_id, u.username, u.email, u.first_name, u.last_name,
		p.bio, p.profile_picture, p.fitness_level, p.date_of_birth, p.total_points,
		p.created_at, p.updated_at
	FROM user_profiles p
	JOIN users u ON u.id = p.user_id`

func scanProfile(row interface{ Scan(...any) error }) (*model.UserProfile, error) {
	var (
		p     model.UserProfile
		level string
		dob   sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.User.Username,
		&p.User.Email,
		&p.User.FirstName,
		&p.User.LastName,
		&p.Bio,
		&p.ProfilePicture,
		&level,
		&dob,
		&p.TotalPoints,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.User.ID = p.UserID
	p.FitnessLevel = model.FitnessLevel(level)
	if dob.Valid {
		d := dob.Time
		p.DateOfBirth = &d
	}
	return &p, nil
}

// nullDate converts the optional birth date for storage.
func nullDate(p *model.UserProfile) any {
	if p.DateOfBirth == nil {
		return nil
	}
	return p.DateOfBirth.UTC()
}

// GetProfile retrieves a profile by its own ID.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	p, err := scanProfile(db.conn.QueryRowContext(ctx, profileSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return p, nil
}

// GetProfileByUserID retrieves the profile owned by userID.
func (db *DB) GetProfileByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	p, err := scanProfile(db.conn.QueryRowContext(ctx, profileSelect+` WHERE p.user_id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile for user", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile for user %s: %w", userID, err)
	}
	return p, nil
}

// ListProfiles returns profiles by total points, highest first. Ties are
// broken by username so pages are stable.
func (db *DB) ListProfiles(ctx context.Context, opts repository.ListOptions) ([]model.UserProfile, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx,
		profileSelect+` ORDER BY p.total_points DESC, u.username ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.UserProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpdateProfile writes the user-editable profile fields. total_points is not
// written here; only RecordActivity changes it.
func (db *DB) UpdateProfile(ctx context.Context, profile *model.UserProfile) error {
	profile.UpdatedAt = now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE user_profiles
		 SET bio = ?, profile_picture = ?, fitness_level = ?, date_of_birth = ?, updated_at = ?
		 WHERE id = ?`,
		profile.Bio,
		profile.ProfilePicture,
		string(profile.FitnessLevel),
		nullDate(profile),
		profile.UpdatedAt,
		profile.ID,
	)
	if err != nil {
		if isCheckViolation(err) {
			return apperror.ValidationFailed("fitness_level", "invalid fitness level")
		}
		return fmt.Errorf("sqlite: updating profile %s: %w", profile.ID, err)
	}
	return checkAffected(res, "profile", profile.ID)
}
