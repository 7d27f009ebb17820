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

var _ repository.ChallengeRepository = (*DB)(nil)

const challengeSelect = `
	SELECT c.id, c.name, c.description, c.start_date, c.end_date, c.goal_points,
		c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM challenge_participants cp WHERE cp.challenge_id = c.id)
	FROM challenges c`

// scanChallenge reads a challenge row. IsActive is left for the service to
// compute against its clock.
func scanChallenge(row interface{ Scan(...any) error }) (*model.Challenge, error) {
	var c model.Challenge
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.StartDate,
		&c.EndDate,
		&c.GoalPoints,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ParticipantsCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func challengeCheckError() error {
	return apperror.ValidationFailed("end_date", "end_date must not be before start_date and goal_points must be at least 1")
}

// CreateChallenge inserts a challenge.
func (db *DB) CreateChallenge(ctx context.Context, c *model.Challenge) error {
	ts := now()
	c.ID = xid.New().String()
	c.CreatedAt = ts
	c.UpdatedAt = ts

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO challenges (id, name, description, start_date, end_date, goal_points, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.StartDate.UTC(), c.EndDate.UTC(), c.GoalPoints, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return challengeCheckError()
		}
		return fmt.Errorf("sqlite: inserting challenge %q: %w", c.Name, err)
	}
	return nil
}

// GetChallenge retrieves a challenge by ID.
func (db *DB) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	c, err := scanChallenge(db.conn.QueryRowContext(ctx, challengeSelect+` WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("challenge", id)
		}
		return nil, fmt.Errorf("sqlite: getting challenge %s: %w", id, err)
	}
	return c, nil
}

// GetChallengeByName retrieves the first challenge with the given name.
// Names are not unique; the seed tool uses this to stay idempotent.
func (db *DB) GetChallengeByName(ctx context.Context, name string) (*model.Challenge, error) {
	c, err := scanChallenge(db.conn.QueryRowContext(ctx,
		challengeSelect+` WHERE c.name = ? ORDER BY c.created_at LIMIT 1`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("challenge", name)
		}
		return nil, fmt.Errorf("sqlite: getting challenge %q: %w", name, err)
	}
	return c, nil
}

// ListChallenges returns challenges matching f, latest start first.
func (db *DB) ListChallenges(ctx context.Context, f repository.ChallengeFilter) ([]model.Challenge, error) {
	limit, offset := limitOffset(f.Limit, f.Offset)

	query := challengeSelect + ` WHERE 1 = 1`
	var args []any
	if f.Search != "" {
		query += ` AND (c.name LIKE ? ESCAPE '\' OR c.description LIKE ? ESCAPE '\')`
		p := likePattern(f.Search)
		args = append(args, p, p)
	}
	if f.ActiveAt != nil {
		query += ` AND c.start_date <= ? AND c.end_date >= ?`
		at := f.ActiveAt.UTC()
		args = append(args, at, at)
	}
	query += ` ORDER BY c.start_date DESC, c.id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing challenges: %w", err)
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// UpdateChallenge writes every editable field.
func (db *DB) UpdateChallenge(ctx context.Context, c *model.Challenge) error {
	c.UpdatedAt = now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE challenges
		 SET name = ?, description = ?, start_date = ?, end_date = ?, goal_points = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.Description, c.StartDate.UTC(), c.EndDate.UTC(), c.GoalPoints, c.UpdatedAt, c.ID)
	if err != nil {
		if isCheckViolation(err) {
			return challengeCheckError()
		}
		return fmt.Errorf("sqlite: updating challenge %s: %w", c.ID, err)
	}
	return checkAffected(res, "challenge", c.ID)
}

// DeleteChallenge removes a challenge and its participants.
func (db *DB) DeleteChallenge(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting challenge %s: %w", id, err)
	}
	return checkAffected(res, "challenge", id)
}

// AddParticipant joins userID to the challenge. Joining twice is a no-op and
// keeps the original join time.
func (db *DB) AddParticipant(ctx context.Context, challengeID, userID string) error {
	if err := requireRow(ctx, db.conn, `SELECT 1 FROM challenges WHERE id = ?`, challengeID, "challenge"); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO challenge_participants (challenge_id, user_id, joined_at) VALUES (?, ?, ?)`,
		challengeID, userID, now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", userID)
		}
		return fmt.Errorf("sqlite: adding participant %s to challenge %s: %w", userID, challengeID, err)
	}
	return nil
}

// RemoveParticipant removes userID from the challenge. Leaving a challenge
// the user never joined is a no-op.
func (db *DB) RemoveParticipant(ctx context.Context, challengeID, userID string) error {
	if err := requireRow(ctx, db.conn, `SELECT 1 FROM challenges WHERE id = ?`, challengeID, "challenge"); err != nil {
		return err
	}

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM challenge_participants WHERE challenge_id = ? AND user_id = ?`,
		challengeID, userID); err != nil {
		return fmt.Errorf("sqlite: removing participant %s from challenge %s: %w", userID, challengeID, err)
	}
	return nil
}

// ParticipantPoints sums each participant's activity points logged inside
// the challenge window, both ends inclusive. Participants without matching
// activities report 0. Rows come back in join order.
func (db *DB) ParticipantPoints(ctx context.Context, challengeID string) ([]model.ParticipantPoints, error) {
	if err := requireRow(ctx, db.conn, `SELECT 1 FROM challenges WHERE id = ?`, challengeID, "challenge"); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, COALESCE(SUM(a.points_earned), 0)
		 FROM challenge_participants cp
		 JOIN challenges c ON c.id = cp.challenge_id
		 JOIN users u ON u.id = cp.user_id
		 LEFT JOIN activities a ON a.user_id = cp.user_id
			AND a.logged_at >= c.start_date
			AND a.logged_at <= c.end_date
		 WHERE cp.challenge_id = ?
		 GROUP BY cp.user_id
		 ORDER BY cp.joined_at, cp.rowid`,
		challengeID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: summing participant points for challenge %s: %w", challengeID, err)
	}
	defer rows.Close()

	points := []model.ParticipantPoints{}
	for rows.Next() {
		var p model.ParticipantPoints
		if err := rows.Scan(&p.UserID, &p.Username, &p.Points); err != nil {
			return nil, fmt.Errorf("sqlite: scanning participant points: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
