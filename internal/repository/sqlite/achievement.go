package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

var _ repository.AchievementRepository = (*DB)(nil)

const achievementSelect = `
	SELECT a.id, a.name, a.description, a.icon_url, a.criteria, a.created_at,
		(SELECT COUNT(*) FROM user_achievements ua WHERE ua.achievement_id = a.id)
	FROM achievements a`

func scanAchievement(row interface{ Scan(...any) error }) (*model.Achievement, error) {
	var (
		a        model.Achievement
		criteria string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.IconURL, &criteria, &a.CreatedAt, &a.UsersCount); err != nil {
		return nil, err
	}
	a.Criteria = map[string]int{}
	if err := json.Unmarshal([]byte(criteria), &a.Criteria); err != nil {
		return nil, fmt.Errorf("decoding criteria of achievement %s: %w", a.ID, err)
	}
	return &a, nil
}

// CreateAchievement inserts an achievement definition.
func (db *DB) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	a.ID = xid.New().String()
	a.CreatedAt = now()
	if a.Criteria == nil {
		a.Criteria = map[string]int{}
	}

	criteria, err := json.Marshal(a.Criteria)
	if err != nil {
		return fmt.Errorf("sqlite: encoding criteria: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO achievements (id, name, description, icon_url, criteria, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Description, a.IconURL, string(criteria), a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("achievement", a.Name)
		}
		return fmt.Errorf("sqlite: inserting achievement %q: %w", a.Name, err)
	}
	return nil
}

// GetAchievement retrieves an achievement by ID.
func (db *DB) GetAchievement(ctx context.Context, id string) (*model.Achievement, error) {
	a, err := scanAchievement(db.conn.QueryRowContext(ctx, achievementSelect+` WHERE a.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("achievement", id)
		}
		return nil, fmt.Errorf("sqlite: getting achievement %s: %w", id, err)
	}
	return a, nil
}

// GetAchievementByName retrieves an achievement by its unique name.
func (db *DB) GetAchievementByName(ctx context.Context, name string) (*model.Achievement, error) {
	a, err := scanAchievement(db.conn.QueryRowContext(ctx, achievementSelect+` WHERE a.name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("achievement", name)
		}
		return nil, fmt.Errorf("sqlite: getting achievement %q: %w", name, err)
	}
	return a, nil
}

// ListAchievements returns achievements by name.
func (db *DB) ListAchievements(ctx context.Context, opts repository.ListOptions) ([]model.Achievement, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)
	return db.queryAchievements(ctx,
		achievementSelect+` ORDER BY a.name LIMIT ? OFFSET ?`, limit, offset)
}

// ListUserAchievements returns the achievements userID has earned, most
// recent first.
func (db *DB) ListUserAchievements(ctx context.Context, userID string) ([]model.Achievement, error) {
	return db.queryAchievements(ctx,
		achievementSelect+`
		 JOIN user_achievements mine ON mine.achievement_id = a.id AND mine.user_id = ?
		 ORDER BY mine.earned_at DESC, a.name`,
		userID)
}

func (db *DB) queryAchievements(ctx context.Context, query string, args ...any) ([]model.Achievement, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing achievements: %w", err)
	}
	defer rows.Close()

	achievements := []model.Achievement{}
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning achievement: %w", err)
		}
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}

// awardAchievement links userID to an achievement. It is idempotent. Nothing
// in the API evaluates criteria, so only tests and tooling call it.
func (db *DB) awardAchievement(ctx context.Context, achievementID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_achievements (achievement_id, user_id, earned_at) VALUES (?, ?, ?)`,
		achievementID, userID, now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("achievement or user", achievementID+"/"+userID)
		}
		return fmt.Errorf("sqlite: awarding achievement %s: %w", achievementID, err)
	}
	return nil
}
