package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

var (
	_ repository.ActivityTypeRepository = (*DB)(nil)
	_ repository.ActivityRepository     = (*DB)(nil)
)

// =========================================================================
// ACTIVITY TYPES
// =========================================================================

// CreateActivityType adds a catalog entry. A duplicate name returns
// apperror.ErrConflict.
func (db *DB) CreateActivityType(ctx context.Context, t *model.ActivityType) error {
	t.ID = xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activity_types (id, name, description, base_points_per_unit, unit)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.BasePointsPerUnit, string(t.Unit))
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("activity type", t.Name)
		}
		if isCheckViolation(err) {
			return apperror.ValidationFailed("unit", "invalid unit")
		}
		return fmt.Errorf("sqlite: inserting activity type %q: %w", t.Name, err)
	}
	return nil
}

func scanActivityType(row interface{ Scan(...any) error }) (*model.ActivityType, error) {
	var (
		t    model.ActivityType
		unit string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.BasePointsPerUnit, &unit); err != nil {
		return nil, err
	}
	t.Unit = model.Unit(unit)
	return &t, nil
}

const activityTypeSelect = `SELECT id, name, description, base_points_per_unit, unit FROM activity_types`

// GetActivityType retrieves a catalog entry by ID.
func (db *DB) GetActivityType(ctx context.Context, id string) (*model.ActivityType, error) {
	return db.getActivityType(ctx, db.conn, id)
}

func (db *DB) getActivityType(ctx context.Context, q querier, id string) (*model.ActivityType, error) {
	t, err := scanActivityType(q.QueryRowContext(ctx, activityTypeSelect+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("activity type", id)
		}
		return nil, fmt.Errorf("sqlite: getting activity type %s: %w", id, err)
	}
	return t, nil
}

// GetActivityTypeByName retrieves a catalog entry by its unique name.
func (db *DB) GetActivityTypeByName(ctx context.Context, name string) (*model.ActivityType, error) {
	t, err := scanActivityType(db.conn.QueryRowContext(ctx, activityTypeSelect+` WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("activity type", name)
		}
		return nil, fmt.Errorf("sqlite: getting activity type %q: %w", name, err)
	}
	return t, nil
}

// ListActivityTypes returns the whole catalog ordered by name.
func (db *DB) ListActivityTypes(ctx context.Context) ([]model.ActivityType, error) {
	rows, err := db.conn.QueryContext(ctx, activityTypeSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activity types: %w", err)
	}
	defer rows.Close()

	types := []model.ActivityType{}
	for rows.Next() {
		t, err := scanActivityType(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity type: %w", err)
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

// =========================================================================
// ACTIVITIES
// =========================================================================

const activitySelect = `
	SELECT a.id, a.user_id, u.username, u.email, u.first_name, u.last_name,
		a.activity_type_id, t.name, t.description, t.base_points_per_unit, t.unit,
		a.distance_or_duration, a.calories_burned, a.points_earned, a.description,
		a.logged_at, a.created_at, a.updated_at
	FROM activities a
	JOIN users u ON u.id = a.user_id
	LEFT JOIN activity_types t ON t.id = a.activity_type_id`

func scanActivity(row interface{ Scan(...any) error }) (*model.Activity, error) {
	var (
		a        model.Activity
		typeID   sql.NullString
		typeName sql.NullString
		typeDesc sql.NullString
		typeBase sql.NullInt64
		typeUnit sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.User.Username,
		&a.User.Email,
		&a.User.FirstName,
		&a.User.LastName,
		&typeID,
		&typeName,
		&typeDesc,
		&typeBase,
		&typeUnit,
		&a.DistanceOrDuration,
		&a.CaloriesBurned,
		&a.PointsEarned,
		&a.Description,
		&a.LoggedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.User.ID = a.UserID

	// The type is nil when it was never set or has since been deleted
	// (ON DELETE SET NULL).
	if typeID.Valid {
		id := typeID.String
		a.ActivityTypeID = &id
		a.ActivityType = &model.ActivityType{
			ID:                id,
			Name:              typeName.String,
			Description:       typeDesc.String,
			BasePointsPerUnit: int(typeBase.Int64),
			Unit:              model.Unit(typeUnit.String),
		}
	}
	return &a, nil
}

// RecordActivity is the storage half of the points ledger.
//
// TRANSACTION:
//  1. INSERT the activity row.
//  2. UPDATE user_profiles SET total_points = total_points + points_earned.
//
// The increment is a single UPDATE evaluated by SQLite, not a
// read-modify-write in Go, so two concurrent recordings for the same user
// both land. If the owner has no profile the UPDATE matches no row and the
// whole transaction is rolled back: the activity is not stored.
func (db *DB) RecordActivity(ctx context.Context, a *model.Activity) error {
	ts := now()
	a.ID = xid.New().String()
	a.CreatedAt = ts
	a.UpdatedAt = ts
	if a.LoggedAt.IsZero() {
		a.LoggedAt = ts
	}
	a.LoggedAt = a.LoggedAt.UTC()

	var typeID any
	if a.ActivityTypeID != nil {
		typeID = *a.ActivityTypeID
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO activities (id, user_id, activity_type_id, distance_or_duration,
				calories_burned, points_earned, description, logged_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID,
			a.UserID,
			typeID,
			a.DistanceOrDuration,
			a.CaloriesBurned,
			a.PointsEarned,
			a.Description,
			a.LoggedAt,
			a.CreatedAt,
			a.UpdatedAt,
		)
		if err != nil {
			switch {
			case isForeignKeyViolation(err):
				return apperror.NotFound("user or activity type", a.UserID)
			case isCheckViolation(err):
				return apperror.ValidationFailed("distance_or_duration", "values must not be negative")
			}
			return fmt.Errorf("sqlite: inserting activity: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE user_profiles SET total_points = total_points + ?, updated_at = ?
			 WHERE user_id = ?`,
			a.PointsEarned, ts, a.UserID)
		if err != nil {
			return fmt.Errorf("sqlite: incrementing points for user %s: %w", a.UserID, err)
		}
		if err := checkAffected(res, "profile for user", a.UserID); err != nil {
			return err
		}

		// Read back inside the transaction for the nested user and type.
		stored, err := scanActivity(tx.QueryRowContext(ctx, activitySelect+` WHERE a.id = ?`, a.ID))
		if err != nil {
			return fmt.Errorf("sqlite: reading back activity %s: %w", a.ID, err)
		}
		*a = *stored
		return nil
	})
}

// GetActivity retrieves an activity by ID.
func (db *DB) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	a, err := scanActivity(db.conn.QueryRowContext(ctx, activitySelect+` WHERE a.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("activity", id)
		}
		return nil, fmt.Errorf("sqlite: getting activity %s: %w", id, err)
	}
	return a, nil
}

// activityOrderBy maps an ordering to a trusted ORDER BY clause. Unknown
// values fall back to newest first.
func activityOrderBy(o repository.ActivityOrdering) string {
	switch o {
	case repository.OrderLoggedAtAsc:
		return "a.logged_at ASC, a.id ASC"
	case repository.OrderPointsDesc:
		return "a.points_earned DESC, a.logged_at DESC"
	case repository.OrderPointsAsc:
		return "a.points_earned ASC, a.logged_at DESC"
	}
	return "a.logged_at DESC, a.id DESC"
}

// ListActivities returns one user's activities, newest first unless another
// ordering is requested.
func (db *DB) ListActivities(ctx context.Context, f repository.ActivityFilter) ([]model.Activity, error) {
	limit, offset := limitOffset(f.Limit, f.Offset)

	var (
		where = []string{"a.user_id = ?"}
		args  = []any{f.UserID}
	)
	if f.Since != nil {
		where = append(where, "a.logged_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		where = append(where, "a.logged_at <= ?")
		args = append(args, f.Until.UTC())
	}
	args = append(args, limit, offset)

	query := activitySelect +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + activityOrderBy(f.Ordering) +
		` LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activities for user %s: %w", f.UserID, err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// UpdateActivity writes the mutable activity fields.
func (db *DB) UpdateActivity(ctx context.Context, a *model.Activity) error {
	a.UpdatedAt = now()
	a.LoggedAt = a.LoggedAt.UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE activities SET description = ?, calories_burned = ?, logged_at = ?, updated_at = ?
		 WHERE id = ?`,
		a.Description, a.CaloriesBurned, a.LoggedAt, a.UpdatedAt, a.ID)
	if err != nil {
		if isCheckViolation(err) {
			return apperror.ValidationFailed("calories_burned", "calories_burned must not be negative")
		}
		return fmt.Errorf("sqlite: updating activity %s: %w", a.ID, err)
	}
	return checkAffected(res, "activity", a.ID)
}

// DeleteActivity removes an activity. The owner's total_points is left
// unchanged: the ledger has no decrement path.
func (db *DB) DeleteActivity(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting activity %s: %w", id, err)
	}
	return checkAffected(res, "activity", id)
}

// ActivityStats aggregates count, points and calories for one user.
func (db *DB) ActivityStats(ctx context.Context, userID string) (*model.ActivityStats, error) {
	var s model.ActivityStats
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(points_earned), 0), COALESCE(SUM(calories_burned), 0)
		 FROM activities WHERE user_id = ?`,
		userID,
	).Scan(&s.TotalActivities, &s.TotalPoints, &s.TotalCalories)
	if err != nil {
		return nil, fmt.Errorf("sqlite: computing stats for user %s: %w", userID, err)
	}
	if s.TotalActivities > 0 {
		s.AveragePointsPerActivity = float64(s.TotalPoints) / float64(s.TotalActivities)
	}
	return &s, nil
}

// PointsByUser sums points per user over activities logged in [since, until].
// Users with no activity in the window are absent from the map.
func (db *DB) PointsByUser(ctx context.Context, since, until *time.Time) (map[string]int, error) {
	var (
		where []string
		args  []any
	)
	if since != nil {
		where = append(where, "logged_at >= ?")
		args = append(args, since.UTC())
	}
	if until != nil {
		where = append(where, "logged_at <= ?")
		args = append(args, until.UTC())
	}

	query := `SELECT user_id, COALESCE(SUM(points_earned), 0) FROM activities`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` GROUP BY user_id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: summing points by user: %w", err)
	}
	defer rows.Close()

	points := make(map[string]int)
	for rows.Next() {
		var (
			userID string
			sum    int
		)
		if err := rows.Scan(&userID, &sum); err != nil {
			return nil, fmt.Errorf("sqlite: scanning points: %w", err)
		}
		points[userID] = sum
	}
	return points, rows.Err()
}
