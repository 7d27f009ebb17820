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

var _ repository.TeamRepository = (*DB)(nil)

const teamSelect = `
	SELECT t.id, t.name, t.description, t.created_by,
		u.username, u.email, u.first_name, u.last_name,
		t.total_points, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM team_members m WHERE m.team_id = t.id)
	FROM teams t
	JOIN users u ON u.id = t.created_by`

func scanTeam(row interface{ Scan(...any) error }) (*model.Team, error) {
	var t model.Team
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.CreatedByID,
		&t.CreatedBy.Username,
		&t.CreatedBy.Email,
		&t.CreatedBy.FirstName,
		&t.CreatedBy.LastName,
		&t.TotalPoints,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.MembersCount,
	)
	if err != nil {
		return nil, err
	}
	t.CreatedBy.ID = t.CreatedByID
	return &t, nil
}

// recalculateSQL overwrites a team's total with the sum of its members'
// profile totals. LEFT JOIN + COALESCE makes a member without a profile
// count as 0. The whole computation runs inside SQLite as one statement.
const recalculateSQL = `
	UPDATE teams SET
		total_points = (
			SELECT COALESCE(SUM(p.total_points), 0)
			FROM team_members m
			LEFT JOIN user_profiles p ON p.user_id = m.user_id
			WHERE m.team_id = teams.id
		),
		updated_at = ?
	WHERE id = ?`

// recalculate runs recalculateSQL on q and returns the new total.
func recalculate(ctx context.Context, q querier, teamID string) (int, error) {
	res, err := q.ExecContext(ctx, recalculateSQL, now(), teamID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: recalculating team %s: %w", teamID, err)
	}
	if err := checkAffected(res, "team", teamID); err != nil {
		return 0, err
	}

	var total int
	if err := q.QueryRowContext(ctx,
		`SELECT total_points FROM teams WHERE id = ?`, teamID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite: reading team %s total: %w", teamID, err)
	}
	return total, nil
}

// CreateTeam inserts the team, adds the creator as its first member and
// recalculates total points, in one transaction.
func (db *DB) CreateTeam(ctx context.Context, team *model.Team) error {
	ts := now()
	team.ID = xid.New().String()
	team.CreatedAt = ts
	team.UpdatedAt = ts

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, name, description, created_by, total_points, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 0, ?, ?)`,
			team.ID, team.Name, team.Description, team.CreatedByID, team.CreatedAt, team.UpdatedAt)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return apperror.Conflict("team", team.Name)
			case isForeignKeyViolation(err):
				return apperror.NotFound("user", team.CreatedByID)
			}
			return fmt.Errorf("sqlite: inserting team %q: %w", team.Name, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (team_id, user_id, joined_at) VALUES (?, ?, ?)`,
			team.ID, team.CreatedByID, ts); err != nil {
			return fmt.Errorf("sqlite: adding creator to team %s: %w", team.ID, err)
		}

		_, err = recalculate(ctx, tx, team.ID)
		return err
	})
	if err != nil {
		return err
	}

	stored, err := db.GetTeam(ctx, team.ID)
	if err != nil {
		return err
	}
	*team = *stored
	return nil
}

// GetTeam retrieves a team with its member list.
func (db *DB) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	t, err := scanTeam(db.conn.QueryRowContext(ctx, teamSelect+` WHERE t.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("team", id)
		}
		return nil, fmt.Errorf("sqlite: getting team %s: %w", id, err)
	}

	if t.Members, err = db.memberSummaries(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// memberSummaries lists a team's members in join order.
func (db *DB) memberSummaries(ctx context.Context, teamID string) ([]model.UserSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.email, u.first_name, u.last_name
		 FROM team_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = ?
		 ORDER BY m.joined_at, m.rowid`,
		teamID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of team %s: %w", teamID, err)
	}
	defer rows.Close()

	members := []model.UserSummary{}
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("sqlite: scanning team member: %w", err)
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

// teamOrderBy maps the public ordering parameter to a trusted clause.
// The default is highest total first.
func teamOrderBy(ordering string) string {
	switch ordering {
	case "total_points":
		return "t.total_points ASC, t.name ASC"
	case "created_at":
		return "t.created_at ASC, t.id ASC"
	case "-created_at":
		return "t.created_at DESC, t.id DESC"
	case "name":
		return "t.name ASC"
	case "-name":
		return "t.name DESC"
	}
	return "t.total_points DESC, t.name ASC"
}

// ListTeams returns teams matching f, each with its member list.
func (db *DB) ListTeams(ctx context.Context, f repository.TeamFilter) ([]model.Team, error) {
	limit, offset := limitOffset(f.Limit, f.Offset)

	query := teamSelect
	var args []any
	if f.Search != "" {
		query += ` WHERE t.name LIKE ? ESCAPE '\' OR t.description LIKE ? ESCAPE '\'`
		p := likePattern(f.Search)
		args = append(args, p, p)
	}
	query += ` ORDER BY ` + teamOrderBy(f.Ordering) + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing teams: %w", err)
	}

	teams := []model.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning team: %w", err)
		}
		teams = append(teams, *t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating teams: %w", err)
	}
	// Release the connection before the per-team member queries.
	rows.Close()

	for i := range teams {
		if teams[i].Members, err = db.memberSummaries(ctx, teams[i].ID); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

// UpdateTeam writes name and description. created_by is not reassignable.
func (db *DB) UpdateTeam(ctx context.Context, team *model.Team) error {
	team.UpdatedAt = now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE teams SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		team.Name, team.Description, team.UpdatedAt, team.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("team", team.Name)
		}
		return fmt.Errorf("sqlite: updating team %s: %w", team.ID, err)
	}
	return checkAffected(res, "team", team.ID)
}

// DeleteTeam removes a team; memberships and team leaderboard rows cascade.
func (db *DB) DeleteTeam(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting team %s: %w", id, err)
	}
	return checkAffected(res, "team", id)
}

// AddMember adds userID to the team (a no-op if already a member) and
// recalculates the team total in the same transaction.
func (db *DB) AddMember(ctx context.Context, teamID, userID string) (int, error) {
	var total int
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, `SELECT 1 FROM teams WHERE id = ?`, teamID, "team"); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, userID, "user"); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO team_members (team_id, user_id, joined_at) VALUES (?, ?, ?)`,
			teamID, userID, now()); err != nil {
			return fmt.Errorf("sqlite: adding user %s to team %s: %w", userID, teamID, err)
		}

		var err error
		total, err = recalculate(ctx, tx, teamID)
		return err
	})
	return total, err
}

// RemoveMember removes userID from the team (a no-op if not a member) and
// recalculates the team total in the same transaction.
func (db *DB) RemoveMember(ctx context.Context, teamID, userID string) (int, error) {
	var total int
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, `SELECT 1 FROM teams WHERE id = ?`, teamID, "team"); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, userID, "user"); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`,
			teamID, userID); err != nil {
			return fmt.Errorf("sqlite: removing user %s from team %s: %w", userID, teamID, err)
		}

		var err error
		total, err = recalculate(ctx, tx, teamID)
		return err
	})
	return total, err
}

// RecalculatePoints refreshes a team's total from its members' profiles.
func (db *DB) RecalculatePoints(ctx context.Context, teamID string) (int, error) {
	var total int
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		total, err = recalculate(ctx, tx, teamID)
		return err
	})
	return total, err
}

// TeamMembers returns per-member stats in join order. Members without a
// profile report 0 points and an empty fitness level.
func (db *DB) TeamMembers(ctx context.Context, teamID string) ([]model.TeamMemberStats, error) {
	if err := requireRow(ctx, db.conn, `SELECT 1 FROM teams WHERE id = ?`, teamID, "team"); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, COALESCE(p.total_points, 0), COALESCE(p.fitness_level, '')
		 FROM team_members m
		 JOIN users u ON u.id = m.user_id
		 LEFT JOIN user_profiles p ON p.user_id = m.user_id
		 WHERE m.team_id = ?
		 ORDER BY m.joined_at, m.rowid`,
		teamID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing member stats for team %s: %w", teamID, err)
	}
	defer rows.Close()

	stats := []model.TeamMemberStats{}
	for rows.Next() {
		var (
			s     model.TeamMemberStats
			level string
		)
		if err := rows.Scan(&s.ID, &s.Username, &s.TotalPoints, &level); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member stats: %w", err)
		}
		s.FitnessLevel = model.FitnessLevel(level)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// TeamMemberIDs maps every team to its member IDs. Teams without members
// map to an empty slice.
func (db *DB) TeamMemberIDs(ctx context.Context) (map[string][]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, m.user_id
		 FROM teams t
		 LEFT JOIN team_members m ON m.team_id = t.id
		 ORDER BY t.id, m.joined_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing team memberships: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]string)
	for rows.Next() {
		var (
			teamID string
			userID sql.NullString
		)
		if err := rows.Scan(&teamID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership: %w", err)
		}
		if _, ok := members[teamID]; !ok {
			members[teamID] = []string{}
		}
		if userID.Valid {
			members[teamID] = append(members[teamID], userID.String)
		}
	}
	return members, rows.Err()
}

// requireRow returns NotFound(resource, id) when query yields no row.
func requireRow(ctx context.Context, q querier, query, id, resource string) error {
	var one int
	err := q.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(resource, id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: looking up %s %s: %w", resource, id, err)
	}
	return nil
}
