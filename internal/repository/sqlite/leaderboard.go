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

var _ repository.LeaderboardRepository = (*DB)(nil)

const leaderboardSelect = `
	SELECT e.id, e.leaderboard_type, e.period, e.rank, e.points, e.created_at, e.updated_at,
		e.user_id, u.username, u.email, u.first_name, u.last_name,
		e.team_id, t.name, t.description, t.total_points,
		(SELECT COUNT(*) FROM team_members m WHERE m.team_id = e.team_id)
	FROM leaderboard_entries e
	LEFT JOIN users u ON u.id = e.user_id
	LEFT JOIN teams t ON t.id = e.team_id`

func scanEntry(row interface{ Scan(...any) error }) (*model.LeaderboardEntry, error) {
	var (
		e                          model.LeaderboardEntry
		lbType, period             string
		userID, username, email    sql.NullString
		firstName, lastName        sql.NullString
		teamID, teamName, teamDesc sql.NullString
		teamPoints, teamMembers    sql.NullInt64
	)
	err := row.Scan(
		&e.ID,
		&lbType,
		&period,
		&e.Rank,
		&e.Points,
		&e.CreatedAt,
		&e.UpdatedAt,
		&userID,
		&username,
		&email,
		&firstName,
		&lastName,
		&teamID,
		&teamName,
		&teamDesc,
		&teamPoints,
		&teamMembers,
	)
	if err != nil {
		return nil, err
	}
	e.LeaderboardType = model.LeaderboardType(lbType)
	e.Period = model.Period(period)

	switch {
	case userID.Valid:
		e.Ref = model.UserRef(userID.String)
		e.User = &model.UserSummary{
			ID:        userID.String,
			Username:  username.String,
			Email:     email.String,
			FirstName: firstName.String,
			LastName:  lastName.String,
		}
	case teamID.Valid:
		e.Ref = model.TeamRef(teamID.String)
		e.Team = &model.TeamSummary{
			ID:           teamID.String,
			Name:         teamName.String,
			Description:  teamDesc.String,
			MembersCount: int(teamMembers.Int64),
			TotalPoints:  int(teamPoints.Int64),
		}
	}
	return &e, nil
}

// ListEntries returns the stored snapshot for (t, p) by ascending rank.
func (db *DB) ListEntries(ctx context.Context, t model.LeaderboardType, p model.Period, opts repository.ListOptions) ([]model.LeaderboardEntry, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)

	query := leaderboardSelect + ` WHERE 1 = 1`
	var args []any
	if t != "" {
		query += ` AND e.leaderboard_type = ?`
		args = append(args, string(t))
	}
	if p != "" {
		query += ` AND e.period = ?`
		args = append(args, string(p))
	}
	query += ` ORDER BY e.rank ASC, e.leaderboard_type, e.period LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing leaderboard %s/%s: %w", t, p, err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning leaderboard entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetEntry retrieves a single leaderboard entry.
func (db *DB) GetEntry(ctx context.Context, id string) (*model.LeaderboardEntry, error) {
	e, err := scanEntry(db.conn.QueryRowContext(ctx, leaderboardSelect+` WHERE e.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("leaderboard entry", id)
		}
		return nil, fmt.Errorf("sqlite: getting leaderboard entry %s: %w", id, err)
	}
	return e, nil
}

// ReplaceSnapshot deletes every entry of (t, p) and inserts entries in their
// place, in one transaction. Each entry's Ref must match t.
func (db *DB) ReplaceSnapshot(ctx context.Context, t model.LeaderboardType, p model.Period, entries []model.LeaderboardEntry) error {
	if !t.Valid() {
		return apperror.ValidationFailed("leaderboard_type", fmt.Sprintf("unknown leaderboard type %q", t))
	}
	if !p.Valid() {
		return apperror.ValidationFailed("period", fmt.Sprintf("unknown period %q", p))
	}
	for i := range entries {
		if err := entries[i].Ref.Validate(t); err != nil {
			return apperror.ValidationFailed("ref", err.Error())
		}
	}

	ts := now()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM leaderboard_entries WHERE leaderboard_type = ? AND period = ?`,
			string(t), string(p)); err != nil {
			return fmt.Errorf("sqlite: clearing leaderboard %s/%s: %w", t, p, err)
		}

		for i := range entries {
			e := &entries[i]
			e.ID = xid.New().String()
			e.LeaderboardType = t
			e.Period = p
			e.CreatedAt = ts
			e.UpdatedAt = ts

			var userID, teamID any
			if e.Ref.Kind == model.RefUser {
				userID = e.Ref.ID
			} else {
				teamID = e.Ref.ID
			}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO leaderboard_entries
					(id, leaderboard_type, period, rank, user_id, team_id, points, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, string(t), string(p), e.Rank, userID, teamID, e.Points, e.CreatedAt, e.UpdatedAt)
			if err != nil {
				switch {
				case isUniqueViolation(err):
					return apperror.Conflict("leaderboard entry", fmt.Sprintf("%s/%s rank %d", t, p, e.Rank))
				case isForeignKeyViolation(err):
					return apperror.NotFound(string(e.Ref.Kind), e.Ref.ID)
				case isCheckViolation(err):
					return apperror.ValidationFailed("rank", "rank must be positive and points non-negative")
				}
				return fmt.Errorf("sqlite: inserting leaderboard entry: %w", err)
			}
		}
		return nil
	})
}
