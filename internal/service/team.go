package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// TeamOrderings lists the accepted ?ordering= values for ListTeams.
var TeamOrderings = []string{"total_points", "-total_points", "created_at", "-created_at", "name", "-name"}

// TeamService manages teams and keeps team totals in step with membership.
//
// A team's total is a snapshot of its members' profile totals. It is
// recalculated when the team is created and on every membership change,
// and never when a member records an activity.
type TeamService struct {
	repo   repository.TeamRepository
	logger *slog.Logger
}

func NewTeamService(repo repository.TeamRepository, logger *slog.Logger) *TeamService {
	return &TeamService{repo: repo, logger: logger}
}

// Create makes userID the creator and first member of a new team.
func (s *TeamService) Create(ctx context.Context, userID, name, description string) (*model.Team, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}
	if description, err = checkDescription(description); err != nil {
		return nil, err
	}

	team := &model.Team{Name: name, Description: description, CreatedByID: userID}
	if err := s.repo.CreateTeam(ctx, team); err != nil {
		return nil, err
	}

	s.logger.Info("team created",
		slog.String("id", team.ID),
		slog.String("name", team.Name),
		slog.String("createdBy", userID),
	)
	return team, nil
}

func (s *TeamService) List(ctx context.Context, f repository.TeamFilter) ([]model.Team, error) {
	if f.Ordering != "" && !contains(TeamOrderings, f.Ordering) {
		return nil, apperror.ValidationFailed("ordering", fmt.Sprintf("unknown ordering %q", f.Ordering))
	}
	return s.repo.ListTeams(ctx, f)
}

func (s *TeamService) Get(ctx context.Context, id string) (*model.Team, error) {
	return s.repo.GetTeam(ctx, id)
}

// Update renames or redescribes a team. Only its creator may do so.
func (s *TeamService) Update(ctx context.Context, userID, id string, name, description *string) (*model.Team, error) {
	team, err := s.ownedTeam(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		if team.Name, err = requireName("name", *name); err != nil {
			return nil, err
		}
	}
	if description != nil {
		if team.Description, err = checkDescription(*description); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team updated", slog.String("id", id))
	return team, nil
}

// Delete removes a team. Only its creator may do so.
func (s *TeamService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownedTeam(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.logger.Info("team deleted", slog.String("id", id), slog.String("by", userID))
	return nil
}

// AddMember adds memberID to the team and recalculates its total.
func (s *TeamService) AddMember(ctx context.Context, teamID, memberID string) (*model.Team, error) {
	if memberID == "" {
		return nil, apperror.ValidationFailed("user_id", "user_id is required")
	}
	total, err := s.repo.AddMember(ctx, teamID, memberID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("team member added",
		slog.String("teamID", teamID),
		slog.String("userID", memberID),
		slog.Int("totalPoints", total),
	)
	return s.repo.GetTeam(ctx, teamID)
}

// RemoveMember removes memberID from the team and recalculates its total.
// The creator always stays a member.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, memberID string) (*model.Team, error) {
	if memberID == "" {
		return nil, apperror.ValidationFailed("user_id", "user_id is required")
	}
	team, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.CreatedByID == memberID {
		return nil, apperror.ValidationFailed("user_id", "the team creator cannot be removed")
	}

	total, err := s.repo.RemoveMember(ctx, teamID, memberID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("team member removed",
		slog.String("teamID", teamID),
		slog.String("userID", memberID),
		slog.Int("totalPoints", total),
	)
	return s.repo.GetTeam(ctx, teamID)
}

// Members returns per-member stats in join order.
func (s *TeamService) Members(ctx context.Context, teamID string) ([]model.TeamMemberStats, error) {
	return s.repo.TeamMembers(ctx, teamID)
}

// RecalculatePoints refreshes the team total from its members' profiles.
func (s *TeamService) RecalculatePoints(ctx context.Context, teamID string) (int, error) {
	total, err := s.repo.RecalculatePoints(ctx, teamID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("team points recalculated", slog.String("teamID", teamID), slog.Int("totalPoints", total))
	return total, nil
}

func (s *TeamService) ownedTeam(ctx context.Context, userID, id string) (*model.Team, error) {
	team, err := s.repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if team.CreatedByID != userID {
		return nil, apperror.Forbidden("only the team creator can change this team")
	}
	return team, nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
