package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// ChallengeService manages challenges and evaluates participant progress.
// IsActive is computed on every read from the service clock.
type ChallengeService struct {
	repo   repository.ChallengeRepository
	logger *slog.Logger
	now    clock
}

func NewChallengeService(repo repository.ChallengeRepository, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{repo: repo, logger: logger, now: time.Now}
}

// ChallengeInput is a challenge as submitted for creation.
type ChallengeInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	GoalPoints  int
}

func validateChallenge(c *model.Challenge) error {
	if c.StartDate.IsZero() {
		return apperror.ValidationFailed("start_date", "start_date is required")
	}
	if c.EndDate.IsZero() {
		return apperror.ValidationFailed("end_date", "end_date is required")
	}
	if c.EndDate.Before(c.StartDate) {
		return apperror.ValidationFailed("end_date", "end_date must not be before start_date")
	}
	if c.GoalPoints < 1 {
		return apperror.ValidationFailed("goal_points", "goal_points must be at least 1")
	}
	return nil
}

func (s *ChallengeService) Create(ctx context.Context, in ChallengeInput) (*model.Challenge, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return nil, err
	}
	description, err := checkDescription(in.Description)
	if err != nil {
		return nil, err
	}

	c := &model.Challenge{
		Name:        name,
		Description: description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		GoalPoints:  in.GoalPoints,
	}
	if err := validateChallenge(c); err != nil {
		return nil, err
	}
	if err := s.repo.CreateChallenge(ctx, c); err != nil {
		return nil, err
	}

	c.IsActive = c.ActiveAt(s.now())
	s.logger.Info("challenge created", slog.String("id", c.ID), slog.String("name", c.Name))
	return c, nil
}

// List returns challenges whose name or description contains search.
func (s *ChallengeService) List(ctx context.Context, search string, opts repository.ListOptions) ([]model.Challenge, error) {
	challenges, err := s.repo.ListChallenges(ctx, repository.ChallengeFilter{Search: search, ListOptions: opts})
	if err != nil {
		return nil, err
	}
	return s.markActive(challenges), nil
}

// Active returns the challenges running right now.
func (s *ChallengeService) Active(ctx context.Context, opts repository.ListOptions) ([]model.Challenge, error) {
	now := s.now()
	challenges, err := s.repo.ListChallenges(ctx, repository.ChallengeFilter{ActiveAt: &now, ListOptions: opts})
	if err != nil {
		return nil, err
	}
	return s.markActive(challenges), nil
}

func (s *ChallengeService) Get(ctx context.Context, id string) (*model.Challenge, error) {
	c, err := s.repo.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = c.ActiveAt(s.now())
	return c, nil
}

// ChallengeUpdate carries the editable fields; nil leaves a field unchanged.
type ChallengeUpdate struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	GoalPoints  *int
}

func (s *ChallengeService) Update(ctx context.Context, id string, u ChallengeUpdate) (*model.Challenge, error) {
	c, err := s.repo.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Name != nil {
		if c.Name, err = requireName("name", *u.Name); err != nil {
			return nil, err
		}
	}
	if u.Description != nil {
		if c.Description, err = checkDescription(*u.Description); err != nil {
			return nil, err
		}
	}
	if u.StartDate != nil {
		c.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		c.EndDate = *u.EndDate
	}
	if u.GoalPoints != nil {
		c.GoalPoints = *u.GoalPoints
	}
	if err := validateChallenge(c); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateChallenge(ctx, c); err != nil {
		return nil, err
	}
	c.IsActive = c.ActiveAt(s.now())
	s.logger.Info("challenge updated", slog.String("id", id))
	return c, nil
}

func (s *ChallengeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteChallenge(ctx, id); err != nil {
		return err
	}
	s.logger.Info("challenge deleted", slog.String("id", id))
	return nil
}

// Join adds userID to the challenge. Joining twice is a no-op.
func (s *ChallengeService) Join(ctx context.Context, id, userID string) (*model.Challenge, error) {
	if err := s.repo.AddParticipant(ctx, id, userID); err != nil {
		return nil, err
	}
	s.logger.Info("challenge joined", slog.String("challengeID", id), slog.String("userID", userID))
	return s.Get(ctx, id)
}

// Leave removes userID from the challenge. Leaving twice is a no-op.
func (s *ChallengeService) Leave(ctx context.Context, id, userID string) (*model.Challenge, error) {
	if err := s.repo.RemoveParticipant(ctx, id, userID); err != nil {
		return nil, err
	}
	s.logger.Info("challenge left", slog.String("challengeID", id), slog.String("userID", userID))
	return s.Get(ctx, id)
}

// Participants evaluates every participant's progress toward the goal,
// highest points first.
func (s *ChallengeService) Participants(ctx context.Context, id string) ([]model.ParticipantProgress, error) {
	c, err := s.repo.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	points, err := s.repo.ParticipantPoints(ctx, id)
	if err != nil {
		return nil, err
	}
	return ChallengeProgress(c.GoalPoints, points), nil
}

func (s *ChallengeService) markActive(challenges []model.Challenge) []model.Challenge {
	now := s.now()
	for i := range challenges {
		challenges[i].IsActive = challenges[i].ActiveAt(now)
	}
	return challenges
}
