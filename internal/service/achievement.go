package service

import (
	"context"

	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// AchievementService exposes achievement definitions. Criteria are stored
// and returned as metadata; nothing evaluates them or awards achievements.
type AchievementService struct {
	repo repository.AchievementRepository
}

func NewAchievementService(repo repository.AchievementRepository) *AchievementService {
	return &AchievementService{repo: repo}
}

func (s *AchievementService) List(ctx context.Context, opts repository.ListOptions) ([]model.Achievement, error) {
	return s.repo.ListAchievements(ctx, opts)
}

func (s *AchievementService) Get(ctx context.Context, id string) (*model.Achievement, error) {
	return s.repo.GetAchievement(ctx, id)
}

// ForUser returns the achievements userID holds.
func (s *AchievementService) ForUser(ctx context.Context, userID string) ([]model.Achievement, error) {
	return s.repo.ListUserAchievements(ctx, userID)
}
