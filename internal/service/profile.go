package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

const MaxBioLength = 500

// ProfileService reads profiles and applies owner edits.
type ProfileService struct {
	repo   repository.ProfileRepository
	logger *slog.Logger
	now    clock
}

func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger, now: time.Now}
}

func (s *ProfileService) List(ctx context.Context, opts repository.ListOptions) ([]model.UserProfile, error) {
	return s.repo.ListProfiles(ctx, opts)
}

func (s *ProfileService) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	return s.repo.GetProfile(ctx, id)
}

// Me returns the caller's own profile.
func (s *ProfileService) Me(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.repo.GetProfileByUserID(ctx, userID)
}

// TopByPoints returns the n highest-scoring profiles (LeaderboardTopSize
// when n is not positive).
func (s *ProfileService) TopByPoints(ctx context.Context, n int) ([]model.UserProfile, error) {
	if n <= 0 {
		n = LeaderboardTopSize
	}
	return s.repo.ListProfiles(ctx, repository.ListOptions{Limit: n})
}

// ProfileUpdate carries the editable fields. A nil field is left unchanged;
// ClearDateOfBirth removes a stored birth date.
type ProfileUpdate struct {
	Bio              *string
	ProfilePicture   *string
	FitnessLevel     *model.FitnessLevel
	DateOfBirth      *time.Time
	ClearDateOfBirth bool
}

// UpdateMe applies u to the caller's profile. TotalPoints is not editable:
// only recorded activities change it.
func (s *ProfileService) UpdateMe(ctx context.Context, userID string, u ProfileUpdate) (*model.UserProfile, error) {
	p, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if u.Bio != nil {
		bio := strings.TrimSpace(*u.Bio)
		if len(bio) > MaxBioLength {
			return nil, apperror.ValidationFailed("bio", "bio must be 500 characters or less")
		}
		p.Bio = bio
	}
	if u.ProfilePicture != nil {
		p.ProfilePicture = strings.TrimSpace(*u.ProfilePicture)
	}
	if u.FitnessLevel != nil {
		if !u.FitnessLevel.Valid() {
			return nil, apperror.ValidationFailed("fitness_level",
				`"`+string(*u.FitnessLevel)+`" is not a valid choice.`)
		}
		p.FitnessLevel = *u.FitnessLevel
	}
	switch {
	case u.ClearDateOfBirth:
		p.DateOfBirth = nil
	case u.DateOfBirth != nil:
		if u.DateOfBirth.After(s.now()) {
			return nil, apperror.ValidationFailed("date_of_birth", "date_of_birth cannot be in the future")
		}
		dob := *u.DateOfBirth
		p.DateOfBirth = &dob
	}

	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated",
		slog.String("profileID", p.ID),
		slog.String("userID", userID),
	)
	return p, nil
}
