package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// ActivityTypeService exposes the read-only activity catalog.
type ActivityTypeService struct {
	repo repository.ActivityTypeRepository
}

func NewActivityTypeService(repo repository.ActivityTypeRepository) *ActivityTypeService {
	return &ActivityTypeService{repo: repo}
}

func (s *ActivityTypeService) List(ctx context.Context) ([]model.ActivityType, error) {
	return s.repo.ListActivityTypes(ctx)
}

func (s *ActivityTypeService) Get(ctx context.Context, id string) (*model.ActivityType, error) {
	return s.repo.GetActivityType(ctx, id)
}

// ActivityService is the points ledger: it prices activities and records
// them against their owner's profile total.
//
// Every operation is scoped to the calling user. Another user's activity
// is reported as not found rather than forbidden, so IDs do not leak.
type ActivityService struct {
	activities repository.ActivityRepository
	types      repository.ActivityTypeRepository
	logger     *slog.Logger
	now        clock
}

func NewActivityService(
	activities repository.ActivityRepository,
	types repository.ActivityTypeRepository,
	logger *slog.Logger,
) *ActivityService {
	return &ActivityService{
		activities: activities,
		types:      types,
		logger:     logger,
		now:        time.Now,
	}
}

// RecordInput is a new activity as submitted by its owner.
type RecordInput struct {
	ActivityTypeID     string
	DistanceOrDuration float64
	CaloriesBurned     int
	Description        string
	// LoggedAt defaults to now.
	LoggedAt *time.Time
}

// Record prices the activity with PointsFor and stores it. The insert and
// the profile increment commit together or not at all.
func (s *ActivityService) Record(ctx context.Context, userID string, in RecordInput) (*model.Activity, error) {
	typeID := strings.TrimSpace(in.ActivityTypeID)
	if typeID == "" {
		return nil, apperror.ValidationFailed("activity_type", "This field is required.")
	}
	amount := in.DistanceOrDuration
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, apperror.ValidationFailed("distance_or_duration", "distance_or_duration must be a non-negative number")
	}
	if in.CaloriesBurned < 0 {
		return nil, apperror.ValidationFailed("calories_burned", "calories_burned must not be negative")
	}
	description, err := checkDescription(in.Description)
	if err != nil {
		return nil, err
	}

	activityType, err := s.types.GetActivityType(ctx, typeID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("activity_type", fmt.Sprintf("Invalid pk %q - object does not exist.", typeID))
		}
		return nil, err
	}

	points := PointsFor(amount, activityType.BasePointsPerUnit)
	if points < 0 {
		return nil, apperror.ValidationFailed("distance_or_duration", "activity would earn negative points")
	}

	loggedAt := s.now()
	if in.LoggedAt != nil {
		loggedAt = *in.LoggedAt
	}

	a := &model.Activity{
		UserID:             userID,
		ActivityTypeID:     &activityType.ID,
		DistanceOrDuration: amount,
		CaloriesBurned:     in.CaloriesBurned,
		PointsEarned:       points,
		Description:        description,
		LoggedAt:           loggedAt,
	}
	if err := s.activities.RecordActivity(ctx, a); err != nil {
		s.logger.Error("failed to record activity",
			slog.String("userID", userID),
			errAttr(err),
		)
		return nil, err
	}

	s.logger.Info("activity recorded",
		slog.String("id", a.ID),
		slog.String("userID", userID),
		slog.String("type", activityType.Name),
		slog.Int("points", points),
	)
	return a, nil
}

// ValidOrdering reports whether o is an ordering ListActivities accepts.
func ValidOrdering(o repository.ActivityOrdering) bool {
	switch o {
	case "", repository.OrderLoggedAtDesc, repository.OrderLoggedAtAsc,
		repository.OrderPointsDesc, repository.OrderPointsAsc:
		return true
	}
	return false
}

// List returns the caller's activities, newest first by default.
func (s *ActivityService) List(ctx context.Context, userID string, ordering repository.ActivityOrdering, opts repository.ListOptions) ([]model.Activity, error) {
	if !ValidOrdering(ordering) {
		return nil, apperror.ValidationFailed("ordering", fmt.Sprintf("unknown ordering %q", ordering))
	}
	return s.activities.ListActivities(ctx, repository.ActivityFilter{
		UserID:      userID,
		Ordering:    ordering,
		ListOptions: opts,
	})
}

// Recent returns the caller's activities logged in the last RecentWindow.
func (s *ActivityService) Recent(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Activity, error) {
	now := s.now()
	since := now.Add(-RecentWindow)
	return s.activities.ListActivities(ctx, repository.ActivityFilter{
		UserID:      userID,
		Since:       &since,
		Until:       &now,
		ListOptions: opts,
	})
}

// Get returns one of the caller's activities.
func (s *ActivityService) Get(ctx context.Context, userID, id string) (*model.Activity, error) {
	a, err := s.activities.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, apperror.NotFound("activity", id)
	}
	return a, nil
}

// ActivityUpdate carries the editable fields; nil leaves a field unchanged.
// The amount and type cannot change because points are fixed at recording.
type ActivityUpdate struct {
	Description    *string
	CaloriesBurned *int
	LoggedAt       *time.Time
}

func (s *ActivityService) Update(ctx context.Context, userID, id string, u ActivityUpdate) (*model.Activity, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if u.Description != nil {
		if a.Description, err = checkDescription(*u.Description); err != nil {
			return nil, err
		}
	}
	if u.CaloriesBurned != nil {
		if *u.CaloriesBurned < 0 {
			return nil, apperror.ValidationFailed("calories_burned", "calories_burned must not be negative")
		}
		a.CaloriesBurned = *u.CaloriesBurned
	}
	if u.LoggedAt != nil {
		a.LoggedAt = *u.LoggedAt
	}

	if err := s.activities.UpdateActivity(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("activity updated", slog.String("id", id))
	return a, nil
}

// Delete removes one of the caller's activities. Points already added to
// the profile stay there.
func (s *ActivityService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.activities.DeleteActivity(ctx, id); err != nil {
		return err
	}
	s.logger.Info("activity deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

// Stats aggregates all of the caller's activities.
func (s *ActivityService) Stats(ctx context.Context, userID string) (*model.ActivityStats, error) {
	return s.activities.ActivityStats(ctx, userID)
}
