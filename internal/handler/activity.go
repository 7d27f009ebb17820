package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/octofit-tracker/internal/repository"
	"github.com/sakif/octofit-tracker/internal/service"
)

// ActivityTypeHandler serves the read-only catalog at /api/activity-types/.
type ActivityTypeHandler struct {
	types *service.ActivityTypeService
}

func NewActivityTypeHandler(types *service.ActivityTypeService) *ActivityTypeHandler {
	return &ActivityTypeHandler{types: types}
}

func (h *ActivityTypeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	types, err := h.types.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *ActivityTypeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.types.Get(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ActivityHandler serves /api/activities/. Every route requires
// authentication and only ever sees the caller's own activities.
type ActivityHandler struct {
	activities *service.ActivityService
	logger     *slog.Logger
}

func NewActivityHandler(activities *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger}
}

type createActivityRequest struct {
	ActivityType       string     `json:"activity_type"`
	DistanceOrDuration float64    `json:"distance_or_duration"`
	CaloriesBurned     int        `json:"calories_burned"`
	Description        string     `json:"description"`
	LoggedAt           *time.Time `json:"logged_at"`
}

// HandleCreate records an activity and credits its points.
//
// HTTP: POST /api/activities/
// REQUEST BODY: {"activity_type": "<id>", "distance_or_duration": 5, "calories_burned": 400}
// RESPONSE: 201 with the stored activity, points_earned filled in
func (h *ActivityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.activities.Record(r.Context(), userID, service.RecordInput{
		ActivityTypeID:     req.ActivityType,
		DistanceOrDuration: req.DistanceOrDuration,
		CaloriesBurned:     req.CaloriesBurned,
		Description:        req.Description,
		LoggedAt:           req.LoggedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleList: GET /api/activities/?ordering=-points_earned
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ordering := repository.ActivityOrdering(r.URL.Query().Get("ordering"))
	activities, err := h.activities.List(r.Context(), userID, ordering, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// HandleRecent: GET /api/activities/recent/ (last 7 days)
func (h *ActivityHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	activities, err := h.activities.Recent(r.Context(), userID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// HandleStats: GET /api/activities/stats/
func (h *ActivityHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.activities.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ActivityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.activities.Get(r.Context(), userID, idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type updateActivityRequest struct {
	Description    *string    `json:"description"`
	CaloriesBurned *int       `json:"calories_burned"`
	LoggedAt       *time.Time `json:"logged_at"`
}

// HandleUpdate: PATCH /api/activities/{id}/
//
// Only description, calories_burned and logged_at can change.
func (h *ActivityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.activities.Update(r.Context(), userID, idParam(r), service.ActivityUpdate{
		Description:    req.Description,
		CaloriesBurned: req.CaloriesBurned,
		LoggedAt:       req.LoggedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleDelete: DELETE /api/activities/{id}/ → 204
func (h *ActivityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.activities.Delete(r.Context(), userID, idParam(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
