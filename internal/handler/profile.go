package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/service"
)

// dateLayout is the wire format of date-only fields such as date_of_birth.
const dateLayout = "2006-01-02"

// ProfileHandler serves /api/profiles/.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleList: GET /api/profiles/
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles, err := h.profiles.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleGet: GET /api/profiles/{id}/
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleMe: GET /api/profiles/me/
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.profiles.Me(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// profileUpdateRequest is the PATCH body. DateOfBirth stays raw so an
// explicit null (clear) can be told apart from an absent field.
type profileUpdateRequest struct {
	Bio            *string             `json:"bio"`
	ProfilePicture *string             `json:"profile_picture"`
	FitnessLevel   *model.FitnessLevel `json:"fitness_level"`
	DateOfBirth    json.RawMessage     `json:"date_of_birth"`
	// TotalPoints is accepted and ignored: the field is read-only.
	TotalPoints *int `json:"total_points"`
}

// HandleUpdateMe: PATCH|PUT /api/profiles/me/
func (h *ProfileHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	update := service.ProfileUpdate{
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
		FitnessLevel:   req.FitnessLevel,
	}
	if len(req.DateOfBirth) > 0 {
		if bytes.Equal(req.DateOfBirth, []byte("null")) {
			update.ClearDateOfBirth = true
		} else {
			var raw string
			if err := json.Unmarshal(req.DateOfBirth, &raw); err != nil {
				writeError(w, apperror.ValidationFailed("date_of_birth", "date_of_birth must be a YYYY-MM-DD string"))
				return
			}
			dob, err := time.Parse(dateLayout, raw)
			if err != nil {
				writeError(w, apperror.ValidationFailed("date_of_birth", "date_of_birth must be a YYYY-MM-DD string"))
				return
			}
			update.DateOfBirth = &dob
		}
	}

	profile, err := h.profiles.UpdateMe(r.Context(), userID, update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleLeaderboard: GET /api/profiles/leaderboard/
//
// The live top-N by total points, as opposed to the materialized
// snapshots under /api/leaderboard/.
func (h *ProfileHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	profiles, err := h.profiles.TopByPoints(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
