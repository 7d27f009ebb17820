package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/octofit-tracker/internal/service"
)

// ChallengeHandler serves /api/challenges/. Reads are public; writes,
// join and leave require a token.
type ChallengeHandler struct {
	challenges *service.ChallengeService
	logger     *slog.Logger
}

func NewChallengeHandler(challenges *service.ChallengeService, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, logger: logger}
}

type challengeRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	GoalPoints  *int       `json:"goal_points"`
}

// HandleCreate: POST /api/challenges/
// REQUEST BODY: {"name", "description", "start_date", "end_date", "goal_points"}
// Dates are RFC 3339 timestamps.
func (h *ChallengeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	var in service.ChallengeInput
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		in.EndDate = *req.EndDate
	}
	if req.GoalPoints != nil {
		in.GoalPoints = *req.GoalPoints
	}

	c, err := h.challenges.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleList: GET /api/challenges/?search=
func (h *ChallengeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	challenges, err := h.challenges.List(r.Context(), r.URL.Query().Get("search"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

// HandleActive: GET /api/challenges/active/
func (h *ChallengeHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	challenges, err := h.challenges.Active(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.challenges.Get(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleUpdate: PATCH|PUT /api/challenges/{id}/
func (h *ChallengeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.challenges.Update(r.Context(), idParam(r), service.ChallengeUpdate{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		GoalPoints:  req.GoalPoints,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.challenges.Delete(r.Context(), idParam(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleJoin: POST /api/challenges/{id}/join/
func (h *ChallengeHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.challenges.Join(r.Context(), idParam(r), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleLeave: POST /api/challenges/{id}/leave/
func (h *ChallengeHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.challenges.Leave(r.Context(), idParam(r), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleParticipants: GET /api/challenges/{id}/participants/
//
// Each participant's points inside the challenge window and percent of the
// goal, highest first.
func (h *ChallengeHandler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	progress, err := h.challenges.Participants(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
