package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/octofit-tracker/internal/repository"
	"github.com/sakif/octofit-tracker/internal/service"
)

// TeamHandler serves /api/teams/.
type TeamHandler struct {
	teams  *service.TeamService
	logger *slog.Logger
}

func NewTeamHandler(teams *service.TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

type teamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type memberRequest struct {
	UserID string `json:"user_id"`
}

// HandleCreate: POST /api/teams/
//
// The caller becomes the creator and first member.
func (h *TeamHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req teamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	var name, description string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}

	team, err := h.teams.Create(r.Context(), userID, name, description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// HandleList: GET /api/teams/?search=&ordering=
func (h *TeamHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	teams, err := h.teams.List(r.Context(), repository.TeamFilter{
		Search:      q.Get("search"),
		Ordering:    q.Get("ordering"),
		ListOptions: opts,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	team, err := h.teams.Get(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleUpdate: PATCH|PUT /api/teams/{id}/ (creator only)
func (h *TeamHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req teamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.teams.Update(r.Context(), userID, idParam(r), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleDelete: DELETE /api/teams/{id}/ (creator only) → 204
func (h *TeamHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.teams.Delete(r.Context(), userID, idParam(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddMember: POST /api/teams/{id}/add_member/ {"user_id": "..."}
//
// Responds with the team after its total has been recalculated.
func (h *TeamHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.teams.AddMember(r.Context(), idParam(r), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleRemoveMember: POST /api/teams/{id}/remove_member/ {"user_id": "..."}
func (h *TeamHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.teams.RemoveMember(r.Context(), idParam(r), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleMembers: GET /api/teams/{id}/members/
func (h *TeamHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.teams.Members(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}
