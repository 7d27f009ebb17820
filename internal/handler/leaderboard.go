package handler

import (
	"net/http"

	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/service"
)

// LeaderboardHandler serves the materialized snapshots at /api/leaderboard/.
// Every route is public.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	pageSize    int
}

// NewLeaderboardHandler creates a LeaderboardHandler. pageSize is the
// default limit of the /individual/ and /teams/ views.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService, pageSize int) *LeaderboardHandler {
	if pageSize <= 0 {
		pageSize = service.LeaderboardTopSize
	}
	return &LeaderboardHandler{leaderboard: leaderboard, pageSize: pageSize}
}

// HandleList: GET /api/leaderboard/?type=individual&period=weekly
//
// Both parameters are optional; an unknown value is a 400.
func (h *LeaderboardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lt, period, err := service.ParseLeaderboard(q.Get("type"), q.Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.query(w, r, lt, period, 0)
}

// HandleIndividual: GET /api/leaderboard/individual/?period=
func (h *LeaderboardHandler) HandleIndividual(w http.ResponseWriter, r *http.Request) {
	h.fixedType(w, r, model.LeaderboardIndividual)
}

// HandleTeams: GET /api/leaderboard/teams/?period=
func (h *LeaderboardHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	h.fixedType(w, r, model.LeaderboardTeam)
}

func (h *LeaderboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.leaderboard.Get(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *LeaderboardHandler) fixedType(w http.ResponseWriter, r *http.Request, lt model.LeaderboardType) {
	_, period, err := service.ParseLeaderboard(string(lt), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.query(w, r, lt, period, h.pageSize)
}

func (h *LeaderboardHandler) query(w http.ResponseWriter, r *http.Request, lt model.LeaderboardType, period model.Period, defaultLimit int) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if opts.Limit == 0 {
		opts.Limit = defaultLimit
	}

	entries, err := h.leaderboard.Query(r.Context(), lt, period, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
