package handler

import (
	"net/http"

	"github.com/sakif/octofit-tracker/internal/service"
)

// AchievementHandler serves /api/achievements/.
type AchievementHandler struct {
	achievements *service.AchievementService
}

func NewAchievementHandler(achievements *service.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

func (h *AchievementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	achievements, err := h.achievements.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, achievements)
}

func (h *AchievementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.achievements.Get(r.Context(), idParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleMine: GET /api/achievements/user_achievements/ (authenticated)
func (h *AchievementHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	achievements, err := h.achievements.ForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, achievements)
}
