package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Pinger reports whether storage is reachable. *sqlite.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RootHandler serves the API root and the health check.
type RootHandler struct {
	baseURL string
	db      Pinger
	logger  *slog.Logger
}

// NewRootHandler creates a RootHandler. baseURL prefixes the endpoint links
// (PUBLIC_BASE_URL).
func NewRootHandler(baseURL string, db Pinger, logger *slog.Logger) *RootHandler {
	return &RootHandler{
		baseURL: strings.TrimRight(baseURL, "/"),
		db:      db,
		logger:  logger,
	}
}

type rootResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleRoot lists the top-level collections.
//
// HTTP: GET / and GET /api/
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{}
	for _, name := range []string{"profiles", "activity-types", "activities", "teams", "leaderboard", "achievements", "challenges"} {
		endpoints[name] = h.baseURL + "/api/" + name + "/"
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Message:   "Welcome to OctoFit Tracker API",
		Endpoints: endpoints,
	})
}

// HandleHealth: GET /healthz
//
// 200 {"status":"ok"} when the database answers within two seconds,
// otherwise 503.
func (h *RootHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
