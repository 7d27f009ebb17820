package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/octofit-tracker/internal/config"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository/sqlite"
	"github.com/sakif/octofit-tracker/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                8000,
		DBPath:              ":memory:",
		PublicBaseURL:       "http://testserver",
		JWTSecret:           "server-test-secret-0123456789",
		TokenTTL:            time.Hour,
		LogLevel:            "info",
		LeaderboardPageSize: 10,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *sqlite.DB) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv, err := New(cfg, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, db
}

// call sends a JSON request with an optional token and decodes the reply
// into out when out is non-nil.
func call(t *testing.T, ts *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func register(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	var resp struct {
		Key string `json:"key"`
	}
	status := call(t, ts, http.MethodPost, "/api/auth/registration/", "", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"password1": "testpass123",
		"password2": "testpass123",
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, resp.Key)
	return resp.Key
}

func TestRootAndHealth(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/", "/api/", "/api"} {
		var root struct {
			Message   string            `json:"message"`
			Endpoints map[string]string `json:"endpoints"`
		}
		require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, path, "", nil, &root), path)
		assert.Equal(t, "http://testserver/api/teams/", root.Endpoints["teams"])
	}

	var health map[string]string
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/healthz", "", nil, &health))
	assert.Equal(t, "ok", health["status"])
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/activities/"},
		{http.MethodPost, "/api/teams/"},
		{http.MethodGet, "/api/profiles/me/"},
		{http.MethodGet, "/api/auth/user/"},
		{http.MethodGet, "/api/achievements/user_achievements/"},
		{http.MethodPost, "/api/challenges/"},
	} {
		var body map[string]string
		status := call(t, ts, tc.method, tc.path, "", nil, &body)
		assert.Equal(t, http.StatusUnauthorized, status, tc.path)
		assert.Equal(t, "unauthorized", body["error"], tc.path)
	}

	assert.Equal(t, http.StatusUnauthorized, call(t, ts, http.MethodGet, "/api/activities/", "not-a-token", nil, nil))

	// Public reads work without a token.
	for _, path := range []string{"/api/profiles/", "/api/activity-types/", "/api/leaderboard/", "/api/achievements/", "/api/challenges/active/"} {
		assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, path, "", nil, nil), path)
	}
}

func TestGitHubRoutesOnlyWhenConfigured(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())
	assert.Equal(t, http.StatusNotFound, call(t, ts, http.MethodGet, "/api/auth/github/login", "", nil, nil))

	cfg := testConfig()
	cfg.GitHubClientID = "client"
	cfg.GitHubClientSecret = "secret"
	cfg.GitHubCallbackURL = "http://testserver/api/auth/github/callback"
	ts, _ = newTestServer(t, cfg)
	assert.Equal(t, http.StatusTemporaryRedirect, call(t, ts, http.MethodGet, "/api/auth/github/login", "", nil, nil))
}

func TestTrackingFlow(t *testing.T) {
	ts, db := newTestServer(t, testConfig())
	ctx := context.Background()

	running := &model.ActivityType{Name: "Running", BasePointsPerUnit: 15, Unit: model.UnitKilometers}
	require.NoError(t, db.CreateActivityType(ctx, running))

	alice := register(t, ts, "alice")
	bob := register(t, ts, "bob")

	// Trailing slash and bare paths reach the same route.
	var activity model.Activity
	require.Equal(t, http.StatusCreated, call(t, ts, http.MethodPost, "/api/activities/", alice,
		map[string]any{"activity_type": running.ID, "distance_or_duration": 5}, &activity))
	assert.Equal(t, 75, activity.PointsEarned)
	require.Equal(t, http.StatusCreated, call(t, ts, http.MethodPost, "/api/activities", bob,
		map[string]any{"activity_type": running.ID, "distance_or_duration": 2}, nil))

	var me model.UserProfile
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/profiles/me/", alice, nil, &me))
	assert.Equal(t, 75, me.TotalPoints)

	var user struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/auth/user/", bob, nil, &user))

	var team model.Team
	require.Equal(t, http.StatusCreated, call(t, ts, http.MethodPost, "/api/teams/", alice,
		map[string]string{"name": "Runners"}, &team))
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodPost, "/api/teams/"+team.ID+"/add_member/", alice,
		map[string]string{"user_id": user.ID}, &team))
	assert.Equal(t, 105, team.TotalPoints)

	var members []model.TeamMemberStats
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/teams/"+team.ID+"/members", alice, nil, &members))
	assert.Len(t, members, 2)

	leaderboard := service.NewLeaderboardService(db, db, db, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, leaderboard.MaterializeAll(ctx, time.Now().Add(time.Minute)))

	var entries []model.LeaderboardEntry
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/leaderboard/?type=individual&period=all_time", "", nil, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].User.Username)
	assert.Equal(t, 30, entries[1].Points)

	require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/leaderboard/teams/", "", nil, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Runners", entries[0].Team.Name)

	assert.Equal(t, http.StatusBadRequest, call(t, ts, http.MethodGet, "/api/leaderboard/?period=yearly", "", nil, nil))

	// Activities are private to their owner.
	assert.Equal(t, http.StatusNotFound, call(t, ts, http.MethodGet, "/api/activities/"+activity.ID+"/", bob, nil, nil))
	assert.Equal(t, http.StatusNoContent, call(t, ts, http.MethodDelete, "/api/activities/"+activity.ID+"/", alice, nil, nil))
}
