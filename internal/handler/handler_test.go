package handler

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

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/octofit-tracker/internal/auth"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository/sqlite"
	"github.com/sakif/octofit-tracker/internal/service"
)

// testEnv wires every handler over a fresh in-memory database, the same
// way internal/server does.
type testEnv struct {
	db     *sqlite.DB
	tokens *auth.TokenService

	authSvc     *service.AuthService
	leaderboard *service.LeaderboardService

	auth         *AuthHandler
	profiles     *ProfileHandler
	types        *ActivityTypeHandler
	activities   *ActivityHandler
	teams        *TeamHandler
	board        *LeaderboardHandler
	achievements *AchievementHandler
	challenges   *ChallengeHandler
	root         *RootHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := service.NewAuthService(db, db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	leaderboard := service.NewLeaderboardService(db, db, db, db, logger)

	return &testEnv{
		db:           db,
		tokens:       tokens,
		authSvc:      authSvc,
		leaderboard:  leaderboard,
		auth:         NewAuthHandler(authSvc, nil, logger),
		profiles:     NewProfileHandler(service.NewProfileService(db, logger), logger),
		types:        NewActivityTypeHandler(service.NewActivityTypeService(db)),
		activities:   NewActivityHandler(service.NewActivityService(db, db, logger), logger),
		teams:        NewTeamHandler(service.NewTeamService(db, logger), logger),
		board:        NewLeaderboardHandler(leaderboard, 10),
		achievements: NewAchievementHandler(service.NewAchievementService(db)),
		challenges:   NewChallengeHandler(service.NewChallengeService(db, logger), logger),
		root:         NewRootHandler("http://localhost:8000/", db, logger),
	}
}

// register creates a user through the auth service and returns it.
func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	result, err := e.authSvc.Register(context.Background(), service.RegisterInput{
		Username:  username,
		Email:     username + "@example.com",
		Password1: "testpass123",
		Password2: "testpass123",
	})
	require.NoError(t, err)
	return result.User
}

func (e *testEnv) activityType(t *testing.T, name string, base int, unit model.Unit) *model.ActivityType {
	t.Helper()
	at := &model.ActivityType{Name: name, BasePointsPerUnit: base, Unit: unit}
	require.NoError(t, e.db.CreateActivityType(context.Background(), at))
	return at
}

// request describes one handler call.
type request struct {
	method string
	target string
	body   any
	userID string            // authenticated caller, "" for anonymous
	params map[string]string // chi URL params, e.g. {"id": "..."}
}

// serve runs h directly with chi URL params and the caller injected into
// the context, bypassing routing and the auth middleware.
func serve(t *testing.T, h http.HandlerFunc, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader = http.NoBody
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.target, body)
	r.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range req.params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if req.userID != "" {
		ctx = auth.WithUserID(ctx, req.userID)
	}

	w := httptest.NewRecorder()
	h(w, r.WithContext(ctx))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func id(v string) map[string]string {
	return map[string]string{"id": v}
}
