// Package server wires storage, services and handlers into the chi router
// and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	cmd/server opens *sqlite.DB → server.New
//	server.New builds: TokenService, services (over the DB) → handlers → routes
//
// One *sqlite.DB satisfies every repository interface, so each service gets
// the same value typed as the narrow interface it needs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/octofit-tracker/internal/auth"
	"github.com/sakif/octofit-tracker/internal/config"
	"github.com/sakif/octofit-tracker/internal/handler"
	"github.com/sakif/octofit-tracker/internal/middleware"
	"github.com/sakif/octofit-tracker/internal/repository/sqlite"
	"github.com/sakif/octofit-tracker/internal/service"
	"github.com/sakif/octofit-tracker/internal/worker"
)

// requestTimeout bounds every request's context.
const requestTimeout = 30 * time.Second

// Server holds the router and everything it was built from.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlite.DB
	tokens *auth.TokenService

	refresher *worker.Refresher // nil when LEADERBOARD_REFRESH_INTERVAL is 0
}

// New builds a Server over db. The caller keeps ownership of db and closes
// it after Start returns.
func New(cfg *config.Config, db *sqlite.DB, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers middleware and every route.
//
// MIDDLEWARE ORDER:
//  1. RequestID, RealIP
//  2. Logger (sees the request id)
//  3. Recoverer (panics become 500s and are still logged)
//  4. StripSlashes, so "/api/teams/" and "/api/teams" route the same
//  5. Timeout
//
// AUTH:
// Read-only collections use OptionalAuth; everything that acts on behalf of
// a user sits behind RequireAuth.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(chimiddleware.Timeout(requestTimeout))

	// === Services ===
	db := s.db
	authService := service.NewAuthService(db, db, s.tokens, auth.NewPasswordService(), s.logger)
	profileService := service.NewProfileService(db, s.logger)
	typeService := service.NewActivityTypeService(db)
	activityService := service.NewActivityService(db, db, s.logger)
	teamService := service.NewTeamService(db, s.logger)
	leaderboardService := service.NewLeaderboardService(db, db, db, db, s.logger)
	achievementService := service.NewAchievementService(db)
	challengeService := service.NewChallengeService(db, s.logger)

	if s.config.LeaderboardRefresh > 0 {
		s.refresher = worker.NewRefresher(leaderboardService, s.config.LeaderboardRefresh, s.logger)
	}

	// === Handlers ===
	var github handler.GitHubAuthenticator
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	profiles := handler.NewProfileHandler(profileService, s.logger)
	types := handler.NewActivityTypeHandler(typeService)
	activities := handler.NewActivityHandler(activityService, s.logger)
	teams := handler.NewTeamHandler(teamService, s.logger)
	board := handler.NewLeaderboardHandler(leaderboardService, s.config.LeaderboardPageSize)
	achievements := handler.NewAchievementHandler(achievementService)
	challenges := handler.NewChallengeHandler(challengeService, s.logger)
	root := handler.NewRootHandler(s.config.PublicBaseURL, db, s.logger)

	requireAuth := auth.RequireAuth(s.tokens)
	optionalAuth := auth.OptionalAuth(s.tokens)

	r.Get("/", root.HandleRoot)
	r.Get("/healthz", root.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", root.HandleRoot)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/registration", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/user", authHandler.HandleUser)
			if github != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Route("/profiles", func(r chi.Router) {
			r.With(optionalAuth).Get("/", profiles.HandleList)
			r.With(optionalAuth).Get("/leaderboard", profiles.HandleLeaderboard)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", profiles.HandleMe)
				r.Patch("/me", profiles.HandleUpdateMe)
				r.Put("/me", profiles.HandleUpdateMe)
			})
			r.With(optionalAuth).Get("/{id}", profiles.HandleGet)
		})

		r.Route("/activity-types", func(r chi.Router) {
			r.Get("/", types.HandleList)
			r.Get("/{id}", types.HandleGet)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", activities.HandleList)
			r.Post("/", activities.HandleCreate)
			r.Get("/recent", activities.HandleRecent)
			r.Get("/stats", activities.HandleStats)
			r.Get("/{id}", activities.HandleGet)
			r.Patch("/{id}", activities.HandleUpdate)
			r.Put("/{id}", activities.HandleUpdate)
			r.Delete("/{id}", activities.HandleDelete)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", teams.HandleList)
			r.Post("/", teams.HandleCreate)
			r.Get("/{id}", teams.HandleGet)
			r.Patch("/{id}", teams.HandleUpdate)
			r.Put("/{id}", teams.HandleUpdate)
			r.Delete("/{id}", teams.HandleDelete)
			r.Post("/{id}/add_member", teams.HandleAddMember)
			r.Post("/{id}/remove_member", teams.HandleRemoveMember)
			r.Get("/{id}/members", teams.HandleMembers)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", board.HandleList)
			r.Get("/individual", board.HandleIndividual)
			r.Get("/teams", board.HandleTeams)
			r.Get("/{id}", board.HandleGet)
		})

		r.Route("/achievements", func(r chi.Router) {
			r.Get("/", achievements.HandleList)
			r.With(requireAuth).Get("/user_achievements", achievements.HandleMine)
			r.Get("/{id}", achievements.HandleGet)
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", challenges.HandleList)
				r.Get("/active", challenges.HandleActive)
				r.Get("/{id}", challenges.HandleGet)
				r.Get("/{id}/participants", challenges.HandleParticipants)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", challenges.HandleCreate)
				r.Patch("/{id}", challenges.HandleUpdate)
				r.Put("/{id}", challenges.HandleUpdate)
				r.Delete("/{id}", challenges.HandleDelete)
				r.Post("/{id}/join", challenges.HandleJoin)
				r.Post("/{id}/leave", challenges.HandleLeave)
			})
		})
	})
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds. The leaderboard refresher, if enabled, runs for the
// same lifetime.
func (s *Server) Start() error {
	if s.refresher != nil {
		s.refresher.Start()
		defer s.refresher.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.PublicBaseURL),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
