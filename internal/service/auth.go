package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/auth"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

const MaxUsernameLength = 150

// usernamePattern allows letters, digits and @ . + - _.
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// errBadCredentials covers both an unknown username and a wrong password.
var errBadCredentials = apperror.Unauthorized("Unable to log in with provided credentials.")

// AuthService registers users and issues access tokens.
//
//	AuthHandler (HTTP) → AuthService → UserRepository / ProfileRepository
//	                                 ↘ TokenService, PasswordService
type AuthService struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		profiles:  profiles,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the token issued for them.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
	FirstName string
	LastName  string
}

// Register validates the form, creates the user together with an empty
// profile and returns a token for the new account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		return nil, apperror.ValidationFailed("username", "This field is required.")
	case len(username) > MaxUsernameLength:
		return nil, apperror.ValidationFailed("username", "Ensure this field has no more than 150 characters.")
	case !usernamePattern.MatchString(username):
		return nil, apperror.ValidationFailed("username",
			"Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	email := strings.TrimSpace(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "Enter a valid email address.")
	}

	if in.Password1 != in.Password2 {
		return nil, apperror.ValidationFailed("password2", "The two password fields didn't match.")
	}
	hash, err := s.passwords.Hash(in.Password1)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password1", strings.TrimPrefix(err.Error(), "auth: "))
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
	}
	if err := s.profiles.CreateUserWithProfile(ctx, user, &model.UserProfile{}); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("username", "A user with that username already exists.")
		}
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Login checks a username/password pair and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("non_field_errors", "Must include \"username\" and \"password\".")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("failed login", slog.String("username", username))
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the OAuth callback. A GitHub account seen
// for the first time gets a local user and profile; a returning one has its
// email and avatar refreshed.
//
// The GitHub login is used as the username. If a password account already
// holds that name, the GitHub ID is appended ("octocat-42").
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
		user.Email = gh.Email
		user.AvatarURL = gh.AvatarURL
		if err := s.users.UpdateGitHubProfile(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: refreshing GitHub user %d: %w", gh.ID, err)
		}
		s.logger.Info("user authenticated via GitHub",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	first, last := gh.SplitName()
	ghID := gh.ID
	for _, username := range []string{gh.Login, fmt.Sprintf("%s-%d", gh.Login, gh.ID)} {
		user = &model.User{
			Username:  username,
			Email:     gh.Email,
			FirstName: first,
			LastName:  last,
			GitHubID:  &ghID,
			AvatarURL: gh.AvatarURL,
		}
		err = s.profiles.CreateUserWithProfile(ctx, user, &model.UserProfile{ProfilePicture: gh.AvatarURL})
		if !errors.Is(err, apperror.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", gh.ID, err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// CurrentUser returns the user behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("Authentication credentials were not provided.")
	}
	return s.users.GetUserByID(ctx, id)
}

// TokenTTL is how long issued tokens are valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
