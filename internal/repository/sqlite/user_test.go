package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/octofit-tracker/internal/apperror"
	"github.com/sakif/octofit-tracker/internal/model"
	"github.com/sakif/octofit-tracker/internal/repository"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUserWithProfile(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "alice", Email: "alice@example.com", FirstName: "Alice"}
	profile := &model.UserProfile{Bio: "runner", FitnessLevel: model.FitnessAdvanced}

	if err := db.CreateUserWithProfile(context.Background(), user, profile); err != nil {
		t.Fatalf("CreateUserWithProfile() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUserWithProfile() did not set user.ID")
	}
	if profile.UserID != user.ID {
		t.Errorf("profile.UserID = %q, want %q", profile.UserID, user.ID)
	}
	if profile.TotalPoints != 0 {
		t.Errorf("profile.TotalPoints = %d, want 0", profile.TotalPoints)
	}

	stored, err := db.GetProfileByUserID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetProfileByUserID() error = %v", err)
	}
	if stored.FitnessLevel != model.FitnessAdvanced {
		t.Errorf("FitnessLevel = %q, want %q", stored.FitnessLevel, model.FitnessAdvanced)
	}
	if stored.User.Username != "alice" {
		t.Errorf("User.Username = %q, want alice", stored.User.Username)
	}
}

func TestCreateUserWithProfile_DefaultsFitnessLevel(t *testing.T) {
	db := newTestDB(t)

	profile := &model.UserProfile{}
	if err := db.CreateUserWithProfile(context.Background(), &model.User{Username: "bob"}, profile); err != nil {
		t.Fatalf("CreateUserWithProfile() error = %v", err)
	}
	if profile.FitnessLevel != model.FitnessBeginner {
		t.Errorf("FitnessLevel = %q, want beginner", profile.FitnessLevel)
	}
}

func TestCreateUserWithProfile_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	err := db.CreateUserWithProfile(context.Background(),
		&model.User{Username: "alice"}, &model.UserProfile{})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestCreateUserWithProfile_InvalidFitnessLevelRollsBack(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateUserWithProfile(context.Background(),
		&model.User{Username: "carol"}, &model.UserProfile{FitnessLevel: "elite"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	// The user insert must not survive the failed profile insert.
	if _, err := db.GetByUsername(context.Background(), "carol"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByUsername() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByGitHubID(t *testing.T) {
	db := newTestDB(t)

	ghID := int64(778899)
	user := &model.User{Username: "octocat", GitHubID: &ghID}
	if err := db.CreateUserWithProfile(context.Background(), user, &model.UserProfile{}); err != nil {
		t.Fatalf("CreateUserWithProfile() error = %v", err)
	}

	found, err := db.GetByGitHubID(context.Background(), 778899)
	if err != nil {
		t.Fatalf("GetByGitHubID() error = %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("ID = %q, want %q", found.ID, user.ID)
	}
	if found.GitHubID == nil || *found.GitHubID != ghID {
		t.Errorf("GitHubID = %v, want %d", found.GitHubID, ghID)
	}

	if _, err := db.GetByGitHubID(context.Background(), 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByGitHubID(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestUpdateGitHubProfile(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "octocat")

	user.Email = "new@example.com"
	user.AvatarURL = "https://example.com/new.png"
	if err := db.UpdateGitHubProfile(context.Background(), user); err != nil {
		t.Fatalf("UpdateGitHubProfile() error = %v", err)
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Email != "new@example.com" {
		t.Errorf("Email = %q, want new@example.com", found.Email)
	}
	if found.AvatarURL != "https://example.com/new.png" {
		t.Errorf("AvatarURL = %q", found.AvatarURL)
	}
}

func TestListUsers_OrderedByUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "charlie")
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	users, err := db.ListUsers(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("len = %d, want 3", len(users))
	}
	for i, want := range []string{"alice", "bob", "charlie"} {
		if users[i].Username != want {
			t.Errorf("users[%d] = %q, want %q", i, users[i].Username, want)
		}
	}
}

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestListProfiles_OrderedByPoints(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestUser(t, db, "charlie")

	recordTestActivity(t, db, alice.ID, 40, time.Now())
	recordTestActivity(t, db, bob.ID, 75, time.Now())

	profiles, err := db.ListProfiles(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("len = %d, want 3", len(profiles))
	}
	got := []string{profiles[0].User.Username, profiles[1].User.Username, profiles[2].User.Username}
	want := []string{"bob", "alice", "charlie"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order = %v, want %v", got, want)
			break
		}
	}
}

func TestUpdateProfile_KeepsTotalPoints(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	recordTestActivity(t, db, alice.ID, 75, time.Now())

	p, err := db.GetProfileByUserID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetProfileByUserID() error = %v", err)
	}

	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	p.Bio = "updated"
	p.FitnessLevel = model.FitnessIntermediate
	p.DateOfBirth = &dob
	p.TotalPoints = 9999
	if err := db.UpdateProfile(context.Background(), p); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	stored, err := db.GetProfile(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if stored.Bio != "updated" {
		t.Errorf("Bio = %q, want updated", stored.Bio)
	}
	if stored.TotalPoints != 75 {
		t.Errorf("TotalPoints = %d, want 75", stored.TotalPoints)
	}
	if stored.DateOfBirth == nil || !stored.DateOfBirth.Equal(dob) {
		t.Errorf("DateOfBirth = %v, want %v", stored.DateOfBirth, dob)
	}
}

func TestUpdateProfile_InvalidFitnessLevel(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	p, err := db.GetProfileByUserID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetProfileByUserID() error = %v", err)
	}
	p.FitnessLevel = "elite"

	if err := db.UpdateProfile(context.Background(), p); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateProfile() error = %v, want ErrValidation", err)
	}
}
