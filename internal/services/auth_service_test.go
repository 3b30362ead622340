package services_test

import (
	"testing"
	"time"

	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/types"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

// TestRegisterCreatesUserAndProfile verifies signup provisions the account,
// its profile and a usable token pair
func TestRegisterCreatesUserAndProfile(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()

	result, err := services.Register(db, cfg, services.RegisterInput{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	if result.User.Email != "alice@example.com" {
		t.Errorf("Unexpected email %s", result.User.Email)
	}
	if len(result.User.PasswordHash) == 0 {
		t.Error("Expected a stored password hash")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Error("Expected a full token pair")
	}

	var profileCount int64
	db.Model(&models.UserProfile{}).Where("user_id = ?", result.User.ID).Count(&profileCount)
	if profileCount != 1 {
		t.Errorf("Expected 1 profile, got %d", profileCount)
	}
}

// TestRegisterDuplicateEmail verifies a taken email is a field error
func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()

	input := services.RegisterInput{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
	}
	if _, err := services.Register(db, cfg, input); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	_, err := services.Register(db, cfg, input)
	verr, ok := err.(*types.ValidationError)
	if !ok {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Fields["email"] == "" {
		t.Error("Expected an email field error")
	}
}

// TestLoginRightAndWrongPassword verifies credentials are checked and both
// failure modes look identical
func TestLoginRightAndWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()

	if _, err := services.Register(db, cfg, services.RegisterInput{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
	}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	result, err := services.Login(db, cfg, services.LoginInput{
		Email:    "alice@example.com",
		Password: "hunter22",
	}, "10.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("Failed to log in: %v", err)
	}

	var activityCount int64
	db.Model(&models.DashboardActivity{}).
		Where("user_id = ? AND activity_type = ?", result.User.ID, models.ActivityLogin).
		Count(&activityCount)
	if activityCount != 1 {
		t.Errorf("Expected 1 login activity, got %d", activityCount)
	}

	_, wrongPass := services.Login(db, cfg, services.LoginInput{
		Email:    "alice@example.com",
		Password: "wrong",
	}, "", "")
	_, wrongEmail := services.Login(db, cfg, services.LoginInput{
		Email:    "nobody@example.com",
		Password: "hunter22",
	}, "", "")

	if wrongPass == nil || wrongEmail == nil {
		t.Fatal("Expected both bad logins to fail")
	}
	if wrongPass.Error() != wrongEmail.Error() {
		t.Error("Expected identical errors for bad email and bad password")
	}
}

// TestRefreshRotatesToken verifies rotation invalidates the old refresh
// token
func TestRefreshRotatesToken(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()

	result, err := services.Register(db, cfg, services.RegisterInput{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
	})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	fresh, err := services.Refresh(db, cfg, result.Tokens.RefreshToken, "", "")
	if err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if fresh.AccessToken == "" {
		t.Error("Expected a new access token")
	}

	if _, err := services.Refresh(db, cfg, result.Tokens.RefreshToken, "", ""); err == nil {
		t.Fatal("Expected rotated token to be rejected on replay")
	}
}

// TestRefreshRejectsAccessToken verifies an access token cannot stand in for
// a refresh token
func TestRefreshRejectsAccessToken(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()

	result, err := services.Register(db, cfg, services.RegisterInput{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
	})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	if _, err := services.Refresh(db, cfg, result.Tokens.AccessToken, "", ""); err == nil {
		t.Fatal("Expected access token to be rejected")
	}
}

// TestLogoutRevokesToken verifies logout kills the refresh token and is
// idempotent
func TestLogoutRevokesToken(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()

	result, err := services.Register(db, cfg, services.RegisterInput{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
	})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	actor := &types.Principal{ID: result.User.ID, Email: result.User.Email}
	if err := services.Logout(db, cfg, result.Tokens.RefreshToken, actor, "", ""); err != nil {
		t.Fatalf("Failed to log out: %v", err)
	}

	if _, err := services.Refresh(db, cfg, result.Tokens.RefreshToken, "", ""); err == nil {
		t.Fatal("Expected revoked token to be rejected")
	}

	// Second logout with the same token is a no-op
	if err := services.Logout(db, cfg, result.Tokens.RefreshToken, actor, "", ""); err != nil {
		t.Fatalf("Expected idempotent logout, got %v", err)
	}
}

// TestChangePasswordRevokesSessions verifies a password change requires the
// current password and revokes outstanding refresh tokens
func TestChangePasswordRevokesSessions(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()

	result, err := services.Register(db, cfg, services.RegisterInput{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
	})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	actor := &types.Principal{ID: result.User.ID, Email: result.User.Email}

	err = services.ChangePassword(db, actor, services.ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword",
	})
	if _, ok := err.(*types.ValidationError); !ok {
		t.Fatalf("Expected ValidationError for wrong current password, got %v", err)
	}

	if err := services.ChangePassword(db, actor, services.ChangePasswordInput{
		CurrentPassword: "hunter22",
		NewPassword:     "newpassword",
	}); err != nil {
		t.Fatalf("Failed to change password: %v", err)
	}

	if _, err := services.Refresh(db, cfg, result.Tokens.RefreshToken, "", ""); err == nil {
		t.Fatal("Expected old refresh token to be revoked")
	}

	if _, err := services.Login(db, cfg, services.LoginInput{
		Email:    "alice@example.com",
		Password: "newpassword",
	}, "", ""); err != nil {
		t.Fatalf("Failed to log in with new password: %v", err)
	}
}

// TestUpdateUserPartialPatch verifies nil fields leave the account untouched
func TestUpdateUserPartialPatch(t *testing.T) {
	db := setupTestDB(t)
	user, actor := createTestUser(t, db, "alice@example.com")

	first := "Alicia"
	updated, err := services.UpdateUser(db, actor, services.UpdateUserInput{
		FirstName: &first,
	})
	if err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	var stored models.User
	if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	if stored.FirstName != "Alicia" {
		t.Errorf("Expected first name Alicia, got %q", stored.FirstName)
	}
	if stored.LastName != user.LastName {
		t.Errorf("Expected last name untouched, got %q", stored.LastName)
	}
	if updated.FirstName != "Alicia" {
		t.Errorf("Expected returned record to carry the patch, got %q", updated.FirstName)
	}
}
