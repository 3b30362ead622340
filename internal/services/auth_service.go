package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/types"
	"github.com/vcredible/vcredible-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
}

// LoginInput is the credentials payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordInput carries a password rotation request.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// TokenPair is an access token plus the refresh token that renews it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResult bundles the authenticated user with their tokens.
type AuthResult struct {
	User   *models.User `json:"user"`
	Tokens *TokenPair   `json:"tokens"`
}

// Register creates a user account, provisions the default profile and signs
// the first token pair.
func Register(db *gorm.DB, cfg *config.Config, input RegisterInput) (*AuthResult, error) {
	if verr := utils.ValidateStruct(input); verr != nil {
		return nil, verr
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, types.NewValidationError("email", "A user with this email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, types.NewValidationError("email", "A user with this email already exists.")
		}
		return nil, err
	}

	if _, err := EnsureProfile(db, user.ID); err != nil {
		return nil, err
	}

	tokens, err := issueTokenPair(db, cfg, &user, "", "")
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// Login verifies credentials and signs a fresh token pair. Wrong email and
// wrong password produce the same error.
func Login(db *gorm.DB, cfg *config.Config, input LoginInput, ip, userAgent string) (*AuthResult, error) {
	if verr := utils.ValidateStruct(input); verr != nil {
		return nil, verr
	}

	var user models.User
	err := db.Where("email = ?", input.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(input.Password)); err != nil {
		return nil, invalidCredentials()
	}

	tokens, err := issueTokenPair(db, cfg, &user, ip, userAgent)
	if err != nil {
		return nil, err
	}

	RecordActivity(db, user.ID, models.ActivityLogin, "Logged in", nil, ip, userAgent)
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token. The presented token must parse, carry
// typ=refresh, and its hash must match a live stored token; the stored token
// is deleted and a new pair issued, so a token replays at most once.
func Refresh(db *gorm.DB, cfg *config.Config, refreshToken, ip, userAgent string) (*TokenPair, error) {
	userID, err := parseRefreshToken(cfg, refreshToken)
	if err != nil {
		return nil, err
	}

	hash := hashToken(refreshToken)
	var stored models.RefreshToken
	err = db.Where("token_hash = ? AND user_id = ? AND revoked = ? AND expires_at > ?",
		hash, userID, false, time.Now().UTC()).
		First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalidToken()
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, invalidToken()
	}

	var tokens *TokenPair
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&stored).Error; err != nil {
			return err
		}
		var txErr error
		tokens, txErr = issueTokenPair(tx, cfg, &user, ip, userAgent)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

// Logout revokes the presented refresh token. A token that is already gone
// is not an error; logout is idempotent.
func Logout(db *gorm.DB, cfg *config.Config, refreshToken string, actor *types.Principal, ip, userAgent string) error {
	if refreshToken != "" {
		hash := hashToken(refreshToken)
		result := db.Model(&models.RefreshToken{}).
			Where("token_hash = ?", hash).
			Update("revoked", true)
		if result.Error != nil {
			return result.Error
		}
	}

	if actor != nil {
		RecordActivity(db, actor.ID, models.ActivityLogout, "Logged out", nil, ip, userAgent)
	}
	return nil
}

// ChangePassword rotates the actor's password after verifying the current
// one, and revokes all outstanding refresh tokens.
func ChangePassword(db *gorm.DB, actor *types.Principal, input ChangePasswordInput) error {
	if verr := utils.ValidateStruct(input); verr != nil {
		return verr
	}

	var user models.User
	if err := db.First(&user, "id = ?", actor.ID).Error; err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(input.CurrentPassword)); err != nil {
		return types.NewValidationError("current_password", "Current password is incorrect.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ?", user.ID).
			Update("revoked", true).Error
	})
}

// UpdateUserInput patches identity fields; nil fields are untouched.
type UpdateUserInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
}

// UpdateUser patches the actor's identity fields.
func UpdateUser(db *gorm.DB, actor *types.Principal, input UpdateUserInput) (*models.User, error) {
	if verr := utils.ValidateStruct(input); verr != nil {
		return nil, verr
	}

	user, err := GetUser(db, actor)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return user, nil
}

// GetUser fetches the actor's account record.
func GetUser(db *gorm.DB, actor *types.Principal) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", actor.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// issueTokenPair signs an access and refresh token for the user and stores
// the refresh token's hash.
func issueTokenPair(db *gorm.DB, cfg *config.Config, user *models.User, ip, userAgent string) (*TokenPair, error) {
	now := time.Now().UTC()

	access, err := signToken(cfg, user, "access", now, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := signToken(cfg, user, "refresh", now, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(cfg.RefreshTokenTTL),
		UserAgent: userAgent,
		IP:        ip,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func signToken(cfg *config.Config, user *models.User, typ string, now time.Time, ttl time.Duration) (string, error) {
	// jti keeps two tokens signed within the same second distinct, so the
	// stored refresh token hashes never collide.
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"name":  user.FullName(),
		"typ":   typ,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// parseRefreshToken validates signature, expiry and token type, returning
// the subject user id.
func parseRefreshToken(cfg *config.Config, tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, invalidToken()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, invalidToken()
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return uuid.Nil, invalidToken()
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		log.Printf("refresh token with malformed subject: %v", err)
		return uuid.Nil, invalidToken()
	}
	return userID, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func invalidCredentials() *types.CustomError {
	return &types.CustomError{Code: 401, Message: "Invalid email or password", Type: "auth.credentials"}
}

func invalidToken() *types.CustomError {
	return &types.CustomError{Code: 401, Message: "Invalid or expired refresh token", Type: "auth.token"}
}
