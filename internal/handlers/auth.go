package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/middleware"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/utils"
	"gorm.io/gorm"
)

// AuthHandler handles account and session routes
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /api/auth/register
// @Summary Register a new account
// @Description Create a user account and return the first token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Registration payload"
// @Success 201 {object} services.AuthResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
	}

	result, err := services.Register(h.DB, h.Cfg, input)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "register")
	}

	return utils.SuccessResponse(c, result, fiber.StatusCreated)
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Verify credentials and return a token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Credentials"
// @Success 200 {object} services.AuthResult
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
	}

	result, err := services.Login(h.DB, h.Cfg, input, clientIP(c), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "login")
	}

	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// Refresh handles POST /api/auth/token/refresh
// @Summary Refresh tokens
// @Description Rotate a refresh token for a new token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body refreshRequest true "Refresh token"
// @Success 200 {object} services.TokenPair
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/token/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return utils.ErrorResponse(c, "Missing refresh token", fiber.StatusBadRequest, "request.body")
	}

	tokens, err := services.Refresh(h.DB, h.Cfg, req.RefreshToken, clientIP(c), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "refresh")
	}

	return utils.SuccessResponse(c, tokens, fiber.StatusOK)
}

// Logout handles POST /api/auth/logout
// @Summary Log out
// @Description Revoke the presented refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body refreshRequest false "Refresh token"
// @Success 200 {object} utils.MessageResponseStruct
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	_ = c.BodyParser(&req)

	actor := middleware.Principal(c)
	if err := services.Logout(h.DB, h.Cfg, req.RefreshToken, actor, clientIP(c), c.Get(fiber.HeaderUserAgent)); err != nil {
		return utils.DomainErrorResponse(c, err, "logout")
	}

	return utils.MessageResponse(c, fiber.StatusOK, "Logged out")
}

// ChangePassword handles POST /api/auth/change-password
// @Summary Change password
// @Description Rotate the password and revoke outstanding refresh tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.ChangePasswordInput true "Password rotation payload"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	var input services.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
	}

	if err := services.ChangePassword(h.DB, actor, input); err != nil {
		return utils.DomainErrorResponse(c, err, "changePassword")
	}

	return utils.MessageResponse(c, fiber.StatusOK, "Password changed")
}

// Me handles GET /api/auth/profile
// @Summary Current account
// @Description Return the authenticated user's account record
// @Tags Auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /auth/profile [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	user, err := services.GetUser(h.DB, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "me")
	}

	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// UpdateMe handles PUT /api/auth/profile
// @Summary Update account
// @Description Patch the authenticated user's identity fields
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.UpdateUserInput true "Identity fields"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	var input services.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
	}

	user, err := services.UpdateUser(h.DB, actor, input)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "updateMe")
	}

	return utils.SuccessResponse(c, user, fiber.StatusOK)
}
