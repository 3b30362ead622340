package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/utils"
	"gorm.io/gorm"
)

// DashboardHandler handles dashboard, profile and activity routes
type DashboardHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Overview handles GET /api/dashboard/overview
// @Summary Dashboard overview
// @Description Headline stats, recent active ratings and the activity feed
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.OverviewResult
// @Security BearerAuth
// @Router /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	result, err := services.Overview(h.DB, actor, clientIP(c), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "dashboardOverview")
	}

	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// Profile handles GET /api/dashboard/profile
// @Summary Get profile
// @Description Fetch the caller's profile, creating it on first access
// @Tags Dashboard
// @Produce json
// @Success 200 {object} models.UserProfile
// @Security BearerAuth
// @Router /dashboard/profile [get]
func (h *DashboardHandler) Profile(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	profile, err := services.GetProfile(h.DB, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "getProfile")
	}

	return utils.SuccessResponse(c, profile, fiber.StatusOK)
}

// UpdateProfile handles PUT /api/dashboard/profile
// @Summary Update profile
// @Description Patch the caller's profile preferences
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param body body services.ProfileUpdateInput true "Profile patch"
// @Success 200 {object} models.UserProfile
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /dashboard/profile [put]
func (h *DashboardHandler) UpdateProfile(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	var patch services.ProfileUpdateInput
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
	}

	profile, err := services.UpdateProfile(h.DB, actor, patch, clientIP(c), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "updateProfile")
	}

	return utils.SuccessResponse(c, profile, fiber.StatusOK)
}

// Activities handles GET /api/dashboard/activities
// @Summary Recent activities
// @Description The caller's latest activity rows, newest first
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Maximum rows (default 20, cap 100)"
// @Success 200 {array} models.DashboardActivity
// @Security BearerAuth
// @Router /dashboard/activities [get]
func (h *DashboardHandler) Activities(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	activities, err := services.RecentActivities(h.DB, actor, c.QueryInt("limit"))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "activities")
	}

	return utils.SuccessResponse(c, activities, fiber.StatusOK)
}
