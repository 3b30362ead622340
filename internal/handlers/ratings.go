package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/types"
	"github.com/vcredible/vcredible-api/internal/utils"
	"gorm.io/gorm"
)

// RatingHandler handles credit rating and report routes
type RatingHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// ratingActionRequest accepts the rating id as either a number or a string.
// The id is optional for invoice prints and required for downloads.
type ratingActionRequest struct {
	RatingID *types.FlexUint64 `json:"rating_id"`
}

// List handles GET /api/dashboard/credit-ratings
// @Summary List credit ratings
// @Description Every active rating owned by the caller
// @Tags Ratings
// @Produce json
// @Success 200 {array} services.RatingOutput
// @Security BearerAuth
// @Router /dashboard/credit-ratings [get]
func (h *RatingHandler) List(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	ratings, err := services.ListActiveRatings(h.DB, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "listRatings")
	}

	return utils.SuccessResponse(c, ratings, fiber.StatusOK)
}

// Detail handles GET /api/dashboard/credit-ratings/:id
// @Summary Rating detail
// @Description One owned rating; the view is recorded in the activity feed and access ledger
// @Tags Ratings
// @Produce json
// @Param id path int true "Rating ID"
// @Success 200 {object} services.RatingOutput
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /dashboard/credit-ratings/{id} [get]
func (h *RatingHandler) Detail(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}

	rating, err := services.RatingDetail(h.DB, id, actor, clientIP(c), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "ratingDetail")
	}

	return utils.SuccessResponse(c, rating, fiber.StatusOK)
}

// ActiveReports handles GET /api/dashboard/reports/active
// @Summary Active reports
// @Description Ratings in effect: effective status with an unexpired expiration date
// @Tags Ratings
// @Produce json
// @Success 200 {array} services.RatingOutput
// @Security BearerAuth
// @Router /dashboard/reports/active [get]
func (h *RatingHandler) ActiveReports(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	ratings, err := services.ActiveReports(h.DB, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "activeReports")
	}

	return utils.SuccessResponse(c, ratings, fiber.StatusOK)
}

// History handles GET /api/dashboard/reports/history
// @Summary Report history
// @Description Every rating ever issued to the caller, including deactivated ones
// @Tags Ratings
// @Produce json
// @Success 200 {array} services.RatingOutput
// @Security BearerAuth
// @Router /dashboard/reports/history [get]
func (h *RatingHandler) History(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	ratings, err := services.ReportHistory(h.DB, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "reportHistory")
	}

	return utils.SuccessResponse(c, ratings, fiber.StatusOK)
}

// Download handles POST /api/dashboard/actions/download-report
// @Summary Download a report
// @Description Resolve the stored report file for an owned rating and record the download
// @Tags Ratings
// @Accept json
// @Produce json
// @Param body body ratingActionRequest true "Rating id"
// @Success 200 {object} services.ReportFileResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /dashboard/actions/download-report [post]
func (h *RatingHandler) Download(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	var req ratingActionRequest
	if err := c.BodyParser(&req); err != nil || req.RatingID == nil || req.RatingID.Uint64() == 0 {
		return utils.DomainErrorResponse(c,
			types.NewValidationError("rating_id", "Rating ID is required."), "downloadReport")
	}

	result, err := services.DownloadReport(h.DB, req.RatingID.Uint64(), actor, clientIP(c), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "downloadReport")
	}

	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// PrintInvoice handles POST /api/dashboard/actions/print-invoice
// @Summary Print an invoice
// @Description Record an invoice print, optionally tied to an owned rating
// @Tags Ratings
// @Accept json
// @Produce json
// @Param body body ratingActionRequest false "Optional rating id"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /dashboard/actions/print-invoice [post]
func (h *RatingHandler) PrintInvoice(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	var req ratingActionRequest
	_ = c.BodyParser(&req)

	var ratingID *uint64
	if req.RatingID != nil {
		v := req.RatingID.Uint64()
		if v > 0 {
			ratingID = &v
		}
	}

	if err := services.PrintInvoice(h.DB, ratingID, actor, clientIP(c), c.Get(fiber.HeaderUserAgent)); err != nil {
		return utils.DomainErrorResponse(c, err, "printInvoice")
	}

	return utils.MessageResponse(c, fiber.StatusOK, "Invoice print recorded")
}

// Grades handles GET /api/dashboard/rating-grades
// @Summary Rating grade scale
// @Description The grade scale used on reports, best to worst
// @Tags Ratings
// @Produce json
// @Success 200 {array} services.RatingGrade
// @Router /dashboard/rating-grades [get]
func (h *RatingHandler) Grades(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, services.RatingGrades(), fiber.StatusOK)
}
