package handlers

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/middleware"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/types"
	"github.com/vcredible/vcredible-api/internal/utils"
	"gorm.io/gorm"
)

// ApplicationHandler handles company application routes
type ApplicationHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Submit handles POST /api/form/applications/create
// @Summary Submit a company application
// @Description Validate and persist a new application with its initial status history
// @Tags Applications
// @Accept json
// @Produce json
// @Param body body services.ApplicationInput true "Application form payload"
// @Success 201 {object} models.CompanyApplication
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /form/applications/create [post]
func (h *ApplicationHandler) Submit(c *fiber.Ctx) error {
	var input services.ApplicationInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
	}

	actor := middleware.Principal(c)
	application, err := services.SubmitApplication(h.DB, actor, input)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "submitApplication")
	}

	return utils.SuccessResponse(c, application, fiber.StatusCreated)
}

// Update handles PUT /api/form/applications/:id/update
// @Summary Update an application
// @Description Patch an owned application still in an editable status
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param body body services.ApplicationUpdateInput true "Partial application patch"
// @Success 200 {object} models.CompanyApplication
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /form/applications/{id}/update [put]
func (h *ApplicationHandler) Update(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}

	var patch services.ApplicationUpdateInput
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
	}

	application, err := services.UpdateApplication(h.DB, id, actor, patch)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "updateApplication")
	}

	return utils.SuccessResponse(c, application, fiber.StatusOK)
}

// List handles GET /api/form/applications
// @Summary List applications
// @Description List the caller's applications, newest first
// @Tags Applications
// @Produce json
// @Success 200 {array} models.CompanyApplication
// @Security BearerAuth
// @Router /form/applications [get]
func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	applications, err := services.ListApplications(h.DB, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "listApplications")
	}

	return utils.SuccessResponse(c, applications, fiber.StatusOK)
}

// Get handles GET /api/form/applications/:id
// @Summary Get one application
// @Description Fetch an owned application with documents and status history
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} models.CompanyApplication
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /form/applications/{id} [get]
func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}

	application, err := services.GetApplication(h.DB, id, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "getApplication")
	}

	return utils.SuccessResponse(c, application, fiber.StatusOK)
}

// Status handles GET /api/form/applications/:id/status
// @Summary Check application status
// @Description Report the current status of an owned application and whether it can still be edited
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} services.StatusCheckResult
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /form/applications/{id}/status [get]
func (h *ApplicationHandler) Status(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}

	result, err := services.ApplicationStatus(h.DB, id, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "applicationStatus")
	}

	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// Summary handles GET /api/form/applications/summary
// @Summary Application summary
// @Description Per-status counts plus the five most recent applications
// @Tags Applications
// @Produce json
// @Success 200 {object} services.SummaryResult
// @Security BearerAuth
// @Router /form/applications/summary [get]
func (h *ApplicationHandler) Summary(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	result, err := services.ApplicationSummary(h.DB, actor)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "applicationSummary")
	}

	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// attachDocumentsRequest carries pre-uploaded file references. The documents
// field accepts a single object or an array.
type attachDocumentsRequest struct {
	ApplicationID types.FlexUint64                       `json:"application_id"`
	Documents     types.FlexList[services.DocumentInput] `json:"documents"`
}

// UploadDocuments handles POST /api/form/applications/documents/upload
// @Summary Upload application documents
// @Description Store one or more document files against an owned application. Accepts multipart file uploads or a JSON body of stored file references.
// @Tags Applications
// @Accept mpfd
// @Accept json
// @Produce json
// @Param application_id formData int true "Application ID"
// @Param document_type formData string true "Document type"
// @Param files formData file true "Document files"
// @Success 201 {array} models.ApplicationDocument
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /form/applications/documents/upload [post]
func (h *ApplicationHandler) UploadDocuments(c *fiber.Ctx) error {
	actor := principal(c)
	if actor == nil {
		return nil
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req attachDocumentsRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "request.body")
		}
		if req.ApplicationID == 0 {
			return utils.DomainErrorResponse(c,
				types.NewValidationError("application_id", "Application ID is required."), "uploadDocuments")
		}
		if len(req.Documents) == 0 {
			return utils.DomainErrorResponse(c,
				types.NewValidationError("documents", "At least one document is required."), "uploadDocuments")
		}
		created, err := services.AttachDocuments(h.DB, uint64(req.ApplicationID), actor, req.Documents.Slice())
		if err != nil {
			return utils.DomainErrorResponse(c, err, "uploadDocuments")
		}
		return utils.SuccessResponse(c, created, fiber.StatusCreated)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, "Invalid multipart form", fiber.StatusBadRequest, "request.form")
	}

	id, parseErr := strconv.ParseUint(c.FormValue("application_id"), 10, 64)
	if parseErr != nil {
		return utils.DomainErrorResponse(c,
			types.NewValidationError("application_id", "Application ID is required."), "uploadDocuments")
	}

	documentType := c.FormValue("document_type", "other")
	files := form.File["files"]
	if len(files) == 0 {
		return utils.DomainErrorResponse(c,
			types.NewValidationError("files", "At least one file is required."), "uploadDocuments")
	}

	docs := make([]services.DocumentInput, 0, len(files))
	for _, file := range files {
		name := filepath.Base(file.Filename)
		stored := fmt.Sprintf("%d_%s_%s", id, uuid.NewString(), sanitizeFilename(name))
		if err := c.SaveFile(file, filepath.Join(h.Cfg.UploadDir, stored)); err != nil {
			return utils.ErrorResponse(c, "Failed to store file", fiber.StatusInternalServerError, "uploadDocuments")
		}
		docs = append(docs, services.DocumentInput{
			DocumentType: documentType,
			DocumentName: name,
			DocumentFile: stored,
		})
	}

	created, err := services.AttachDocuments(h.DB, id, actor, docs)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "uploadDocuments")
	}

	return utils.SuccessResponse(c, created, fiber.StatusCreated)
}

// sanitizeFilename strips path separators and control characters from an
// uploaded filename before it touches the filesystem.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = fmt.Sprintf("upload_%d", time.Now().Unix())
	}
	return out
}
