package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vcredible/vcredible-api/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFoundResponse sends a 404 not found response. Resources that exist but
// are not owned by the caller use the same response on purpose.
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// ValidationErrorResponse sends a 400 with per-field messages
func ValidationErrorResponse(c *fiber.Ctx, verr *types.ValidationError) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":    fiber.StatusBadRequest,
		"message":   "Validation failed",
		"ok":        false,
		"fields":    verr.Fields,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      "validation",
	})
}

// ConflictResponse sends a 409 for a duplicate in-flight application
func ConflictResponse(c *fiber.Ctx, cerr *types.ConflictError) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":                  fiber.StatusConflict,
		"message":                 cerr.Message,
		"ok":                      false,
		"existing_application_id": cerr.ExistingApplicationID,
		"timestamp":               time.Now().UTC().Format(time.RFC3339),
		"url":                     c.OriginalURL(),
		"type":                    "conflict",
	})
}

// DomainErrorResponse maps a service-layer error to its HTTP response.
// Unrecognized errors become 500s.
func DomainErrorResponse(c *fiber.Ctx, err error, errorType string) error {
	switch e := err.(type) {
	case *types.ValidationError:
		return ValidationErrorResponse(c, e)
	case *types.ConflictError:
		return ConflictResponse(c, e)
	case *types.NotFoundError:
		return NotFoundResponse(c, e.Error())
	case *types.CustomError:
		return ErrorResponse(c, e.Message, e.Code, e.Type)
	default:
		return ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
	}
}

// GlobalErrorHandler maps errors that escape a handler to the standard
// error envelope. Registered as the Fiber ErrorHandler.
func GlobalErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	switch e := err.(type) {
	case *fiber.Error:
		code = e.Code
		message = e.Message
	case *types.CustomError:
		code = e.Code
		message = e.Message
		errorType = e.Type
	case *types.NotFoundError:
		code = fiber.StatusNotFound
		errorType = "not_found"
	case *types.ConflictError:
		code = fiber.StatusConflict
		errorType = "conflict"
	case *types.ValidationError:
		code = fiber.StatusBadRequest
		errorType = "validation"
	}

	return ErrorResponse(c, message, code, errorType)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Ok        bool              `json:"ok"`
	Timestamp string            `json:"timestamp"`
	URL       string            `json:"url"`
	Type      string            `json:"type,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// MessageResponseStruct defines the schema for simple message responses
type MessageResponseStruct struct {
	Message string `json:"message"`
	Ok      bool   `json:"ok"`
}

// MessageResponse sends a simple success message
func MessageResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"ok":      true,
	})
}
