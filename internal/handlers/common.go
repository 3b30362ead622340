package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/vcredible/vcredible-api/internal/middleware"
	"github.com/vcredible/vcredible-api/internal/types"
	"github.com/vcredible/vcredible-api/internal/utils"
)

// clientIP prefers the first X-Forwarded-For hop over the socket address so
// activity rows record the real client behind a proxy.
func clientIP(c *fiber.Ctx) string {
	forwarded := c.Get(fiber.HeaderXForwardedFor)
	if forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		first = strings.TrimSpace(first)
		if first != "" {
			return first
		}
	}
	return c.IP()
}

// principal returns the authenticated caller, or writes a 401 and returns
// nil when the request carries no valid principal.
func principal(c *fiber.Ctx) *types.Principal {
	p := middleware.Principal(c)
	if p == nil {
		_ = utils.ErrorResponse(c, "Authentication required", fiber.StatusUnauthorized, "auth.required")
		return nil
	}
	return p
}

// pathID parses a numeric path parameter, writing a 400 on garbage input.
func pathID(c *fiber.Ctx, name string) (uint64, bool) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		_ = utils.ErrorResponse(c, "Invalid "+name+" parameter", fiber.StatusBadRequest, "request.param")
		return 0, false
	}
	return id, true
}
