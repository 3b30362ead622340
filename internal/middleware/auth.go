package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/types"
)

// PrincipalKey is the Locals key under which the resolved identity is stored.
const PrincipalKey = "principal"

// AuthRequired validates the Bearer access token and stores the resolved
// principal in context. Requests without a valid token get 401.
func AuthRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := resolvePrincipal(c, cfg)
		if err != nil {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: err.Error(),
				Type:    "auth.required",
			}
		}
		c.Locals(PrincipalKey, principal)
		return c.Next()
	}
}

// AuthOptional resolves a principal when a valid token is present and lets
// the request through anonymously otherwise. Application submission allows
// unauthenticated callers.
func AuthOptional(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if principal, err := resolvePrincipal(c, cfg); err == nil {
			c.Locals(PrincipalKey, principal)
		}
		return c.Next()
	}
}

// Principal returns the identity stored by the auth middleware, or nil for
// anonymous requests.
func Principal(c *fiber.Ctx) *types.Principal {
	if p, ok := c.Locals(PrincipalKey).(*types.Principal); ok {
		return p
	}
	return nil
}

// resolvePrincipal parses and verifies the Authorization header
func resolvePrincipal(c *fiber.Ctx, cfg *config.Config) (*types.Principal, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, fmt.Errorf("authorization header not found")
	}

	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, fmt.Errorf("authorization header is not a bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid access token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return nil, fmt.Errorf("not an access token")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim")
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return &types.Principal{ID: userID, Email: email, Name: name}, nil
}
