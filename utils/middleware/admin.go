package middleware

import (
	"context"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

// RoleChecker answers has_role(user_id, role)
type RoleChecker interface {
	HasRole(ctx context.Context, userID uint, role string) (bool, error)
}

// RequireAdmin must run after AuthMiddleware.Required. It asks has_role for
// the admin role on every request; role membership is never read from the
// token.
func RequireAdmin(roles RoleChecker, log *logger.Logger) fiber.Handler {
	return RequireRole(roles, model.RoleAdmin, log)
}

// RequireRole ensures the authenticated user holds role
func RequireRole(roles RoleChecker, role string, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := GetUserID(c)
		if !ok || userID == 0 {
			return response.Unauthorized(c, "Authentication required")
		}

		has, err := roles.HasRole(c.Context(), userID, role)
		if err != nil {
			log.Error("role check failed", "user_id", userID, "role", role, "error", err)
			return response.InternalServerError(c, "Failed to check permissions")
		}
		if !has {
			return response.Forbidden(c, "Admin access required")
		}

		return c.Next()
	}
}
