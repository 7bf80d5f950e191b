package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// RequireRole lets the request through when the authenticated actor holds one of roles.
// The first matching role becomes the acting user_role. Requests without any role are
// treated as unauthenticated.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		held := heldRoles(c)
		if len(held) == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		for _, role := range held {
			if _, ok := allowed[role]; ok {
				c.Locals("user_role", role)
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
}

func heldRoles(c *fiber.Ctx) []string {
	var held []string
	if roles, ok := c.Locals("user_roles").([]string); ok {
		for _, role := range roles {
			if normalized := normalizeRole(role); normalized != "" {
				held = append(held, normalized)
			}
		}
	}
	if role, ok := c.Locals("user_role").(string); ok {
		if normalized := normalizeRole(role); normalized != "" {
			held = append(held, normalized)
		}
	}
	return held
}
