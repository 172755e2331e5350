package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// RequireAgent ensures an authenticated agent is attached to the request.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Agent == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != RoleAgent {
			return apperrors.NewForbidden("agent role required")
		}
		return c.Next()
	}
}
