package middleware

import (
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"
	"storefront-service/pkg"
	"storefront-service/pkg/ctxutil"

	"github.com/gofiber/fiber/v2"
)

// Auth accepts a bearer JWT signed with secretKey and stores the caller's
// id and role in the request locals.
func Auth(secretKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := pkg.GetTokenFromHeaders(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			slog.WarnContext(c.Context(), "[middleware] Auth", "getTokenFromHeaders", err)
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		claims, err := pkg.ParseJwtToken(token, secretKey)
		if err != nil {
			slog.WarnContext(c.Context(), "[middleware] Auth", "parseJwtToken", err)
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		if claims.UID == "" {
			slog.WarnContext(c.Context(), "[middleware] Auth", "userID", "empty")
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		c.Locals(ctxutil.UserIDKey, claims.UID)
		c.Locals(ctxutil.RoleKey, claims.Role)
		return c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if got, _ := c.Locals(ctxutil.RoleKey).(string); got != role {
			slog.WarnContext(c.Context(), "[middleware] RequireRole", "role", got, "required", role)
			return c.Status(fiber.StatusForbidden).JSON(response.Error(domain.ErrForbidden))
		}
		return c.Next()
	}
}
