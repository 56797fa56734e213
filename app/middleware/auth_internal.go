package middleware

import (
	"crypto/subtle"
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"
	"storefront-service/config"

	"github.com/gofiber/fiber/v2"
)

const AuthInternalHeaderKey = "X-Internal-Auth"

// AuthInternal guards the service-to-service routes with a shared header.
func AuthInternal(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(AuthInternalHeaderKey)
		if authHeader == "" || subtle.ConstantTimeCompare([]byte(authHeader), []byte(cfg.InternalAuthHeader)) != 1 {
			slog.WarnContext(c.Context(), "[middleware] AuthInternal", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrUnauthorized))
		}

		return c.Next()
	}
}
