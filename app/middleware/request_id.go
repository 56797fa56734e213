package middleware

import (
	"log/slog"

	"storefront-service/pkg/ctxutil"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
)

const (
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLength = 128
)

// RequestIDMiddleware keeps the caller's request id when it is sane and
// mints a new one otherwise. The id is echoed back on the response.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > maxRequestIDLength {
			id, err := uuid.NewV4()
			if err != nil {
				slog.WarnContext(c.Context(), "[middleware] RequestID", "newV4", err)
			}
			reqID = id.String()
		}

		c.Locals(ctxutil.RequestIDKey, reqID)
		c.SetUserContext(ctxutil.WithRequestID(c.UserContext(), reqID))
		c.Set(RequestIDHeader, reqID)
		return c.Next()
	}
}
