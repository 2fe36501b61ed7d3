// middleware/gateway.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware validates the Bearer token sent by trusted callers
// (the scheduler backend, the gateway). An empty token disables the check.
// Preflight requests always pass so CORS can answer them.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" || c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [SERVICE_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
			})
		}

		// Parse "Bearer <token>"; a raw token is accepted too
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		if token != expectedToken {
			log.Printf("❌ [SERVICE_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}
