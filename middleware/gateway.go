// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware guards the match administration routes (creating
// and listing games). Only the platform gateway holds GAME_SERVICE_TOKEN;
// players never call these routes directly.
func GatewayAuthMiddleware(serviceToken string) fiber.Handler {
	want := []byte(serviceToken)

	return func(c *fiber.Ctx) error {
		got, ok := gatewayToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			log.Printf("🚫 [GATEWAY_AUTH] %s %s without service token", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			log.Printf("❌ [GATEWAY_AUTH] %s %s with wrong service token", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}

// gatewayToken accepts "Bearer <token>" or the bare token.
func gatewayToken(header string) (string, bool) {
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
