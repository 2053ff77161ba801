// middleware/player_context.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// PlayerIDLocal is the fiber local holding the claimed player identity.
const PlayerIDLocal = "player_id"

// PlayerContextMiddleware only lets websocket upgrades through and records
// the identity the client claims. Whether that identity belongs to the
// match is decided after the handshake, so a stranger gets a policy
// violation close rather than an HTTP error.
func PlayerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		playerID := strings.TrimSpace(c.Query("player_id"))
		if playerID == "" {
			playerID = strings.TrimSpace(c.Get("X-Player-ID"))
		}
		c.Locals(PlayerIDLocal, playerID)

		log.Printf("👤 [PLAYER_CTX] PlayerID=%q | Path: %s", playerID, c.Path())
		return c.Next()
	}
}
