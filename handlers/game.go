// handlers/game.go
package handlers

import (
	"context"

	"naval-combat-server/middleware"
	"naval-combat-server/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(ctx context.Context, app *fiber.App, gameService *services.GameService, orchestrator *services.Orchestrator, gatewayToken string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 🔐 REST routes — gateway token required
	gatewayAuth := middleware.GatewayAuthMiddleware(gatewayToken)
	app.Post("/games", gatewayAuth, gameService.CreateGame)
	app.Get("/games", gatewayAuth, gameService.GetActiveGames)

	// 🎮 Play socket — identity is checked against the match after the upgrade
	app.Get("/games/:id/play", middleware.PlayerContextMiddleware(), websocket.New(func(c *websocket.Conn) {
		playerID, _ := c.Locals(middleware.PlayerIDLocal).(string)
		orchestrator.Serve(ctx, c, c.Params("id"), playerID)
	}))
}
