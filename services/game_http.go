// services/game_http.go
package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// CreateGameRequest is the body of POST /games.
type CreateGameRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// ActiveGame is one entry of GET /games.
type ActiveGame struct {
	ID          string `json:"id"`
	Player1ID   string `json:"player1_id"`
	Player2ID   string `json:"player2_id"`
	CurrentTurn string `json:"current_turn"`
	Phase       string `json:"phase"`
	Desk        struct {
		Player1 [][]int `json:"player1"`
		Player2 [][]int `json:"player2"`
	} `json:"desk"`
}

// CreateGame creates a match between two mirrored players.
func (s *GameService) CreateGame(c *fiber.Ctx) error {
	var req CreateGameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON",
			"cause": err.Error(),
		})
	}

	m, err := s.CreateMatch(c.UserContext(), req.Player1, req.Player2)
	switch {
	case errors.Is(err, ErrSamePlayer):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrPlayerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("[GAME] ❌ Failed to create match: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create game"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "game created",
		"id":           m.ID,
		"player1_id":   m.Player1ID,
		"player2_id":   m.Player2ID,
		"current_turn": m.CurrentTurn,
	})
}

// GetActiveGames lists open matches together with both boards.
func (s *GameService) GetActiveGames(c *fiber.Ctx) error {
	matches, err := s.ActiveMatches(c.UserContext())
	if err != nil {
		log.Printf("[GAME] ❌ Failed to list active matches: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch games"})
	}

	res := make([]ActiveGame, len(matches))
	for i, m := range matches {
		res[i] = ActiveGame{
			ID:          m.ID,
			Player1ID:   m.Player1ID,
			Player2ID:   m.Player2ID,
			CurrentTurn: m.CurrentTurn,
			Phase:       string(m.Phase(s.Registry.Count(m.ID))),
		}
		res[i].Desk.Player1 = m.Board1
		res[i].Desk.Player2 = m.Board2
	}
	return c.JSON(res)
}
