// services/fleet.go
package services

import (
	"log"
	"math/rand"

	"naval-combat-server/models"
)

// FleetSpec lists ship lengths in placement order, longest first. Ship
// numbers are assigned 1..N in this order as ships are committed.
var FleetSpec = []int{4, 3, 3, 2, 2, 2, 1, 1, 1, 1}

// FleetCells is the number of occupied cells on a fully placed board.
const FleetCells = 20

const placementAttempts = 100

// GenerateFleet fills a fresh board with the standard fleet. A ship that
// finds no legal spot within placementAttempts tries is skipped, so the
// returned count may be lower than len(FleetSpec).
func GenerateFleet(rng *rand.Rand) (models.Board, int) {
	board := models.NewBoard()
	placed := 0

	for _, length := range FleetSpec {
		shipNumber := placed + 1
		for attempt := 0; attempt < placementAttempts; attempt++ {
			col := rng.Intn(models.BoardSize)
			row := rng.Intn(models.BoardSize)
			horizontal := rng.Intn(2) == 0

			if !canPlace(board, length, col, row, horizontal) {
				continue
			}
			for _, c := range shipCells(length, col, row, horizontal) {
				board[c[0]][c[1]] = shipNumber
			}
			placed++
			break
		}
	}

	return board, placed
}

// GenerateBoards produces one board per player slot.
func GenerateBoards(rng *rand.Rand) (models.Board, models.Board) {
	board1, placed1 := GenerateFleet(rng)
	board2, placed2 := GenerateFleet(rng)
	if placed1 < len(FleetSpec) || placed2 < len(FleetSpec) {
		log.Printf("[FLEET] ⚠️ Under-filled boards: player1=%d/%d player2=%d/%d ships",
			placed1, len(FleetSpec), placed2, len(FleetSpec))
	}
	return board1, board2
}

// shipCells lists the [col, row] cells a ship would cover. Horizontal
// ships extend along the row index, vertical ones along the column index.
func shipCells(length, col, row int, horizontal bool) [][2]int {
	cells := make([][2]int, 0, length)
	for i := 0; i < length; i++ {
		if horizontal {
			cells = append(cells, [2]int{col, row + i})
		} else {
			cells = append(cells, [2]int{col + i, row})
		}
	}
	return cells
}

func canPlace(board models.Board, length, col, row int, horizontal bool) bool {
	cells := shipCells(length, col, row, horizontal)

	target := make(map[[2]int]bool, len(cells))
	for _, c := range cells {
		if !models.InBounds(c[0], c[1]) || board[c[0]][c[1]] != models.CellEmpty {
			return false
		}
		target[c] = true
	}

	// one-cell buffer, diagonals included
	for _, c := range cells {
		for dc := -1; dc <= 1; dc++ {
			for dr := -1; dr <= 1; dr++ {
				nc, nr := c[0]+dc, c[1]+dr
				if !models.InBounds(nc, nr) || target[[2]int{nc, nr}] {
					continue
				}
				if board[nc][nr] != models.CellEmpty {
					return false
				}
			}
		}
	}
	return true
}
