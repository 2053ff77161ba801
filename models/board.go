// models/board.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BoardSize is the edge length of every grid.
const BoardSize = 10

const (
	CellEmpty = 0
	CellShot  = -1 // targeted cell, hit or miss
)

// Board is a BoardSize×BoardSize grid addressed as board[col][row], the
// same axis order the wire protocol uses. Positive values are ship numbers.
type Board [][]int

// NewBoard returns an empty grid.
func NewBoard() Board {
	b := make(Board, BoardSize)
	for i := range b {
		b[i] = make([]int, BoardSize)
	}
	return b
}

// InBounds reports whether (col, row) addresses a cell of the grid.
func InBounds(col, row int) bool {
	return col >= 0 && col < BoardSize && row >= 0 && row < BoardSize
}

// Count returns how many cells hold v.
func (b Board) Count(v int) int {
	n := 0
	for _, line := range b {
		for _, cell := range line {
			if cell == v {
				n++
			}
		}
	}
	return n
}

// Afloat reports whether any ship cell is still unshot.
func (b Board) Afloat() bool {
	for _, line := range b {
		for _, cell := range line {
			if cell > 0 {
				return true
			}
		}
	}
	return false
}

func (b Board) Clone() Board {
	out := make(Board, len(b))
	for i := range b {
		out[i] = append([]int(nil), b[i]...)
	}
	return out
}

// Value stores the grid as a JSON text column.
func (b Board) Value() (driver.Value, error) {
	if b == nil {
		b = NewBoard()
	}
	data, err := json.Marshal([][]int(b))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (b *Board) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*b = nil
		return nil
	default:
		return fmt.Errorf("board: unsupported column type %T", src)
	}

	var grid [][]int
	if err := json.Unmarshal(data, &grid); err != nil {
		return fmt.Errorf("board: decode: %w", err)
	}
	*b = grid
	return nil
}
