package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"naval-combat-server/models"
)

// Outbound message types.
const (
	TypeGameInfo         = "game_info"
	TypeMoveFalse        = "move_false"
	TypeMoveResult       = "move_result"
	TypeStartGameTrue    = "start_game_true"
	TypeStartGameFalse   = "start_game_false"
	TypeEndGameTrue      = "end_game_true"
	TypePlayerDisconnect = "player_disconnect"
	TypeError            = "error"
)

// Inbound message types.
const (
	TypeMove      = "move"
	TypeStartGame = "start_game"
	TypeGameOver  = "game_over"
)

var ErrMalformedFrame = errors.New("wrong message format")

// Inbound is a decoded client frame: MoveCommand, StartGameCommand,
// GameOverCommand or UnrecognizedCommand.
type Inbound interface {
	inbound()
}

type MoveCommand struct {
	Col int
	Row int
}

type StartGameCommand struct{}

type GameOverCommand struct{}

// UnrecognizedCommand is a well-formed frame with a type tag the server
// does not handle.
type UnrecognizedCommand struct {
	Type string
}

func (MoveCommand) inbound()         {}
func (StartGameCommand) inbound()    {}
func (GameOverCommand) inbound()     {}
func (UnrecognizedCommand) inbound() {}

// DecodeInbound parses one text frame. Only move frames are checked for
// coordinates; other fields are ignored. Any error wraps ErrMalformedFrame.
func DecodeInbound(data []byte) (Inbound, error) {
	var env struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	switch *env.Type {
	case TypeMove:
		var move struct {
			Col *int `json:"col"`
			Row *int `json:"row"`
		}
		if err := json.Unmarshal(data, &move); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if move.Col == nil || move.Row == nil {
			return nil, fmt.Errorf("%w: move needs col and row", ErrMalformedFrame)
		}
		return MoveCommand{Col: *move.Col, Row: *move.Row}, nil
	case TypeStartGame:
		return StartGameCommand{}, nil
	case TypeGameOver:
		return GameOverCommand{}, nil
	default:
		return UnrecognizedCommand{Type: *env.Type}, nil
	}
}

// GameInfo is the snapshot sent to a player right after connecting.
type GameInfo struct {
	Type    string       `json:"type"`
	Player1 string       `json:"player1"`
	Player2 string       `json:"player2"`
	Turn    string       `json:"turn"`
	Board1  models.Board `json:"board1"`
	Board2  models.Board `json:"board2"`
}

// MoveResult is broadcast after every accepted shot.
type MoveResult struct {
	Type     string `json:"type"`
	Hit      bool   `json:"hit"`
	Kill     bool   `json:"kill"`
	GameOver bool   `json:"game_over"`
}

// Notice is every other server message: a type tag and a human message.
type Notice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newMoveResult(r ShotResult) MoveResult {
	return MoveResult{Type: TypeMoveResult, Hit: r.Hit, Kill: r.Kill, GameOver: r.Victory}
}
