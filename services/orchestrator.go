// services/orchestrator.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/contrib/websocket"
)

// errTransport marks failures of the client's own socket. They end the
// loop like a disconnect: the peer is told the player left.
type errTransport struct{ err error }

func (e errTransport) Error() string { return "transport: " + e.err.Error() }
func (e errTransport) Unwrap() error { return e.err }

// Orchestrator drives one websocket per player: authorize, snapshot, then
// dispatch every inbound frame to the GameService.
type Orchestrator struct {
	Games    *GameService
	Registry *Registry
}

func NewOrchestrator(games *GameService) *Orchestrator {
	return &Orchestrator{Games: games, Registry: games.Registry}
}

// Serve blocks until the connection ends.
func (o *Orchestrator) Serve(ctx context.Context, conn Conn, matchID, playerID string) {
	match, err := o.Games.Store.LoadMatch(ctx, matchID)
	switch {
	case errors.Is(err, ErrMatchNotFound):
		log.Printf("[PLAY] ❌ Rejecting player=%s: unknown match=%s", playerID, matchID)
		closeWith(conn, websocket.ClosePolicyViolation, "unknown game")
		return
	case err != nil:
		log.Printf("[PLAY] ❌ Failed to load match=%s for player=%s: %v", matchID, playerID, err)
		closeWith(conn, websocket.CloseInternalServerErr, "game unavailable")
		return
	}
	if !match.HasPlayer(playerID) {
		log.Printf("[PLAY] ❌ Rejecting player=%s: not a participant of match=%s", playerID, matchID)
		closeWith(conn, websocket.ClosePolicyViolation, "player is not part of this game")
		return
	}

	client := NewClient(playerID, conn)
	o.Registry.Join(matchID, client)

	err = o.run(ctx, client, matchID)
	o.Registry.Leave(matchID, client)

	var te errTransport
	if errors.As(err, &te) {
		log.Printf("[PLAY] 🔌 player=%s disconnected from match=%s: %v", playerID, matchID, te.err)
		o.Registry.Broadcast(matchID, Notice{Type: TypePlayerDisconnect, Message: "Player disconnected"})
		return
	}
	log.Printf("[PLAY] ❌ Loop for player=%s in match=%s ended: %v", playerID, matchID, err)
}

func closeWith(conn Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		log.Printf("[PLAY] ⚠️ Failed to send close frame: %v", err)
	}
	_ = conn.Close()
}

// run only returns with an error: errTransport when the socket failed,
// anything else when the game could not proceed.
func (o *Orchestrator) run(ctx context.Context, client *Client, matchID string) error {
	if err := o.sendSnapshot(ctx, client, matchID); err != nil {
		return err
	}

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return errTransport{err}
		}

		cmd, err := DecodeInbound(data)
		if err != nil {
			if err := o.unicast(client, Notice{Type: TypeError, Message: "Wrong message format"}); err != nil {
				return err
			}
			continue
		}

		switch cmd := cmd.(type) {
		case MoveCommand:
			err = o.handleMove(ctx, client, matchID, cmd)
		case StartGameCommand:
			o.handleStartGame(matchID)
		case GameOverCommand:
			err = o.handleGameOver(ctx, client, matchID)
		case UnrecognizedCommand:
			log.Printf("[PLAY] Ignoring message type %q from player=%s", cmd.Type, client.PlayerID)
		default:
			err = fmt.Errorf("unhandled inbound %T", cmd)
		}
		if err != nil {
			return err
		}
	}
}

func (o *Orchestrator) sendSnapshot(ctx context.Context, client *Client, matchID string) error {
	match, err := o.Games.Store.LoadMatch(ctx, matchID)
	if err != nil {
		return err
	}
	p1, err := o.Games.Store.LoadPlayer(ctx, match.Player1ID)
	if err != nil {
		return err
	}
	p2, err := o.Games.Store.LoadPlayer(ctx, match.Player2ID)
	if err != nil {
		return err
	}

	return o.unicast(client, GameInfo{
		Type:    TypeGameInfo,
		Player1: p1.Login,
		Player2: p2.Login,
		Turn:    match.CurrentTurn,
		Board1:  match.Board1,
		Board2:  match.Board2,
	})
}

func (o *Orchestrator) handleMove(ctx context.Context, client *Client, matchID string, cmd MoveCommand) error {
	res, err := o.Games.ApplyShot(ctx, matchID, client.PlayerID, cmd.Col, cmd.Row)
	switch {
	case errors.Is(err, ErrNotYourTurn):
		return o.unicast(client, Notice{Type: TypeMoveFalse, Message: "Not your turn."})
	case errors.Is(err, ErrMatchFinished):
		return o.unicast(client, Notice{Type: TypeMoveFalse, Message: "Game is already over."})
	case errors.Is(err, ErrOutOfBounds):
		return o.unicast(client, Notice{Type: TypeError, Message: "Shot outside the board."})
	case err != nil:
		return fmt.Errorf("apply shot: %w", err)
	}

	o.Registry.Broadcast(matchID, newMoveResult(res))
	return nil
}

func (o *Orchestrator) handleStartGame(matchID string) {
	if o.Games.ProbeStart(matchID) {
		o.Registry.Broadcast(matchID, Notice{Type: TypeStartGameTrue, Message: "Game start!"})
		return
	}
	o.Registry.Broadcast(matchID, Notice{Type: TypeStartGameFalse, Message: "Wait for second player!"})
}

func (o *Orchestrator) handleGameOver(ctx context.Context, client *Client, matchID string) error {
	winner, err := o.Games.DeclareFinished(ctx, matchID, client.PlayerID)
	if err != nil {
		return fmt.Errorf("declare finished: %w", err)
	}
	o.Registry.Broadcast(matchID, Notice{Type: TypeEndGameTrue, Message: "Game over! Winner: " + winner})
	return nil
}

func (o *Orchestrator) unicast(client *Client, payload any) error {
	if err := o.Registry.Unicast(client, payload); err != nil {
		return errTransport{err}
	}
	return nil
}
