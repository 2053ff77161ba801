package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchPhase is the lifecycle state of a match. It is derived from the
// persisted record and the live connection count, never stored.
type MatchPhase string

const (
	PhaseWaiting  MatchPhase = "waiting"  // boards exist, fewer than two connections
	PhaseActive   MatchPhase = "active"   // both players connected
	PhaseFinished MatchPhase = "finished" // ended_at set
)

var (
	ErrInconsistentEnd = errors.New("ended_at and winner_id must be set together")
	ErrTurnNotPlayer   = errors.New("current_turn must name one of the match players")
	ErrWinnerNotPlayer = errors.New("winner_id must name one of the match players")
)

// Match records one two-player game: both hidden fleets, whose turn it is
// and, once finished, who won.
type Match struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Board1      Board      `gorm:"type:text;not null" json:"board1"`
	Board2      Board      `gorm:"type:text;not null" json:"board2"`
	Player1ID   string     `gorm:"index;not null" json:"player1_id"`
	Player2ID   string     `gorm:"index;not null" json:"player2_id"`
	WinnerID    *string    `gorm:"index" json:"winner_id,omitempty"`
	CurrentTurn string     `gorm:"not null" json:"current_turn"`
	EndedAt     *time.Time `gorm:"index" json:"ended_at,omitempty"` // nil = still open

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps the terminal-state invariant intact on every write.
func (m *Match) BeforeSave(tx *gorm.DB) error {
	if (m.EndedAt == nil) != (m.WinnerID == nil) {
		return ErrInconsistentEnd
	}
	if !m.HasPlayer(m.CurrentTurn) {
		return ErrTurnNotPlayer
	}
	if m.WinnerID != nil && !m.HasPlayer(*m.WinnerID) {
		return ErrWinnerNotPlayer
	}
	return nil
}

func (m *Match) Finished() bool {
	return m.EndedAt != nil
}

// Phase resolves the match state given how many sockets are joined to it.
func (m *Match) Phase(connected int) MatchPhase {
	switch {
	case m.Finished():
		return PhaseFinished
	case connected == 2:
		return PhaseActive
	default:
		return PhaseWaiting
	}
}

func (m *Match) HasPlayer(playerID string) bool {
	return playerID != "" && (playerID == m.Player1ID || playerID == m.Player2ID)
}

// Opponent returns the other participant's id.
func (m *Match) Opponent(playerID string) string {
	if playerID == m.Player1ID {
		return m.Player2ID
	}
	return m.Player1ID
}

// TargetBoard returns the board the attacker shoots at: the opponent's.
func (m *Match) TargetBoard(attacker string) Board {
	if attacker == m.Player1ID {
		return m.Board2
	}
	return m.Board1
}

// Finish closes the match in favour of winnerID.
func (m *Match) Finish(winnerID string, at time.Time) {
	m.EndedAt = &at
	m.WinnerID = &winnerID
}
