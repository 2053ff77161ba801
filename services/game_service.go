package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"naval-combat-server/models"
)

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrMatchFinished = errors.New("match already finished")
	ErrOutOfBounds   = errors.New("shot outside the board")
	ErrSamePlayer    = errors.New("a match needs two different players")
)

// ShotResult is everything a shot reveals. It carries no
// coordinates.
type ShotResult struct {
	Hit     bool
	Kill    bool
	Victory bool
}

// Archiver receives matches once they are finished.
type Archiver interface {
	Archive(ctx context.Context, m *models.Match) error
}

// GameService runs the per-match turn state machine on top of a MatchStore.
type GameService struct {
	Store    MatchStore
	Registry *Registry
	Archiver Archiver // optional

	locks *matchLocks
	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

func NewGameService(store MatchStore, registry *Registry, rng *rand.Rand) *GameService {
	return &GameService{
		Store:    store,
		Registry: registry,
		locks:    newMatchLocks(),
		rng:      rng,
		now:      time.Now,
	}
}

// CreateMatch starts a match between two known players with freshly
// generated fleets and a random player holding the first turn.
func (s *GameService) CreateMatch(ctx context.Context, player1, player2 string) (*models.Match, error) {
	if player1 == "" || player2 == "" || player1 == player2 {
		return nil, ErrSamePlayer
	}
	for _, id := range []string{player1, player2} {
		if _, err := s.Store.LoadPlayer(ctx, id); err != nil {
			return nil, err
		}
	}

	s.rngMu.Lock()
	board1, board2 := GenerateBoards(s.rng)
	turn := player1
	if s.rng.Intn(2) == 1 {
		turn = player2
	}
	s.rngMu.Unlock()

	m := &models.Match{
		Board1:      board1,
		Board2:      board2,
		Player1ID:   player1,
		Player2ID:   player2,
		CurrentTurn: turn,
	}
	if err := s.Store.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	log.Printf("[GAME] ✅ Created match %s (%s vs %s, %s starts)", m.ID, player1, player2, turn)
	return m, nil
}

// ApplyShot fires attacker's shot at board[col][row] of the opponent. The
// load, mutation and save happen under the match lock so racing shots from
// both players cannot lose updates.
func (s *GameService) ApplyShot(ctx context.Context, matchID, attacker string, col, row int) (ShotResult, error) {
	unlock := s.locks.lock(matchID)
	defer unlock()

	var res ShotResult
	_, err := s.Store.UpdateMatch(ctx, matchID, func(m *models.Match) (bool, error) {
		if m.Finished() {
			return false, ErrMatchFinished
		}
		if attacker != m.CurrentTurn {
			return false, ErrNotYourTurn
		}
		if !models.InBounds(col, row) {
			return false, ErrOutOfBounds
		}

		res = resolveShot(m.TargetBoard(attacker), col, row)
		if !res.Hit && !res.Victory {
			m.CurrentTurn = m.Opponent(attacker)
		}
		return true, nil
	})
	if err != nil {
		return ShotResult{}, err
	}
	return res, nil
}

// resolveShot marks the cell as shot and reports what was there.
func resolveShot(board models.Board, col, row int) ShotResult {
	cell := board[col][row]
	board[col][row] = models.CellShot

	if cell <= 0 {
		return ShotResult{}
	}
	return ShotResult{
		Hit:     true,
		Kill:    board.Count(cell) == 0,
		Victory: !board.Afloat(),
	}
}

// DeclareFinished ends the match in favour of whoever holds the turn,
// whoever calls it and whatever the boards look like. A match that is
// already finished keeps its recorded winner.
func (s *GameService) DeclareFinished(ctx context.Context, matchID, caller string) (string, error) {
	unlock := s.locks.lock(matchID)
	defer unlock()

	finishedNow := false
	m, err := s.Store.UpdateMatch(ctx, matchID, func(m *models.Match) (bool, error) {
		if m.Finished() {
			return false, nil
		}
		m.Finish(m.CurrentTurn, s.now().UTC())
		finishedNow = true
		return true, nil
	})
	if err != nil {
		return "", err
	}

	if finishedNow {
		log.Printf("[GAME] 🏁 Match %s finished by %s, winner=%s", matchID, caller, *m.WinnerID)
		if s.Archiver != nil {
			go s.archive(m)
		}
	}
	return *m.WinnerID, nil
}

func (s *GameService) archive(m *models.Match) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Archiver.Archive(ctx, m); err != nil {
		log.Printf("[ARCHIVE] ❌ Failed to archive match %s: %v", m.ID, err)
	}
}

// ProbeStart reports whether both players are connected.
func (s *GameService) ProbeStart(matchID string) bool {
	return s.Registry.Count(matchID) == 2
}

func (s *GameService) Phase(ctx context.Context, matchID string) (models.MatchPhase, error) {
	m, err := s.Store.LoadMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	return m.Phase(s.Registry.Count(matchID)), nil
}

func (s *GameService) ActiveMatches(ctx context.Context) ([]models.Match, error) {
	return s.Store.ActiveMatches(ctx)
}

// matchLocks hands out one mutex per match id and forgets it once no
// goroutine holds or waits for it.
type matchLocks struct {
	mu    sync.Mutex
	locks map[string]*matchLock
}

type matchLock struct {
	mu   sync.Mutex
	refs int
}

func newMatchLocks() *matchLocks {
	return &matchLocks{locks: make(map[string]*matchLock)}
}

func (l *matchLocks) lock(matchID string) func() {
	l.mu.Lock()
	ml := l.locks[matchID]
	if ml == nil {
		ml = &matchLock{}
		l.locks[matchID] = ml
	}
	ml.refs++
	l.mu.Unlock()

	ml.mu.Lock()
	return func() {
		ml.mu.Unlock()
		l.mu.Lock()
		ml.refs--
		if ml.refs == 0 {
			delete(l.locks, matchID)
		}
		l.mu.Unlock()
	}
}
