package services

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"naval-combat-server/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/contrib/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormMatchStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewGormMatchStore(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedPlayers(t *testing.T, store *GormMatchStore) {
	t.Helper()
	for _, p := range []models.Player{
		{ID: "p1", Login: "alice"},
		{ID: "p2", Login: "bob"},
		{ID: "p3", Login: "mallory"},
	} {
		if err := store.UpsertPlayer(context.Background(), p); err != nil {
			t.Fatalf("seed players: %v", err)
		}
	}
}

// boardWith builds an empty board with the given [col,row] cells set.
func boardWith(cells map[[2]int]int) models.Board {
	b := models.NewBoard()
	for c, v := range cells {
		b[c[0]][c[1]] = v
	}
	return b
}

// seedMatch stores a p1-vs-p2 match with the given boards and turn holder.
func seedMatch(t *testing.T, store *GormMatchStore, board1, board2 models.Board, turn string) *models.Match {
	t.Helper()
	m := &models.Match{
		Board1:      board1,
		Board2:      board2,
		Player1ID:   "p1",
		Player2ID:   "p2",
		CurrentTurn: turn,
	}
	if err := store.CreateMatch(context.Background(), m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}

func newTestGameService(t *testing.T) (*GameService, *GormMatchStore) {
	t.Helper()
	store := newTestStore(t)
	seedPlayers(t, store)
	return NewGameService(store, NewRegistry(), rand.New(rand.NewSource(7))), store
}

// fakeConn is an in-memory websocket. Frames pushed with send are returned
// by ReadMessage; closing the inbox simulates the peer going away.
type fakeConn struct {
	inbox   chan []byte
	written chan []byte

	mu        sync.Mutex
	closed    bool
	closeCode int
	writeErr  error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbox:   make(chan []byte, 16),
		written: make(chan []byte, 64),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.inbox
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, data, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if messageType == websocket.CloseMessage {
		if len(data) >= 2 {
			c.closeCode = int(data[0])<<8 | int(data[1])
		}
		return nil
	}
	c.written <- append([]byte(nil), data...)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) send(t *testing.T, frame string) {
	t.Helper()
	c.inbox <- []byte(frame)
}

func (c *fakeConn) hangUp() {
	close(c.inbox)
}

// expect waits for the next written frame and checks its type.
func (c *fakeConn) expect(t *testing.T, wantType string) map[string]any {
	t.Helper()
	select {
	case data := <-c.written:
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("frame is not JSON: %s", data)
		}
		if msg["type"] != wantType {
			t.Fatalf("expected %q frame, got %s", wantType, data)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q frame", wantType)
		return nil
	}
}

func (c *fakeConn) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case data := <-c.written:
		t.Fatalf("expected no frame, got %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}
