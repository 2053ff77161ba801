package handlers

import (
	"context"
	"encoding/json"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"naval-combat-server/models"
	"naval-combat-server/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testToken = "gw-secret"

type testServer struct {
	app   *fiber.App
	games *services.GameService
	store *services.GormMatchStore
	addr  string
}

func newTestServer(t *testing.T) *testServer {
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
	sqlDB.SetMaxOpenConns(1)

	store := services.NewGormMatchStore(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, p := range []models.Player{
		{ID: "p1", Login: "alice"},
		{ID: "p2", Login: "bob"},
		{ID: "p3", Login: "mallory"},
	} {
		if err := store.UpsertPlayer(context.Background(), p); err != nil {
			t.Fatalf("seed players: %v", err)
		}
	}

	games := services.NewGameService(store, services.NewRegistry(), rand.New(rand.NewSource(1)))
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	SetupGameRoutes(context.Background(), app, games, services.NewOrchestrator(games), testToken)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = sqlDB.Close()
	})

	return &testServer{app: app, games: games, store: store, addr: ln.Addr().String()}
}

func (s *testServer) createGame(t *testing.T, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/games", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST /games: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) dial(t *testing.T, matchID, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws://" + s.addr + "/games/" + matchID + "/play?player_id=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGamesRequireGatewayToken(t *testing.T) {
	s := newTestServer(t)
	for _, auth := range []string{"", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/games", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := s.app.Test(req)
		if err != nil {
			t.Fatalf("GET /games: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("auth %q: status = %d, want 401", auth, resp.StatusCode)
		}
	}
}

func TestCreateGameValidation(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		body string
		want int
	}{
		{`{"player1":"p1","player2":"p2"}`, http.StatusCreated},
		{`{"player1":"p1","player2":"p1"}`, http.StatusBadRequest},
		{`{"player1":"p1","player2":"ghost"}`, http.StatusNotFound},
		{`{"player1":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if status, out := s.createGame(t, tc.body); status != tc.want {
			t.Fatalf("body %s: status = %d (%v), want %d", tc.body, status, out, tc.want)
		}
	}
}

func TestListActiveGames(t *testing.T) {
	s := newTestServer(t)
	_, created := s.createGame(t, `{"player1":"p1","player2":"p2"}`)

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("Authorization", testToken)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("GET /games: %v", err)
	}
	defer resp.Body.Close()

	var games []services.ActiveGame
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(games) != 1 || games[0].ID != created["id"] || games[0].Phase != string(models.PhaseWaiting) {
		t.Fatalf("unexpected listing %+v", games)
	}
	if len(games[0].Desk.Player1) != models.BoardSize {
		t.Fatalf("desk missing from listing")
	}
}

func TestPlayRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/games/x/play?player_id=p1", nil))
	if err != nil {
		t.Fatalf("GET play: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("status = %d, want 426", resp.StatusCode)
	}
}

func TestPlayOverWebsocket(t *testing.T) {
	s := newTestServer(t)
	_, created := s.createGame(t, `{"player1":"p1","player2":"p2"}`)
	matchID := created["id"].(string)
	turn := created["current_turn"].(string)

	c1 := s.dial(t, matchID, "p1")
	info := readFrame(t, c1)
	if info["type"] != services.TypeGameInfo || info["player1"] != "alice" || info["turn"] != turn {
		t.Fatalf("unexpected snapshot %v", info)
	}
	c2 := s.dial(t, matchID, "p2")
	readFrame(t, c2)

	if err := c1.WriteJSON(map[string]any{"type": "start_game"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, c := range []*websocket.Conn{c1, c2} {
		if msg := readFrame(t, c); msg["type"] != services.TypeStartGameTrue {
			t.Fatalf("expected start_game_true, got %v", msg)
		}
	}

	shooter := c1
	if turn == "p2" {
		shooter = c2
	}
	if err := shooter.WriteJSON(map[string]any{"type": "move", "col": 0, "row": 0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, c := range []*websocket.Conn{c1, c2} {
		if msg := readFrame(t, c); msg["type"] != services.TypeMoveResult {
			t.Fatalf("expected move_result, got %v", msg)
		}
	}

	_ = c2.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if msg := readFrame(t, c1); msg["type"] != services.TypePlayerDisconnect {
		t.Fatalf("expected player_disconnect, got %v", msg)
	}
}

func TestPlayRejectsStranger(t *testing.T) {
	s := newTestServer(t)
	_, created := s.createGame(t, `{"player1":"p1","player2":"p2"}`)

	conn := s.dial(t, created["id"].(string), "p3")
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}
