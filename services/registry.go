// services/registry.go
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Conn is the slice of a websocket connection the game loop needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// writeWait bounds a single frame write, broadcasts included.
const writeWait = 10 * time.Second

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Client is one player's socket bound to a match.
type Client struct {
	ID       string
	PlayerID string

	conn    Conn
	writeMu sync.Mutex
}

func NewClient(playerID string, conn Conn) *Client {
	return &Client{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		conn:     conn,
	}
}

// Send writes one JSON text frame. Safe for concurrent use.
func (c *Client) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if dw, ok := c.conn.(deadlineWriter); ok {
		if err := dw.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type matchConns struct {
	mu      sync.Mutex
	clients []*Client
	removed bool // entry was dropped from the registry map; rejoin via a fresh entry
}

// Registry tracks which clients belong to which match. Each match's client
// list has its own lock; the map lock is only held for lookups.
type Registry struct {
	mu      sync.Mutex
	matches map[string]*matchConns
}

func NewRegistry() *Registry {
	return &Registry{matches: make(map[string]*matchConns)}
}

func (r *Registry) entry(matchID string, create bool) *matchConns {
	r.mu.Lock()
	defer r.mu.Unlock()
	mc := r.matches[matchID]
	if mc == nil && create {
		mc = &matchConns{}
		r.matches[matchID] = mc
	}
	return mc
}

// Join registers client under matchID, creating the entry if absent.
func (r *Registry) Join(matchID string, client *Client) {
	for {
		mc := r.entry(matchID, true)
		mc.mu.Lock()
		if mc.removed {
			// lost a race with the last Leave; the map no longer points here
			mc.mu.Unlock()
			continue
		}
		mc.clients = append(mc.clients, client)
		n := len(mc.clients)
		mc.mu.Unlock()

		log.Printf("[REGISTRY] ➕ player=%s joined match=%s (%d connected)", client.PlayerID, matchID, n)
		return
	}
}

// Leave removes client from matchID. Unknown clients are ignored.
func (r *Registry) Leave(matchID string, client *Client) {
	mc := r.entry(matchID, false)
	if mc == nil {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	idx := -1
	for i, c := range mc.clients {
		if c == client {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	mc.clients = append(mc.clients[:idx], mc.clients[idx+1:]...)
	log.Printf("[REGISTRY] ➖ player=%s left match=%s (%d connected)", client.PlayerID, matchID, len(mc.clients))

	if len(mc.clients) == 0 {
		mc.removed = true
		r.mu.Lock()
		if r.matches[matchID] == mc {
			delete(r.matches, matchID)
		}
		r.mu.Unlock()
	}
}

// Unicast sends payload to exactly one client.
func (r *Registry) Unicast(client *Client, payload any) error {
	return client.Send(payload)
}

// Broadcast sends payload to every client of matchID in join order. A
// failed write to one client is logged and does not stop the others.
func (r *Registry) Broadcast(matchID string, payload any) {
	mc := r.entry(matchID, false)
	if mc == nil {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, c := range mc.clients {
		if err := c.Send(payload); err != nil {
			log.Printf("[REGISTRY] ⚠️ broadcast to player=%s in match=%s failed: %v", c.PlayerID, matchID, err)
		}
	}
}

// Count returns how many clients are joined to matchID.
func (r *Registry) Count(matchID string) int {
	mc := r.entry(matchID, false)
	if mc == nil {
		return 0
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.clients)
}

// Stats reports the number of matches with live sockets and the total
// number of sockets.
func (r *Registry) Stats() (matches, clients int) {
	r.mu.Lock()
	entries := make([]*matchConns, 0, len(r.matches))
	for _, mc := range r.matches {
		entries = append(entries, mc)
	}
	r.mu.Unlock()

	for _, mc := range entries {
		mc.mu.Lock()
		if !mc.removed {
			matches++
			clients += len(mc.clients)
		}
		mc.mu.Unlock()
	}
	return matches, clients
}
