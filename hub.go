package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/akimizu21/percent-app-sample/quiz"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
	sendBuffer     = 8
)

// displayMessage is pushed to display sockets. Game carries the same view
// the polling endpoint returns.
type displayMessage struct {
	Type string    `json:"type"` // "snapshot" or "deleted"
	Game *gameView `json:"game,omitempty"`
}

func (m displayMessage) version() int64 {
	if m.Game == nil {
		return 0
	}
	return m.Game.Version
}

// versionFilter passes each snapshot only if it is newer than every one
// passed before. Other messages always pass.
type versionFilter struct {
	sent int64
}

func (f *versionFilter) pass(msg displayMessage) bool {
	if msg.Game == nil {
		return true
	}
	if msg.version() <= f.sent {
		return false
	}
	f.sent = msg.version()
	return true
}

type Client struct {
	conn *websocket.Conn
	send chan displayMessage
}

// Hub fans snapshots of one game out to its connected displays.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
}

func newHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// broadcastLocked queues msg for every client, dropping any client whose
// buffer is full. The caller holds h.mu.
func (h *Hub) broadcastLocked(msg displayMessage) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) closeLocked() {
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// HubManager holds one hub per game that has displays attached. It is a
// quiz.Notifier, so every committed change reaches the sockets without
// waiting for the next poll.
type HubManager struct {
	mu           sync.Mutex
	hubs         map[string]*Hub
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

func newHubManager(pingInterval time.Duration) *HubManager {
	return &HubManager{
		hubs:         make(map[string]*Hub),
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// register attaches c to the game's hub, creating it if needed.
func (m *HubManager) register(gameID string, c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[gameID]
	if !ok {
		hub = newHub()
		m.hubs[gameID] = hub
	}

	hub.mu.Lock()
	hub.clients[c] = true
	hub.mu.Unlock()
}

// queue hands msg to c alone. It reports false if c has already left the
// game's hub or its buffer is full.
func (m *HubManager) queue(gameID string, c *Client, msg displayMessage) bool {
	m.mu.Lock()
	hub, ok := m.hubs[gameID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	if !hub.clients[c] {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (m *HubManager) unregister(gameID string, c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[gameID]
	if !ok {
		return
	}

	hub.mu.Lock()
	if _, ok := hub.clients[c]; ok {
		delete(hub.clients, c)
		close(c.send)
	}
	empty := len(hub.clients) == 0
	hub.mu.Unlock()

	if empty {
		delete(m.hubs, gameID)
	}
}

func (m *HubManager) GameChanged(_ context.Context, c quiz.Change) {
	m.mu.Lock()
	hub, ok := m.hubs[c.GameID]
	if ok && c.Kind == quiz.ChangeDeleted {
		delete(m.hubs, c.GameID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	if c.Kind == quiz.ChangeDeleted {
		hub.broadcastLocked(displayMessage{Type: "deleted"})
		hub.closeLocked()
		return
	}

	view := newGameView(c.Game)
	hub.broadcastLocked(displayMessage{Type: "snapshot", Game: &view})
}

func (m *HubManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, hub := range m.hubs {
		hub.mu.Lock()
		hub.closeLocked()
		hub.mu.Unlock()
		delete(m.hubs, id)
	}
}

// serveDisplaySocket upgrades a display client to a websocket that receives
// a snapshot immediately and again after every change to the game. The
// client joins the hub before the opening snapshot is read, so no change
// can slip between the two.
func serveDisplaySocket(e *quiz.Engine, m *HubManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()
		gameID := p.ByName("game")

		if _, err := e.Game(r.Context(), gameID); err != nil {
			writeError(w, r, err, "display socket", startTime)
			return
		}

		conn, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("remote", realIP(r)).Msg("upgrade failed")
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan displayMessage, sendBuffer),
		}
		m.register(gameID, client)

		g, err := e.Game(r.Context(), gameID)
		if err != nil {
			log.Debug().Err(err).Str("game", gameID).Msg("opening snapshot failed")
			m.unregister(gameID, client)
			conn.Close()
			return
		}
		view := newGameView(g)
		m.queue(gameID, client, displayMessage{Type: "snapshot", Game: &view})

		log.Debug().Str("game", gameID).Str("remote", realIP(r)).Msg("display connected")

		go client.writePump(m.pingInterval)
		client.readPump(func() { m.unregister(gameID, client) }, m.pingInterval)

		log.Debug().Str("game", gameID).Str("remote", realIP(r)).Msg("display disconnected")
	}
}

// readPump only watches for the peer going away; displays never send
// anything meaningful.
func (c *Client) readPump(done func(), pingInterval time.Duration) {
	defer func() {
		done()
		c.conn.Close()
	}()

	pongWait := 3 * pingInterval
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

// writePump drains c.send, skipping snapshots older than one already sent,
// and pings the peer while idle.
func (c *Client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	var filter versionFilter
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !filter.pass(msg) {
				continue
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
