package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sco-server/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type client struct {
	gameID   string
	playerID string
	send     chan []byte
}

// Hub fans game events out to websocket subscribers. It implements
// game.Notifier.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func NewHub(checkOrigin func(r *http.Request) bool, logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
		subs:   make(map[string]map[*client]struct{}),
	}
}

// Publish queues the event for every subscriber of its game. Subscribers whose
// buffer is full are dropped; they refetch on reconnect.
func (h *Hub) Publish(_ context.Context, event game.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode event", "component", "realtime_hub", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[event.GameID] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Dropping slow subscriber",
				"component", "realtime_hub", "game_id", c.gameID, "player_id", c.playerID)
			h.removeLocked(c)
		}
	}
}

// Subscribers returns the number of open connections for a game.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[gameID])
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.gameID]
	if !ok {
		set = make(map[*client]struct{})
		h.subs[c.gameID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	set, ok := h.subs[c.gameID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.subs, c.gameID)
	}
}

// Serve upgrades the request and streams the game's events until the client
// goes away. Membership must already be checked.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, gameID, playerID string) {
	logger := h.logger.With("component", "realtime_hub", "game_id", gameID, "player_id", playerID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{gameID: gameID, playerID: playerID, send: make(chan []byte, sendBuffer)}
	h.add(c)
	logger.Debug("Subscriber connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.writeLoop(conn, c, done)
	h.remove(c)
	conn.Close()
	logger.Debug("Subscriber disconnected")
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
