package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sco-server/internal/game"
)

func newHub() *Hub {
	return NewHub(func(*http.Request) bool { return true }, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dial(t *testing.T, h *Hub, gameID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, gameID, "alice")
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers(gameID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestPublishReachesSubscribersOfTheGame(t *testing.T) {
	h := newHub()
	conn := dial(t, h, "g-1")

	h.Publish(context.Background(), game.Event{Type: game.EventActionsSubmitted, GameID: "g-2", Turn: 1})
	h.Publish(context.Background(), game.Event{Type: game.EventTurnResolved, GameID: "g-1", Turn: 3})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var got game.Event
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.GameID != "g-1" || got.Type != game.EventTurnResolved || got.Turn != 3 {
		t.Fatalf("event = %+v", got)
	}
}

func TestSubscriberRemovedOnClose(t *testing.T) {
	h := newHub()
	conn := dial(t, h, "g-1")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers("g-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
