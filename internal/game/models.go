package game

import (
	"time"

	"sco-server/internal/engine"
	"sco-server/internal/resource"
	"sco-server/internal/snapshot"
	"sco-server/internal/spatial"
)

// Game is the public view of a game: metadata, the map and the player list.
type Game struct {
	snapshot.Meta
	CurrentTurn int             `json:"currentTurnNumber"`
	Phase       engine.Phase    `json:"phase"`
	Players     []string        `json:"players"`
	Submitted   []string        `json:"submitted"`
	Map         *spatial.Map    `json:"map"`
	MapLayout   *spatial.Layout `json:"mapLayout"`
}

type CreateRequest struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`

	// Seed fixes map generation; a random one is drawn when nil.
	Seed *int64 `json:"seed,omitempty"`
}

// Settings carries the game rules the service applies to new games.
type Settings struct {
	MinPlayers    int
	MaxPlayers    int
	StartingStock resource.Amount
	TurnInterval  time.Duration
	AutoResolve   bool
}

func DefaultSettings() Settings {
	return Settings{
		MinPlayers:    1,
		MaxPlayers:    8,
		StartingStock: resource.Amount{Gold: 2000, Iron: 300},
		TurnInterval:  24 * time.Hour,
	}
}

type EventType string

const (
	EventActionsSubmitted EventType = "actions_submitted"
	EventTurnResolved     EventType = "turn_resolved"
)

// Event is pushed to connected clients. It never carries state, only enough
// for a client to know it should refetch.
type Event struct {
	Type     EventType `json:"type"`
	GameID   string    `json:"gameId"`
	Turn     int       `json:"turn"`
	PlayerID string    `json:"playerId,omitempty"`
}
