package snapshot

import (
	"errors"
	"fmt"
	"time"

	"sco-server/internal/action"
	"sco-server/internal/engine"
	"sco-server/internal/spatial"
	"sco-server/internal/state"
)

const Version = 1

var (
	ErrIncomplete     = errors.New("snapshot is incomplete")
	ErrCatalogChanged = errors.New("snapshot was saved against a different catalog")
)

type Status string

const (
	StatusCreating  Status = "creating"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Meta is the descriptive part of a game, outside the simulation.
type Meta struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Status              Status     `json:"status"`
	MaxPlayers          int        `json:"maxPlayers"`
	TurnIntervalMinutes int        `json:"turnIntervalMinutes"`
	NextTurnAt          *time.Time `json:"nextTurnAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Snapshot is the unit of persistence: one game, complete enough to resume.
type Snapshot struct {
	Version           int                     `json:"version"`
	Game              Meta                    `json:"game"`
	CurrentTurnNumber int                     `json:"currentTurnNumber"`
	Map               *spatial.Map            `json:"map"`
	MapLayout         *spatial.Layout         `json:"mapLayout"`
	Players           []string                `json:"players"`
	State             *state.GameState        `json:"state"`
	Actions           map[string]action.Batch `json:"actions"`
	Log               []engine.LogEntry       `json:"log"`
	CatalogDigest     string                  `json:"catalogDigest"`
}

// New assembles a snapshot from an engine record.
func New(meta Meta, m *spatial.Map, layout *spatial.Layout, players []string, rec engine.Record, catalogDigest string) *Snapshot {
	s := &Snapshot{
		Version:           Version,
		Game:              meta,
		CurrentTurnNumber: rec.Turn,
		Map:               m,
		MapLayout:         layout,
		Players:           append([]string(nil), players...),
		State:             rec.State,
		Actions:           make(map[string]action.Batch, len(rec.Pending)),
		Log:               rec.Log,
		CatalogDigest:     catalogDigest,
	}
	for id, batch := range rec.Pending {
		s.Actions[id] = action.Batch(batch)
	}
	return s
}

// Record extracts what an engine needs to resume.
func (s *Snapshot) Record() engine.Record {
	rec := engine.Record{
		Turn:    s.CurrentTurnNumber,
		State:   s.State,
		Pending: make(map[string][]action.Action, len(s.Actions)),
		Log:     s.Log,
	}
	for id, batch := range s.Actions {
		rec.Pending[id] = []action.Action(batch)
	}
	return rec
}

// Check verifies the snapshot has every field a resumed game relies on and
// matches the catalog the server runs with.
func (s *Snapshot) Check(catalogDigest string) error {
	switch {
	case s.Game.ID == "":
		return fmt.Errorf("%w: missing game id", ErrIncomplete)
	case s.Map == nil:
		return fmt.Errorf("%w: missing map", ErrIncomplete)
	case s.State == nil:
		return fmt.Errorf("%w: missing state", ErrIncomplete)
	case len(s.Players) == 0:
		return fmt.Errorf("%w: missing players", ErrIncomplete)
	}
	if s.CatalogDigest != "" && catalogDigest != "" && s.CatalogDigest != catalogDigest {
		return fmt.Errorf("%w: have %s, snapshot %s", ErrCatalogChanged, catalogDigest, s.CatalogDigest)
	}
	return nil
}
