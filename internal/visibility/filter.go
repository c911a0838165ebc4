package visibility

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"sco-server/internal/catalog"
	"sco-server/internal/economy"
	"sco-server/internal/spatial"
	"sco-server/internal/state"
)

var ErrUnknownPlayer = errors.New("unknown player")

const DefaultSensorRange = 2

// PublicPlayer is what every player may know about an opponent.
type PublicPlayer struct {
	ID     string             `json:"id"`
	Status state.PlayerStatus `json:"status"`
}

// VisibleState is the projection of a game state one player is allowed to see.
// Entities outside sensor range are absent, not redacted.
type VisibleState struct {
	PlayerID         string                    `json:"playerId"`
	Player           state.Player              `json:"player"`
	Balance          economy.Balance           `json:"balance"`
	Opponents        []PublicPlayer            `json:"opponents"`
	Planets          map[string]state.Planet   `json:"planets"`
	Buildings        map[string]state.Building `json:"buildings"`
	Units            map[string]state.Unit     `json:"units"`
	VisibleLocations []string                  `json:"visibleLocations"`
	Market           state.Market              `json:"marketState"`
}

// Filter projects full states into per-player views. It holds no mutable
// state and may be shared.
type Filter struct {
	catalog     *catalog.Catalog
	sensorRange int
}

func NewFilter(c *catalog.Catalog, sensorRange int) *Filter {
	if sensorRange < 0 {
		sensorRange = 0
	}
	return &Filter{catalog: c, sensorRange: sensorRange}
}

func (f *Filter) SensorRange() int {
	return f.sensorRange
}

// VisibleLocations returns the cells within sensor range of anything the player
// owns, each with its hop distance to the nearest sensor.
func (f *Filter) VisibleLocations(playerID string, s *state.GameState, layout *spatial.Layout) map[string]int {
	sources := s.PlanetsOf(playerID)
	for _, u := range s.UnitsOf(playerID) {
		sources = append(sources, u.LocationID)
	}
	return layout.WithinAny(sources, f.sensorRange)
}

// StateForPlayer builds the player's view. Own holdings are always included in
// full, wherever they are.
func (f *Filter) StateForPlayer(playerID string, s *state.GameState, layout *spatial.Layout) (*VisibleState, error) {
	player, ok := s.Player(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	visible := f.VisibleLocations(playerID, s, layout)
	inRange := func(location string) bool {
		_, ok := visible[location]
		return ok
	}

	v := &VisibleState{
		PlayerID:         playerID,
		Player:           player,
		Balance:          economy.NewCalculator(f.catalog, s).Balance(playerID),
		Opponents:        []PublicPlayer{},
		Planets:          map[string]state.Planet{},
		Buildings:        map[string]state.Building{},
		Units:            map[string]state.Unit{},
		VisibleLocations: make([]string, 0, len(visible)),
		Market:           state.Market{},
	}
	v.Player.Technologies = maps.Clone(player.Technologies)
	v.Player.Production = slices.Clone(player.Production)

	for id := range visible {
		v.VisibleLocations = append(v.VisibleLocations, id)
	}
	slices.Sort(v.VisibleLocations)

	for _, id := range s.PlayerIDs() {
		if id != playerID {
			v.Opponents = append(v.Opponents, PublicPlayer{ID: id, Status: s.Players[id].Status})
		}
	}

	for id, p := range s.Planets {
		if p.OwnedBy(playerID) || inRange(id) {
			v.Planets[id] = p
		}
	}
	for id, b := range s.Buildings {
		if b.PlayerID == playerID || inRange(b.LocationID) {
			v.Buildings[id] = b
		}
	}
	for id, u := range s.Units {
		if u.PlayerID == playerID || inRange(u.LocationID) {
			v.Units[id] = u
		}
	}
	maps.Copy(v.Market, s.Market)
	return v, nil
}
