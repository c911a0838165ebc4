package state

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"sco-server/internal/resource"
)

var (
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrUnknownLocation = errors.New("unknown location")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrInsufficient    = errors.New("insufficient resources")
	ErrInvariant       = errors.New("state invariant violated")
)

// Locations answers whether a location id exists on the map.
type Locations interface {
	HasCell(id string) bool
}

// GameState is the complete mutable simulation record of one game.
type GameState struct {
	Players   map[string]Player   `json:"players"`
	Planets   map[string]Planet   `json:"planets"`
	Buildings map[string]Building `json:"buildings"`
	Units     map[string]Unit     `json:"units"`
	Market    Market              `json:"marketState"`

	// NextInstanceID numbers new buildings and units so ids stay deterministic.
	NextInstanceID int64 `json:"nextInstanceId"`
}

// New builds the initial state: every player alive with the starting stock, no
// technologies, and ownership of its origin planet.
func New(playerIDs []string, start resource.Amount, planetCells []string, origins []string) (*GameState, error) {
	if len(origins) != len(playerIDs) {
		return nil, fmt.Errorf("%d origins for %d players", len(origins), len(playerIDs))
	}

	s := &GameState{
		Players:   make(map[string]Player, len(playerIDs)),
		Planets:   make(map[string]Planet, len(planetCells)),
		Buildings: make(map[string]Building),
		Units:     make(map[string]Unit),
		Market:    Market{},
	}

	for _, id := range playerIDs {
		if id == "" {
			return nil, fmt.Errorf("empty player id")
		}
		if _, dup := s.Players[id]; dup {
			return nil, fmt.Errorf("duplicate player %q", id)
		}
		s.Players[id] = Player{
			ID:           id,
			Status:       PlayerStatusAlive,
			Resources:    start,
			Technologies: map[string]bool{},
			Production:   []ProductionStatus{},
		}
	}

	for _, cell := range planetCells {
		s.Planets[cell] = Planet{LocationID: cell}
	}

	for i, cell := range origins {
		p, ok := s.Planets[cell]
		if !ok {
			return nil, fmt.Errorf("origin %q is not a planet: %w", cell, ErrUnknownLocation)
		}
		if p.OwnerPlayerID != "" {
			return nil, fmt.Errorf("origin %q assigned twice", cell)
		}
		p.OwnerPlayerID = playerIDs[i]
		s.Planets[cell] = p
	}

	return s, nil
}

// Clone returns a deep copy. Resolution works on a clone and commits it whole.
func (s *GameState) Clone() *GameState {
	out := &GameState{
		Players:        make(map[string]Player, len(s.Players)),
		Planets:        maps.Clone(s.Planets),
		Buildings:      maps.Clone(s.Buildings),
		Units:          maps.Clone(s.Units),
		Market:         maps.Clone(s.Market),
		NextInstanceID: s.NextInstanceID,
	}
	for id, p := range s.Players {
		p.Technologies = maps.Clone(p.Technologies)
		p.Production = slices.Clone(p.Production)
		out.Players[id] = p
	}
	if out.Planets == nil {
		out.Planets = map[string]Planet{}
	}
	if out.Buildings == nil {
		out.Buildings = map[string]Building{}
	}
	if out.Units == nil {
		out.Units = map[string]Unit{}
	}
	if out.Market == nil {
		out.Market = Market{}
	}
	return out
}

// PlayerIDs returns player ids in ascending order, the resolution order.
func (s *GameState) PlayerIDs() []string {
	ids := slices.Collect(maps.Keys(s.Players))
	slices.Sort(ids)
	return ids
}

func (s *GameState) Player(id string) (Player, bool) {
	p, ok := s.Players[id]
	return p, ok
}

func (s *GameState) Planet(locationID string) (Planet, bool) {
	p, ok := s.Planets[locationID]
	return p, ok
}

// Debit removes cost from a player's stock. It fails without touching the stock
// unless the stock dominates the cost.
func (s *GameState) Debit(playerID string, cost resource.Amount) error {
	p, ok := s.Players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if !resource.GE(p.Resources, cost) {
		return fmt.Errorf("%w: have %v, need %v", ErrInsufficient, p.Resources, cost)
	}
	p.Resources = resource.Subtract(p.Resources, cost)
	s.Players[playerID] = p
	return nil
}

// Credit adds amount to a player's stock.
func (s *GameState) Credit(playerID string, amount resource.Amount) error {
	p, ok := s.Players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	p.Resources = resource.Add(p.Resources, amount)
	s.Players[playerID] = p
	return nil
}

func (s *GameState) GrantTechnology(playerID, techID string) error {
	p, ok := s.Players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if p.Technologies == nil {
		p.Technologies = map[string]bool{}
	}
	p.Technologies[techID] = true
	s.Players[playerID] = p
	return nil
}

func (s *GameState) Enqueue(playerID string, status ProductionStatus) error {
	p, ok := s.Players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	p.Production = append(p.Production, status)
	s.Players[playerID] = p
	return nil
}

func (s *GameState) SetProduction(playerID string, queue []ProductionStatus) error {
	p, ok := s.Players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	p.Production = queue
	s.Players[playerID] = p
	return nil
}

func (s *GameState) SetStatus(playerID string, status PlayerStatus) error {
	p, ok := s.Players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	p.Status = status
	s.Players[playerID] = p
	return nil
}

func (s *GameState) nextID(prefix string) string {
	s.NextInstanceID++
	return prefix + "-" + strconv.FormatInt(s.NextInstanceID, 10)
}

// AddBuilding places a building on a planet. Both the owner and the planet must exist.
func (s *GameState) AddBuilding(typeID, playerID, locationID string) (Building, error) {
	if _, ok := s.Players[playerID]; !ok {
		return Building{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if _, ok := s.Planets[locationID]; !ok {
		return Building{}, fmt.Errorf("%w: %s", ErrUnknownLocation, locationID)
	}
	b := Building{ID: s.nextID("b"), TypeID: typeID, PlayerID: playerID, LocationID: locationID}
	s.Buildings[b.ID] = b
	return b, nil
}

// AddUnit commissions a unit at a planet. Both the owner and the planet must exist.
func (s *GameState) AddUnit(typeID, playerID, locationID string) (Unit, error) {
	if _, ok := s.Players[playerID]; !ok {
		return Unit{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if _, ok := s.Planets[locationID]; !ok {
		return Unit{}, fmt.Errorf("%w: %s", ErrUnknownLocation, locationID)
	}
	u := Unit{ID: s.nextID("u"), TypeID: typeID, PlayerID: playerID, LocationID: locationID}
	s.Units[u.ID] = u
	return u, nil
}

// MoveUnit relocates a unit. The caller checks the destination against the map.
func (s *GameState) MoveUnit(unitID, locationID string) error {
	u, ok := s.Units[unitID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}
	u.LocationID = locationID
	s.Units[unitID] = u
	return nil
}

func (s *GameState) RemoveUnit(unitID string) error {
	if _, ok := s.Units[unitID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}
	delete(s.Units, unitID)
	return nil
}

// CapturePlanet hands a planet and every building on it to playerID.
func (s *GameState) CapturePlanet(locationID, playerID string) error {
	if _, ok := s.Players[playerID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	p, ok := s.Planets[locationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, locationID)
	}
	p.OwnerPlayerID = playerID
	s.Planets[locationID] = p
	for id, b := range s.Buildings {
		if b.LocationID == locationID {
			b.PlayerID = playerID
			s.Buildings[id] = b
		}
	}
	return nil
}

// BuildingsAt returns the buildings on a location ordered by id.
func (s *GameState) BuildingsAt(locationID string) []Building {
	var out []Building
	for _, b := range s.Buildings {
		if b.LocationID == locationID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b Building) int { return compareIDs(a.ID, b.ID) })
	return out
}

// BuildingsOf returns the buildings owned by a player ordered by id.
func (s *GameState) BuildingsOf(playerID string) []Building {
	var out []Building
	for _, b := range s.Buildings {
		if b.PlayerID == playerID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b Building) int { return compareIDs(a.ID, b.ID) })
	return out
}

// UnitsAt returns the units on a location ordered by id.
func (s *GameState) UnitsAt(locationID string) []Unit {
	var out []Unit
	for _, u := range s.Units {
		if u.LocationID == locationID {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b Unit) int { return compareIDs(a.ID, b.ID) })
	return out
}

func (s *GameState) UnitsOf(playerID string) []Unit {
	var out []Unit
	for _, u := range s.Units {
		if u.PlayerID == playerID {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b Unit) int { return compareIDs(a.ID, b.ID) })
	return out
}

// PlanetsOf returns the location ids of the planets a player owns, sorted.
func (s *GameState) PlanetsOf(playerID string) []string {
	var out []string
	for id, p := range s.Planets {
		if p.OwnedBy(playerID) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// compareIDs orders "b-2" before "b-10".
func compareIDs(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Validate checks the state invariants: non-negative stocks, and owner and
// location references that resolve. locations may be nil to skip map checks.
func (s *GameState) Validate(locations Locations) error {
	for id, p := range s.Players {
		if p.ID != id {
			return fmt.Errorf("%w: player key %q holds id %q", ErrInvariant, id, p.ID)
		}
		if !p.Resources.NonNegative() {
			return fmt.Errorf("%w: player %s has negative stock %v", ErrInvariant, id, p.Resources)
		}
	}

	for id, p := range s.Planets {
		if p.LocationID != id {
			return fmt.Errorf("%w: planet key %q holds location %q", ErrInvariant, id, p.LocationID)
		}
		if locations != nil && !locations.HasCell(id) {
			return fmt.Errorf("%w: planet %s is off the map", ErrInvariant, id)
		}
		if p.OwnerPlayerID != "" {
			if _, ok := s.Players[p.OwnerPlayerID]; !ok {
				return fmt.Errorf("%w: planet %s owned by unknown player %s", ErrInvariant, id, p.OwnerPlayerID)
			}
		}
	}

	for id, b := range s.Buildings {
		if _, ok := s.Players[b.PlayerID]; !ok {
			return fmt.Errorf("%w: building %s owned by unknown player %s", ErrInvariant, id, b.PlayerID)
		}
		if _, ok := s.Planets[b.LocationID]; !ok {
			return fmt.Errorf("%w: building %s on unknown planet %s", ErrInvariant, id, b.LocationID)
		}
	}

	for id, u := range s.Units {
		if _, ok := s.Players[u.PlayerID]; !ok {
			return fmt.Errorf("%w: unit %s owned by unknown player %s", ErrInvariant, id, u.PlayerID)
		}
		if locations != nil && !locations.HasCell(u.LocationID) {
			return fmt.Errorf("%w: unit %s at unknown location %s", ErrInvariant, id, u.LocationID)
		}
	}
	return nil
}
