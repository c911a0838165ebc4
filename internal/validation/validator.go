package validation

import (
	"fmt"

	"sco-server/internal/action"
	"sco-server/internal/catalog"
	"sco-server/internal/resource"
	"sco-server/internal/spatial"
	"sco-server/internal/state"
)

// Validator decides whether an action is legal against a state. It never
// mutates its inputs, so one validator may be shared by every read path.
type Validator struct {
	catalog *catalog.Catalog
	world   *spatial.Map
	layout  *spatial.Layout
}

func New(c *catalog.Catalog, world *spatial.Map, layout *spatial.Layout) *Validator {
	return &Validator{catalog: c, world: world, layout: layout}
}

// Validate returns nil when the action is legal, or a *Violation.
func (v *Validator) Validate(a action.Action, s *state.GameState) error {
	if violation := v.check(a, s); violation != nil {
		return violation
	}
	return nil
}

// Safe reports legality as a boolean. The violation is still returned for
// callers that need to log it.
func (v *Validator) Safe(a action.Action, s *state.GameState) (bool, *Violation) {
	violation := v.check(a, s)
	return violation == nil, violation
}

func (v *Validator) check(a action.Action, s *state.GameState) *Violation {
	player, ok := s.Player(a.Player())
	if !ok {
		return &Violation{Kind: UnknownPlayer, PlayerID: a.Player()}
	}
	if !player.Alive() {
		return &Violation{Kind: PlayerDefeated, PlayerID: player.ID}
	}

	switch a := a.(type) {
	case action.Produce:
		return v.checkProduce(a, player, s)
	case action.Move:
		return v.checkMove(a, s)
	case action.Attack:
		return v.checkAttack(a, s)
	default:
		panic(fmt.Sprintf("validation: unhandled action %T", a))
	}
}

func (v *Validator) checkProduce(a action.Produce, player state.Player, s *state.GameState) *Violation {
	item, err := v.catalog.Lookup(a.ItemID)
	if err != nil {
		return &Violation{Kind: UnknownItem, PlayerID: a.PlayerID, ItemID: a.ItemID}
	}

	if item.Kind == catalog.KindTechnology && (player.HasTechnology(item.ID) || queued(player, item.ID, "") > 0) {
		return &Violation{Kind: AlreadyResearched, PlayerID: a.PlayerID, ItemID: item.ID}
	}

	planet, ok := s.Planet(a.LocationID)
	if !ok || !planet.OwnedBy(a.PlayerID) {
		return &Violation{Kind: InvalidLocationOwnership, PlayerID: a.PlayerID, ItemID: item.ID, LocationID: a.LocationID}
	}

	if violation := v.checkRequirements(item, player, a.LocationID, s); violation != nil {
		return violation
	}

	if item.Kind == catalog.KindBuilding {
		if violation := v.checkCaps(item, player, a.LocationID, s); violation != nil {
			return violation
		}
	}

	if !resource.GE(player.Resources, item.Cost) {
		shortfall := resource.Shortfall(player.Resources, item.Cost)
		return &Violation{
			Kind: InsufficientResources, PlayerID: a.PlayerID, ItemID: item.ID,
			LocationID: a.LocationID, Shortfall: &shortfall,
		}
	}
	return nil
}

// Availability checks only technology and building prerequisites. Clients use
// it to filter what can be offered at a location before costs matter.
func (v *Validator) Availability(playerID, itemID, locationID string, s *state.GameState) error {
	item, err := v.catalog.Lookup(itemID)
	if err != nil {
		return &Violation{Kind: UnknownItem, PlayerID: playerID, ItemID: itemID}
	}
	player, ok := s.Player(playerID)
	if !ok {
		return &Violation{Kind: UnknownPlayer, PlayerID: playerID}
	}
	if violation := v.checkRequirements(item, player, locationID, s); violation != nil {
		return violation
	}
	return nil
}

// Available lists the items whose prerequisites are met at a location.
func (v *Validator) Available(playerID, locationID string, s *state.GameState) []catalog.Item {
	player, ok := s.Player(playerID)
	if !ok {
		return nil
	}
	var out []catalog.Item
	for _, item := range v.catalog.Items() {
		if v.checkRequirements(item, player, locationID, s) == nil {
			out = append(out, item)
		}
	}
	return out
}

func (v *Validator) checkRequirements(item catalog.Item, player state.Player, locationID string, s *state.GameState) *Violation {
	var missingTech []string
	for _, tech := range item.TechnologyRequirements {
		if !player.HasTechnology(tech) {
			missingTech = append(missingTech, tech)
		}
	}
	if len(missingTech) > 0 {
		return &Violation{
			Kind: UnmetTechnologyRequirement, PlayerID: player.ID, ItemID: item.ID,
			LocationID: locationID, Missing: missingTech,
		}
	}

	required := item.BuildingRequirements()
	if len(required) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for _, b := range s.BuildingsAt(locationID) {
		if b.PlayerID == player.ID {
			present[b.TypeID] = true
		}
	}
	var missing []string
	for _, typeID := range required {
		if !present[typeID] {
			missing = append(missing, typeID)
		}
	}
	if len(missing) > 0 {
		return &Violation{
			Kind: UnmetBuildingRequirement, PlayerID: player.ID, ItemID: item.ID,
			LocationID: locationID, Missing: missing,
		}
	}
	return nil
}

// checkCaps counts existing buildings plus those already queued, so two queued
// copies cannot slip past a cap of one.
func (v *Validator) checkCaps(item catalog.Item, player state.Player, locationID string, s *state.GameState) *Violation {
	spec := item.Building
	capViolation := func(scope CapScope, limit, count int) *Violation {
		return &Violation{
			Kind: CapExceeded, PlayerID: player.ID, ItemID: item.ID, LocationID: locationID,
			CapScope: scope, Cap: limit, Count: count,
		}
	}

	if spec.MaxPerPlanet != nil {
		count := queued(player, item.ID, locationID)
		for _, b := range s.BuildingsAt(locationID) {
			if b.TypeID == item.ID {
				count++
			}
		}
		if count+1 > *spec.MaxPerPlanet {
			return capViolation(CapPerPlanet, *spec.MaxPerPlanet, count)
		}
	}

	if spec.MaxPerPlayer != nil {
		count := queued(player, item.ID, "")
		for _, b := range s.BuildingsOf(player.ID) {
			if b.TypeID == item.ID {
				count++
			}
		}
		if count+1 > *spec.MaxPerPlayer {
			return capViolation(CapPerPlayer, *spec.MaxPerPlayer, count)
		}
	}

	if spec.MaxPerSystem != nil && v.world != nil {
		system, ok := v.world.SystemOf(locationID)
		if ok {
			inSystem := func(loc string) bool {
				sys, ok := v.world.SystemOf(loc)
				return ok && sys == system
			}
			count := 0
			for _, p := range player.Production {
				if p.ItemID == item.ID && inSystem(p.LocationID) {
					count++
				}
			}
			for _, b := range s.BuildingsOf(player.ID) {
				if b.TypeID == item.ID && inSystem(b.LocationID) {
					count++
				}
			}
			if count+1 > *spec.MaxPerSystem {
				return capViolation(CapPerSystem, *spec.MaxPerSystem, count)
			}
		}
	}
	return nil
}

// queued counts the player's pending production of itemID, at locationID when
// it is non-empty.
func queued(player state.Player, itemID, locationID string) int {
	n := 0
	for _, p := range player.Production {
		if p.ItemID == itemID && (locationID == "" || p.LocationID == locationID) {
			n++
		}
	}
	return n
}

func (v *Validator) checkMove(a action.Move, s *state.GameState) *Violation {
	if v.layout == nil || !v.layout.Has(a.TargetLocationID) {
		return &Violation{Kind: InvalidTarget, PlayerID: a.PlayerID, LocationID: a.TargetLocationID}
	}
	return v.checkUnitsInRange(a.PlayerID, a.UnitIDs, a.TargetLocationID, s)
}

func (v *Validator) checkAttack(a action.Attack, s *state.GameState) *Violation {
	if v.layout == nil || !v.layout.Has(a.TargetLocationID) {
		return &Violation{Kind: InvalidTarget, PlayerID: a.PlayerID, LocationID: a.TargetLocationID}
	}
	if violation := v.checkUnitsInRange(a.PlayerID, a.UnitIDs, a.TargetLocationID, s); violation != nil {
		return violation
	}

	hostile := false
	for _, u := range s.UnitsAt(a.TargetLocationID) {
		if u.PlayerID != a.PlayerID {
			hostile = true
			break
		}
	}
	if p, ok := s.Planet(a.TargetLocationID); ok && p.OwnerPlayerID != "" && !p.OwnedBy(a.PlayerID) {
		hostile = true
	}
	if !hostile {
		return &Violation{Kind: InvalidTarget, PlayerID: a.PlayerID, LocationID: a.TargetLocationID}
	}
	return nil
}

// checkUnitsInRange requires every unit to exist, belong to the player, appear
// once and be within its speed in hops of the target.
func (v *Validator) checkUnitsInRange(playerID string, unitIDs []string, target string, s *state.GameState) *Violation {
	if len(unitIDs) == 0 {
		return &Violation{Kind: UnknownUnit, PlayerID: playerID, LocationID: target}
	}
	seen := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		if seen[id] {
			return &Violation{Kind: DuplicateUnit, PlayerID: playerID, UnitID: id}
		}
		seen[id] = true

		u, ok := s.Units[id]
		if !ok {
			return &Violation{Kind: UnknownUnit, PlayerID: playerID, UnitID: id}
		}
		if u.PlayerID != playerID {
			return &Violation{Kind: NotUnitOwner, PlayerID: playerID, UnitID: id}
		}
		item, err := v.catalog.Lookup(u.TypeID)
		if err != nil || item.Kind != catalog.KindUnit {
			return &Violation{Kind: UnknownItem, PlayerID: playerID, ItemID: u.TypeID, UnitID: id}
		}
		d, ok := v.layout.Distance(u.LocationID, target)
		if !ok || d > item.Unit.Speed {
			return &Violation{Kind: OutOfRange, PlayerID: playerID, UnitID: id, LocationID: target}
		}
	}
	return nil
}
