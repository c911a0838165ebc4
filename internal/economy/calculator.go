package economy

import (
	"sco-server/internal/catalog"
	"sco-server/internal/resource"
	"sco-server/internal/state"
)

// Calculator derives production from a state snapshot. It only reads, so one
// calculator may serve many goroutines.
//
// Planet resource affinity is deliberately not applied: no multiplier formula
// has been defined for it.
type Calculator struct {
	catalog *catalog.Catalog
	state   *state.GameState

	byPlayer map[string][]state.Building
}

func NewCalculator(c *catalog.Catalog, s *state.GameState) *Calculator {
	byPlayer := make(map[string][]state.Building)
	for _, b := range s.Buildings {
		byPlayer[b.PlayerID] = append(byPlayer[b.PlayerID], b)
	}
	return &Calculator{catalog: c, state: s, byPlayer: byPlayer}
}

// BuildingProduction returns the per-turn yield of one building, or zero.
func (c *Calculator) BuildingProduction(b state.Building) resource.Amount {
	item, err := c.catalog.Lookup(b.TypeID)
	if err != nil || item.Kind != catalog.KindBuilding || item.Building.ResourceYield == nil {
		return resource.Zero()
	}
	return *item.Building.ResourceYield
}

// BuildingsProduction folds Add over the buildings' yields.
func (c *Calculator) BuildingsProduction(buildings []state.Building) resource.Amount {
	total := resource.Zero()
	for _, b := range buildings {
		total = resource.Add(total, c.BuildingProduction(b))
	}
	return total
}

// PlayerProduction sums the yield of every building the player owns.
func (c *Calculator) PlayerProduction(playerID string) resource.Amount {
	return c.BuildingsProduction(c.byPlayer[playerID])
}

// FoodProduction sums the food yield of the player's buildings.
func (c *Calculator) FoodProduction(playerID string) float64 {
	var total float64
	for _, b := range c.byPlayer[playerID] {
		item, err := c.catalog.Lookup(b.TypeID)
		if err != nil || item.Kind != catalog.KindBuilding {
			continue
		}
		total += item.Building.FoodYield
	}
	return total
}

// FoodConsumption sums the upkeep of the player's units.
func (c *Calculator) FoodConsumption(playerID string) float64 {
	var total float64
	for _, u := range c.state.UnitsOf(playerID) {
		item, err := c.catalog.Lookup(u.TypeID)
		if err != nil || item.Kind != catalog.KindUnit {
			continue
		}
		total += item.Unit.FoodConsumption
	}
	return total
}

// Balance is the per-turn economic summary shown to a player.
type Balance struct {
	Production      resource.Amount `json:"production"`
	FoodProduction  float64         `json:"foodProduction"`
	FoodConsumption float64         `json:"foodConsumption"`
}

func (c *Calculator) Balance(playerID string) Balance {
	return Balance{
		Production:      c.PlayerProduction(playerID),
		FoodProduction:  c.FoodProduction(playerID),
		FoodConsumption: c.FoodConsumption(playerID),
	}
}
