// Package catalogtest provides a small, hand-checked catalog for tests in other packages.
package catalogtest

import (
	"sco-server/internal/catalog"
	"sco-server/internal/resource"
)

const (
	TechBasics  = "basics"
	TechWeapons = "weapons"

	Mine      = "mine"
	Farm      = "farm"
	Monument  = "monument"
	Shipyard  = "shipyard"
	Beacon    = "beacon"
	Palace    = "palace"
	Warship   = "warship"
	Scout     = "scout"
	Artillery = "artillery"
)

func intPtr(v int) *int { return &v }

// Items returns the fixture definitions. Costs are chosen against a starting stock
// of {gold: 2000, iron: 300}: Monument is unaffordable, everything else is not.
func Items() []catalog.Item {
	return []catalog.Item{
		{
			Kind: catalog.KindTechnology, ID: TechBasics, Name: "Basics",
			Cost: resource.Amount{Gold: 100}, ProductionTime: 0,
			Technology: &catalog.TechnologySpec{Level: 1, Family: catalog.FamilyCivil},
		},
		{
			Kind: catalog.KindTechnology, ID: TechWeapons, Name: "Weapons",
			Cost: resource.Amount{Gold: 100}, ProductionTime: 2,
			Technology: &catalog.TechnologySpec{Level: 1, Family: catalog.FamilyMilitary},
		},
		{
			Kind: catalog.KindBuilding, ID: Mine, Name: "Mine",
			Cost: resource.Amount{Gold: 100}, ProductionTime: 0,
			Building: &catalog.BuildingSpec{
				MaxPerPlanet:  intPtr(2),
				ResourceYield: &resource.Amount{Gold: 50, Iron: 10},
			},
		},
		{
			Kind: catalog.KindBuilding, ID: Farm, Name: "Farm",
			Cost: resource.Amount{Gold: 50}, ProductionTime: 0,
			Building: &catalog.BuildingSpec{FoodYield: 5},
		},
		{
			Kind: catalog.KindBuilding, ID: Monument, Name: "Monument",
			Cost: resource.Amount{Gold: 2500}, ProductionTime: 0,
			Building: &catalog.BuildingSpec{},
		},
		{
			Kind: catalog.KindBuilding, ID: Shipyard, Name: "Shipyard",
			Cost: resource.Amount{Gold: 200, Iron: 100}, ProductionTime: 1,
			Building: &catalog.BuildingSpec{MaxPerPlanet: intPtr(1)},
		},
		{
			Kind: catalog.KindBuilding, ID: Beacon, Name: "Beacon",
			Cost: resource.Amount{Gold: 10}, ProductionTime: 0,
			TechnologyRequirements: []string{TechBasics},
			Building:               &catalog.BuildingSpec{MaxPerSystem: intPtr(1)},
		},
		{
			Kind: catalog.KindBuilding, ID: Palace, Name: "Palace",
			Cost: resource.Amount{Gold: 10}, ProductionTime: 0,
			Building: &catalog.BuildingSpec{MaxPerPlayer: intPtr(1)},
		},
		{
			Kind: catalog.KindUnit, ID: Warship, Name: "Warship",
			Cost: resource.Amount{Gold: 150, Iron: 50}, ProductionTime: 0,
			TechnologyRequirements: []string{TechWeapons},
			Unit: &catalog.UnitSpec{
				Class: catalog.UnitClassM, Armoring: catalog.ArmoringBasic,
				FirePower: 10, Endurance: 8, Speed: 2,
				GasConsumption: 1, FoodConsumption: 2,
				BuildingRequirements: []string{Shipyard},
			},
		},
		{
			Kind: catalog.KindUnit, ID: Scout, Name: "Scout",
			Cost: resource.Amount{Gold: 20}, ProductionTime: 0,
			Unit: &catalog.UnitSpec{
				Class: catalog.UnitClassNone, Armoring: catalog.ArmoringBasic,
				FirePower: 1, Endurance: 2, Speed: 3, FoodConsumption: 1,
			},
		},
		{
			Kind: catalog.KindUnit, ID: Artillery, Name: "Artillery",
			Cost: resource.Amount{Gold: 20}, ProductionTime: 0,
			Unit: &catalog.UnitSpec{
				Class: catalog.UnitClassG, Armoring: catalog.ArmoringBomb,
				FirePower: 4, Endurance: 3, Speed: 0,
			},
		},
	}
}

// New returns the fixture catalog or panics; the definitions are static.
func New() *catalog.Catalog {
	c, err := catalog.New(Items())
	if err != nil {
		panic(err)
	}
	return c
}
