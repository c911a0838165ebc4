// Package spatialtest provides a small hand-built map for tests in other packages.
//
//	p1 ─┬─ a-gw ── m-gw ── b-gw ── p2
//	p3 ─┘           │
//	                m1
//
// Cells of a system are mutually adjacent, so p1, p3 and a-gw form a triangle.
// p1, p2 and p3 hold planets; p1 and p2 are the origins of the first and second
// player. p1 to p2 is four hops, p1 to m1 three.
package spatialtest

import (
	"sco-server/internal/planet"
	"sco-server/internal/spatial"
)

const (
	SystemA   = "home-a"
	SystemB   = "home-b"
	SystemMid = "mid"

	P1       = "p1"
	P2       = "p2"
	P3       = "p3"
	GatewayA = "a-gw"
	GatewayB = "b-gw"
	GatewayM = "m-gw"
	M1       = "m1"
)

func Map() *spatial.Map {
	home := func(name string) *planet.Description {
		d := planet.Homeworld(name)
		return &d
	}
	barren := &planet.Description{Name: "P3", Type: planet.PlanetTypeBarren, Size: 40, ResourceType: planet.Affinity(planet.PlanetTypeBarren)}

	cells := []spatial.Cell{
		{ID: GatewayA, SystemID: SystemA, Name: "A Gate", XCoord: -2, YCoord: 0},
		{ID: P1, SystemID: SystemA, Name: "P1", XCoord: -3, YCoord: 1, Planet: home("P1")},
		{ID: P3, SystemID: SystemA, Name: "P3", XCoord: -3, YCoord: -1, Planet: barren},
		{ID: GatewayM, SystemID: SystemMid, Name: "Mid Gate", XCoord: 0, YCoord: 0},
		{ID: M1, SystemID: SystemMid, Name: "M1", XCoord: 0, YCoord: 1},
		{ID: GatewayB, SystemID: SystemB, Name: "B Gate", XCoord: 2, YCoord: 0},
		{ID: P2, SystemID: SystemB, Name: "P2", XCoord: 3, YCoord: 1, Planet: home("P2")},
	}

	m := &spatial.Map{
		ID:   "map-fixture",
		Seed: 1,
		Core: SystemMid,
		Systems: map[string]spatial.System{
			SystemA:   {ID: SystemA, Name: "Home A", XCoord: -3, CellIDs: []string{GatewayA, P1, P3}, Gateway: GatewayA},
			SystemMid: {ID: SystemMid, Name: "Mid", CellIDs: []string{GatewayM, M1}, Gateway: GatewayM},
			SystemB:   {ID: SystemB, Name: "Home B", XCoord: 3, CellIDs: []string{GatewayB, P2}, Gateway: GatewayB},
		},
		Cells: make(map[string]spatial.Cell, len(cells)),
		Links: []spatial.Link{{A: SystemA, B: SystemMid}, {A: SystemMid, B: SystemB}},
	}
	for _, c := range cells {
		m.Cells[c.ID] = c
	}
	return m
}

// Origins returns the two origin cells in player order.
func Origins() []spatial.Origin {
	return []spatial.Origin{{CellID: P1, SystemID: SystemA}, {CellID: P2, SystemID: SystemB}}
}

// PlanetCells lists the planet cells in a stable order.
func PlanetCells() []string {
	return []string{P1, P2, P3}
}
