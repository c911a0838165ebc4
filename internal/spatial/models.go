package spatial

import (
	"encoding/hex"
	"encoding/json"

	"lukechampine.com/blake3"

	"sco-server/internal/planet"
)

type EntityType string

const (
	EntityTypeSystem EntityType = "system"
	EntityTypeCell   EntityType = "cell"
)

// System is a star system: a cluster of cells reachable from each other in one
// hop. Systems connect to one another only through their gateway cells.
type System struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	XCoord  float64  `json:"x"`
	YCoord  float64  `json:"y"`
	CellIDs []string `json:"cellIds"`
	Gateway string   `json:"gatewayCellId"`
}

// Cell is a location on the map. Planets, buildings and units are all keyed by
// cell id.
type Cell struct {
	ID       string              `json:"id"`
	SystemID string              `json:"systemId"`
	Name     string              `json:"name"`
	XCoord   float64             `json:"x"`
	YCoord   float64             `json:"y"`
	Planet   *planet.Description `json:"planet,omitempty"`
}

// Link joins the gateways of two systems.
type Link struct {
	A string `json:"a"`
	B string `json:"b"`
}

type Map struct {
	ID      string            `json:"id"`
	Seed    int64             `json:"seed"`
	Core    string            `json:"coreSystemId"`
	Systems map[string]System `json:"systems"`
	Cells   map[string]Cell   `json:"cells"`
	Links   []Link            `json:"links"`
}

// Origin is a player's starting cell. Generate returns one per player, in player order.
type Origin struct {
	CellID   string `json:"cellId"`
	SystemID string `json:"systemId"`
}

func (m *Map) HasCell(cellID string) bool {
	_, ok := m.Cells[cellID]
	return ok
}

// HasPlanet reports whether the cell exists and holds a planet.
func (m *Map) HasPlanet(cellID string) bool {
	c, ok := m.Cells[cellID]
	return ok && c.Planet != nil
}

// SystemOf returns the system id a cell belongs to.
func (m *Map) SystemOf(cellID string) (string, bool) {
	c, ok := m.Cells[cellID]
	if !ok {
		return "", false
	}
	return c.SystemID, true
}

// PlanetCells returns the ids of every cell holding a planet.
func (m *Map) PlanetCells() []string {
	var out []string
	for id, c := range m.Cells {
		if c.Planet != nil {
			out = append(out, id)
		}
	}
	return out
}

// Digest hashes the map contents, ignoring the ID field. Two maps with the same
// digest derive the same layout.
func Digest(m *Map) (string, error) {
	clone := *m
	clone.ID = ""
	raw, err := json.Marshal(clone)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
