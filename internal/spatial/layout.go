package spatial

import (
	"fmt"
	"slices"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Bounds struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Layout is derived from a Map and never mutated after construction. It carries
// the cell adjacency graph plus the geometry clients draw with.
type Layout struct {
	MapID     string              `json:"mapId"`
	Adjacency map[string][]string `json:"adjacency"`
	Positions map[string]Point    `json:"positions"`
	Bounds    Bounds              `json:"bounds"`
}

// GenerateLayout derives adjacency and geometry from m. Cells of a system are
// mutually adjacent; linked systems connect through their gateways.
func GenerateLayout(m *Map) *Layout {
	l := &Layout{
		MapID:     m.ID,
		Adjacency: make(map[string][]string, len(m.Cells)),
		Positions: make(map[string]Point, len(m.Cells)),
	}

	edges := make(map[string]map[string]bool, len(m.Cells))
	connect := func(a, b string) {
		if a == b {
			return
		}
		if edges[a] == nil {
			edges[a] = make(map[string]bool)
		}
		if edges[b] == nil {
			edges[b] = make(map[string]bool)
		}
		edges[a][b] = true
		edges[b][a] = true
	}

	for _, sys := range m.Systems {
		for i, a := range sys.CellIDs {
			for _, b := range sys.CellIDs[i+1:] {
				connect(a, b)
			}
		}
	}
	for _, link := range m.Links {
		a, okA := m.Systems[link.A]
		b, okB := m.Systems[link.B]
		if okA && okB {
			connect(a.Gateway, b.Gateway)
		}
	}

	first := true
	for id, cell := range m.Cells {
		p := Point{X: cell.XCoord, Y: cell.YCoord}
		l.Positions[id] = p

		neighbours := make([]string, 0, len(edges[id]))
		for n := range edges[id] {
			neighbours = append(neighbours, n)
		}
		slices.Sort(neighbours)
		l.Adjacency[id] = neighbours

		if first {
			l.Bounds = Bounds{Min: p, Max: p}
			first = false
			continue
		}
		l.Bounds.Min.X = min(l.Bounds.Min.X, p.X)
		l.Bounds.Min.Y = min(l.Bounds.Min.Y, p.Y)
		l.Bounds.Max.X = max(l.Bounds.Max.X, p.X)
		l.Bounds.Max.Y = max(l.Bounds.Max.Y, p.Y)
	}

	return l
}

func (l *Layout) Has(cellID string) bool {
	_, ok := l.Adjacency[cellID]
	return ok
}

func (l *Layout) Neighbours(cellID string) []string {
	return l.Adjacency[cellID]
}

// Within returns every cell reachable from `from` in at most `hops` steps, with
// its hop distance. The origin itself is included at distance 0.
func (l *Layout) Within(from string, hops int) map[string]int {
	return l.WithinAny([]string{from}, hops)
}

// WithinAny is a multi-source Within: the distance is to the closest source.
func (l *Layout) WithinAny(sources []string, hops int) map[string]int {
	dist := make(map[string]int)
	var frontier []string
	for _, s := range sources {
		if !l.Has(s) {
			continue
		}
		if _, seen := dist[s]; !seen {
			dist[s] = 0
			frontier = append(frontier, s)
		}
	}

	for depth := 1; depth <= hops && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, n := range l.Adjacency[id] {
				if _, seen := dist[n]; seen {
					continue
				}
				dist[n] = depth
				next = append(next, n)
			}
		}
		frontier = next
	}
	return dist
}

// Distance returns the hop count between two cells, or false when unreachable.
func (l *Layout) Distance(from, to string) (int, bool) {
	if !l.Has(from) || !l.Has(to) {
		return 0, false
	}
	if from == to {
		return 0, true
	}
	all := l.Within(from, len(l.Adjacency))
	d, ok := all[to]
	return d, ok
}

// CheckFairness verifies that every origin is a distinct planet cell, equally far
// from the core gateway, with an identical neighbourhood up to `radius` hops.
func CheckFairness(m *Map, l *Layout, origins []Origin, radius int) error {
	core, ok := m.Systems[m.Core]
	if !ok {
		return fmt.Errorf("map has no core system")
	}

	seen := make(map[string]bool, len(origins))
	var wantDistance int
	var wantSignature string

	for i, o := range origins {
		if seen[o.CellID] {
			return fmt.Errorf("origin %s assigned twice", o.CellID)
		}
		seen[o.CellID] = true

		if !m.HasPlanet(o.CellID) {
			return fmt.Errorf("origin %s has no planet", o.CellID)
		}

		d, ok := l.Distance(o.CellID, core.Gateway)
		if !ok {
			return fmt.Errorf("origin %s cannot reach the core", o.CellID)
		}
		sig := neighbourhoodSignature(m, l, o.CellID, radius)

		if i == 0 {
			wantDistance, wantSignature = d, sig
			continue
		}
		if d != wantDistance {
			return fmt.Errorf("origin %s is %d hops from the core, want %d", o.CellID, d, wantDistance)
		}
		if sig != wantSignature {
			return fmt.Errorf("origin %s has an uneven neighbourhood", o.CellID)
		}
	}
	return nil
}

// neighbourhoodSignature summarises, per hop distance, how many cells and planets
// of each affinity surround a cell.
func neighbourhoodSignature(m *Map, l *Layout, cellID string, radius int) string {
	type ring struct {
		cells   int
		planets map[string]int
	}
	radius = max(radius, 0)
	rings := make([]ring, radius+1)
	for i := range rings {
		rings[i].planets = make(map[string]int)
	}

	for id, d := range l.Within(cellID, radius) {
		rings[d].cells++
		if c := m.Cells[id]; c.Planet != nil {
			rings[d].planets[string(c.Planet.Type)]++
		}
	}

	sig := ""
	for d, r := range rings {
		keys := make([]string, 0, len(r.planets))
		for k := range r.planets {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		sig += fmt.Sprintf("%d:%d", d, r.cells)
		for _, k := range keys {
			sig += fmt.Sprintf(",%s=%d", k, r.planets[k])
		}
		sig += ";"
	}
	return sig
}
