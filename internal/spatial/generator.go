package spatial

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"

	"sco-server/internal/planet"
)

var (
	ErrInvalidPlayerCount = errors.New("player count must be at least 1")
	ErrUnfairMap          = errors.New("could not generate a fair map")
)

// GeneratorConfig shapes the generated map. Every player gets an arm of
// SystemsPerArm systems radiating from the shared core system.
type GeneratorConfig struct {
	SystemsPerArm     int
	MinCellsPerSystem int
	MaxCellsPerSystem int
	CoreCells         int
	PlanetChance      float64
	SystemSpacing     float64
	FairnessRadius    int
	MaxAttempts       int
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		SystemsPerArm:     3,
		MinCellsPerSystem: 3,
		MaxCellsPerSystem: 6,
		CoreCells:         6,
		PlanetChance:      0.6,
		SystemSpacing:     10,
		FairnessRadius:    3,
		MaxAttempts:       8,
	}
}

func (c GeneratorConfig) validate() error {
	if c.SystemsPerArm < 1 {
		return fmt.Errorf("systems per arm must be at least 1, got %d", c.SystemsPerArm)
	}
	if c.MinCellsPerSystem < 2 || c.MaxCellsPerSystem < c.MinCellsPerSystem {
		return fmt.Errorf("invalid cells per system range [%d, %d]", c.MinCellsPerSystem, c.MaxCellsPerSystem)
	}
	if c.CoreCells < 1 {
		return fmt.Errorf("core cells must be at least 1, got %d", c.CoreCells)
	}
	if c.PlanetChance < 0 || c.PlanetChance > 1 {
		return fmt.Errorf("planet chance must be within [0, 1], got %g", c.PlanetChance)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}

type Generator struct {
	config GeneratorConfig
	logger *slog.Logger
}

func NewGenerator(config GeneratorConfig, logger *slog.Logger) (*Generator, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	return &Generator{config: config, logger: logger}, nil
}

// armTemplate is drawn once per attempt and stamped onto every arm, which is
// what makes the spawn set symmetric.
type armTemplate struct {
	systems []systemTemplate
}

type systemTemplate struct {
	planets []*planet.Description
}

// Generate builds a map for the given number of players. The result depends only
// on players, seed and the generator config.
func (g *Generator) Generate(players int, seed int64) (*Map, []Origin, error) {
	logger := g.logger.With("component", "map_generator", "operation", "generate", "players", players, "seed", seed)

	if players < 1 {
		return nil, nil, ErrInvalidPlayerCount
	}

	for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
		rng := rand.New(rand.NewSource(seed + int64(attempt)))

		m, origins := g.build(rng, players)
		m.Seed = seed

		layout := GenerateLayout(m)
		if err := CheckFairness(m, layout, origins, g.config.FairnessRadius); err != nil {
			logger.Debug("Rejected unfair layout", "attempt", attempt, "reason", err)
			continue
		}

		digest, err := Digest(m)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to digest map: %w", err)
		}
		m.ID = "map-" + digest[:16]

		logger.Info("Map generated",
			"map_id", m.ID,
			"attempt", attempt,
			"systems", len(m.Systems),
			"cells", len(m.Cells))
		return m, origins, nil
	}

	return nil, nil, fmt.Errorf("%w after %d attempts", ErrUnfairMap, g.config.MaxAttempts)
}

func (g *Generator) build(rng *rand.Rand, players int) (*Map, []Origin) {
	m := &Map{
		Systems: make(map[string]System),
		Cells:   make(map[string]Cell),
	}

	core := g.addSystem(m, "core", systemNames[0], 0, 0, 0, g.rollSystem(rng, g.config.CoreCells, false))
	m.Core = core.ID

	template := g.rollArm(rng)
	origins := make([]Origin, 0, players)
	firstRing := make([]string, 0, players)

	for p := 0; p < players; p++ {
		angle := 2 * math.Pi * float64(p) / float64(players)
		previous := core.ID

		for r, st := range template.systems {
			radius := float64(r+1) * g.config.SystemSpacing
			id := fmt.Sprintf("s-%d-%d", p, r+1)
			name := systemNames[(1+p*len(template.systems)+r)%len(systemNames)]

			sys := g.addSystem(m, id, name, radius*math.Cos(angle), radius*math.Sin(angle), angle, st)
			m.Links = append(m.Links, Link{A: previous, B: sys.ID})
			previous = sys.ID

			if r == 0 {
				firstRing = append(firstRing, sys.ID)
			}
			if r == len(template.systems)-1 {
				origins = append(origins, Origin{CellID: sys.CellIDs[1], SystemID: sys.ID})
			}
		}
	}

	// Neighbouring arms meet on the first ring so players can flank around the core.
	if players > 2 {
		for p := range firstRing {
			m.Links = append(m.Links, Link{A: firstRing[p], B: firstRing[(p+1)%players]})
		}
	}

	m.Links = normalizeLinks(m.Links)
	return m, origins
}

func (g *Generator) rollArm(rng *rand.Rand) armTemplate {
	t := armTemplate{systems: make([]systemTemplate, g.config.SystemsPerArm)}
	for r := range t.systems {
		span := g.config.MaxCellsPerSystem - g.config.MinCellsPerSystem + 1
		cells := g.config.MinCellsPerSystem + rng.Intn(span)
		t.systems[r] = g.rollSystem(rng, cells, r == g.config.SystemsPerArm-1)
	}
	return t
}

// rollSystem draws the planets of a system. Cell 0 is the gateway and never holds
// a planet; in a home system cell 1 is the homeworld.
func (g *Generator) rollSystem(rng *rand.Rand, cells int, home bool) systemTemplate {
	st := systemTemplate{planets: make([]*planet.Description, cells)}
	for i := 1; i < cells; i++ {
		if home && i == 1 {
			h := planet.Homeworld("")
			st.planets[i] = &h
			continue
		}
		if rng.Float64() < g.config.PlanetChance {
			p := planet.Roll(rng, "", i)
			st.planets[i] = &p
		}
	}
	return st
}

func (g *Generator) addSystem(m *Map, id, name string, x, y, angle float64, st systemTemplate) System {
	sys := System{ID: id, Name: name, XCoord: x, YCoord: y}

	n := len(st.planets)
	for i := 0; i < n; i++ {
		cellID := fmt.Sprintf("%s-c%d", id, i)
		theta := angle + 2*math.Pi*float64(i)/float64(n)
		cell := Cell{
			ID:       cellID,
			SystemID: id,
			Name:     fmt.Sprintf("%s %s", name, cellSuffixes[i%len(cellSuffixes)]),
			XCoord:   x + math.Cos(theta),
			YCoord:   y + math.Sin(theta),
		}
		if tpl := st.planets[i]; tpl != nil {
			p := *tpl
			p.Name = cell.Name
			cell.Planet = &p
		}
		m.Cells[cellID] = cell
		sys.CellIDs = append(sys.CellIDs, cellID)
	}
	sys.Gateway = sys.CellIDs[0]
	m.Systems[id] = sys
	return sys
}

func normalizeLinks(links []Link) []Link {
	seen := make(map[Link]bool, len(links))
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.A > l.B {
			l.A, l.B = l.B, l.A
		}
		if l.A == l.B || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Link) int {
		if a.A != b.A {
			if a.A < b.A {
				return -1
			}
			return 1
		}
		if a.B < b.B {
			return -1
		}
		if a.B > b.B {
			return 1
		}
		return 0
	})
	return out
}

var systemNames = []string{
	"Polaris", "Altair", "Vega", "Sirius", "Arcturus", "Capella", "Rigel", "Procyon",
	"Deneb", "Antares", "Aldebaran", "Spica", "Pollux", "Fomalhaut", "Regulus", "Castor",
	"Bellatrix", "Mira", "Alnilam", "Mintaka", "Achernar", "Hadar", "Acrux", "Shaula",
}

var cellSuffixes = []string{
	"Gate", "I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "Prime",
}
