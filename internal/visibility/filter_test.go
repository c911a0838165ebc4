package visibility

import (
	"errors"
	"testing"

	"sco-server/internal/catalog/catalogtest"
	"sco-server/internal/resource"
	"sco-server/internal/spatial"
	"sco-server/internal/spatial/spatialtest"
	"sco-server/internal/state"
)

func setup(t *testing.T) (*state.GameState, *spatial.Layout) {
	t.Helper()
	s, err := state.New([]string{"alice", "bob"}, resource.Amount{Gold: 2000, Iron: 300},
		spatialtest.PlanetCells(), []string{spatialtest.P1, spatialtest.P2})
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	mustBuilding(t, s, catalogtest.Mine, "alice", spatialtest.P1)
	mustBuilding(t, s, catalogtest.Mine, "bob", spatialtest.P2)
	mustUnit(t, s, catalogtest.Scout, "bob", spatialtest.P2, spatialtest.M1)
	return s, spatial.GenerateLayout(spatialtest.Map())
}

func TestOutOfRangeEntitiesAreOmitted(t *testing.T) {
	s, layout := setup(t)
	v, err := NewFilter(catalogtest.New(), 1).StateForPlayer("alice", s, layout)
	if err != nil {
		t.Fatalf("StateForPlayer: %v", err)
	}

	if _, ok := v.Planets[spatialtest.P2]; ok {
		t.Fatal("bob's distant planet is visible")
	}
	if _, ok := v.Planets[spatialtest.P3]; !ok {
		t.Fatal("neighbouring planet is hidden")
	}
	for _, u := range v.Units {
		if u.PlayerID == "bob" {
			t.Fatalf("bob's unit %s leaked", u.ID)
		}
	}
	for _, b := range v.Buildings {
		if b.PlayerID == "bob" {
			t.Fatalf("bob's building %s leaked", b.ID)
		}
	}
	if len(v.Opponents) != 1 || v.Opponents[0].ID != "bob" {
		t.Fatalf("opponents = %+v", v.Opponents)
	}
	if v.Balance.Production != (resource.Amount{Gold: 50, Iron: 10}) {
		t.Fatalf("balance = %+v", v.Balance)
	}
}

func TestUnitsExtendSensorRange(t *testing.T) {
	s, layout := setup(t)
	mustUnit(t, s, catalogtest.Scout, "alice", spatialtest.P1, spatialtest.GatewayB)

	v, err := NewFilter(catalogtest.New(), 1).StateForPlayer("alice", s, layout)
	if err != nil {
		t.Fatalf("StateForPlayer: %v", err)
	}
	if _, ok := v.Planets[spatialtest.P2]; !ok {
		t.Fatal("planet next to own unit is hidden")
	}
	if got := len(v.Buildings); got != 2 {
		t.Fatalf("buildings = %d, want 2", got)
	}
}

func TestViewNeverLeaksAndAlwaysIncludesOwnHoldings(t *testing.T) {
	s, layout := setup(t)
	mustUnit(t, s, catalogtest.Scout, "alice", spatialtest.P1, spatialtest.M1)

	for sensorRange := 0; sensorRange <= 5; sensorRange++ {
		for _, player := range []string{"alice", "bob"} {
			f := NewFilter(catalogtest.New(), sensorRange)
			v, err := f.StateForPlayer(player, s, layout)
			if err != nil {
				t.Fatalf("StateForPlayer: %v", err)
			}
			visible := f.VisibleLocations(player, s, layout)
			seen := func(location string) bool {
				d, ok := visible[location]
				return ok && d <= sensorRange
			}

			for id, p := range s.Planets {
				_, shown := v.Planets[id]
				if p.OwnedBy(player) && !shown {
					t.Fatalf("range %d: %s cannot see own planet %s", sensorRange, player, id)
				}
				if shown && !p.OwnedBy(player) && !seen(id) {
					t.Fatalf("range %d: %s sees distant planet %s", sensorRange, player, id)
				}
			}
			for id, u := range s.Units {
				_, shown := v.Units[id]
				if u.PlayerID == player && !shown {
					t.Fatalf("range %d: %s cannot see own unit %s", sensorRange, player, id)
				}
				if shown && u.PlayerID != player && !seen(u.LocationID) {
					t.Fatalf("range %d: %s sees distant unit %s", sensorRange, player, id)
				}
			}
			for id, b := range s.Buildings {
				_, shown := v.Buildings[id]
				if b.PlayerID == player && !shown {
					t.Fatalf("range %d: %s cannot see own building %s", sensorRange, player, id)
				}
				if shown && b.PlayerID != player && !seen(b.LocationID) {
					t.Fatalf("range %d: %s sees distant building %s", sensorRange, player, id)
				}
			}
		}
	}
}

func TestViewIsDetached(t *testing.T) {
	s, layout := setup(t)
	if err := s.GrantTechnology("alice", catalogtest.TechBasics); err != nil {
		t.Fatal(err)
	}
	v, err := NewFilter(catalogtest.New(), 2).StateForPlayer("alice", s, layout)
	if err != nil {
		t.Fatal(err)
	}
	v.Player.Technologies["stolen"] = true
	if s.Players["alice"].HasTechnology("stolen") {
		t.Fatal("view shares the technology set")
	}
}

func TestUnknownPlayer(t *testing.T) {
	s, layout := setup(t)
	if _, err := NewFilter(catalogtest.New(), 2).StateForPlayer("carol", s, layout); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
}

func mustBuilding(t *testing.T, s *state.GameState, typeID, player, location string) {
	t.Helper()
	if _, err := s.AddBuilding(typeID, player, location); err != nil {
		t.Fatal(err)
	}
}

// mustUnit commissions a unit at a planet and moves it to where.
func mustUnit(t *testing.T, s *state.GameState, typeID, player, planet, where string) {
	t.Helper()
	u, err := s.AddUnit(typeID, player, planet)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MoveUnit(u.ID, where); err != nil {
		t.Fatal(err)
	}
}
