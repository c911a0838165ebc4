package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sco-server/internal/resource"
	apperrors "sco-server/internal/shared/errors"
)

func intPtr(v int) *int { return &v }

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("expected default catalog to contain items")
	}
	for _, kind := range []Kind{KindBuilding, KindUnit, KindTechnology} {
		if len(c.ByKind(kind)) == 0 {
			t.Fatalf("expected at least one %s", kind)
		}
	}

	bomber, err := c.Lookup("bomber")
	if err != nil {
		t.Fatalf("Lookup bomber: %v", err)
	}
	if bomber.Unit == nil || bomber.Unit.Specials["siege"] != true {
		t.Fatalf("expected specials to be carried through, got %+v", bomber.Unit)
	}
	if len(c.Digest()) != 64 {
		t.Fatalf("digest = %q, want 64 hex chars", c.Digest())
	}
}

func TestLookupUnknownIsNotFound(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	_, err = c.Lookup("death-star")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
	if apperrors.GetType(err) != apperrors.ErrorTypeNotFound {
		t.Fatalf("type = %q, want not_found", apperrors.GetType(err))
	}
}

func TestLookupReturnsDetachedCopy(t *testing.T) {
	c, err := New([]Item{{
		Kind: KindBuilding, ID: "mine",
		Cost:     resource.Amount{Gold: 10},
		Building: &BuildingSpec{MaxPerPlanet: intPtr(1), ResourceYield: &resource.Amount{Gold: 5}},
	}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	digest := c.Digest()

	item, _ := c.Lookup("mine")
	*item.Building.MaxPerPlanet = 99
	item.Building.ResourceYield.Gold = 1000
	item.Cost.Gold = 0

	again, _ := c.Lookup("mine")
	if *again.Building.MaxPerPlanet != 1 || again.Building.ResourceYield.Gold != 5 || again.Cost.Gold != 10 {
		t.Fatalf("catalog was mutated through a lookup: %+v", again.Building)
	}
	if c.Digest() != digest {
		t.Fatal("digest changed")
	}
}

func TestNewRejectsMalformedItems(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
	}{
		{"missing id", []Item{{Kind: KindTechnology, Technology: &TechnologySpec{Family: FamilyCivil}}}},
		{"duplicate", []Item{
			{Kind: KindTechnology, ID: "a", Technology: &TechnologySpec{Family: FamilyCivil}},
			{Kind: KindTechnology, ID: "a", Technology: &TechnologySpec{Family: FamilyCivil}},
		}},
		{"payload mismatch", []Item{{Kind: KindUnit, ID: "u", Building: &BuildingSpec{}}}},
		{"two payloads", []Item{{Kind: KindUnit, ID: "u", Unit: &UnitSpec{}, Building: &BuildingSpec{}}}},
		{"unknown kind", []Item{{Kind: "spell", ID: "x", Unit: &UnitSpec{}}}},
		{"negative cost", []Item{{Kind: KindTechnology, ID: "t", Cost: resource.Amount{Gold: -1}, Technology: &TechnologySpec{Family: FamilyCivil}}}},
		{"zero cap", []Item{{Kind: KindBuilding, ID: "b", Building: &BuildingSpec{MaxPerPlanet: intPtr(0)}}}},
		{"negative yield", []Item{{Kind: KindBuilding, ID: "b", Building: &BuildingSpec{ResourceYield: &resource.Amount{Gas: -2}}}}},
		{"missing tech requirement", []Item{{Kind: KindBuilding, ID: "b", TechnologyRequirements: []string{"nope"}, Building: &BuildingSpec{}}}},
		{"building requirement points at tech", []Item{
			{Kind: KindTechnology, ID: "t", Technology: &TechnologySpec{Family: FamilyMilitary}},
			{Kind: KindUnit, ID: "u", Unit: &UnitSpec{BuildingRequirements: []string{"t"}}},
		}},
		{"unknown family", []Item{{Kind: KindTechnology, ID: "t", Technology: &TechnologySpec{Family: "magic"}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.items); apperrors.GetType(err) != apperrors.ErrorTypeValidation {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	data := []byte(`items:
  - kind: tech
    id: ballistics
    name: Ballistics
    cost: {gold: 10}
    technologyRequirements: []
    productionTime: 1
    technology: {level: 1, family: military}
  - kind: unit
    id: gunship
    name: Gunship
    cost: {gold: 50, iron: 5}
    technologyRequirements: [ballistics]
    productionTime: 0
    unit:
      unitClass: P
      armoringType: piercing
      firePower: 3
      endurance: 4
      speed: 2
      buildingRequirements: []
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	gunship, err := c.Lookup("gunship")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if gunship.Cost != (resource.Amount{Gold: 50, Iron: 5}) {
		t.Fatalf("cost = %v", gunship.Cost)
	}
	if kind, _ := c.KindOf("ballistics"); kind != KindTechnology {
		t.Fatalf("KindOf = %q", kind)
	}
}
