package catalog

import (
	"maps"
	"slices"

	"sco-server/internal/resource"
)

// Kind is the discriminant of Item. Exactly one payload pointer matches it.
type Kind string

const (
	KindBuilding   Kind = "building"
	KindUnit       Kind = "unit"
	KindTechnology Kind = "tech"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindBuilding, KindUnit, KindTechnology:
		return true
	default:
		return false
	}
}

type UnitClass string

const (
	UnitClassP    UnitClass = "P"
	UnitClassM    UnitClass = "M"
	UnitClassG    UnitClass = "G"
	UnitClassE    UnitClass = "E"
	UnitClassNone UnitClass = "NONE"
)

type ArmoringType string

const (
	ArmoringBasic    ArmoringType = "basic"
	ArmoringPiercing ArmoringType = "piercing"
	ArmoringBomb     ArmoringType = "bomb"
)

type TechnologyFamily string

const (
	FamilyCivil    TechnologyFamily = "civil"
	FamilyMilitary TechnologyFamily = "military"
)

// Item is a purchasable definition. Common purchase fields live here; the
// kind-specific payload lives in Building, Unit or Technology.
type Item struct {
	Kind        Kind   `json:"kind" yaml:"kind"`
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	Cost                   resource.Amount `json:"cost" yaml:"cost"`
	TechnologyRequirements []string        `json:"technologyRequirements" yaml:"technologyRequirements"`
	ProductionTime         int             `json:"productionTime" yaml:"productionTime"`

	Building   *BuildingSpec   `json:"building,omitempty" yaml:"building,omitempty"`
	Unit       *UnitSpec       `json:"unit,omitempty" yaml:"unit,omitempty"`
	Technology *TechnologySpec `json:"technology,omitempty" yaml:"technology,omitempty"`
}

type BuildingSpec struct {
	MaxPerPlanet *int `json:"maxPerPlanet,omitempty" yaml:"maxPerPlanet,omitempty"`
	MaxPerPlayer *int `json:"maxPerPlayer,omitempty" yaml:"maxPerPlayer,omitempty"`
	MaxPerSystem *int `json:"maxPerSystem,omitempty" yaml:"maxPerSystem,omitempty"`

	ResourceYield        *resource.Amount `json:"resourceYield,omitempty" yaml:"resourceYield,omitempty"`
	FoodYield            float64          `json:"foodYield,omitempty" yaml:"foodYield,omitempty"`
	BuildingRequirements []string         `json:"buildingRequirements" yaml:"buildingRequirements"`
}

type UnitSpec struct {
	Class    UnitClass    `json:"unitClass" yaml:"unitClass"`
	Armoring ArmoringType `json:"armoringType" yaml:"armoringType"`

	ShootingSpeed    float64 `json:"shootingSpeed" yaml:"shootingSpeed"`
	FirePower        float64 `json:"firePower" yaml:"firePower"`
	StrategicCaliber float64 `json:"strategicCaliber" yaml:"strategicCaliber"`
	Accuracy         float64 `json:"accuracy" yaml:"accuracy"`
	Evasion          float64 `json:"evasion" yaml:"evasion"`
	Endurance        float64 `json:"endurance" yaml:"endurance"`
	Speed            int     `json:"speed" yaml:"speed"`

	GasConsumption  float64 `json:"gasConsumption" yaml:"gasConsumption"`
	FoodConsumption float64 `json:"foodConsumption" yaml:"foodConsumption"`

	// Specials is carried through untouched; nothing in the engine reads it.
	Specials map[string]any `json:"specials,omitempty" yaml:"specials,omitempty"`

	BuildingRequirements []string `json:"buildingRequirements" yaml:"buildingRequirements"`
}

type TechnologySpec struct {
	Level  int              `json:"level" yaml:"level"`
	Family TechnologyFamily `json:"family" yaml:"family"`
}

// BuildingRequirements returns the building prerequisites of a building or unit.
func (i Item) BuildingRequirements() []string {
	switch i.Kind {
	case KindBuilding:
		return i.Building.BuildingRequirements
	case KindUnit:
		return i.Unit.BuildingRequirements
	case KindTechnology:
		return nil
	default:
		panic("catalog: unhandled item kind " + string(i.Kind))
	}
}

// clone detaches every slice, map and pointer so a copy handed out can't reach the registry.
func (i Item) clone() Item {
	out := i
	out.TechnologyRequirements = slices.Clone(i.TechnologyRequirements)

	if i.Building != nil {
		b := *i.Building
		b.MaxPerPlanet = cloneInt(b.MaxPerPlanet)
		b.MaxPerPlayer = cloneInt(b.MaxPerPlayer)
		b.MaxPerSystem = cloneInt(b.MaxPerSystem)
		if b.ResourceYield != nil {
			y := *b.ResourceYield
			b.ResourceYield = &y
		}
		b.BuildingRequirements = slices.Clone(b.BuildingRequirements)
		out.Building = &b
	}
	if i.Unit != nil {
		u := *i.Unit
		u.Specials = maps.Clone(u.Specials)
		u.BuildingRequirements = slices.Clone(u.BuildingRequirements)
		out.Unit = &u
	}
	if i.Technology != nil {
		t := *i.Technology
		out.Technology = &t
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
