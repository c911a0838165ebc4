package planet

import "sco-server/internal/resource"

type PlanetType string

const (
	PlanetTypeBarren      PlanetType = "barren"
	PlanetTypeTerrestrial PlanetType = "terrestrial"
	PlanetTypeGasGiant    PlanetType = "gas_giant"
	PlanetTypeIce         PlanetType = "ice"
	PlanetTypeVolcanic    PlanetType = "volcanic"
)

// Description is the static, map-level description of a planet. Ownership and
// buildings live in the game state, not here.
type Description struct {
	Name string     `json:"name"`
	Type PlanetType `json:"type"`
	Size int        `json:"size"`

	// ResourceType is the affinity the planet is "rich in". Production does not
	// apply it yet.
	ResourceType resource.Kind `json:"resourceTypeDefinition"`
}

// affinities maps each planet type to the resource it is rich in.
var affinities = map[PlanetType]resource.Kind{
	PlanetTypeBarren:      resource.KindIron,
	PlanetTypeTerrestrial: resource.KindGold,
	PlanetTypeGasGiant:    resource.KindGas,
	PlanetTypeIce:         resource.KindDarkMatter,
	PlanetTypeVolcanic:    resource.KindIron,
}

// Affinity returns the resource a planet type is rich in.
func Affinity(t PlanetType) resource.Kind {
	if k, ok := affinities[t]; ok {
		return k
	}
	return resource.KindGold
}
