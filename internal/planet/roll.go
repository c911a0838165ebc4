package planet

import (
	"fmt"
	"math/rand"
)

var planetTypes = []PlanetType{
	PlanetTypeBarren,
	PlanetTypeTerrestrial,
	PlanetTypeGasGiant,
	PlanetTypeIce,
	PlanetTypeVolcanic,
}

// Weight terrestrial planets more heavily
var planetTypeWeights = []int{15, 40, 20, 15, 10}

var nameSuffixes = []string{
	"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X",
	"Prime", "Alpha", "Beta", "Gamma", "Major", "Minor", "Core", "Outer",
}

// Roll draws a planet description from rng. Only rng is consulted, so the same
// seed always yields the same planet.
func Roll(rng *rand.Rand, systemName string, index int) Description {
	t := RollType(rng)
	return Description{
		Name:         fmt.Sprintf("%s %s", systemName, nameSuffixes[index%len(nameSuffixes)]),
		Type:         t,
		Size:         50 + rng.Intn(151),
		ResourceType: Affinity(t),
	}
}

// RollType returns a weighted random planet type.
func RollType(rng *rand.Rand) PlanetType {
	totalWeight := 0
	for _, w := range planetTypeWeights {
		totalWeight += w
	}

	roll := rng.Intn(totalWeight)
	currentWeight := 0
	for i, weight := range planetTypeWeights {
		currentWeight += weight
		if roll < currentWeight {
			return planetTypes[i]
		}
	}

	return PlanetTypeTerrestrial
}

// Homeworld is the description used for every origin planet, so no player starts
// on a better rock than another.
func Homeworld(name string) Description {
	return Description{
		Name:         name,
		Type:         PlanetTypeTerrestrial,
		Size:         120,
		ResourceType: Affinity(PlanetTypeTerrestrial),
	}
}
