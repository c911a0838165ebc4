package catalog

import (
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"

	apperrors "sco-server/internal/shared/errors"
)

//go:embed data/items.yaml
var defaultItems []byte

// ErrItemNotFound is wrapped by every failed Lookup.
var ErrItemNotFound = errors.New("catalog item not found")

// Catalog is the immutable registry of purchasable items. Build it once and share
// the pointer; it has no mutating methods.
type Catalog struct {
	items  map[string]Item
	order  []string
	digest string
}

type document struct {
	Items []Item `yaml:"items"`
}

// Default returns the catalog shipped with the server.
func Default() (*Catalog, error) {
	return Parse(defaultItems)
}

// Load reads a YAML catalog from disk.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(doc.Items)
}

// New validates the items and builds the registry.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{items: make(map[string]Item, len(items))}

	for _, item := range items {
		if item.ID == "" {
			return nil, apperrors.Validation("catalog item without id")
		}
		if _, dup := c.items[item.ID]; dup {
			return nil, apperrors.Validationf("duplicate catalog item %q", item.ID)
		}
		if err := checkShape(item); err != nil {
			return nil, err
		}
		c.items[item.ID] = item.clone()
		c.order = append(c.order, item.ID)
	}

	for _, id := range c.order {
		if err := c.checkReferences(c.items[id]); err != nil {
			return nil, err
		}
	}

	slices.Sort(c.order)
	digest, err := c.computeDigest()
	if err != nil {
		return nil, err
	}
	c.digest = digest
	return c, nil
}

func checkShape(item Item) error {
	payloads := 0
	for _, present := range []bool{item.Building != nil, item.Unit != nil, item.Technology != nil} {
		if present {
			payloads++
		}
	}
	if payloads != 1 {
		return apperrors.Validationf("item %q must carry exactly one payload", item.ID)
	}

	switch item.Kind {
	case KindBuilding:
		if item.Building == nil {
			return apperrors.Validationf("building %q has no building payload", item.ID)
		}
		b := item.Building
		for _, limit := range []*int{b.MaxPerPlanet, b.MaxPerPlayer, b.MaxPerSystem} {
			if limit != nil && *limit < 1 {
				return apperrors.Validationf("building %q has a cap below 1", item.ID)
			}
		}
		if b.ResourceYield != nil && !b.ResourceYield.NonNegative() {
			return apperrors.Validationf("building %q has a negative yield", item.ID)
		}
		if b.FoodYield < 0 {
			return apperrors.Validationf("building %q has a negative food yield", item.ID)
		}
	case KindUnit:
		if item.Unit == nil {
			return apperrors.Validationf("unit %q has no unit payload", item.ID)
		}
		if item.Unit.Speed < 0 || item.Unit.Endurance < 0 || item.Unit.FirePower < 0 {
			return apperrors.Validationf("unit %q has negative combat attributes", item.ID)
		}
	case KindTechnology:
		if item.Technology == nil {
			return apperrors.Validationf("technology %q has no technology payload", item.ID)
		}
		if f := item.Technology.Family; f != FamilyCivil && f != FamilyMilitary {
			return apperrors.Validationf("technology %q has unknown family %q", item.ID, f)
		}
	default:
		return apperrors.Validationf("item %q has unknown kind %q", item.ID, item.Kind)
	}

	if !item.Cost.NonNegative() {
		return apperrors.Validationf("item %q has a negative cost", item.ID)
	}
	if item.ProductionTime < 0 {
		return apperrors.Validationf("item %q has a negative production time", item.ID)
	}
	return nil
}

func (c *Catalog) checkReferences(item Item) error {
	for _, req := range item.TechnologyRequirements {
		ref, ok := c.items[req]
		if !ok || ref.Kind != KindTechnology || req == item.ID {
			return apperrors.Validationf("item %q requires unknown technology %q", item.ID, req)
		}
	}
	for _, req := range item.BuildingRequirements() {
		ref, ok := c.items[req]
		if !ok || ref.Kind != KindBuilding || req == item.ID {
			return apperrors.Validationf("item %q requires unknown building %q", item.ID, req)
		}
	}
	return nil
}

func (c *Catalog) computeDigest() (string, error) {
	canonical, err := json.Marshal(c.Items())
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog for digest: %w", err)
	}
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Lookup returns a detached copy of the item with the given id.
func (c *Catalog) Lookup(id string) (Item, error) {
	item, ok := c.items[id]
	if !ok {
		return Item{}, apperrors.WrapNotFound(fmt.Sprintf("unknown catalog item %q", id), ErrItemNotFound)
	}
	return item.clone(), nil
}

// Has reports whether id is registered without copying the item.
func (c *Catalog) Has(id string) bool {
	_, ok := c.items[id]
	return ok
}

// KindOf returns the discriminant of a registered item.
func (c *Catalog) KindOf(id string) (Kind, bool) {
	item, ok := c.items[id]
	return item.Kind, ok
}

// Items returns every item sorted by id.
func (c *Catalog) Items() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id].clone())
	}
	return out
}

func (c *Catalog) ByKind(kind Kind) []Item {
	var out []Item
	for _, id := range c.order {
		if item := c.items[id]; item.Kind == kind {
			out = append(out, item.clone())
		}
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Digest identifies the catalog contents. Snapshots record it so a game is never
// resumed against a different item set.
func (c *Catalog) Digest() string {
	return c.digest
}
