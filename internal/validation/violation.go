package validation

import (
	"fmt"
	"strings"

	"sco-server/internal/resource"
)

// ViolationKind enumerates every reason an action can be illegal.
type ViolationKind string

const (
	UnknownItem                ViolationKind = "unknown_item"
	UnmetTechnologyRequirement ViolationKind = "unmet_technology_requirement"
	UnmetBuildingRequirement   ViolationKind = "unmet_building_requirement"
	InsufficientResources      ViolationKind = "insufficient_resources"
	InvalidLocationOwnership   ViolationKind = "invalid_location_ownership"
	CapExceeded                ViolationKind = "cap_exceeded"
	AlreadyResearched          ViolationKind = "already_researched"
	UnknownPlayer              ViolationKind = "unknown_player"
	PlayerDefeated             ViolationKind = "player_defeated"
	UnknownUnit                ViolationKind = "unknown_unit"
	NotUnitOwner               ViolationKind = "not_unit_owner"
	DuplicateUnit              ViolationKind = "duplicate_unit"
	OutOfRange                 ViolationKind = "out_of_range"
	InvalidTarget              ViolationKind = "invalid_target"
)

var ViolationKinds = []ViolationKind{
	UnknownItem, UnmetTechnologyRequirement, UnmetBuildingRequirement,
	InsufficientResources, InvalidLocationOwnership, CapExceeded,
	AlreadyResearched, UnknownPlayer, PlayerDefeated,
	UnknownUnit, NotUnitOwner, DuplicateUnit, OutOfRange, InvalidTarget,
}

type CapScope string

const (
	CapPerPlanet CapScope = "planet"
	CapPerPlayer CapScope = "player"
	CapPerSystem CapScope = "system"
)

// Violation explains why an action was refused, with enough context for a
// client to render the message itself.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	PlayerID   string        `json:"playerId"`
	ItemID     string        `json:"itemId,omitempty"`
	LocationID string        `json:"locationId,omitempty"`
	UnitID     string        `json:"unitId,omitempty"`

	// Missing lists unmet technology or building prerequisites.
	Missing []string `json:"missing,omitempty"`

	// Shortfall is how much of each resource the player lacks.
	Shortfall *resource.Amount `json:"shortfall,omitempty"`

	CapScope CapScope `json:"capScope,omitempty"`
	Cap      int      `json:"cap,omitempty"`
	Count    int      `json:"count,omitempty"`
}

func (v *Violation) Error() string {
	switch v.Kind {
	case UnknownItem:
		return fmt.Sprintf("unknown item %q", v.ItemID)
	case UnmetTechnologyRequirement:
		return fmt.Sprintf("%s requires technologies: %s", v.ItemID, strings.Join(v.Missing, ", "))
	case UnmetBuildingRequirement:
		return fmt.Sprintf("%s requires buildings at %s: %s", v.ItemID, v.LocationID, strings.Join(v.Missing, ", "))
	case InsufficientResources:
		return fmt.Sprintf("insufficient resources for %s, short by %v", v.ItemID, v.Shortfall)
	case InvalidLocationOwnership:
		return fmt.Sprintf("player %s does not own %s", v.PlayerID, v.LocationID)
	case CapExceeded:
		return fmt.Sprintf("%s is capped at %d per %s (already %d)", v.ItemID, v.Cap, v.CapScope, v.Count)
	case AlreadyResearched:
		return fmt.Sprintf("technology %s is already researched or queued", v.ItemID)
	case UnknownPlayer:
		return fmt.Sprintf("unknown player %q", v.PlayerID)
	case PlayerDefeated:
		return fmt.Sprintf("player %s is defeated", v.PlayerID)
	case UnknownUnit:
		return fmt.Sprintf("unknown unit %q", v.UnitID)
	case NotUnitOwner:
		return fmt.Sprintf("player %s does not own unit %s", v.PlayerID, v.UnitID)
	case DuplicateUnit:
		return fmt.Sprintf("unit %s is listed more than once", v.UnitID)
	case OutOfRange:
		return fmt.Sprintf("unit %s cannot reach %s", v.UnitID, v.LocationID)
	case InvalidTarget:
		return fmt.Sprintf("invalid target %q", v.LocationID)
	default:
		return string(v.Kind)
	}
}
