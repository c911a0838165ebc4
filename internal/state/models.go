package state

import "sco-server/internal/resource"

type PlayerStatus string

const (
	PlayerStatusAlive    PlayerStatus = "alive"
	PlayerStatusDefeated PlayerStatus = "defeated"
)

// ProductionStatus is one entry of a player's production queue. The cost was
// paid when it was queued.
type ProductionStatus struct {
	ItemID         string `json:"itemId"`
	LocationID     string `json:"locationId"`
	RemainingTurns int    `json:"remainingTurns"`
}

type Player struct {
	ID           string             `json:"id"`
	Status       PlayerStatus       `json:"status"`
	Resources    resource.Amount    `json:"resourcesAmount"`
	Technologies map[string]bool    `json:"technologies"`
	Production   []ProductionStatus `json:"productionStatuses"`
}

func (p Player) Alive() bool {
	return p.Status == PlayerStatusAlive
}

func (p Player) HasTechnology(id string) bool {
	return p.Technologies[id]
}

// Planet is the mutable part of a planet: who owns it. An empty owner means
// the planet is uninhabited.
type Planet struct {
	LocationID    string `json:"locationId"`
	OwnerPlayerID string `json:"ownerPlayerId,omitempty"`
}

func (p Planet) OwnedBy(playerID string) bool {
	return p.OwnerPlayerID != "" && p.OwnerPlayerID == playerID
}

type Building struct {
	ID         string `json:"id"`
	TypeID     string `json:"buildingTypeId"`
	PlayerID   string `json:"playerId"`
	LocationID string `json:"locationId"`
}

type Unit struct {
	ID         string `json:"id"`
	TypeID     string `json:"unitTypeId"`
	PlayerID   string `json:"playerId"`
	LocationID string `json:"locationId"`
}

// Market is an opaque bag reserved for trading; the engine carries it without
// interpreting it.
type Market map[string]any
