package engine

import (
	"fmt"
	"log/slog"

	"sco-server/internal/action"
	"sco-server/internal/catalog"
	"sco-server/internal/economy"
	"sco-server/internal/resource"
	"sco-server/internal/state"
)

// resolver carries the scratch state of one resolution or preview.
type resolver struct {
	engine *Engine
	state  *state.GameState
	turn   int
	logger *slog.Logger

	entries  []LogEntry
	applied  int
	rejected int
}

func (e *Engine) resolve(current Record, logger *slog.Logger) (Record, *Result, error) {
	r := &resolver{engine: e, state: current.State, turn: current.Turn, logger: logger}
	players := r.state.PlayerIDs()

	for _, id := range players {
		r.advanceProduction(id)
	}
	for _, id := range players {
		r.applyBatch(id, current.Pending[id])
	}
	calc := economy.NewCalculator(e.catalog, r.state)
	for _, id := range players {
		r.credit(calc, id)
	}
	defeated := r.markDefeated(players)

	if err := r.state.Validate(e.world); err != nil {
		return Record{}, nil, err
	}

	next := Record{
		Turn:    current.Turn + 1,
		State:   r.state,
		Pending: map[string][]action.Action{},
		Log:     append(current.Log, r.entries...),
	}
	return next, &Result{
		Turn:     current.Turn,
		Entries:  r.entries,
		Applied:  r.applied,
		Rejected: r.rejected,
		Defeated: defeated,
	}, nil
}

// applyBatch validates and applies each action in submission order. A
// rejected action is logged and skipped; it never affects the others.
func (r *resolver) applyBatch(playerID string, batch []action.Action) {
	for _, a := range batch {
		entry := LogEntry{Turn: r.turn, PlayerID: playerID, Action: a}

		ok, violation := r.engine.validator.Safe(a, r.state)
		if ok {
			if err := r.apply(a); err != nil {
				ok = false
				entry.Reason = err.Error()
			}
		} else {
			entry.Reason = violation.Error()
			entry.Violation = violation
		}

		if ok {
			entry.Outcome = OutcomeApplied
			r.applied++
		} else {
			entry.Outcome = OutcomeRejected
			r.rejected++
			r.logger.Debug("Action rejected",
				"player_id", playerID,
				"action", action.Describe(a),
				"reason", entry.Reason)
		}
		r.entries = append(r.entries, entry)
	}
}

// apply performs a validated action. Every check that can fail runs before the
// first mutation, so an action is applied whole or not at all.
func (r *resolver) apply(a action.Action) error {
	switch a := a.(type) {
	case action.Produce:
		return r.applyProduce(a)
	case action.Move:
		for _, id := range a.UnitIDs {
			if err := r.state.MoveUnit(id, a.TargetLocationID); err != nil {
				return err
			}
		}
		return nil
	case action.Attack:
		return r.applyAttack(a)
	default:
		panic(fmt.Sprintf("engine: unhandled action %T", a))
	}
}

func (r *resolver) applyProduce(a action.Produce) error {
	item, err := r.engine.catalog.Lookup(a.ItemID)
	if err != nil {
		return err
	}
	if err := r.state.Debit(a.PlayerID, item.Cost); err != nil {
		return err
	}
	if item.ProductionTime <= 0 {
		r.complete(a.PlayerID, state.ProductionStatus{ItemID: item.ID, LocationID: a.LocationID})
		return nil
	}
	return r.state.Enqueue(a.PlayerID, state.ProductionStatus{
		ItemID:         item.ID,
		LocationID:     a.LocationID,
		RemainingTurns: item.ProductionTime,
	})
}

// applyAttack spends the attackers' combined firepower on the defenders at the
// target in id order, destroying each one whose endurance still fits. If the
// target is cleared the attackers advance into it and take any planet there.
func (r *resolver) applyAttack(a action.Attack) error {
	var firepower float64
	for _, id := range a.UnitIDs {
		firepower += r.unitSpec(r.state.Units[id].TypeID).FirePower
	}

	var defenders []state.Unit
	for _, u := range r.state.UnitsAt(a.TargetLocationID) {
		if u.PlayerID != a.PlayerID {
			defenders = append(defenders, u)
		}
	}

	destroyed := 0
	for _, d := range defenders {
		endurance := r.unitSpec(d.TypeID).Endurance
		if endurance > firepower {
			break
		}
		firepower -= endurance
		if err := r.state.RemoveUnit(d.ID); err != nil {
			return err
		}
		destroyed++
	}
	if destroyed < len(defenders) {
		return nil
	}

	for _, id := range a.UnitIDs {
		if err := r.state.MoveUnit(id, a.TargetLocationID); err != nil {
			return err
		}
	}
	if p, ok := r.state.Planet(a.TargetLocationID); ok && p.OwnerPlayerID != "" && !p.OwnedBy(a.PlayerID) {
		r.logger.Info("Planet captured",
			"location_id", a.TargetLocationID,
			"from", p.OwnerPlayerID,
			"to", a.PlayerID)
		return r.state.CapturePlanet(a.TargetLocationID, a.PlayerID)
	}
	return nil
}

func (r *resolver) unitSpec(typeID string) catalog.UnitSpec {
	item, err := r.engine.catalog.Lookup(typeID)
	if err != nil || item.Unit == nil {
		return catalog.UnitSpec{}
	}
	return *item.Unit
}

// advanceProduction ticks the player's queue once, completing items that reach
// zero remaining turns.
func (r *resolver) advanceProduction(playerID string) {
	player, ok := r.state.Player(playerID)
	if !ok || len(player.Production) == 0 {
		return
	}

	var remaining []state.ProductionStatus
	var done []state.ProductionStatus
	for _, p := range player.Production {
		p.RemainingTurns--
		if p.RemainingTurns <= 0 {
			done = append(done, p)
			continue
		}
		remaining = append(remaining, p)
	}
	if remaining == nil {
		remaining = []state.ProductionStatus{}
	}
	_ = r.state.SetProduction(playerID, remaining)

	for _, p := range done {
		r.complete(playerID, p)
	}
}

// complete turns a finished production item into a technology, building or
// unit. Items at a planet the player no longer owns are lost.
func (r *resolver) complete(playerID string, p state.ProductionStatus) {
	item, err := r.engine.catalog.Lookup(p.ItemID)
	if err != nil {
		r.logger.Warn("Dropping production of unknown item", "player_id", playerID, "item_id", p.ItemID)
		return
	}

	if item.Kind == catalog.KindTechnology {
		_ = r.state.GrantTechnology(playerID, item.ID)
		return
	}

	planet, ok := r.state.Planet(p.LocationID)
	if !ok || !planet.OwnedBy(playerID) {
		r.logger.Debug("Dropping production at lost planet",
			"player_id", playerID,
			"item_id", item.ID,
			"location_id", p.LocationID)
		return
	}

	switch item.Kind {
	case catalog.KindBuilding:
		_, err = r.state.AddBuilding(item.ID, playerID, p.LocationID)
	case catalog.KindUnit:
		_, err = r.state.AddUnit(item.ID, playerID, p.LocationID)
	}
	if err != nil {
		r.logger.Warn("Failed to complete production", "player_id", playerID, "item_id", item.ID, "error", err)
	}
}

// credit adds one turn of production to an alive player's stock.
func (r *resolver) credit(calc *economy.Calculator, playerID string) resource.Amount {
	player, ok := r.state.Player(playerID)
	if !ok || !player.Alive() {
		return resource.Zero()
	}
	income := calc.PlayerProduction(playerID)
	_ = r.state.Credit(playerID, income)
	return income
}

// markDefeated retires alive players left with neither planets nor units.
func (r *resolver) markDefeated(players []string) []string {
	var defeated []string
	for _, id := range players {
		player, _ := r.state.Player(id)
		if !player.Alive() {
			continue
		}
		if len(r.state.PlanetsOf(id)) == 0 && len(r.state.UnitsOf(id)) == 0 {
			_ = r.state.SetStatus(id, state.PlayerStatusDefeated)
			defeated = append(defeated, id)
			r.logger.Info("Player defeated", "player_id", id)
		}
	}
	return defeated
}
