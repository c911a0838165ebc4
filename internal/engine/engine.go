package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"sco-server/internal/action"
	"sco-server/internal/catalog"
	"sco-server/internal/economy"
	"sco-server/internal/spatial"
	"sco-server/internal/state"
	"sco-server/internal/validation"
)

var (
	ErrNotOpen       = errors.New("turn is not open for submissions")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrForeignAction = errors.New("action belongs to another player")
)

// CommitFunc persists the record produced by a resolution. The engine adopts
// the record only if it returns nil.
type CommitFunc func(ctx context.Context, next Record) error

type Deps struct {
	Catalog *catalog.Catalog
	Map     *spatial.Map
	Layout  *spatial.Layout
	Logger  *slog.Logger
}

// Engine owns the state of one game and moves it through the turn cycle
// open, resolving, resolved and back to open.
type Engine struct {
	catalog   *catalog.Catalog
	world     *spatial.Map
	layout    *spatial.Layout
	validator *validation.Validator
	logger    *slog.Logger

	// resolveMu serialises resolutions; mu guards the fields below it.
	resolveMu sync.Mutex
	mu        sync.RWMutex
	phase     Phase
	record    Record
}

// New resumes an engine from a record. The record is copied.
func New(deps Deps, rec Record) (*Engine, error) {
	if deps.Catalog == nil || deps.Map == nil || deps.Layout == nil {
		return nil, fmt.Errorf("engine requires a catalog, a map and a layout")
	}
	if rec.State == nil {
		return nil, fmt.Errorf("engine requires a state")
	}
	if err := rec.State.Validate(deps.Map); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rec = rec.clone()
	for playerID, batch := range rec.Pending {
		if err := checkBatch(rec.State, playerID, batch); err != nil {
			return nil, err
		}
	}

	return &Engine{
		catalog:   deps.Catalog,
		world:     deps.Map,
		layout:    deps.Layout,
		validator: validation.New(deps.Catalog, deps.Map, deps.Layout),
		logger:    logger,
		phase:     PhaseOpen,
		record:    rec,
	}, nil
}

func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// Turn is the number of the open turn, which is also the count of turns
// resolved so far.
func (e *Engine) Turn() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.record.Turn
}

// State returns a copy of the committed state.
func (e *Engine) State() *state.GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.record.State.Clone()
}

// Record returns a copy of everything needed to resume the engine.
func (e *Engine) Record() Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.record.clone()
}

func (e *Engine) Validator() *validation.Validator {
	return e.validator
}

// Submit replaces the player's batch for the open turn. An empty batch
// withdraws it.
func (e *Engine) Submit(playerID string, batch []action.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseOpen {
		return ErrNotOpen
	}
	if err := checkBatch(e.record.State, playerID, batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		delete(e.record.Pending, playerID)
		return nil
	}
	if e.record.Pending == nil {
		e.record.Pending = make(map[string][]action.Action)
	}
	e.record.Pending[playerID] = action.CloneAll(batch)
	return nil
}

func checkBatch(s *state.GameState, playerID string, batch []action.Action) error {
	if _, ok := s.Player(playerID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	for _, a := range batch {
		if a.Player() != playerID {
			return fmt.Errorf("%w: %s submitted an action for %s", ErrForeignAction, playerID, a.Player())
		}
	}
	return nil
}

// Submission returns the player's pending batch, empty when none.
func (e *Engine) Submission(playerID string) []action.Action {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return action.CloneAll(e.record.Pending[playerID])
}

// Submitted lists, sorted, the players that have a pending batch.
func (e *Engine) Submitted() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.record.Pending))
	for id := range e.record.Pending {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// AllSubmitted reports whether every alive player has a pending batch.
func (e *Engine) AllSubmitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for id, p := range e.record.State.Players {
		if !p.Alive() {
			continue
		}
		if _, ok := e.record.Pending[id]; !ok {
			return false
		}
	}
	return true
}

// Log returns the entries of every resolved turn for one player, oldest first.
func (e *Engine) Log(playerID string) []LogEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []LogEntry
	for _, entry := range e.record.Log {
		if entry.PlayerID == playerID {
			out = append(out, entry)
		}
	}
	return out
}

// Resolve runs one turn. It works on a copy of the committed state, hands the
// resulting record to commit, and adopts it only once commit succeeds; on any
// error the engine is back to open with its state and submissions untouched.
func (e *Engine) Resolve(ctx context.Context, commit CommitFunc) (*Result, error) {
	e.resolveMu.Lock()
	defer e.resolveMu.Unlock()

	logger := e.logger.With("component", "turn_engine", "operation", "resolve")

	e.mu.Lock()
	if e.phase != PhaseOpen {
		e.mu.Unlock()
		return nil, ErrNotOpen
	}
	e.phase = PhaseResolving
	current := e.record.clone()
	e.mu.Unlock()

	reopen := func() {
		e.mu.Lock()
		e.phase = PhaseOpen
		e.mu.Unlock()
	}

	logger = logger.With("turn", current.Turn)
	logger.Debug("Resolving turn", "submissions", len(current.Pending))

	next, result, err := e.resolve(current, logger)
	if err != nil {
		reopen()
		logger.Error("Turn resolution broke a state invariant", "error", err)
		return nil, err
	}

	e.mu.Lock()
	e.phase = PhaseResolved
	e.mu.Unlock()

	if commit != nil {
		if err := commit(ctx, next.clone()); err != nil {
			reopen()
			logger.Error("Failed to commit resolved turn", "error", err)
			return nil, err
		}
	}

	e.mu.Lock()
	e.record = next
	e.phase = PhaseOpen
	e.mu.Unlock()

	logger.Info("Turn resolved",
		"applied", result.Applied,
		"rejected", result.Rejected,
		"defeated", len(result.Defeated))
	return result, nil
}

// Preview applies only playerID's pending batch to a copy of the committed
// state, then adds one turn of production.
func (e *Engine) Preview(playerID string) (*Projection, error) {
	e.mu.RLock()
	s := e.record.State.Clone()
	batch := action.CloneAll(e.record.Pending[playerID])
	turn := e.record.Turn
	e.mu.RUnlock()

	if _, ok := s.Player(playerID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	logger := e.logger.With("component", "turn_engine", "operation", "preview", "player_id", playerID)
	r := &resolver{engine: e, state: s, turn: turn, logger: logger}
	r.advanceProduction(playerID)
	r.applyBatch(playerID, batch)
	income := r.credit(economy.NewCalculator(e.catalog, s), playerID)

	player, _ := s.Player(playerID)
	return &Projection{
		Turn:       turn,
		Player:     player,
		Income:     income,
		Entries:    r.entries,
		Violations: r.rejected,
	}, nil
}
