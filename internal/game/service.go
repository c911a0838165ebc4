package game

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"sco-server/internal/action"
	"sco-server/internal/catalog"
	"sco-server/internal/engine"
	"sco-server/internal/shared/errors"
	"sco-server/internal/snapshot"
	"sco-server/internal/spatial"
	"sco-server/internal/state"
	"sco-server/internal/validation"
	"sco-server/internal/visibility"
)

// session is a loaded game. Its engine is the authority for turn and state;
// meta is guarded by Service.mu. persist orders every store write of the game
// so a submission can never save an older turn over a resolved one.
type session struct {
	meta    snapshot.Meta
	world   *spatial.Map
	layout  *spatial.Layout
	players []string
	engine  *engine.Engine

	persist sync.Mutex
}

type Service struct {
	catalog   *catalog.Catalog
	generator *spatial.Generator
	layouts   *spatial.LayoutCache
	filter    *visibility.Filter
	store     Store
	locker    Locker
	notifier  Notifier
	settings  Settings
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type Option func(*Service)

func WithLocker(l Locker) Option     { return func(s *Service) { s.locker = l } }
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	c *catalog.Catalog,
	generator *spatial.Generator,
	filter *visibility.Filter,
	store Store,
	settings Settings,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		catalog:   c,
		generator: generator,
		layouts:   spatial.NewLayoutCache(),
		filter:    filter,
		store:     store,
		locker:    noopLocker{},
		notifier:  noopNotifier{},
		settings:  settings,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// CreateGame generates a map, assigns origins and persists the initial state.
func (s *Service) CreateGame(ctx context.Context, req CreateRequest) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "create_game", "players", len(req.Players))
	logger.Info("Creating new game")

	if err := s.checkPlayers(req.Players); err != nil {
		return nil, err
	}

	seed := rand.Int63()
	if req.Seed != nil {
		seed = *req.Seed
	}

	world, origins, err := s.generator.Generate(len(req.Players), seed)
	if err != nil {
		logger.Error("Failed to generate map", "seed", seed, "error", err)
		return nil, errors.WrapInternal("failed to generate map", err)
	}
	layout, err := s.layouts.Get(world)
	if err != nil {
		return nil, errors.WrapInternal("failed to derive map layout", err)
	}

	planets := world.PlanetCells()
	slices.Sort(planets)
	originCells := make([]string, len(origins))
	for i, o := range origins {
		originCells[i] = o.CellID
	}

	initial, err := state.New(req.Players, s.settings.StartingStock, planets, originCells)
	if err != nil {
		logger.Error("Failed to build initial state", "error", err)
		return nil, errors.WrapInternal("failed to build initial state", err)
	}

	eng, err := engine.New(s.engineDeps(world, layout), engine.Record{State: initial})
	if err != nil {
		return nil, errors.WrapInternal("failed to start turn engine", err)
	}

	now := s.now().UTC()
	name := req.Name
	if name == "" {
		name = "Game " + now.Format("2006-01-02 15:04")
	}
	meta := snapshot.Meta{
		ID:                  uuid.NewString(),
		Name:                name,
		Status:              snapshot.StatusActive,
		MaxPlayers:          len(req.Players),
		TurnIntervalMinutes: int(s.settings.TurnInterval / time.Minute),
		NextTurnAt:          s.nextTurnAt(now),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	sess := &session{meta: meta, world: world, layout: layout, players: slices.Clone(req.Players), engine: eng}
	if err := s.store.Save(ctx, s.snapshotOf(sess, eng.Record())); err != nil {
		logger.Error("Failed to save new game", "game_id", meta.ID, "error", err)
		return nil, errors.WrapPersistence("failed to save game", err)
	}

	s.mu.Lock()
	s.sessions[meta.ID] = sess
	s.mu.Unlock()

	logger.Info("Game created successfully",
		"game_id", meta.ID,
		"map_id", world.ID,
		"seed", seed,
		"planets", len(planets))
	return s.view(sess), nil
}

func (s *Service) checkPlayers(players []string) error {
	if len(players) < max(s.settings.MinPlayers, 1) {
		return errors.Validationf("at least %d players are required", max(s.settings.MinPlayers, 1))
	}
	if s.settings.MaxPlayers > 0 && len(players) > s.settings.MaxPlayers {
		return errors.Validationf("at most %d players are allowed", s.settings.MaxPlayers)
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p == "" {
			return errors.Validation("player ids must not be empty")
		}
		if seen[p] {
			return errors.Validationf("duplicate player %q", p)
		}
		seen[p] = true
	}
	return nil
}

func (s *Service) GetGame(ctx context.Context, gameID string) (*Game, error) {
	sess, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// ListGames returns every stored game, oldest first.
func (s *Service) ListGames(ctx context.Context) ([]Game, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.WrapPersistence("failed to list games", err)
	}
	games := make([]Game, 0, len(ids))
	for _, id := range ids {
		sess, err := s.session(ctx, id)
		if err != nil {
			return nil, err
		}
		games = append(games, *s.view(sess))
	}
	slices.SortStableFunc(games, func(a, b Game) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return games, nil
}

// IsMember reports whether playerID takes part in the game.
func (s *Service) IsMember(ctx context.Context, gameID, playerID string) (bool, error) {
	sess, err := s.session(ctx, gameID)
	if err != nil {
		return false, err
	}
	return slices.Contains(sess.players, playerID), nil
}

// GetGameState returns the player's fog-of-war view of the committed state.
func (s *Service) GetGameState(ctx context.Context, gameID, playerID string) (*visibility.VisibleState, error) {
	sess, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	view, err := s.filter.StateForPlayer(playerID, sess.engine.State(), sess.layout)
	if err != nil {
		return nil, errors.WrapNotFound(fmt.Sprintf("player %s is not in game %s", playerID, gameID), err)
	}
	return view, nil
}

func (s *Service) GetActions(ctx context.Context, gameID, playerID string) ([]action.Action, error) {
	sess, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return sess.engine.Submission(playerID), nil
}

// SubmitActions replaces the player's batch for the open turn and persists it.
// Actions are only checked for shape here; legality is decided at resolution.
func (s *Service) SubmitActions(ctx context.Context, gameID, playerID string, batch []action.Action) error {
	return s.submit(ctx, gameID, playerID, nil, batch)
}

// SubmitActionsForTurn is SubmitActions for a batch written against a known
// turn. It fails with a conflict once that turn is no longer open.
func (s *Service) SubmitActionsForTurn(ctx context.Context, gameID, playerID string, turn int, batch []action.Action) error {
	return s.submit(ctx, gameID, playerID, &turn, batch)
}

func (s *Service) submit(ctx context.Context, gameID, playerID string, turn *int, batch []action.Action) error {
	logger := s.logger.With("component", "game_service", "operation", "submit_actions",
		"game_id", gameID, "player_id", playerID, "actions", len(batch))

	sess, err := s.session(ctx, gameID)
	if err != nil {
		return err
	}

	open, err := s.storeSubmission(ctx, sess, playerID, turn, batch)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypePersistence) {
			logger.Error("Failed to persist submission", "error", err)
		}
		return err
	}
	logger.Debug("Actions submitted", "turn", open)

	s.notifier.Publish(ctx, Event{Type: EventActionsSubmitted, GameID: gameID, Turn: open, PlayerID: playerID})

	if s.settings.AutoResolve && sess.engine.AllSubmitted() {
		logger.Info("Every player submitted, resolving turn")
		if _, err := s.ResolveTurn(ctx, gameID); err != nil && errors.GetType(err) != errors.ErrorTypeConflict {
			return err
		}
	}
	return nil
}

// storeSubmission records and saves the batch under the game's persist lock and
// returns the turn it was stored for.
func (s *Service) storeSubmission(ctx context.Context, sess *session, playerID string, turn *int, batch []action.Action) (int, error) {
	sess.persist.Lock()
	defer sess.persist.Unlock()

	if err := s.checkActive(sess); err != nil {
		return 0, err
	}
	open := sess.engine.Turn()
	if turn != nil && *turn != open {
		return 0, errors.Conflictf("actions are for turn %d but turn %d is open", *turn, open)
	}

	previous := sess.engine.Submission(playerID)
	if err := sess.engine.Submit(playerID, batch); err != nil {
		return 0, mapEngineError(err)
	}

	if err := s.store.Save(ctx, s.snapshotOf(sess, sess.engine.Record())); err != nil {
		if rollback := sess.engine.Submit(playerID, previous); rollback != nil {
			s.logger.Error("Failed to restore previous submission",
				"component", "game_service", "player_id", playerID, "error", rollback)
		}
		return 0, errors.WrapPersistence("failed to save submission", err)
	}
	return open, nil
}

func (s *Service) checkActive(sess *session) error {
	s.mu.Lock()
	meta := sess.meta
	s.mu.Unlock()
	if meta.Status != snapshot.StatusActive {
		return errors.Conflictf("game %s is %s", meta.ID, meta.Status)
	}
	return nil
}

// GetLog returns the player's entries across all resolved turns.
func (s *Service) GetLog(ctx context.Context, gameID, playerID string) ([]engine.LogEntry, error) {
	sess, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	entries := sess.engine.Log(playerID)
	if entries == nil {
		entries = []engine.LogEntry{}
	}
	return entries, nil
}

// Preview projects the player's pending batch onto the committed state.
func (s *Service) Preview(ctx context.Context, gameID, playerID string) (*engine.Projection, error) {
	sess, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	p, err := sess.engine.Preview(playerID)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return p, nil
}

// Availability lists the catalog items whose prerequisites the player meets at
// a location.
func (s *Service) Availability(ctx context.Context, gameID, playerID, locationID string) ([]catalog.Item, error) {
	sess, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	items := sess.engine.Validator().Available(playerID, locationID, sess.engine.State())
	if items == nil {
		items = []catalog.Item{}
	}
	return items, nil
}

// ResolveTurn resolves the open turn of a game. The resolved state is saved
// before it becomes visible; a failed save leaves the turn open.
func (s *Service) ResolveTurn(ctx context.Context, gameID string) (*engine.Result, error) {
	logger := s.logger.With("component", "game_service", "operation", "resolve_turn", "game_id", gameID)

	unlock, err := s.locker.Lock(ctx, gameID)
	if err != nil {
		if stderrors.Is(err, ErrLocked) {
			return nil, errors.Conflictf("turn of game %s is already being resolved", gameID)
		}
		logger.Error("Failed to acquire resolution lock", "error", err)
		return nil, errors.WrapInternal("failed to acquire resolution lock", err)
	}
	defer unlock()

	sess, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}

	sess.persist.Lock()
	defer sess.persist.Unlock()

	if err := s.checkActive(sess); err != nil {
		return nil, err
	}

	var meta snapshot.Meta
	result, err := sess.engine.Resolve(ctx, func(ctx context.Context, next engine.Record) error {
		s.mu.Lock()
		meta = sess.meta
		s.mu.Unlock()

		now := s.now().UTC()
		meta.UpdatedAt = now
		meta.NextTurnAt = s.nextTurnAt(now)
		if alive(next.State) <= 1 && len(sess.players) > 1 {
			meta.Status = snapshot.StatusCompleted
			meta.NextTurnAt = nil
		}

		snap := snapshot.New(meta, sess.world, sess.layout, sess.players, next, s.catalog.Digest())
		if err := s.store.Save(ctx, snap); err != nil {
			return errors.WrapPersistence("failed to save resolved turn", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapEngineError(err)
	}

	s.mu.Lock()
	sess.meta = meta
	s.mu.Unlock()

	logger.Info("Turn resolved",
		"turn", result.Turn,
		"applied", result.Applied,
		"rejected", result.Rejected,
		"status", meta.Status)

	s.notifier.Publish(ctx, Event{Type: EventTurnResolved, GameID: gameID, Turn: result.Turn + 1})
	return result, nil
}

func alive(st *state.GameState) int {
	n := 0
	for _, p := range st.Players {
		if p.Alive() {
			n++
		}
	}
	return n
}

// DueGames lists the loaded active games whose turn should be resolved now.
func (s *Service) DueGames(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for id, sess := range s.sessions {
		if sess.meta.Status != snapshot.StatusActive || sess.engine.Phase() != engine.PhaseOpen {
			continue
		}
		if sess.meta.NextTurnAt != nil && !now.Before(*sess.meta.NextTurnAt) {
			due = append(due, id)
			continue
		}
		if s.settings.AutoResolve && sess.engine.AllSubmitted() {
			due = append(due, id)
		}
	}
	slices.Sort(due)
	return due
}

// LoadAll loads every stored game so the scheduler can see it. Games that fail
// to load are logged and skipped.
func (s *Service) LoadAll(ctx context.Context) (int, error) {
	logger := s.logger.With("component", "game_service", "operation", "load_all")

	ids, err := s.store.List(ctx)
	if err != nil {
		return 0, errors.WrapPersistence("failed to list games", err)
	}
	loaded := 0
	for _, id := range ids {
		if _, err := s.session(ctx, id); err != nil {
			logger.Warn("Skipping game that failed to load", "game_id", id, "error", err)
			continue
		}
		loaded++
	}
	logger.Info("Games loaded", "count", loaded, "stored", len(ids))
	return loaded, nil
}

// session returns the loaded game, loading it from the store on first use.
func (s *Service) session(ctx context.Context, gameID string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[gameID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	logger := s.logger.With("component", "game_service", "operation", "load_game", "game_id", gameID)

	snap, err := s.store.Load(ctx, gameID)
	if err != nil {
		logger.Error("Failed to load game", "error", err)
		return nil, errors.WrapPersistence("failed to load game", err)
	}
	if snap == nil {
		return nil, errors.NotFoundf("game not found: %s", gameID)
	}
	if err := snap.Check(s.catalog.Digest()); err != nil {
		logger.Error("Stored game is unusable", "error", err)
		return nil, errors.WrapInternal("stored game is unusable", err)
	}

	layout := snap.MapLayout
	if layout == nil {
		if layout, err = s.layouts.Get(snap.Map); err != nil {
			return nil, errors.WrapInternal("failed to derive map layout", err)
		}
	}

	eng, err := engine.New(s.engineDeps(snap.Map, layout), snap.Record())
	if err != nil {
		logger.Error("Failed to resume turn engine", "error", err)
		return nil, errors.WrapInternal("failed to resume game", err)
	}

	sess = &session{meta: snap.Game, world: snap.Map, layout: layout, players: snap.Players, engine: eng}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[gameID]; ok {
		return existing, nil
	}
	s.sessions[gameID] = sess
	logger.Debug("Game loaded", "turn", snap.CurrentTurnNumber)
	return sess, nil
}

func (s *Service) engineDeps(world *spatial.Map, layout *spatial.Layout) engine.Deps {
	return engine.Deps{
		Catalog: s.catalog,
		Map:     world,
		Layout:  layout,
		Logger:  s.logger,
	}
}

func (s *Service) snapshotOf(sess *session, rec engine.Record) *snapshot.Snapshot {
	s.mu.Lock()
	meta := sess.meta
	s.mu.Unlock()
	return snapshot.New(meta, sess.world, sess.layout, sess.players, rec, s.catalog.Digest())
}

func (s *Service) nextTurnAt(now time.Time) *time.Time {
	if s.settings.TurnInterval <= 0 {
		return nil
	}
	next := now.Add(s.settings.TurnInterval)
	return &next
}

func (s *Service) view(sess *session) *Game {
	s.mu.Lock()
	meta := sess.meta
	s.mu.Unlock()
	return &Game{
		Meta:        meta,
		CurrentTurn: sess.engine.Turn(),
		Phase:       sess.engine.Phase(),
		Players:     slices.Clone(sess.players),
		Submitted:   sess.engine.Submitted(),
		Map:         sess.world,
		MapLayout:   sess.layout,
	}
}

// mapEngineError translates engine sentinels into application errors. Errors
// that already carry a type pass through unchanged.
func mapEngineError(err error) error {
	var appErr *errors.AppError
	var violation *validation.Violation
	switch {
	case stderrors.As(err, &appErr):
		return err
	case stderrors.Is(err, engine.ErrNotOpen):
		return errors.Conflictf("%v", err)
	case stderrors.Is(err, engine.ErrForeignAction):
		return errors.Forbidden(err.Error())
	case stderrors.Is(err, engine.ErrUnknownPlayer):
		return errors.WrapNotFound("player not in game", err)
	case stderrors.As(err, &violation):
		return errors.WrapValidation(violation.Error(), err)
	default:
		return errors.WrapInternal("turn engine failure", err)
	}
}
