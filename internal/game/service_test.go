package game

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"sco-server/internal/action"
	"sco-server/internal/catalog/catalogtest"
	"sco-server/internal/engine"
	"sco-server/internal/shared/errors"
	"sco-server/internal/snapshot"
	"sco-server/internal/spatial"
	"sco-server/internal/visibility"
)

var players = []string{"alice", "bob", "carol", "dave"}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyStore fails every Save while failing is set.
type flakyStore struct {
	*MemoryStore
	mu      sync.Mutex
	failing bool
}

func (f *flakyStore) Save(ctx context.Context, s *snapshot.Snapshot) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return stderrors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, s)
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

// gatedStore parks the first Save after arm until release is closed.
type gatedStore struct {
	*MemoryStore
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) arm() {
	g.mu.Lock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
	g.mu.Unlock()
}

func (g *gatedStore) Save(ctx context.Context, s *snapshot.Snapshot) error {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	entered, release := g.entered, g.release
	g.mu.Unlock()
	if armed {
		close(entered)
		<-release
	}
	return g.MemoryStore.Save(ctx, s)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) { return nil, ErrLocked }

func newCodec(t *testing.T) *snapshot.Codec {
	t.Helper()
	codec, err := snapshot.NewCodec(snapshot.CompressionZstd)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func newService(t *testing.T, store Store, settings Settings, opts ...Option) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	generator, err := spatial.NewGenerator(spatial.DefaultGeneratorConfig(), logger)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	c := catalogtest.New()
	return NewService(c, generator, visibility.NewFilter(c, visibility.DefaultSensorRange), store, settings, logger, opts...)
}

func createGame(t *testing.T, svc *Service) *Game {
	t.Helper()
	seed := int64(2024)
	g, err := svc.CreateGame(context.Background(), CreateRequest{Name: "Test", Players: players, Seed: &seed})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return g
}

func origin(t *testing.T, svc *Service, gameID, playerID string) string {
	t.Helper()
	sess, err := svc.session(context.Background(), gameID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	planets := sess.engine.State().PlanetsOf(playerID)
	if len(planets) != 1 {
		t.Fatalf("%s owns %v, want exactly one planet", playerID, planets)
	}
	return planets[0]
}

func TestCreateGameAssignsDistinctOrigins(t *testing.T) {
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings())
	g := createGame(t, svc)

	if g.ID == "" || g.CurrentTurn != 0 || g.Phase != engine.PhaseOpen || g.Status != snapshot.StatusActive {
		t.Fatalf("game = %+v", g)
	}
	if g.NextTurnAt == nil {
		t.Fatal("NextTurnAt not set for a timed game")
	}

	seen := map[string]string{}
	for _, p := range players {
		loc := origin(t, svc, g.ID, p)
		if other, ok := seen[loc]; ok {
			t.Fatalf("%s and %s share origin %s", p, other, loc)
		}
		seen[loc] = p
		if !g.Map.HasPlanet(loc) {
			t.Fatalf("origin %s of %s is not a planet", loc, p)
		}
	}
}

func TestCreateGameRejectsBadPlayerLists(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxPlayers = 3
	svc := newService(t, NewMemoryStore(newCodec(t)), settings)

	cases := map[string][]string{
		"empty":     nil,
		"duplicate": {"alice", "alice"},
		"blank":     {"alice", ""},
		"too many":  players,
	}
	for name, list := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateGame(context.Background(), CreateRequest{Players: list})
			if !errors.IsType(err, errors.ErrorTypeValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestUnknownGameIsNotFound(t *testing.T) {
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings())
	if _, err := svc.GetGame(context.Background(), "nope"); !errors.IsType(err, errors.ErrorTypeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSubmitResolveAndScopedLog(t *testing.T) {
	ctx := context.Background()
	events := &recorder{}
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings(), WithNotifier(events))
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "alice")

	batch := []action.Action{
		action.Produce{PlayerID: "alice", ItemID: catalogtest.Mine, LocationID: home},
		action.Produce{PlayerID: "alice", ItemID: catalogtest.Monument, LocationID: home},
	}
	if err := svc.SubmitActions(ctx, g.ID, "alice", batch); err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}
	got, err := svc.GetActions(ctx, g.ID, "alice")
	if err != nil || len(got) != 2 {
		t.Fatalf("GetActions = %v, %v", got, err)
	}

	result, err := svc.ResolveTurn(ctx, g.ID)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}
	if result.Applied != 1 || result.Rejected != 1 {
		t.Fatalf("result = %+v, want 1 applied and 1 rejected", result)
	}

	after, _ := svc.GetGame(ctx, g.ID)
	if after.CurrentTurn != 1 || len(after.Submitted) != 0 {
		t.Fatalf("after resolution game = %+v", after)
	}

	aliceLog, _ := svc.GetLog(ctx, g.ID, "alice")
	bobLog, _ := svc.GetLog(ctx, g.ID, "bob")
	if len(aliceLog) != 2 || len(bobLog) != 0 {
		t.Fatalf("logs: alice=%d bob=%d, want 2 and 0", len(aliceLog), len(bobLog))
	}

	view, err := svc.GetGameState(ctx, g.ID, "alice")
	if err != nil {
		t.Fatalf("GetGameState: %v", err)
	}
	if len(view.Buildings) != 1 {
		t.Fatalf("visible buildings = %d, want 1", len(view.Buildings))
	}

	want := []EventType{EventActionsSubmitted, EventTurnResolved}
	if got := events.types(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestSubmitForeignActionIsForbidden(t *testing.T) {
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings())
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "bob")

	err := svc.SubmitActions(context.Background(), g.ID, "alice",
		[]action.Action{action.Produce{PlayerID: "bob", ItemID: catalogtest.Mine, LocationID: home}})
	if !errors.IsType(err, errors.ErrorTypeForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestFailedSaveKeepsTurnOpenAndUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(newCodec(t))}
	svc := newService(t, store, DefaultSettings())
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "alice")

	first := []action.Action{action.Produce{PlayerID: "alice", ItemID: catalogtest.Mine, LocationID: home}}
	if err := svc.SubmitActions(ctx, g.ID, "alice", first); err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}

	store.setFailing(true)
	second := []action.Action{action.Produce{PlayerID: "alice", ItemID: catalogtest.Farm, LocationID: home}}
	if err := svc.SubmitActions(ctx, g.ID, "alice", second); !errors.IsType(err, errors.ErrorTypePersistence) {
		t.Fatalf("submit err = %v, want persistence", err)
	}
	kept, _ := svc.GetActions(ctx, g.ID, "alice")
	if len(kept) != 1 || kept[0].(action.Produce).ItemID != catalogtest.Mine {
		t.Fatalf("submission after failed save = %v, want the first batch", kept)
	}

	if _, err := svc.ResolveTurn(ctx, g.ID); !errors.IsType(err, errors.ErrorTypePersistence) {
		t.Fatalf("resolve err = %v, want persistence", err)
	}
	after, _ := svc.GetGame(ctx, g.ID)
	if after.CurrentTurn != 0 || after.Phase != engine.PhaseOpen {
		t.Fatalf("game after failed commit = turn %d phase %s", after.CurrentTurn, after.Phase)
	}

	store.setFailing(false)
	if _, err := svc.ResolveTurn(ctx, g.ID); err != nil {
		t.Fatalf("retry ResolveTurn: %v", err)
	}
}

func TestGamesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(newCodec(t))
	svc := newService(t, store, DefaultSettings())
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "alice")

	if err := svc.SubmitActions(ctx, g.ID, "alice",
		[]action.Action{action.Produce{PlayerID: "alice", ItemID: catalogtest.Mine, LocationID: home}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ResolveTurn(ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.SubmitActions(ctx, g.ID, "bob",
		[]action.Action{action.Produce{PlayerID: "bob", ItemID: catalogtest.Farm, LocationID: origin(t, svc, g.ID, "bob")}}); err != nil {
		t.Fatal(err)
	}

	restarted := newService(t, store, DefaultSettings())
	loaded, err := restarted.LoadAll(ctx)
	if err != nil || loaded != 1 {
		t.Fatalf("LoadAll = %d, %v", loaded, err)
	}
	again, err := restarted.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.CurrentTurn != 1 || len(again.Submitted) != 1 || again.Submitted[0] != "bob" {
		t.Fatalf("restored game = turn %d submitted %v", again.CurrentTurn, again.Submitted)
	}
	if log, _ := restarted.GetLog(ctx, g.ID, "alice"); len(log) != 1 {
		t.Fatalf("restored log = %d entries, want 1", len(log))
	}

	games, err := restarted.ListGames(ctx)
	if err != nil || len(games) != 1 {
		t.Fatalf("ListGames = %v, %v", games, err)
	}
}

func TestResolveWhileLockedIsConflict(t *testing.T) {
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings(), WithLocker(busyLocker{}))
	g := createGame(t, svc)
	if _, err := svc.ResolveTurn(context.Background(), g.ID); !errors.IsType(err, errors.ErrorTypeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestAutoResolveWhenEveryoneSubmitted(t *testing.T) {
	ctx := context.Background()
	settings := DefaultSettings()
	settings.AutoResolve = true
	svc := newService(t, NewMemoryStore(newCodec(t)), settings)
	g := createGame(t, svc)

	for _, p := range players {
		batch := []action.Action{action.Produce{PlayerID: p, ItemID: catalogtest.Farm, LocationID: origin(t, svc, g.ID, p)}}
		if err := svc.SubmitActions(ctx, g.ID, p, batch); err != nil {
			t.Fatalf("SubmitActions(%s): %v", p, err)
		}
	}
	after, _ := svc.GetGame(ctx, g.ID)
	if after.CurrentTurn != 1 {
		t.Fatalf("turn = %d, want 1 after the last submission", after.CurrentTurn)
	}
}

func TestSchedulerResolvesDueGames(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	settings := DefaultSettings()
	settings.TurnInterval = time.Hour
	svc := newService(t, NewMemoryStore(newCodec(t)), settings, WithClock(clk.Now))
	g := createGame(t, svc)

	sched := NewScheduler(svc, time.Second, svc.logger)
	if n := sched.Tick(ctx); n != 0 {
		t.Fatalf("resolved %d games before the deadline", n)
	}

	clk.Advance(time.Hour)
	if n := sched.Tick(ctx); n != 1 {
		t.Fatalf("resolved %d games at the deadline, want 1", n)
	}
	after, _ := svc.GetGame(ctx, g.ID)
	if after.CurrentTurn != 1 {
		t.Fatalf("turn = %d, want 1", after.CurrentTurn)
	}
	if want := clk.Now().Add(time.Hour); after.NextTurnAt == nil || !after.NextTurnAt.Equal(want) {
		t.Fatalf("NextTurnAt = %v, want %v", after.NextTurnAt, want)
	}
}

func TestPreviewAndAvailability(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings())
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "alice")

	if err := svc.SubmitActions(ctx, g.ID, "alice",
		[]action.Action{action.Produce{PlayerID: "alice", ItemID: catalogtest.Mine, LocationID: home}}); err != nil {
		t.Fatal(err)
	}
	p, err := svc.Preview(ctx, g.ID, "alice")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.Violations != 0 || p.Income.Gold != 50 {
		t.Fatalf("projection = %+v", p)
	}

	items, err := svc.Availability(ctx, g.ID, "alice", home)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	for _, item := range items {
		if item.ID == catalogtest.Beacon || item.ID == catalogtest.Warship {
			t.Fatalf("%s offered without its prerequisites", item.ID)
		}
	}
	if len(items) == 0 {
		t.Fatal("no items available at the home planet")
	}
}

func TestSlowSubmissionSaveDoesNotOverwriteResolvedTurn(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{MemoryStore: NewMemoryStore(newCodec(t))}
	svc := newService(t, store, DefaultSettings())
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "alice")

	store.arm()
	submitted := make(chan error, 1)
	go func() {
		submitted <- svc.SubmitActions(ctx, g.ID, "alice",
			[]action.Action{action.Produce{PlayerID: "alice", ItemID: catalogtest.Mine, LocationID: home}})
	}()
	<-store.entered

	resolved := make(chan error, 1)
	go func() {
		_, err := svc.ResolveTurn(ctx, g.ID)
		resolved <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	if err := <-submitted; err != nil {
		t.Fatalf("SubmitActions: %v", err)
	}
	if err := <-resolved; err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	after, _ := svc.GetGame(ctx, g.ID)
	snap, err := store.Load(ctx, g.ID)
	if err != nil || snap == nil {
		t.Fatalf("Load = %v, %v", snap, err)
	}
	if after.CurrentTurn != 1 || snap.CurrentTurnNumber != after.CurrentTurn {
		t.Fatalf("engine turn=%d stored turn=%d, want both 1", after.CurrentTurn, snap.CurrentTurnNumber)
	}

	restarted := newService(t, store, DefaultSettings())
	if log, _ := restarted.GetLog(ctx, g.ID, "alice"); len(log) != 1 {
		t.Fatalf("restored log = %d entries, want the submitted action resolved", len(log))
	}
}

func TestSubmissionForClosedTurnIsConflict(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings())
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "alice")
	batch := []action.Action{action.Produce{PlayerID: "alice", ItemID: catalogtest.Farm, LocationID: home}}

	if err := svc.SubmitActionsForTurn(ctx, g.ID, "alice", 0, batch); err != nil {
		t.Fatalf("SubmitActionsForTurn(0): %v", err)
	}
	if _, err := svc.ResolveTurn(ctx, g.ID); err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	if err := svc.SubmitActionsForTurn(ctx, g.ID, "alice", 0, batch); !errors.IsType(err, errors.ErrorTypeConflict) {
		t.Fatalf("err = %v, want conflict for a resolved turn", err)
	}
	if pending, _ := svc.GetActions(ctx, g.ID, "alice"); len(pending) != 0 {
		t.Fatalf("stale batch landed on the open turn: %v", pending)
	}
	if err := svc.SubmitActionsForTurn(ctx, g.ID, "alice", 1, batch); err != nil {
		t.Fatalf("SubmitActionsForTurn(1): %v", err)
	}
}

func TestCompletedGameRefusesSubmitAndResolve(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, NewMemoryStore(newCodec(t)), DefaultSettings())
	g := createGame(t, svc)
	home := origin(t, svc, g.ID, "alice")

	sess, err := svc.session(ctx, g.ID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	svc.mu.Lock()
	sess.meta.Status = snapshot.StatusCompleted
	svc.mu.Unlock()

	err = svc.SubmitActions(ctx, g.ID, "alice",
		[]action.Action{action.Produce{PlayerID: "alice", ItemID: catalogtest.Farm, LocationID: home}})
	if !errors.IsType(err, errors.ErrorTypeConflict) {
		t.Fatalf("submit err = %v, want conflict", err)
	}
	if _, err := svc.ResolveTurn(ctx, g.ID); !errors.IsType(err, errors.ErrorTypeConflict) {
		t.Fatalf("resolve err = %v, want conflict", err)
	}
	if after, _ := svc.GetGame(ctx, g.ID); after.CurrentTurn != 0 {
		t.Fatalf("turn = %d, want 0", after.CurrentTurn)
	}
}
