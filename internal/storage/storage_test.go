package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"sco-server/internal/engine"
	"sco-server/internal/game"
	"sco-server/internal/resource"
	"sco-server/internal/snapshot"
	"sco-server/internal/spatial"
	"sco-server/internal/spatial/spatialtest"
	"sco-server/internal/state"
)

func sample(t *testing.T, id string, turn int) *snapshot.Snapshot {
	t.Helper()
	s, err := state.New([]string{"alice", "bob"}, resource.Amount{Gold: 2000, Iron: 300},
		spatialtest.PlanetCells(), []string{spatialtest.P1, spatialtest.P2})
	if err != nil {
		t.Fatal(err)
	}
	m := spatialtest.Map()
	at := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	meta := snapshot.Meta{ID: id, Name: "Game " + id, Status: snapshot.StatusActive, MaxPlayers: 2, CreatedAt: at, UpdatedAt: at}
	return snapshot.New(meta, m, spatial.GenerateLayout(m), []string{"alice", "bob"},
		engine.Record{Turn: turn, State: s}, "digest")
}

func codec(t *testing.T) *snapshot.Codec {
	t.Helper()
	c, err := snapshot.NewCodec(snapshot.CompressionLZ4)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// exercise runs the Store contract shared by every backend.
func exercise(t *testing.T, store game.Store) {
	t.Helper()
	ctx := context.Background()

	if got, err := store.Load(ctx, "missing"); err != nil || got != nil {
		t.Fatalf("Load(missing) = %v, %v; want nil, nil", got, err)
	}

	first := sample(t, "b-game", 0)
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, sample(t, "a-game", 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	updated := sample(t, "b-game", 4)
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("Save over existing: %v", err)
	}

	got, err := store.Load(ctx, "b-game")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, updated) {
		t.Fatalf("Load returned\n%+v\nwant\n%+v", got, updated)
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"a-game", "b-game"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("List = %v, want %v", ids, want)
	}
}

func TestSQLiteStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "games.db"), codec(t), logger)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	exercise(t, store)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenFileStore(dir, codec(t))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	exercise(t, store)

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) != snapshotExt {
			t.Fatalf("leftover file %s", e.Name())
		}
	}
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	store, err := OpenFileStore(t.TempDir(), codec(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), sample(t, "../escape", 0)); err == nil {
		t.Fatal("Save accepted a path traversal id")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	exercise(t, game.NewMemoryStore(codec(t)))
}
