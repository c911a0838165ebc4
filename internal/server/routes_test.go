package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sco-server/internal/auth"
	"sco-server/internal/catalog/catalogtest"
	"sco-server/internal/game"
	"sco-server/internal/middleware"
	"sco-server/internal/realtime"
	serverHandlers "sco-server/internal/server/handlers"
	"sco-server/internal/shared/config"
	"sco-server/internal/snapshot"
	"sco-server/internal/spatial"
	"sco-server/internal/visibility"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	t       *testing.T
	handler http.Handler
	service *game.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	config.GlobalConfig = &config.Config{
		Auth:     config.AuthConfig{JWTSecret: secret},
		Frontend: config.FrontendConfig{URL: "http://localhost:3000"},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := snapshot.NewCodec(snapshot.CompressionNone)
	if err != nil {
		t.Fatal(err)
	}
	generator, err := spatial.NewGenerator(spatial.DefaultGeneratorConfig(), logger)
	if err != nil {
		t.Fatal(err)
	}
	c := catalogtest.New()
	svc := game.NewService(c, generator, visibility.NewFilter(c, 2), game.NewMemoryStore(codec), game.DefaultSettings(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	limiter := middleware.NewRateLimiter(ctx, middleware.RateLimitConfig{Enabled: false})
	hub := realtime.NewHub(func(*http.Request) bool { return true }, logger)

	routes := NewRoutes(svc, hub, limiter, serverHandlers.NewHealthHandler("memory", nil), logger)
	return &fixture{t: t, handler: routes.Setup(), service: svc}
}

func (f *fixture) do(method, path, player, role string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			f.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, reader)
	if player != "" {
		tok, err := auth.GenerateJWT(secret, player, role, time.Hour)
		if err != nil {
			f.t.Fatal(err)
		}
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestPublicEndpoints(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/api/server/health", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/api/catalog", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog: %d", rec.Code)
	}
	cat := decode[serverHandlers.CatalogResponse](t, rec)
	if cat.Digest == "" || len(cat.Items) != len(catalogtest.Items()) {
		t.Fatalf("catalog response: digest %q, %d items", cat.Digest, len(cat.Items))
	}
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	seed := int64(7)
	create := game.CreateRequest{Name: "HTTP", Players: []string{"alice", "bob"}, Seed: &seed}

	if rec := f.do(http.MethodPost, "/api/games", "alice", "", create); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin create: %d, want 403", rec.Code)
	}
	rec := f.do(http.MethodPost, "/api/games", "root", auth.RoleAdmin, create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[game.Game](t, rec)
	base := "/api/games/" + created.ID

	if rec := f.do(http.MethodGet, base+"/state", "mallory", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("outsider state: %d, want 403", rec.Code)
	}
	rec = f.do(http.MethodGet, base+"/state", "alice", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: %d %s", rec.Code, rec.Body.String())
	}
	view := decode[visibility.VisibleState](t, rec)
	if len(view.Planets) == 0 {
		t.Fatal("alice sees no planets")
	}
	var home string
	for id, p := range view.Planets {
		if p.OwnedBy("alice") {
			home = id
		}
	}
	if home == "" {
		t.Fatal("alice's home planet is not in her view")
	}

	actions := map[string]any{"turn": 0, "actions": []map[string]any{
		{"kind": "produce", "playerId": "alice", "itemId": catalogtest.Mine, "locationId": home},
	}}
	if rec := f.do(http.MethodPut, base+"/actions", "alice", "", actions); rec.Code != http.StatusOK {
		t.Fatalf("put actions: %d %s", rec.Code, rec.Body.String())
	}
	malformed := map[string]any{"actions": []map[string]any{{"kind": "teleport", "playerId": "alice"}}}
	if rec := f.do(http.MethodPut, base+"/actions", "alice", "", malformed); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed actions: %d, want 400", rec.Code)
	}

	rec = f.do(http.MethodGet, base+"/actions", "alice", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get actions: %d", rec.Code)
	}
	var doc struct {
		Turn    int               `json:"turn"`
		Actions []json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil || len(doc.Actions) != 1 || doc.Turn != 0 {
		t.Fatalf("actions doc = %s (%v)", rec.Body.String(), err)
	}

	if rec := f.do(http.MethodGet, base+"/preview", "alice", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("preview: %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, base+"/available?location="+home, "alice", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("available: %d", rec.Code)
	}

	if rec := f.do(http.MethodPost, base+"/turns", "alice", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin resolve: %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, base+"/turns", "root", auth.RoleAdmin, nil); rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, base+"/log", "alice", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("log: %d", rec.Code)
	}
	if entries := decode[[]json.RawMessage](t, rec); len(entries) != 1 {
		t.Fatalf("alice log = %d entries, want 1", len(entries))
	}
	rec = f.do(http.MethodGet, base+"/log", "bob", "", nil)
	if entries := decode[[]json.RawMessage](t, rec); len(entries) != 0 {
		t.Fatalf("bob sees %d entries of alice's log", len(entries))
	}

	rec = f.do(http.MethodGet, base, "bob", "", nil)
	if g := decode[game.Game](t, rec); g.CurrentTurn != 1 {
		t.Fatalf("turn = %d, want 1", g.CurrentTurn)
	}

	if rec := f.do(http.MethodPut, base+"/actions", "alice", "", actions); rec.Code != http.StatusConflict {
		t.Fatalf("actions for resolved turn: %d, want 409", rec.Code)
	}
	actions["turn"] = 1
	if rec := f.do(http.MethodPut, base+"/actions", "alice", "", actions); rec.Code != http.StatusOK {
		t.Fatalf("actions for open turn: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownGame(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodGet, "/api/games/nope", "alice", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/games/nope/state", "alice", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("member route status %d, want 404", rec.Code)
	}
}
