package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sco-server/internal/auth"
	"sco-server/internal/shared/config"
)

const secret = "0123456789abcdef0123456789abcdef"

func init() {
	config.GlobalConfig = &config.Config{
		Auth:     config.AuthConfig{JWTSecret: secret},
		Frontend: config.FrontendConfig{URL: "http://localhost:3000"},
	}
}

func token(t *testing.T, player, role string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(secret, player, role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(h http.Handler, r *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec.Code
}

func TestJWTMiddleware(t *testing.T) {
	h := JWTMiddleware(ok)

	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer "+token(t, "alice", ""))
	if code := serve(h, bearer); code != http.StatusNoContent {
		t.Fatalf("bearer: status %d", code)
	}

	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: authCookie, Value: token(t, "alice", "")})
	if code := serve(h, cookie); code != http.StatusNoContent {
		t.Fatalf("cookie: status %d", code)
	}

	if code := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)); code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d", code)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("Authorization", "Bearer nope")
	if code := serve(h, bad); code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", code)
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(ok)
	for role, want := range map[string]int{auth.RoleAdmin: http.StatusNoContent, "": http.StatusForbidden} {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token(t, "root", role))
		if code := serve(h, r); code != want {
			t.Fatalf("role %q: status %d, want %d", role, code, want)
		}
	}
}

type members map[string]bool

func (m members) IsMember(_ context.Context, _, playerID string) (bool, error) {
	return m[playerID], nil
}

func TestGameAccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /games/{id}", NewGameAccessMiddleware(members{"alice": true}).Require(ok))

	for player, want := range map[string]int{"alice": http.StatusNoContent, "mallory": http.StatusForbidden} {
		r := httptest.NewRequest(http.MethodGet, "/games/g-1", nil)
		r.Header.Set("Authorization", "Bearer "+token(t, player, ""))
		if code := serve(mux, r); code != want {
			t.Fatalf("%s: status %d, want %d", player, code, want)
		}
	}
}

func TestRateLimitPerPlayer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 1})
	h := JWTMiddleware(rl.Middleware(ok))

	request := func(player string) int {
		r := httptest.NewRequest(http.MethodPut, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token(t, player, ""))
		return serve(h, r)
	}

	if code := request("alice"); code != http.StatusNoContent {
		t.Fatalf("first request: %d", code)
	}
	if code := request("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", code)
	}
	if code := request("bob"); code != http.StatusNoContent {
		t.Fatalf("other player throttled: %d", code)
	}
}
