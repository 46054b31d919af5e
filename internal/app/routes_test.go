package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		a.registry.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a.router.Close(ctx)
	})
	return a
}

func TestHealthEndpoint(t *testing.T) {
	a := newTestApp(t)
	mux := a.routes(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v, want ok", body)
	}
}

func TestAvailableGamesEndpoint(t *testing.T) {
	a := newTestApp(t)
	mux := a.routes(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available_games", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Games []struct {
			ID         string `json:"id"`
			MinPlayers int    `json:"min_players"`
		} `json:"games"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	ids := make(map[string]bool, len(body.Games))
	for _, g := range body.Games {
		ids[g.ID] = true
	}
	if !ids["wargame"] || !ids["echo"] {
		t.Fatalf("games = %v, want wargame and echo", ids)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	a := newTestApp(t)
	mux := a.routes(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body diagnosticsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
}

func TestLoginEndpoint(t *testing.T) {
	a := newTestApp(t)
	mux := a.routes(http.NotFoundHandler())

	payload := bytes.NewBufferString(`{"account": "alice", "display_name": "Alice"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Token == "" {
		t.Fatal("empty token")
	}

	id, err := a.resolver.Resolve(body.Token)
	if err != nil || id.Account != "alice" {
		t.Fatalf("token resolves to %+v (%v), want alice", id, err)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /login = %d, want 405", rec.Code)
	}
}

func TestPprofDisabledByDefault(t *testing.T) {
	a := newTestApp(t)
	mux := a.routes(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("pprof without the toggle = %d, want 404", rec.Code)
	}
}
