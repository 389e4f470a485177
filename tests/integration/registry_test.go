package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/httpserver/deps"
	"github.com/modulant/lattice/internal/httpserver/routes"
	"github.com/modulant/lattice/internal/logger"
	"github.com/modulant/lattice/internal/registry"
	"github.com/modulant/lattice/sdk"
)

// newTestRegistry wires the real router, handlers and store the way the
// app does, minus schedulers.
func newTestRegistry(t *testing.T) (*httptest.Server, *registry.Store) {
	t.Helper()

	store := registry.NewStore(&lattice.LocationPolicy{AllowLoopback: true})
	d := deps.Deps{
		Logger:            logger.New("error", false),
		StartTime:         time.Now(),
		TimeNow:           time.Now,
		Registry:          store,
		RegisterBurst:     100,
		RegisterPerMinute: 600,
	}

	r := chi.NewRouter()
	routes.RegisterAll(r, d)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestRegistryLifecycle(t *testing.T) {
	srv, _ := newTestRegistry(t)
	client := sdk.NewClient(srv.URL)
	ctx := t.Context()

	rec := &lattice.ServiceRecord{
		ID:           "video-1",
		Name:         "video",
		Version:      "2.0.0",
		Capabilities: []string{"transcode", "thumbnail"},
		Location:     "http://localhost:3100",
		Mode:         lattice.ModeHTTP,
	}

	id, err := client.Register(ctx, rec)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if id != "video-1" {
		t.Fatalf("Register() id = %q", id)
	}

	// Discoverable immediately after registration.
	found, err := client.FindByCapability(ctx, "transcode")
	if err != nil {
		t.Fatalf("FindByCapability() error = %v", err)
	}
	if found.ID != "video-1" || found.Status != lattice.StatusActive {
		t.Errorf("found = %+v", found)
	}

	if err := client.Heartbeat(ctx, "video-1"); err != nil {
		t.Errorf("Heartbeat() error = %v", err)
	}

	if err := client.Unregister(ctx, "video-1"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}

	// Gone from the index in the same breath.
	if _, err := client.FindByCapability(ctx, "transcode"); err == nil {
		t.Error("FindByCapability() should fail after unregister")
	}
}

func TestRegistryDiscoverRanking(t *testing.T) {
	srv, _ := newTestRegistry(t)
	client := sdk.NewClient(srv.URL)
	ctx := t.Context()

	records := []*lattice.ServiceRecord{
		{ID: "basic", Name: "basic", Capabilities: []string{"transcode"}, Location: "http://localhost:3101", Mode: lattice.ModeHTTP},
		{ID: "gpu", Name: "gpu", Capabilities: []string{"transcode", "gpu"}, Location: "http://localhost:3102", Mode: lattice.ModeHTTP},
		{ID: "audio", Name: "audio", Capabilities: []string{"audio.normalize"}, Location: "http://localhost:3103", Mode: lattice.ModeHTTP},
	}
	for _, rec := range records {
		if _, err := client.Register(ctx, rec); err != nil {
			t.Fatalf("Register(%s) error = %v", rec.ID, err)
		}
	}

	matches, err := client.Discover(ctx, []string{"transcode"}, []string{"gpu"})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Discover() returned %d matches, want 2", len(matches))
	}
	if matches[0].Record.ID != "gpu" {
		t.Errorf("top match = %s, want gpu (optional capability bonus)", matches[0].Record.ID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Errorf("scores not descending: %d then %d", matches[0].Score, matches[1].Score)
	}
}

func TestRegistryDiscoverEmptyQuery(t *testing.T) {
	srv, _ := newTestRegistry(t)
	client := sdk.NewClient(srv.URL)
	ctx := t.Context()

	records := []*lattice.ServiceRecord{
		{ID: "basic", Name: "basic", Capabilities: []string{"transcode"}, Location: "http://localhost:3101", Mode: lattice.ModeHTTP},
		{ID: "audio", Name: "audio", Capabilities: []string{"audio.normalize"}, Location: "http://localhost:3103", Mode: lattice.ModeHTTP},
	}
	for _, rec := range records {
		if _, err := client.Register(ctx, rec); err != nil {
			t.Fatalf("Register(%s) error = %v", rec.ID, err)
		}
	}

	// No required capabilities means the whole active fleet matches.
	matches, err := client.Discover(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(matches) != len(records) {
		t.Fatalf("Discover() returned %d matches, want %d", len(matches), len(records))
	}

	// A body with the fields omitted entirely behaves the same way.
	resp := postJSON(t, srv.URL+"/api/discover", map[string]any{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != len(records) {
		t.Errorf("count = %d, want %d", body.Count, len(records))
	}
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	srv, _ := newTestRegistry(t)

	tests := []struct {
		name string
		rec  map[string]any
	}{
		{"missing capabilities", map[string]any{
			"id": "a", "name": "a", "location": "http://localhost:3100", "mode": "http",
		}},
		{"unknown mode", map[string]any{
			"id": "a", "name": "a", "capabilities": []string{"x"}, "location": "http://localhost:3100", "mode": "smoke-signal",
		}},
		{"metadata endpoint location", map[string]any{
			"id": "a", "name": "a", "capabilities": []string{"x"}, "location": "http://169.254.169.254/latest", "mode": "http",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/register", tt.rec)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestRegistryStatsAndListing(t *testing.T) {
	srv, store := newTestRegistry(t)

	for i := 0; i < 3; i++ {
		_, err := store.Register(&lattice.ServiceRecord{
			ID:           fmt.Sprintf("svc-%d", i),
			Name:         "svc",
			Capabilities: []string{"greet"},
			Location:     fmt.Sprintf("http://localhost:31%02d", i),
			Mode:         lattice.ModeHTTP,
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/api/services")
	if err != nil {
		t.Fatalf("GET /api/services: %v", err)
	}
	defer resp.Body.Close()

	var listing struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Count != 3 {
		t.Errorf("service count = %d, want 3", listing.Count)
	}

	statsResp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats: %v", err)
	}
	defer statsResp.Body.Close()

	var stats registry.Stats
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalServices != 3 || stats.ActiveServices != 3 || stats.TotalCapabilities != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRegistryEndToEndInvocation(t *testing.T) {
	srv, _ := newTestRegistry(t)

	// A fake provider serving the standard invoke endpoint.
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == sdk.InvokePath {
			_ = json.NewEncoder(w).Encode(map[string]any{"greeting": "hello"})
			return
		}
		http.NotFound(w, r)
	}))
	defer provider.Close()

	client := sdk.NewClient(srv.URL)
	if _, err := client.Register(t.Context(), &lattice.ServiceRecord{
		ID:           "hello-1",
		Name:         "hello",
		Capabilities: []string{"greet"},
		Location:     provider.URL,
		Mode:         lattice.ModeHTTP,
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resolver, err := sdk.NewResolver(sdk.ResolverOptions{Client: client})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	result, err := resolver.Invoke(t.Context(), "greet", map[string]any{"who": "world"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result["greeting"] != "hello" {
		t.Errorf("result = %v", result)
	}
}
