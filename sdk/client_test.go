package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modulant/lattice"
)

func TestClientRegisterAndHeartbeat(t *testing.T) {
	var gotRecord lattice.ServiceRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/register":
			if err := json.NewDecoder(r.Body).Decode(&gotRecord); err != nil {
				t.Errorf("decode register body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{"service_id": gotRecord.ID})
		case "POST /api/heartbeat/svc1":
			_ = json.NewEncoder(w).Encode(map[string]bool{"acknowledged": true})
		case "DELETE /api/unregister/svc1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	id, err := c.Register(ctx, &lattice.ServiceRecord{
		ID:           "svc1",
		Name:         "svc1",
		Capabilities: []string{"greet"},
		Location:     "http://svc1.internal:3100",
		Mode:         lattice.ModeHTTP,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if id != "svc1" {
		t.Errorf("Register() id = %q, want svc1", id)
	}
	if gotRecord.Name != "svc1" || len(gotRecord.Capabilities) != 1 {
		t.Errorf("registry received record %+v", gotRecord)
	}

	if err := c.Heartbeat(ctx, "svc1"); err != nil {
		t.Errorf("Heartbeat() error = %v", err)
	}
	if err := c.Unregister(ctx, "svc1"); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}

	if err := c.Heartbeat(ctx, "ghost"); !errors.Is(err, lattice.ErrNotFound) {
		t.Errorf("Heartbeat(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestClientErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/capabilities/missing":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no active provider"})
		case "/api/register":
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "validation failed: record is missing an id"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	if _, err := c.FindByCapability(ctx, "missing"); !errors.Is(err, lattice.ErrNotFound) {
		t.Errorf("FindByCapability() error = %v, want ErrNotFound", err)
	}
	if _, err := c.Register(ctx, &lattice.ServiceRecord{}); !errors.Is(err, lattice.ErrValidation) {
		t.Errorf("Register() error = %v, want ErrValidation", err)
	}
	if err := c.Heartbeat(ctx, "any"); !errors.Is(err, lattice.ErrUnreachable) {
		t.Errorf("Heartbeat() on 500 error = %v, want ErrUnreachable", err)
	}
}

func TestClientUnreachableRegistry(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if err := c.Heartbeat(context.Background(), "svc1"); !errors.Is(err, lattice.ErrUnreachable) {
		t.Errorf("Heartbeat() error = %v, want ErrUnreachable", err)
	}
}

func TestClientDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/discover" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Required []string `json:"capabilities_required"`
			Optional []string `json:"capabilities_optional"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Required) != 1 || req.Required[0] != "transcode" {
			t.Errorf("discover request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches": []*lattice.Match{{
				Record: &lattice.ServiceRecord{ID: "svc1"},
				Score:  2,
			}},
			"count": 1,
		})
	}))
	defer srv.Close()

	matches, err := NewClient(srv.URL).Discover(context.Background(), []string{"transcode"}, []string{"gpu"})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(matches) != 1 || matches[0].Record.ID != "svc1" {
		t.Errorf("Discover() = %+v", matches)
	}
}
