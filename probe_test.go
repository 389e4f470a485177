package lattice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbeHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != HealthPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	tests := []struct {
		name     string
		location string
		wantErr  bool
	}{
		{"healthy service", healthy.URL, false},
		{"healthy service with trailing slash", healthy.URL + "/", false},
		{"5xx response", failing.URL, true},
		{"unreachable port", "http://127.0.0.1:1", true},
		{"malformed location", "http://\x7f", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ProbeHealth(context.Background(), tt.location, time.Second)
			if tt.wantErr && err == nil {
				t.Errorf("ProbeHealth(%q) = nil, want error", tt.location)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ProbeHealth(%q) = %v, want nil", tt.location, err)
			}
		})
	}
}

func TestProbeHealthTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	start := time.Now()
	err := ProbeHealth(context.Background(), slow.URL, 20*time.Millisecond)
	if err == nil {
		t.Fatal("ProbeHealth() against a slow server should time out")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("ProbeHealth() took %v, timeout not enforced", elapsed)
	}
}
