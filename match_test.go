package lattice

import (
	"testing"
	"time"
)

func rec(id string, caps []string, status Status, heartbeat time.Time) *ServiceRecord {
	return &ServiceRecord{
		ID:              id,
		Name:            id,
		Capabilities:    caps,
		Mode:            ModeHTTP,
		Location:        "http://" + id + ".example.com",
		Status:          status,
		LastHeartbeatAt: heartbeat,
	}
}

func TestDiscoverRequiresAllCapabilities(t *testing.T) {
	now := time.Now()
	records := []*ServiceRecord{
		rec("both", []string{"a", "b"}, StatusActive, now),
		rec("only-a", []string{"a"}, StatusActive, now),
		rec("only-b", []string{"b"}, StatusActive, now),
	}

	matches := Discover(records, []string{"a", "b"}, nil)
	if len(matches) != 1 {
		t.Fatalf("Discover() returned %d matches, want 1", len(matches))
	}
	if matches[0].Record.ID != "both" {
		t.Errorf("Discover() top match = %s, want both", matches[0].Record.ID)
	}
}

func TestDiscoverOptionalBreaksTies(t *testing.T) {
	now := time.Now()
	records := []*ServiceRecord{
		rec("plain", []string{"a", "b"}, StatusActive, now),
		rec("extra", []string{"a", "b", "c"}, StatusActive, now),
	}

	matches := Discover(records, []string{"a", "b"}, []string{"c"})
	if len(matches) != 2 {
		t.Fatalf("Discover() returned %d matches, want 2", len(matches))
	}
	if matches[0].Record.ID != "extra" {
		t.Errorf("record providing optional capability should rank first, got %s", matches[0].Record.ID)
	}
	if matches[0].Score != 3 || matches[1].Score != 2 {
		t.Errorf("scores = %d,%d want 3,2", matches[0].Score, matches[1].Score)
	}
}

func TestDiscoverOptionalNeverSubstitutesRequired(t *testing.T) {
	now := time.Now()
	records := []*ServiceRecord{
		rec("optional-only", []string{"c"}, StatusActive, now),
	}

	matches := Discover(records, []string{"a"}, []string{"c"})
	if len(matches) != 0 {
		t.Fatalf("record missing a required capability must not qualify, got %d matches", len(matches))
	}
}

func TestDiscoverSkipsInactiveRecords(t *testing.T) {
	now := time.Now()
	records := []*ServiceRecord{
		rec("down", []string{"a"}, StatusUnhealthy, now),
		rec("up", []string{"a"}, StatusActive, now),
	}

	matches := Discover(records, []string{"a"}, nil)
	if len(matches) != 1 || matches[0].Record.ID != "up" {
		t.Fatalf("Discover() should only return active records, got %+v", matches)
	}
}

func TestDiscoverTieBreaks(t *testing.T) {
	now := time.Now()
	records := []*ServiceRecord{
		rec("stale", []string{"a"}, StatusActive, now.Add(-time.Minute)),
		rec("fresh", []string{"a"}, StatusActive, now),
		rec("zeta", []string{"a"}, StatusActive, now),
		rec("alpha", []string{"a"}, StatusActive, now),
	}

	matches := Discover(records, []string{"a"}, nil)
	if len(matches) != 4 {
		t.Fatalf("Discover() returned %d matches, want 4", len(matches))
	}

	// Freshest heartbeat first, then lexicographic id among equals.
	got := []string{matches[0].Record.ID, matches[1].Record.ID, matches[2].Record.ID, matches[3].Record.ID}
	want := []string{"alpha", "fresh", "zeta", "stale"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Discover() order = %v, want %v", got, want)
		}
	}
}

func TestDiscoverEmptyResult(t *testing.T) {
	matches := Discover(nil, []string{"x"}, nil)
	if matches == nil {
		t.Fatal("Discover() should return an empty slice, not nil")
	}
	if len(matches) != 0 {
		t.Fatalf("Discover() with no providers = %d matches, want 0", len(matches))
	}
}

func TestFindOne(t *testing.T) {
	now := time.Now()
	records := []*ServiceRecord{
		rec("svc1", []string{"greet"}, StatusActive, now),
	}

	m, err := FindOne(records, "greet")
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if m.Record.ID != "svc1" {
		t.Errorf("FindOne() = %s, want svc1", m.Record.ID)
	}

	if _, err := FindOne(records, "missing"); err != ErrNotFound {
		t.Errorf("FindOne() on unknown capability error = %v, want ErrNotFound", err)
	}
}

func TestDedupeCapabilities(t *testing.T) {
	got := DedupeCapabilities([]string{"a", "b", "a", "", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("DedupeCapabilities() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DedupeCapabilities() = %v, want %v", got, want)
		}
	}
}
