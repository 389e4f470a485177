// Package registry owns the authoritative in-memory store of service
// records and the capability index derived from it.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/modulant/lattice"
)

// Transition describes what a probe result did to a record.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionPromoted
	TransitionDemoted
	TransitionExpired
)

// ProbeTarget is the read-only slice of a record the health monitor needs.
type ProbeTarget struct {
	ID       string
	Location string
	Status   lattice.Status
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	TotalServices     int            `json:"total_services"`
	ActiveServices    int            `json:"active_services"`
	UnhealthyServices int            `json:"unhealthy_services"`
	TotalCapabilities int            `json:"total_capabilities"`
	ServicesByRuntime map[string]int `json:"services_by_runtime"`
}

// Store holds every registered record plus the capability index.
//
// The index is never recomputed from scratch after initialization: every
// mutation updates it under the same lock as the record map, so a reader
// can never see a record in one structure but not the other. All reads
// hand out deep copies.
type Store struct {
	mu           sync.RWMutex
	records      map[string]*lattice.ServiceRecord
	capabilities map[string]map[string]struct{} // capability -> set of record ids
	policy       *lattice.LocationPolicy
	now          func() time.Time
}

// NewStore creates an empty registry store guarded by the given location policy.
func NewStore(policy *lattice.LocationPolicy) *Store {
	if policy == nil {
		policy = &lattice.LocationPolicy{}
	}
	return &Store{
		records:      make(map[string]*lattice.ServiceRecord),
		capabilities: make(map[string]map[string]struct{}),
		policy:       policy,
		now:          time.Now,
	}
}

// Register validates and inserts a record, replacing any record with the
// same id atomically. Returns the assigned id.
func (s *Store) Register(rec *lattice.ServiceRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: nil record", lattice.ErrValidation)
	}
	if rec.ID == "" {
		return "", fmt.Errorf("%w: id must not be empty", lattice.ErrValidation)
	}
	if rec.Name == "" {
		return "", fmt.Errorf("%w: name must not be empty", lattice.ErrValidation)
	}
	caps := lattice.DedupeCapabilities(rec.Capabilities)
	if len(caps) == 0 {
		return "", fmt.Errorf("%w: capabilities must not be empty", lattice.ErrValidation)
	}
	if !rec.Mode.Valid() {
		return "", fmt.Errorf("%w: unknown mode %q", lattice.ErrValidation, rec.Mode)
	}
	if rec.Mode != lattice.ModeEmbedded {
		if rec.Location == "" {
			return "", fmt.Errorf("%w: location is required for mode %q", lattice.ErrValidation, rec.Mode)
		}
		if err := s.policy.CheckLocation(rec.Location); err != nil {
			return "", err
		}
	}

	stored := rec.Clone()
	stored.Capabilities = caps
	stored.Status = lattice.StatusActive
	stored.FailedProbes = 0
	now := s.now()
	stored.RegisteredAt = now
	stored.LastHeartbeatAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[stored.ID]; ok {
		s.dropFromIndexLocked(old)
	}
	s.records[stored.ID] = stored
	s.addToIndexLocked(stored)

	return stored.ID, nil
}

// Heartbeat refreshes a record's liveness. A heartbeat is a self-reported
// signal stronger than passive probing: it resets an unhealthy record to
// active and clears its failure count.
func (s *Store) Heartbeat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: service %q", lattice.ErrNotFound, id)
	}
	rec.LastHeartbeatAt = s.now()
	rec.FailedProbes = 0
	if rec.Status == lattice.StatusUnhealthy {
		rec.Status = lattice.StatusActive
	}
	return nil
}

// Unregister removes a record and prunes it from the capability index
// atomically. Idempotent callers may ignore the NotFound error.
func (s *Store) Unregister(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: service %q", lattice.ErrNotFound, id)
	}
	s.dropFromIndexLocked(rec)
	delete(s.records, id)
	return nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (*lattice.ServiceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// List returns a point-in-time copy of every record, never a live view.
func (s *Store) List() []*lattice.ServiceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*lattice.ServiceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Count returns the number of registered records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// FindByCapability returns copies of the active records providing the named
// capability, resolved through the index rather than a record scan.
func (s *Store) FindByCapability(name string) []*lattice.ServiceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.capabilities[name]
	if !ok {
		return nil
	}
	out := make([]*lattice.ServiceRecord, 0, len(ids))
	for id := range ids {
		rec := s.records[id]
		if rec.Status != lattice.StatusActive {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out
}

// Capabilities returns capability -> active provider ids.
func (s *Store) Capabilities() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.capabilities))
	for name, ids := range s.capabilities {
		providers := make([]string, 0, len(ids))
		for id := range ids {
			if s.records[id].Status == lattice.StatusActive {
				providers = append(providers, id)
			}
		}
		if len(providers) > 0 {
			out[name] = providers
		}
	}
	return out
}

// Stats summarizes the registry for the introspection endpoint.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalServices:     len(s.records),
		TotalCapabilities: len(s.capabilities),
		ServicesByRuntime: make(map[string]int),
	}
	for _, rec := range s.records {
		switch rec.Status {
		case lattice.StatusActive:
			st.ActiveServices++
		case lattice.StatusUnhealthy:
			st.UnhealthyServices++
		}
		runtime := rec.Metadata["runtime"]
		if runtime == "" {
			runtime = "unknown"
		}
		st.ServicesByRuntime[runtime]++
	}
	return st
}

// ProbeTargets returns the probeable records: everything not embedded.
func (s *Store) ProbeTargets() []ProbeTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ProbeTarget, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Mode == lattice.ModeEmbedded {
			continue
		}
		out = append(out, ProbeTarget{ID: rec.ID, Location: rec.Location, Status: rec.Status})
	}
	return out
}

// RecordProbeResult applies one probe outcome to a record and returns the
// resulting transition. When the failure count reaches threshold the record
// expires: it is deleted from the store and the index in the same critical
// section.
func (s *Store) RecordProbeResult(id string, healthy bool, threshold int) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		// Unregistered (or heartbeat-expired) between snapshot and probe.
		return TransitionNone
	}

	if healthy {
		rec.FailedProbes = 0
		if rec.Status == lattice.StatusUnhealthy {
			rec.Status = lattice.StatusActive
			return TransitionPromoted
		}
		return TransitionNone
	}

	rec.FailedProbes++
	if rec.Status == lattice.StatusActive {
		rec.Status = lattice.StatusUnhealthy
		return TransitionDemoted
	}
	if rec.FailedProbes >= threshold {
		rec.Status = lattice.StatusExpired
		s.dropFromIndexLocked(rec)
		delete(s.records, id)
		return TransitionExpired
	}
	return TransitionNone
}

// Restore loads snapshot records into an empty store at startup. Records go
// through the same index bookkeeping as registrations, skipping validation:
// they were validated when first registered, and the monitor re-reconciles
// their status on its next tick.
func (s *Store) Restore(records []*lattice.ServiceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		stored := rec.Clone()
		if old, ok := s.records[stored.ID]; ok {
			s.dropFromIndexLocked(old)
		}
		s.records[stored.ID] = stored
		s.addToIndexLocked(stored)
	}
}

func (s *Store) addToIndexLocked(rec *lattice.ServiceRecord) {
	for _, name := range rec.Capabilities {
		ids, ok := s.capabilities[name]
		if !ok {
			ids = make(map[string]struct{})
			s.capabilities[name] = ids
		}
		ids[rec.ID] = struct{}{}
	}
}

func (s *Store) dropFromIndexLocked(rec *lattice.ServiceRecord) {
	for _, name := range rec.Capabilities {
		ids, ok := s.capabilities[name]
		if !ok {
			continue
		}
		delete(ids, rec.ID)
		if len(ids) == 0 {
			delete(s.capabilities, name)
		}
	}
}
