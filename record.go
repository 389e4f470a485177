// Package lattice defines the shared model of the capability registry:
// service records, their lifecycle status, the discovery matcher and the
// location safety checks. Both the registry daemon (internal/...) and the
// client SDK (sdk/...) build on this package.
package lattice

import "time"

// Mode declares how a service instance expects to be invoked.
type Mode string

const (
	// ModeEmbedded means the capability is backed by a module loaded in the
	// caller's own process. No location, no wire format.
	ModeEmbedded Mode = "embedded"

	// ModeHTTP means the instance is reachable at a fixed HTTP location,
	// configured directly and invoked without consulting the registry.
	ModeHTTP Mode = "http"

	// ModeDistributed means callers locate the instance through the registry
	// at invocation time.
	ModeDistributed Mode = "distributed"
)

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeEmbedded, ModeHTTP, ModeDistributed:
		return true
	}
	return false
}

// Status is the registry's view of an instance's health.
type Status string

const (
	// StatusActive instances are eligible for discovery.
	StatusActive Status = "active"

	// StatusUnhealthy instances failed their last probe but are kept around:
	// a successful probe or a heartbeat promotes them back to active.
	StatusUnhealthy Status = "unhealthy"

	// StatusExpired is terminal. The record is deleted from the store the
	// moment it is reached; the value only ever appears in logs.
	StatusExpired Status = "expired"
)

// ServiceRecord is one registered service instance.
//
// The registry owns all records exclusively. Everything handed out by the
// store (list, get, lookups) is a deep copy, so holders can never observe
// or cause concurrent mutation.
type ServiceRecord struct {
	// ─────────────────────────────
	// Identity (caller assigned)
	// ─────────────────────────────

	// ID is the unique instance identifier. Re-registering the same ID
	// replaces the record atomically.
	ID string `json:"id"`

	// Name and Version are descriptive only; matching never looks at them.
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`

	// ─────────────────────────────
	// Discovery
	// ─────────────────────────────

	// Capabilities is the set of operation names this instance provides.
	// Never empty: a record with no capabilities is rejected at registration.
	// Stored deduplicated, order irrelevant.
	Capabilities []string `json:"capabilities"`

	// Location is the connection target, required when Mode != embedded.
	// Example: http://svc1.lattice.internal:3100
	Location string `json:"location,omitempty"`

	// Mode declares the invocation strategy for this instance.
	Mode Mode `json:"mode"`

	// ─────────────────────────────
	// Liveness
	// ─────────────────────────────

	// Status is managed by the registry and the health monitor.
	Status Status `json:"status"`

	// FailedProbes counts consecutive failed health checks. Reset by any
	// successful probe or heartbeat.
	FailedProbes int `json:"failed_probes"`

	RegisteredAt    time.Time `json:"registered_at"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`

	// Metadata is an open string mapping, opaque to the registry.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HasCapability reports whether the record provides the named capability.
func (r *ServiceRecord) HasCapability(name string) bool {
	for _, c := range r.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (r *ServiceRecord) Clone() *ServiceRecord {
	cp := *r
	cp.Capabilities = append([]string(nil), r.Capabilities...)
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// DedupeCapabilities returns caps with duplicates and empty names removed,
// preserving first-seen order.
func DedupeCapabilities(caps []string) []string {
	seen := make(map[string]bool, len(caps))
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
