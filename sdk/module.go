// Package sdk is the client-side toolkit for services participating in a
// lattice ecosystem. It covers the full lifecycle: loading a manifest,
// registering with the registry, sending heartbeats, serving the standard
// module endpoints, and invoking capabilities provided by other services.
package sdk

import "context"

// Module is the contract a service implements to expose capabilities.
// Implementations must be safe for concurrent Invoke calls.
type Module interface {
	// Capabilities returns the names this module can handle.
	Capabilities() []string

	// Invoke executes one capability. Params and results are loosely typed
	// JSON objects; the capability name selects the operation.
	Invoke(ctx context.Context, capability string, params map[string]any) (map[string]any, error)
}

// ModuleFunc adapts a function into a single-dispatch Module.
type ModuleFunc struct {
	Caps []string
	Fn   func(ctx context.Context, capability string, params map[string]any) (map[string]any, error)
}

func (m ModuleFunc) Capabilities() []string { return m.Caps }

func (m ModuleFunc) Invoke(ctx context.Context, capability string, params map[string]any) (map[string]any, error) {
	return m.Fn(ctx, capability, params)
}
