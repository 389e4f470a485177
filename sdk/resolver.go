package sdk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/modulant/lattice"
)

const (
	// DefaultCacheTTL matches the registry's probe cadence so a cached
	// location is never staler than one health cycle.
	DefaultCacheTTL = 30 * time.Second

	defaultCacheSize = 1024
)

// ResolverOptions configures a Resolver. The zero value gives a purely
// local resolver: embedded modules and static endpoints only.
type ResolverOptions struct {
	// RegistryURL enables distributed resolution through a registry.
	RegistryURL string

	// Client overrides RegistryURL with a preconfigured registry client.
	Client *Client

	// CacheTTL bounds how long a registry-resolved location is reused
	// before being looked up again. Defaults to DefaultCacheTTL.
	CacheTTL time.Duration

	// CacheSize caps the number of cached capability resolutions.
	CacheSize int
}

// target is one resolved invocation destination.
type target struct {
	proxy     Proxy
	serviceID string
	dynamic   bool // came from the registry, eligible for invalidate-and-retry
}

// Resolver routes capability invocations to the nearest provider:
// in-process modules first, then statically configured endpoints, then
// services discovered through the registry. Registry resolutions are
// cached with a TTL and refreshed once when a provider stops answering.
type Resolver struct {
	embedded map[string]Module
	static   map[string]*target
	client   *Client
	cache    *otter.Cache[string, *target]
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	client := opts.Client
	if client == nil && opts.RegistryURL != "" {
		client = NewClient(opts.RegistryURL)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	cache, err := otter.New(&otter.Options[string, *target]{
		MaximumSize:      size,
		ExpiryCalculator: otter.ExpiryWriting[string, *target](ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("build resolution cache: %w", err)
	}

	return &Resolver{
		embedded: make(map[string]Module),
		static:   make(map[string]*target),
		client:   client,
		cache:    cache,
	}, nil
}

// RegisterEmbedded makes an in-process module the provider for every
// capability it declares. Embedded providers always win over remote ones.
func (r *Resolver) RegisterEmbedded(m Module) {
	for _, name := range m.Capabilities() {
		r.embedded[name] = m
	}
}

// RegisterEndpoint pins a capability to a fixed HTTP location, bypassing
// the registry for it.
func (r *Resolver) RegisterEndpoint(capability, location string) {
	r.static[capability] = &target{proxy: newHTTPProxy(location)}
}

// Invoke resolves a capability and executes it. When a registry-resolved
// provider turns out to be unreachable the cached resolution is dropped and
// the lookup retried exactly once; a second miss reports the capability as
// unavailable rather than looping.
func (r *Resolver) Invoke(ctx context.Context, capability string, params map[string]any) (map[string]any, error) {
	t, err := r.resolve(ctx, capability)
	if err != nil {
		return nil, err
	}

	result, err := t.proxy.Invoke(ctx, capability, params)
	if err == nil {
		return result, nil
	}
	if !t.dynamic || !errors.Is(err, lattice.ErrUnreachable) {
		return nil, err
	}

	r.cache.Invalidate(capability)

	fresh, rerr := r.resolveRemote(ctx, capability)
	if rerr != nil {
		return nil, fmt.Errorf("%w: %q provider vanished and no replacement found", lattice.ErrCapabilityUnavailable, capability)
	}
	result, err = fresh.proxy.Invoke(ctx, capability, params)
	if err != nil {
		r.cache.Invalidate(capability)
		return nil, fmt.Errorf("%w: %q failed twice in a row: %v", lattice.ErrCapabilityUnavailable, capability, err)
	}
	return result, nil
}

// Resolve reports where a capability would execute without invoking it.
// The returned service id is empty for embedded and static targets.
func (r *Resolver) Resolve(ctx context.Context, capability string) (serviceID string, err error) {
	t, err := r.resolve(ctx, capability)
	if err != nil {
		return "", err
	}
	return t.serviceID, nil
}

// Invalidate drops any cached resolution for a capability.
func (r *Resolver) Invalidate(capability string) {
	r.cache.Invalidate(capability)
}

func (r *Resolver) resolve(ctx context.Context, capability string) (*target, error) {
	if m, ok := r.embedded[capability]; ok {
		return &target{proxy: &embeddedProxy{module: m}}, nil
	}
	if t, ok := r.static[capability]; ok {
		return t, nil
	}
	return r.resolveRemote(ctx, capability)
}

func (r *Resolver) resolveRemote(ctx context.Context, capability string) (*target, error) {
	if r.client == nil {
		return nil, fmt.Errorf("%w: no provider for %q and no registry configured", lattice.ErrCapabilityUnavailable, capability)
	}

	if t, ok := r.cache.GetIfPresent(capability); ok {
		return t, nil
	}

	rec, err := r.client.FindByCapability(ctx, capability)
	if err != nil {
		if errors.Is(err, lattice.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active provider for %q", lattice.ErrCapabilityUnavailable, capability)
		}
		return nil, err
	}

	t := &target{
		proxy:     newHTTPProxy(rec.Location),
		serviceID: rec.ID,
		dynamic:   true,
	}
	r.cache.Set(capability, t)
	return t, nil
}
