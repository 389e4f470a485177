package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/logger"
)

// CapabilitiesPath lists what a running module provides.
const CapabilitiesPath = "/_module/capabilities"

// HostOptions configures a module host.
type HostOptions struct {
	Manifest *Manifest
	Module   Module

	// ListenAddr overrides the manifest's HTTP port, e.g. ":3100".
	ListenAddr string

	// AdvertiseURL is the location sent to the registry. Defaults to
	// http://localhost:<port>, which suits single-host development.
	AdvertiseURL string

	// RegistryURL enables self-registration and heartbeating. Empty means
	// the host runs standalone and something else announces it.
	RegistryURL string

	HeartbeatInterval time.Duration
	ShutdownTimeout   time.Duration

	// Logger defaults to NewLogger("info", false) when nil.
	Logger Logger
}

// Host runs a module as an HTTP service: it serves the standard module
// endpoints, registers with the registry, and heartbeats until stopped.
type Host struct {
	opts      HostOptions
	logger    Logger
	server    *http.Server
	client    *Client
	serviceID string
}

func NewHost(opts HostOptions) (*Host, error) {
	if opts.Manifest == nil {
		return nil, fmt.Errorf("%w: host needs a manifest", lattice.ErrValidation)
	}
	if opts.Module == nil {
		return nil, fmt.Errorf("%w: host needs a module", lattice.ErrValidation)
	}
	if opts.Logger == nil {
		opts.Logger = NewLogger("info", false)
	}
	if opts.ListenAddr == "" {
		port := opts.Manifest.HTTP.Port
		if port == 0 {
			port = 3000
		}
		opts.ListenAddr = fmt.Sprintf(":%d", port)
	}
	if opts.AdvertiseURL == "" {
		opts.AdvertiseURL = fmt.Sprintf("http://localhost%s", opts.ListenAddr)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	h := &Host{opts: opts, logger: opts.Logger}
	if opts.RegistryURL != "" {
		h.client = NewClient(opts.RegistryURL)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(lattice.HealthPath, h.handleHealth)
	r.Get(CapabilitiesPath, h.handleCapabilities)
	r.Post(InvokePath, h.handleInvoke)

	h.server = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h, nil
}

// Run serves the module until ctx is cancelled, then unregisters and shuts
// down gracefully.
func (h *Host) Run(ctx context.Context) error {
	if h.client != nil {
		rec := h.opts.Manifest.Record(h.opts.AdvertiseURL)
		id, err := h.client.Register(ctx, rec)
		if err != nil {
			return fmt.Errorf("register %s: %w", h.opts.Manifest.Name, err)
		}
		h.serviceID = id
		h.logger.Info("registered with registry",
			logger.String("service_id", id),
			logger.String("location", h.opts.AdvertiseURL))

		hb := NewHeartbeater(h.client, id, h.logger, h.opts.HeartbeatInterval)
		hb.Start(ctx)
		defer hb.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Infof("module %s listening on %s", h.opts.Manifest.Name, h.server.Addr)
		if err := h.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("module server error: %w", err)
	}

	if h.client != nil && h.serviceID != "" {
		unregCtx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
		if err := h.client.Unregister(unregCtx, h.serviceID); err != nil {
			h.logger.Warn("failed to unregister", logger.Error(err))
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	return h.server.Shutdown(shutdownCtx)
}

func (h *Host) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeHostJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": h.opts.Manifest.Name,
	})
}

func (h *Host) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeHostJSON(w, http.StatusOK, map[string]any{
		"capabilities": h.opts.Module.Capabilities(),
	})
}

func (h *Host) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeHostJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed request body"})
		return
	}

	if !hasCapability(h.opts.Module, req.Capability) {
		writeHostJSON(w, http.StatusNotFound, map[string]any{
			"error": fmt.Sprintf("unknown capability %q", req.Capability),
		})
		return
	}

	result, err := h.opts.Module.Invoke(r.Context(), req.Capability, req.Params)
	if err != nil {
		h.logger.Warn("invocation failed",
			logger.String("capability", req.Capability),
			logger.Error(err))
		writeHostJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeHostJSON(w, http.StatusOK, result)
}

func hasCapability(m Module, name string) bool {
	for _, c := range m.Capabilities() {
		if c == name {
			return true
		}
	}
	return false
}

func writeHostJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
