package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/logger"
	"github.com/modulant/lattice/internal/registry"
)

// probeFunc issues one bounded health probe. Swappable in tests.
type probeFunc func(ctx context.Context, location string, timeout time.Duration) error

// HealthMonitor periodically probes every non-embedded record and drives the
// active/unhealthy/expired state machine in the store.
type HealthMonitor struct {
	store     *registry.Store
	logger    logger.Logger
	interval  time.Duration
	timeout   time.Duration
	threshold int
	probe     probeFunc
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewHealthMonitor creates a health monitor. threshold is the number of
// consecutive failed cycles after which an unhealthy record expires.
func NewHealthMonitor(
	store *registry.Store,
	log logger.Logger,
	interval time.Duration,
	timeout time.Duration,
	threshold int,
) *HealthMonitor {
	return &HealthMonitor{
		store:     store,
		logger:    log,
		interval:  interval,
		timeout:   timeout,
		threshold: threshold,
		probe:     lattice.ProbeHealth,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the periodic probe loop.
func (hm *HealthMonitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(hm.interval)
	go func() {
		defer ticker.Stop()
		defer close(hm.doneCh)
		for {
			select {
			case <-ticker.C:
				hm.Check(ctx)
			case <-hm.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the monitor and waits for in-flight probes to finish.
func (hm *HealthMonitor) Stop() {
	close(hm.stopCh)
	<-hm.doneCh
}

// Check runs one monitor tick: every target is probed concurrently with its
// own timeout, so one hung endpoint cannot delay the rest. Probe errors are
// absorbed as status transitions and never escape the loop.
func (hm *HealthMonitor) Check(ctx context.Context) {
	targets := hm.store.ProbeTargets()
	if len(targets) == 0 {
		hm.logger.Debug("health monitor tick: nothing to probe")
		return
	}

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target registry.ProbeTarget) {
			defer wg.Done()
			hm.probeOne(ctx, target)
		}(target)
	}
	wg.Wait()
}

func (hm *HealthMonitor) probeOne(ctx context.Context, target registry.ProbeTarget) {
	err := hm.probe(ctx, target.Location, hm.timeout)
	healthy := err == nil

	transition := hm.store.RecordProbeResult(target.ID, healthy, hm.threshold)
	switch transition {
	case registry.TransitionDemoted:
		hm.logger.Warn("service failed health probe, marked unhealthy",
			logger.String("service_id", target.ID),
			logger.String("location", target.Location),
			logger.Error(err))
	case registry.TransitionPromoted:
		hm.logger.Info("service recovered, marked active",
			logger.String("service_id", target.ID),
			logger.String("location", target.Location))
	case registry.TransitionExpired:
		hm.logger.Info("service expired after repeated probe failures, removed",
			logger.String("service_id", target.ID),
			logger.String("location", target.Location),
			logger.Int("threshold", hm.threshold))
	default:
		if !healthy {
			hm.logger.Debug("service still unhealthy",
				logger.String("service_id", target.ID),
				logger.Error(err))
		}
	}
}
