package sdk

import (
	"context"
	"time"

	"github.com/modulant/lattice/internal/logger"
)

// DefaultHeartbeatInterval is half the registry's probe cadence, so a
// healthy service always refreshes itself between two probe cycles.
const DefaultHeartbeatInterval = 15 * time.Second

// Heartbeater periodically refreshes a registration so the registry keeps
// treating the service as alive even when probes are slow or filtered.
type Heartbeater struct {
	client    *Client
	serviceID string
	logger    Logger
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewHeartbeater builds a heartbeater. A nil log defaults to NewLogger;
// interval <= 0 defaults to DefaultHeartbeatInterval.
func NewHeartbeater(client *Client, serviceID string, log Logger, interval time.Duration) *Heartbeater {
	if log == nil {
		log = NewLogger("info", false)
	}
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeater{
		client:    client,
		serviceID: serviceID,
		logger:    log,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the heartbeat loop. Failures are logged and retried on
// the next tick; the registry's own probing covers the gaps.
func (h *Heartbeater) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)

	go func() {
		defer ticker.Stop()
		defer close(h.doneCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.beat(ctx)
			}
		}
	}()
}

func (h *Heartbeater) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

func (h *Heartbeater) beat(ctx context.Context) {
	beatCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	if err := h.client.Heartbeat(beatCtx, h.serviceID); err != nil {
		h.logger.Warn("heartbeat failed",
			logger.String("service_id", h.serviceID),
			logger.Error(err))
		return
	}
	h.logger.Debug("heartbeat sent", logger.String("service_id", h.serviceID))
}
