package scheduler

import (
	"context"
	"time"

	"github.com/modulant/lattice/internal/logger"
	"github.com/modulant/lattice/internal/registry"
	redisstore "github.com/modulant/lattice/internal/store/redis"
)

// SnapshotSyncer mirrors the in-memory registry into Redis so a restarted
// daemon does not come up empty. The memory store stays authoritative: every
// write here is best effort, and restored records are re-reconciled by the
// health monitor on its next tick.
type SnapshotSyncer struct {
	store    *redisstore.Store
	registry *registry.Store
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSnapshotSyncer creates a snapshot syncer.
func NewSnapshotSyncer(
	store *redisstore.Store,
	reg *registry.Store,
	log logger.Logger,
	interval time.Duration,
) *SnapshotSyncer {
	return &SnapshotSyncer{
		store:    store,
		registry: reg,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Restore loads the last snapshot from Redis into the registry on startup.
func (ss *SnapshotSyncer) Restore(ctx context.Context) error {
	ss.logger.Info("restoring registry snapshot from redis")

	records, err := ss.store.GetAllRecords(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		ss.logger.Info("no snapshot records found in redis")
		return nil
	}

	ss.registry.Restore(records)

	ss.logger.Info("restored registry snapshot",
		logger.Int("count", len(records)))

	return nil
}

// Start begins the periodic snapshot writes.
func (ss *SnapshotSyncer) Start(ctx context.Context) error {
	ticker := time.NewTicker(ss.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ss.Sync(ctx); err != nil {
					ss.logger.Warn("snapshot sync failed",
						logger.Error(err))
				}
			case <-ss.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the syncer.
func (ss *SnapshotSyncer) Stop() {
	close(ss.stopCh)
}

// Sync writes the current registry contents to Redis. Records removed from
// the registry age out of the snapshot through the store's key TTL.
func (ss *SnapshotSyncer) Sync(ctx context.Context) error {
	records := ss.registry.List()
	if len(records) == 0 {
		return nil
	}

	if err := ss.store.SaveRecordsMany(ctx, records); err != nil {
		return err
	}

	ss.logger.Debug("registry snapshot written",
		logger.Int("count", len(records)))

	return nil
}
