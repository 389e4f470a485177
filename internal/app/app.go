package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/config"
	"github.com/modulant/lattice/internal/httpserver"
	"github.com/modulant/lattice/internal/httpserver/deps"
	"github.com/modulant/lattice/internal/logger"
	"github.com/modulant/lattice/internal/redis"
	"github.com/modulant/lattice/internal/registry"
	"github.com/modulant/lattice/internal/scheduler"
	redisstore "github.com/modulant/lattice/internal/store/redis"
	"github.com/modulant/lattice/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       *registry.Store
	monitor     *scheduler.HealthMonitor
	syncer      *scheduler.SnapshotSyncer
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Snapshot persistence is optional. Without an address the registry
	// simply boots empty and lives in memory only.
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
	}

	policy := &lattice.LocationPolicy{
		AllowLoopback: cfg.AllowLoopbackLocations,
		Allowlist:     cfg.LocationAllowlist,
	}
	store := registry.NewStore(policy)

	var syncer *scheduler.SnapshotSyncer
	if redisClient != nil {
		syncer = scheduler.NewSnapshotSyncer(
			redisstore.NewStore(redisClient),
			store,
			loggerClient,
			cfg.SnapshotInterval,
		)
		if err := syncer.Restore(context.Background()); err != nil {
			loggerClient.Warn("failed to restore snapshot, starting empty",
				logger.Error(err))
		}
	}

	monitor := scheduler.NewHealthMonitor(
		store,
		loggerClient,
		cfg.ProbeInterval,
		cfg.ProbeTimeout,
		cfg.ExpiryThreshold,
	)

	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		AllowedHosts:      cfg.AllowedHosts,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		TrustProxy:        cfg.TrustProxy,
		Registry:          store,
		RedisClient:       redisClient,
		RegisterBurst:     cfg.RegisterBurst,
		RegisterPerMinute: cfg.RegisterPerMinute,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		store:       store,
		monitor:     monitor,
		syncer:      syncer,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Lattice v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Lattice %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health monitor: %w", err)
	}
	a.logger.Info("health monitor started",
		logger.Duration("interval", a.cfg.ProbeInterval),
		logger.Duration("probe_timeout", a.cfg.ProbeTimeout),
		logger.Int("expiry_threshold", a.cfg.ExpiryThreshold))

	if a.syncer != nil {
		if err := a.syncer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start snapshot syncer: %w", err)
		}
		a.logger.Info("snapshot syncer started",
			logger.Duration("interval", a.cfg.SnapshotInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.monitor.Stop()

	if a.syncer != nil {
		// Final snapshot so a restart resumes from the latest state.
		syncCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		if err := a.syncer.Sync(syncCtx); err != nil {
			a.logger.Warnf("final snapshot failed: %v", err)
		}
		cancel()
		a.syncer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Lattice stopped cleanly")
	return nil
}
