package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Health monitor
	ProbeInterval   time.Duration // interval between monitor ticks (default: 30s)
	ProbeTimeout    time.Duration // per-probe timeout (default: 5s)
	ExpiryThreshold int           // consecutive failed cycles before a record expires (default: 3)

	// SSRF guard for registration locations
	LocationAllowlist      []string // IPs/CIDRs accepted despite sitting in blocked ranges
	AllowLoopbackLocations bool     // permit localhost locations (local development only)

	// Redis snapshot store (optional, empty addr = memory only)
	RedisAddr           string        // ex: "localhost:6379", empty disables snapshots
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
	SnapshotInterval    time.Duration // interval between snapshot writes (default: 1m)

	// Access restrictions
	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict introspection endpoints to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. behind a tunnel)

	// Registration rate limiting
	RegisterBurst     int // token bucket size for /api/register per client IP
	RegisterPerMinute int // refill rate per client IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LATTICE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LATTICE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LATTICE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LATTICE_PRETTY_LOG", false),

		// Health monitor
		ProbeInterval:   mustDuration("LATTICE_PROBE_INTERVAL", 30*time.Second),
		ProbeTimeout:    mustDuration("LATTICE_PROBE_TIMEOUT", 5*time.Second),
		ExpiryThreshold: getenvInt("LATTICE_EXPIRY_THRESHOLD", 3),

		// SSRF guard
		LocationAllowlist:      splitAndTrim(getenv("LATTICE_LOCATION_ALLOWLIST", "")),
		AllowLoopbackLocations: mustBool("LATTICE_ALLOW_LOOPBACK_LOCATIONS", false),

		// Redis settings (snapshot persistence is optional)
		RedisAddr:           getenv("LATTICE_REDIS_ADDR", ""),
		RedisUser:           getenv("LATTICE_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("LATTICE_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("LATTICE_REDIS_DB", 0),
		RedisDT:             mustDuration("LATTICE_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("LATTICE_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("LATTICE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("LATTICE_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("LATTICE_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("LATTICE_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("LATTICE_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("LATTICE_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("LATTICE_REDIS_WARN_THRESHOLD", 3),
		SnapshotInterval:    mustDuration("LATTICE_SNAPSHOT_INTERVAL", time.Minute),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("LATTICE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("LATTICE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LATTICE_TRUST_PROXY", false),

		// Registration rate limiting
		RegisterBurst:     getenvInt("LATTICE_REGISTER_BURST", 30),
		RegisterPerMinute: getenvInt("LATTICE_REGISTER_PER_MINUTE", 60),
	}

	if cfg.ExpiryThreshold < 1 {
		panic("❌ FATAL: LATTICE_EXPIRY_THRESHOLD must be >= 1")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
