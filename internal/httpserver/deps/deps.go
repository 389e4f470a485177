package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modulant/lattice/internal/logger"
	"github.com/modulant/lattice/internal/registry"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access healthz/readyz endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy

	Registry    *registry.Store // in-memory service registry, authoritative
	RedisClient *redis.Client   // nil when snapshot persistence is disabled

	RegisterBurst     int // rate limit burst for mutating endpoints
	RegisterPerMinute int // rate limit refill for mutating endpoints
}
