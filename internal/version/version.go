package version

import (
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.2.0
	Commit    = "none"                          // ex: 4f1c2ab
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-08-30T10:15:00Z
	GoVersion = runtime.Version()               // go version
)
