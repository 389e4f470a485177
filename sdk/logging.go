package sdk

import "github.com/modulant/lattice/internal/logger"

// Logger is the structured logger SDK components emit through. It is
// satisfied by the zap-backed logger returned from NewLogger, or by any
// implementation with the same method set (fields are zap.Field values).
type Logger = logger.Logger

// NewLogger builds a zap-backed Logger. level is one of "debug", "info",
// "warn", "error"; pretty switches from JSON output to a colored console
// encoder for development.
func NewLogger(level string, pretty bool) Logger {
	return logger.New(level, pretty)
}
