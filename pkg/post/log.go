package post

import (
	"os"

	"github.com/rs/zerolog"
)

// log is the package-level logger for advisory trace/error lines: progress
// at trace level, faults and verification failures at error level. Logging
// never affects control flow. zerolog was already an indirect dependency
// of this module's dependency graph; this package promotes it to direct
// use instead of reaching for log/slog.
var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
	Level(zerolog.InfoLevel).
	With().Timestamp().Logger()

// SetLogLevel adjusts the package logger's verbosity (e.g. to
// zerolog.TraceLevel for the per-challenge progress lines). Advisory only.
func SetLogLevel(level zerolog.Level) {
	log = log.Level(level)
}
