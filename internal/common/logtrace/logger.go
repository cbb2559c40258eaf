// Package logtrace configures the process logger and carries request identifiers
// through contexts.
package logtrace

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger sets up the global zerolog logger on stderr with unix timestamps.
// Unknown or empty levels fall back to info.
func InitLogger(level string) {
	initLogger(os.Stderr, level)
}

var traceEnabled bool

func initLogger(w io.Writer, level string) {
	lvl := ParseLevel(level)
	traceEnabled = lvl == zerolog.TraceLevel
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// IsTraceEnabled reports whether the logger was initialized at trace level.
func IsTraceEnabled() bool {
	return traceEnabled
}
