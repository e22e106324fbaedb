// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logWriter io.Writer = zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.RFC3339,
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(logWriter).With().Timestamp().Logger()
}

// Configure sets the global log level and rebuilds the global logger.
// Unknown levels fall back to info.
func Configure(levelStr string) {
	level := ParseLevel(levelStr)
	zerolog.SetGlobalLevel(level)

	logContext := zerolog.New(logWriter).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}
	log.Logger = logContext.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger
}

// ParseLevel converts a string log level to zerolog.Level, defaulting to info.
func ParseLevel(levelStr string) zerolog.Level {
	if levelStr == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", levelStr).Msg("invalid log level, using info")
		return zerolog.InfoLevel
	}
	return level
}

// SetWriter replaces the log destination. Commands with --json output switch to
// plain JSON log lines on stderr so stdout stays machine-readable.
func SetWriter(w io.Writer) {
	logWriter = w
	log.Logger = log.Logger.Output(w)
}
