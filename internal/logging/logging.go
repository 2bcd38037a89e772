// Package logging initializes the process-wide zerolog logger used by every
// component of the orchestration engine.
package logging

import (
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. In dev environments it writes a
// human-readable console format; otherwise structured JSON to stdout, which
// is what the log aggregator in every other environment expects.
func Init(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w = os.Stdout
	if pretty {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		log.Logger = zerolog.New(cw).With().Timestamp().Caller().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	}

	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil {
		lvl = l
	}
	zerolog.SetGlobalLevel(lvl)

	// Route anything still using the standard library logger (third-party
	// clients that log.Printf internally) through the same sink.
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// For returns a logger tagged with the given component name, so every line
// it emits can be filtered by component in the aggregator.
func For(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
