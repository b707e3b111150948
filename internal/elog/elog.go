// Package elog is the engine's internal diagnostic logger. It is
// deliberately separate from the UCI wire protocol: every `info ...`
// and `bestmove ...` line goes straight to stdout through the uci
// package's own writer, never through here. elog carries only
// process-lifecycle and option-change diagnostics to stderr, the way
// domino14-macondo wires zerolog for its own internal diagnostics
// alongside a separate wire protocol.
package elog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
)

// SetLevel adjusts verbosity.
func SetLevel(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	if debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
}

func Info() *zerolog.Event {
	mu.Lock()
	l := logger
	mu.Unlock()
	return l.Info()
}

func Debug() *zerolog.Event {
	mu.Lock()
	l := logger
	mu.Unlock()
	return l.Debug()
}

func Warn() *zerolog.Event {
	mu.Lock()
	l := logger
	mu.Unlock()
	return l.Warn()
}

func Error() *zerolog.Event {
	mu.Lock()
	l := logger
	mu.Unlock()
	return l.Error()
}
