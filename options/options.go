// Package options is the UCI option registry (spec.md §6 "Recognized
// options", §9 "Global state": "the Options map ... pass these as
// explicit context"). It is read at search start and never mutated
// during a search (spec.md §5).
package options

import (
	"fmt"
	"strconv"
	"strings"
)

// Options holds the current value of every UCI-settable knob the core
// reads (spec.md §6).
type Options struct {
	Threads           int
	Hash              int
	PNSHash           int
	KingMoves         int
	AllMoves          int
	ProofNumberSearch bool
	RootMoveStats     bool
	SyzygyPath        string
	SyzygyProbeDepth  int
	SyzygyProbeLimit  int
	Syzygy50MoveRule  bool
	UCIChess960       bool
}

// Default returns the engine's out-of-the-box option values.
func Default() Options {
	return Options{
		Threads:           1,
		Hash:              16,
		PNSHash:           64,
		KingMoves:         8,
		AllMoves:          250,
		ProofNumberSearch: false,
		RootMoveStats:     false,
		SyzygyPath:        "",
		SyzygyProbeDepth:  1,
		SyzygyProbeLimit:  6,
		Syzygy50MoveRule:  true,
		UCIChess960:       false,
	}
}

type entry struct {
	name     string
	announce string
	apply    func(value string) error
}

// Registry dispatches `setoption` by name and produces the `option ...`
// announcement lines for the `uci` handshake.
type Registry struct {
	opts    *Options
	entries []entry
}

// NewRegistry builds the registry over opts, which the caller owns and
// reads after each Set.
func NewRegistry(opts *Options) *Registry {
	r := &Registry{opts: opts}
	r.add("Threads", "spin", opts.Threads, 1, 512, spinSetter(&opts.Threads, 1, 512))
	r.add("Hash", "spin", opts.Hash, 1, 65536, spinSetter(&opts.Hash, 1, 65536))
	r.add("PNS Hash", "spin", opts.PNSHash, 1, 32768, spinSetter(&opts.PNSHash, 1, 32768))
	r.add("KingMoves", "spin", opts.KingMoves, 0, 8, spinSetter(&opts.KingMoves, 0, 8))
	r.add("AllMoves", "spin", opts.AllMoves, 1, 500, spinSetter(&opts.AllMoves, 1, 500))
	r.addCheck("ProofNumberSearch", opts.ProofNumberSearch, checkSetter(&opts.ProofNumberSearch))
	r.addCheck("RootMoveStats", opts.RootMoveStats, checkSetter(&opts.RootMoveStats))
	r.addString("SyzygyPath", opts.SyzygyPath, stringSetter(&opts.SyzygyPath))
	r.add("SyzygyProbeDepth", "spin", opts.SyzygyProbeDepth, 1, 100, spinSetter(&opts.SyzygyProbeDepth, 1, 100))
	r.add("SyzygyProbeLimit", "spin", opts.SyzygyProbeLimit, 0, 7, spinSetter(&opts.SyzygyProbeLimit, 0, 7))
	r.addCheck("Syzygy50MoveRule", opts.Syzygy50MoveRule, checkSetter(&opts.Syzygy50MoveRule))
	r.addCheck("UCI_Chess960", opts.UCIChess960, checkSetter(&opts.UCIChess960))
	return r
}

func (r *Registry) add(name, typ string, def, min, max int, apply func(string) error) {
	r.entries = append(r.entries, entry{
		name:     name,
		announce: fmt.Sprintf("option name %s type %s default %d min %d max %d", name, typ, def, min, max),
		apply:    apply,
	})
}

func (r *Registry) addCheck(name string, def bool, apply func(string) error) {
	r.entries = append(r.entries, entry{
		name:     name,
		announce: fmt.Sprintf("option name %s type check default %t", name, def),
		apply:    apply,
	})
}

func (r *Registry) addString(name string, def string, apply func(string) error) {
	shown := def
	if shown == "" {
		shown = "<empty>"
	}
	r.entries = append(r.entries, entry{
		name:     name,
		announce: fmt.Sprintf("option name %s type string default %s", name, shown),
		apply:    apply,
	})
}

// Announce returns one `option ...` line per registered option, in
// registration order, for the `uci` handshake.
func (r *Registry) Announce() []string {
	lines := make([]string, len(r.entries))
	for i, e := range r.entries {
		lines[i] = e.announce
	}
	return lines
}

// Set applies a setoption value by name (case-insensitive), returning
// an error for an unknown name or an unparsable value (spec.md §7
// "Unknown option name").
func (r *Registry) Set(name, value string) error {
	lower := strings.ToLower(name)
	for _, e := range r.entries {
		if strings.ToLower(e.name) == lower {
			return e.apply(value)
		}
	}
	return fmt.Errorf("no such option: %s", name)
}

func spinSetter(field *int, min, max int) func(string) error {
	return func(value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %s", value)
		}
		if n < min {
			n = min
		}
		if n > max {
			n = max
		}
		*field = n
		return nil
	}
}

func checkSetter(field *bool) func(string) error {
	return func(value string) error {
		switch strings.ToLower(value) {
		case "true":
			*field = true
		case "false":
			*field = false
		default:
			return fmt.Errorf("not a bool: %s", value)
		}
		return nil
	}
}

func stringSetter(field *string) func(string) error {
	return func(value string) error {
		*field = value
		return nil
	}
}
