// Package rootctl implements the Root Controller of spec.md §4.6: builds
// the ranked, filtered root move list for one `go` and distributes it
// round-robin across worker threads.
package rootctl

import (
	"golang.org/x/exp/slices"

	"mateforge/internal/elog"
	"mateforge/position"
	"mateforge/rank"
	"mateforge/search"
	"mateforge/tablebase"
)

// Options bundles the UCI options the controller reads at search start
// (spec.md §4.6, §5: "the Options map — read at search start").
type Options struct {
	KingMoves        int
	AllMoves         int
	SyzygyProbeLimit int
	RootMoveStats    bool
}

// Result is the output of Init: the full ranked root move list, whether
// it was resolved via tablebase, and the round-robin per-thread shares.
type Result struct {
	RootMoves []*search.RootMove
	RootInTB  bool
	Threads   [][]*search.RootMove
}

// Init generates the legal root move list for pos, filters it by
// searchMoves, ranks it (tablebase-first, else the heuristic ranker),
// stable-sorts it descending, and distributes it round-robin across
// threadCount workers (spec.md §4.6).
func Init(pos *position.Position, adapter tablebase.Adapter, opts Options, searchMoves search.MoveSet, threadCount int) Result {
	legal := pos.LegalMoves()
	rootMoves := make([]*search.RootMove, 0, len(legal))
	for _, m := range legal {
		if searchMoves != nil && !searchMoves.Contains(m) {
			continue
		}
		rootMoves = append(rootMoves, &search.RootMove{Move: m})
	}

	if len(rootMoves) == 0 {
		return Result{RootMoves: rootMoves, Threads: distribute(rootMoves, threadCount)}
	}

	rootInTB := false
	if adapter != nil {
		rootInTB = tablebase.RankRootMoves(adapter, pos, rootMoves, opts.SyzygyProbeLimit)
	}

	sortRootMoves(pos, rootMoves, rootInTB)

	if opts.RootMoveStats {
		dumpRootMoveOrdering(rootMoves, rootInTB)
	}

	return Result{
		RootMoves: rootMoves,
		RootInTB:  rootInTB,
		Threads:   distribute(rootMoves, threadCount),
	}
}

type rankedRoot struct {
	rm *search.RootMove
	r  int
}

// sortRootMoves orders rootMoves descending by tbRank when the position
// resolved through the tablebase, else by the root-parity heuristic
// ranker (spec.md §4.1 "Root ranking"). This is a one-time initial
// ordering for search/distribution purposes, independent of the
// score-then-tbRank comparator RootMove.Less applies during search.
func sortRootMoves(pos *position.Position, rootMoves []*search.RootMove, rootInTB bool) {
	ranked := make([]rankedRoot, len(rootMoves))
	for i, rm := range rootMoves {
		if rootInTB {
			ranked[i] = rankedRoot{rm, rm.TBRank}
		} else {
			ranked[i] = rankedRoot{rm, rank.RootRank(pos, rm.Move)}
		}
	}
	slices.SortStableFunc(ranked, func(a, b rankedRoot) bool { return a.r > b.r })
	for i, x := range ranked {
		rootMoves[i] = x.rm
	}
}

// distribute hands out a disjoint round-robin share of rootMoves to each
// of threadCount workers (spec.md §4.5, §8 "Root-move partition").
func distribute(rootMoves []*search.RootMove, threadCount int) [][]*search.RootMove {
	if threadCount < 1 {
		threadCount = 1
	}
	threads := make([][]*search.RootMove, threadCount)
	for i, rm := range rootMoves {
		threads[i%threadCount] = append(threads[i%threadCount], rm)
	}
	return threads
}

// dumpRootMoveOrdering logs the initial root ranking when RootMoveStats
// is enabled, grounded on the teacher's engine/searchutil.go
// dumpRootMoveOrdering diagnostic dump.
func dumpRootMoveOrdering(rootMoves []*search.RootMove, rootInTB bool) {
	for i, rm := range rootMoves {
		elog.Debug().
			Int("index", i).
			Str("move", rm.Move.String()).
			Int("tbRank", rm.TBRank).
			Bool("rootInTB", rootInTB).
			Msg("root move ordering")
	}
}
