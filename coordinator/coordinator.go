// Package coordinator implements the Thread Pool & Search Coordinator of
// spec.md §4.5: launches one goroutine per worker thread over a
// disjoint root-move partition, dispatches to PNS (main thread only) or
// alpha-beta per the ProofNumberSearch option, and harvests the best
// line once every worker has returned.
//
// The goroutine-per-worker, errgroup-joined shape is grounded on
// other_examples/ChizhovVadim-CounterGo__lazysmp.go's lazy-SMP
// coordination; the teacher itself is single-threaded and has no
// analog here.
package coordinator

import (
	"context"
	"sync/atomic"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"mateforge/alphabeta"
	"mateforge/options"
	"mateforge/pns"
	"mateforge/position"
	"mateforge/rootctl"
	"mateforge/search"
	"mateforge/tablebase"
)

// Report is what one `go` produces for the uci package to render.
type Report struct {
	Best      *search.RootMove
	RootMoves []*search.RootMove
	RootInTB  bool
	Nodes     uint64
	SelDepth  int
	Failed    bool
}

// Pool holds the process-wide singletons spec.md §9 calls out (the
// Options map and the tablebase file mappings); the thread pool itself
// is just the goroutines spawned per StartThinking call.
type Pool struct {
	opts       *options.Options
	adapter    tablebase.Adapter
	probeCache *tablebase.ProbeCache
}

func NewPool(opts *options.Options, adapter tablebase.Adapter, probeCache *tablebase.ProbeCache) *Pool {
	return &Pool{opts: opts, adapter: adapter, probeCache: probeCache}
}

// StartThinking runs one `go` to completion, mirroring
// MainThread::start_thinking / Thread::search (spec.md §4.5). stop is
// shared with the caller so `stop`/`quit` can cancel an in-flight search.
func (p *Pool) StartThinking(root *position.Position, limits search.Limits, stop *atomic.Bool) Report {
	mate := limits.Mate
	if mate <= 0 {
		mate = 1
	}

	threadCount := p.opts.Threads
	if threadCount < 1 {
		threadCount = 1
	}
	if p.opts.ProofNumberSearch {
		// PNS runs single-threaded on the main thread; other threads
		// remain idle (spec.md §5), so the root set is not partitioned.
		threadCount = 1
	}

	rc := rootctl.Init(root, p.adapter, rootctl.Options{
		KingMoves:        p.opts.KingMoves,
		AllMoves:         p.opts.AllMoves,
		SyzygyProbeLimit: p.opts.SyzygyProbeLimit,
		RootMoveStats:    p.opts.RootMoveStats,
	}, limits.SearchMoves, threadCount)

	if len(rc.RootMoves) == 0 {
		return Report{RootMoves: rc.RootMoves, RootInTB: rc.RootInTB, Failed: true}
	}

	if tablebase.IsBasicMate(root, rc.RootMoves[0].TBRank) {
		if value, pv, ok := tablebase.SyzygySearch(p.adapter, root, 2*mate-1); ok && len(pv) > 0 {
			for _, rm := range rc.RootMoves {
				if rm.Move == pv[0] {
					rm.PV = pv
					rm.Score = value
					return Report{Best: rm, RootMoves: rc.RootMoves, RootInTB: rc.RootInTB}
				}
			}
		}
	}

	g, _ := errgroup.WithContext(context.Background())
	rootIndex := root.Ply()
	var totalNodes atomic.Uint64
	var maxSelDepth atomic.Int64

	for _, share := range rc.Threads {
		if len(share) == 0 {
			continue
		}
		share := share
		g.Go(func() error {
			pos := root.Clone()
			if p.opts.ProofNumberSearch {
				rootSet := search.NewMoveSet(movesOf(share))
				s := pns.NewSearcher(pns.Config{
					HashMB:     p.opts.PNSHash,
					KingMoves:  p.opts.KingMoves,
					ProbeLimit: p.opts.SyzygyProbeLimit,
					Adapter:    p.adapter,
					ProbeCache: p.probeCache,
				}, stop, mate, rootIndex, rootSet)
				s.Run(pos, share, limits)
				totalNodes.Add(s.Nodes())
				slices.SortStableFunc(share, func(a, b *search.RootMove) bool { return a.Less(*b) })
			} else {
				s := alphabeta.NewSearcher(alphabeta.Config{
					KingMoves:  p.opts.KingMoves,
					AllMoves:   p.opts.AllMoves,
					ProbeLimit: p.opts.SyzygyProbeLimit,
					Adapter:    p.adapter,
					ProbeCache: p.probeCache,
					RootInTB:   rc.RootInTB,
				}, stop, mate, rootIndex)
				s.IterativeDeepening(pos, share)
				totalNodes.Add(s.Nodes())
				bumpMax(&maxSelDepth, int64(s.SelDepth()))
			}
			return nil
		})
	}
	_ = g.Wait()
	stop.Store(true)

	best := bestThread(rc.Threads)
	return Report{
		Best:      best,
		RootMoves: rc.RootMoves,
		RootInTB:  rc.RootInTB,
		Nodes:     totalNodes.Load(),
		SelDepth:  int(maxSelDepth.Load()),
		Failed:    best == nil || !search.IsMateScore(best.Score),
	}
}

func movesOf(rootMoves []*search.RootMove) []position.Move {
	out := make([]position.Move, len(rootMoves))
	for i, rm := range rootMoves {
		out[i] = rm.Move
	}
	return out
}

func bumpMax(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n <= cur {
			return
		}
		if v.CompareAndSwap(cur, n) {
			return
		}
	}
}

// bestThread picks the best rootMoves[0] across threads with a
// non-empty share (spec.md §4.5 "Best-thread pick"), relying on each
// worker having left its own share sorted best-first.
func bestThread(threads [][]*search.RootMove) *search.RootMove {
	var best *search.RootMove
	for _, share := range threads {
		if len(share) == 0 {
			continue
		}
		if best == nil || share[0].Less(*best) {
			best = share[0]
		}
	}
	return best
}
