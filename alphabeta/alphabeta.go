// Package alphabeta implements the fixed-depth mate-oriented alpha-beta
// searcher (spec.md §4.2): iterative deepening in steps of two plies,
// rank-gated move skipping in place of classical static pruning, and
// single-extension on checks/threats at the frontier.
//
// The negamax shape, the node count and stop-flag poll at function
// entry and the PV-on-alpha-raise update are grounded on the teacher's
// engine/search.go alphabeta/rootsearch; the pruning conditions
// themselves are this searcher's own (mate-proof rather than
// game-evaluation) rules from spec.md §4.2. The searcher does not check
// a node or time budget itself; it ends on the proof, the target depth,
// or the shared stop flag.
package alphabeta

import (
	"math/bits"
	"sync/atomic"

	"golang.org/x/exp/slices"

	"github.com/Bubblyworld/dragontoothmg"

	"mateforge/position"
	"mateforge/rank"
	"mateforge/search"
	"mateforge/tablebase"
)

// Stack is the fixed-size per-thread recursion stack (spec.md §3): one
// frame per ply, each carrying the PV found beneath it.
type Stack struct {
	frames [search.MaxPly + 1]frame
}

type frame struct {
	pv search.PVLine
}

func (s *Stack) At(ply int) *frame { return &s.frames[ply] }

// Config bundles the read-only-during-search options this engine needs
// (spec.md §5: "the Options map — read at search start, not mutated
// during search").
type Config struct {
	KingMoves  int
	AllMoves   int
	ProbeLimit int
	Adapter    tablebase.Adapter
	ProbeCache *tablebase.ProbeCache
	RootInTB   bool
}

// Searcher runs the search for one worker thread. It is not safe for
// concurrent use by more than one goroutine; the coordinator hands each
// worker its own Searcher, Stack and Position.
type Searcher struct {
	cfg  Config
	stop *atomic.Bool

	nodes    atomic.Uint64
	selDepth atomic.Int64

	mate        int
	targetDepth int
	fullDepth   int
	rootDepth   int
	rootIndex   int
}

// NewSearcher builds a Searcher for a mate-in-`mate` proof starting at
// rootIndex (the root Position's ply count, so is_draw can tell game
// history apart from search history).
func NewSearcher(cfg Config, stop *atomic.Bool, mate, rootIndex int) *Searcher {
	s := &Searcher{cfg: cfg, stop: stop, mate: mate, rootIndex: rootIndex}
	s.targetDepth = 2*mate - 1
	extra := 2
	if mate > 5 {
		extra = 4
	}
	s.fullDepth = s.targetDepth - extra
	if s.fullDepth < 1 {
		s.fullDepth = 1
	}
	return s
}

func (s *Searcher) Nodes() uint64  { return s.nodes.Load() }
func (s *Searcher) SelDepth() int  { return int(s.selDepth.Load()) }
func (s *Searcher) TargetDepth() int { return s.targetDepth }

func (s *Searcher) bumpSelDepth(ply int) {
	for {
		cur := s.selDepth.Load()
		if int64(ply) <= cur {
			return
		}
		if s.selDepth.CompareAndSwap(cur, int64(ply)) {
			return
		}
	}
}

type rankedMove struct {
	move position.Move
	rank int
}

func rankMoves(pos *position.Position, moves []position.Move, ply int) []rankedMove {
	out := make([]rankedMove, len(moves))
	for i, m := range moves {
		out[i] = rankedMove{move: m, rank: rank.Rank(pos, m, ply)}
	}
	slices.SortStableFunc(out, func(a, b rankedMove) bool { return a.rank > b.rank })
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const darkSquares uint64 = 0xAA55AA55AA55AA55

// search is the negamax entry point, spec.md §4.2.
func (s *Searcher) search(pos *position.Position, ss *Stack, ply int, alpha, beta search.Value, depth int) search.Value {
	s.bumpSelDepth(ply)
	s.nodes.Add(1)

	if s.stop.Load() || ply == search.MaxPly {
		return 0
	}
	if depth == 0 {
		if pos.InCheck() && !pos.HasLegalMoves() {
			return search.MatedIn(ply)
		}
		return 0
	}

	andPly := ply&1 == 1
	legalMoves := pos.LegalMoves()

	if andPly {
		if s.cfg.KingMoves < 8 && countKingMoves(pos, legalMoves) > s.cfg.KingMoves {
			return 0
		}
		if s.cfg.AllMoves < 250 && len(legalMoves) > s.cfg.AllMoves {
			return 0
		}
	} else if sideToMoveOnlyKing(pos) {
		return 0
	}

	if pos.IsDraw(s.rootIndex) {
		return 0
	}

	if state, wdl, probed := s.probeLegal(pos); probed && state == tablebase.ProbeOK {
		if andPly && !wdl.LossSide() {
			return 0
		}
		if !andPly && !wdl.WinSide() {
			return 0
		}
	}

	ranked := rankMoves(pos, legalMoves, ply)
	frame := ss.At(ply)
	frame.pv.Clear()

	bestValue := -search.VALUE_INFINITE
	moveCount := 0
	anyMove := false

	for _, rm := range ranked {
		extension := s.decideExtension(pos, rm, ply, depth)
		if s.shouldSkip(pos, rm, depth, moveCount, andPly, extension) {
			continue
		}
		moveCount++
		anyMove = true

		pos.DoMove(rm.move)
		value := -s.search(pos, ss, ply+1, -beta, -alpha, depth-1+2*boolToInt(extension))
		pos.UndoMove()

		if s.stop.Load() {
			return 0
		}

		if value >= beta {
			return value
		}
		if value > bestValue {
			bestValue = value
			if value > alpha {
				alpha = value
				frame.pv.Set(rm.move, ss.At(ply+1).pv)
			}
		}
		if bestValue > search.VALUE_MATE-search.Value(2*s.mate) {
			break
		}
	}

	if !anyMove {
		if pos.InCheck() {
			return search.MatedIn(ply)
		}
		return 0
	}
	return bestValue
}

func (s *Searcher) decideExtension(pos *position.Position, m rankedMove, ply, depth int) bool {
	if !(depth == 1 && ply < s.targetDepth-1 && s.rootDepth < s.targetDepth) {
		return false
	}
	if m.rank >= 6000 {
		return true
	}
	if s.rootDepth >= s.fullDepth {
		if pos.IsCapture(m.move) || pos.IsPromotion(m.move) {
			return true
		}
		if rank.ReadyCheck(pos, m.move) {
			return true
		}
	}
	return false
}

func (s *Searcher) shouldSkip(pos *position.Position, m rankedMove, depth, moveCount int, andPly, extension bool) bool {
	if andPly && depth > 1 && moveCount > 5 && s.defenderBishopPrune(pos, m) {
		return true
	}
	if !andPly && moveCount > 1 && depth > 1 && s.targetDepth >= 7 && s.rootDepth > 3 && s.rootDepth < s.targetDepth {
		switch {
		case s.rootDepth < s.targetDepth-4 && m.rank < 6000:
			return true
		case s.rootDepth < s.targetDepth-2 && m.rank < 2000:
			return true
		case s.rootDepth < s.targetDepth && m.rank < 0:
			return true
		}
	}
	if depth == 1 && !extension && m.rank < 6000 {
		return true
	}
	return false
}

func (s *Searcher) defenderBishopPrune(pos *position.Position, m rankedMove) bool {
	b := pos.Board()
	own, opp := b.Black, b.White
	if b.Wtomove {
		own, opp = b.White, b.Black
	}
	if bits.OnesCount64(own.Bishops) <= 3 {
		return false
	}
	piece, ok := rank.PieceAt(&own, m.move.From())
	if !ok || piece != dragontoothmg.Bishop {
		return false
	}
	oppPieces := opp.Pawns | opp.Knights | opp.Bishops | opp.Rooks | opp.Queens
	if (uint64(1)<<m.move.To())&darkSquares != 0 {
		return oppPieces&darkSquares == 0
	}
	return oppPieces&^darkSquares == 0
}

func (s *Searcher) probeLegal(pos *position.Position) (tablebase.ProbeState, tablebase.WDLScore, bool) {
	if s.cfg.Adapter == nil {
		return tablebase.ProbeFail, tablebase.Draw, false
	}
	card := tablebase.Cardinality(pos)
	if card > s.cfg.ProbeLimit || card > s.cfg.Adapter.MaxCardinality() {
		return tablebase.ProbeFail, tablebase.Draw, false
	}
	if s.cfg.ProbeCache != nil {
		state, wdl := s.cfg.ProbeCache.ProbeWDL(s.cfg.Adapter, pos)
		return state, wdl, true
	}
	state, wdl := s.cfg.Adapter.ProbeWDL(pos)
	return state, wdl, true
}

func countKingMoves(pos *position.Position, moves []position.Move) int {
	b := pos.Board()
	own := b.Black
	if b.Wtomove {
		own = b.White
	}
	kingSq := uint8(bits.TrailingZeros64(own.Kings))
	n := 0
	for _, m := range moves {
		if m.From() == kingSq {
			n++
		}
	}
	return n
}

// sideToMoveOnlyKing reports whether the side to move (the mating side at
// this OR node) has no mating material left — own = pos.count<ALL_PIECES>(us)
// == 1 in the original, not the opponent's material.
func sideToMoveOnlyKing(pos *position.Position) bool {
	b := pos.Board()
	own := b.Black
	if b.Wtomove {
		own = b.White
	}
	return own.Pawns|own.Knights|own.Bishops|own.Rooks|own.Queens == 0
}

func (s *Searcher) shouldSkipRoot(idx int, r int) bool {
	if idx == 0 {
		return false
	}
	// First-depth root moves below the mating-bonus range are skipped
	// outright when no tablebase ranking is available, mirroring
	// original_source/src/search.cpp's rootDepth==1 + !RootInTB gate.
	if s.rootDepth == 1 && !s.cfg.RootInTB && r < 5000 {
		return true
	}
	if !(s.targetDepth >= 7 && s.rootDepth > 3 && s.rootDepth < s.targetDepth) {
		return false
	}
	switch {
	case s.rootDepth < s.targetDepth-4 && r < 6000:
		return true
	case s.rootDepth < s.targetDepth-2 && r < 2000:
		return true
	case s.rootDepth < s.targetDepth && r < 0:
		return true
	}
	return false
}

// IterativeDeepening drives the per-worker loop of spec.md §4.2: climb
// rootDepth in steps of two plies to targetDepth, searching this
// worker's share of rootMoves (an OR ply) at each step, updating every
// root move's score/PV, and stopping as soon as a mate within the limit
// is proved.
func (s *Searcher) IterativeDeepening(pos *position.Position, rootMoves []*search.RootMove) {
	alpha := search.VALUE_MATE - search.Value(2*s.mate)
	beta := search.VALUE_INFINITE
	bestValue := search.VALUE_MATE_IN_MAX_PLY - 1

	var ss Stack
	for rootDepth := 1; rootDepth <= s.targetDepth; rootDepth += 2 {
		s.rootDepth = rootDepth
		for i, rm := range rootMoves {
			if s.stop.Load() {
				return
			}
			r := rank.RootRank(pos, rm.Move)
			if s.shouldSkipRoot(i, r) {
				continue
			}

			pos.DoMove(rm.Move)
			value := -s.search(pos, &ss, 1, -beta, -alpha, rootDepth-1)
			pos.UndoMove()

			rm.PreviousScore = rm.Score
			rm.Score = value
			rm.SelDepth = s.SelDepth()
			if value > alpha {
				rm.PV = append([]position.Move{rm.Move}, ss.At(1).pv.Moves...)
				rm.BestMoveCount++
			}
			if value > bestValue {
				bestValue = value
			}

			slices.SortStableFunc(rootMoves[:i+1], func(a, b *search.RootMove) bool { return a.Less(*b) })
		}
		if bestValue >= alpha {
			s.stop.Store(true)
		}
		if s.stop.Load() {
			break
		}
	}
}
