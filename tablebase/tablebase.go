// Package tablebase adapts Syzygy-style WDL/DTZ endgame tablebase probes
// to the mate search. The tablebase file loaders themselves are an
// external collaborator out of scope here (spec.md §1); this package
// only specifies the Adapter interface the core requires and a
// zero-dependency NoneAdapter for when no tablebase path is configured.
package tablebase

import (
	"math/bits"
	"strings"
	"sync"

	"github.com/Bubblyworld/dragontoothmg"

	"mateforge/position"
	"mateforge/search"
)

// ProbeState reports whether a probe produced a usable answer.
type ProbeState int

const (
	ProbeFail ProbeState = iota
	ProbeOK
)

// WDLScore is the five-valued outcome of a WDL probe.
type WDLScore int

const (
	Loss WDLScore = iota
	BlessedLoss
	Draw
	CursedWin
	Win
)

// LossSide reports whether s favors the side NOT to move (spec.md §4.2
// step 7: "AND-ply returns 0 unless WDL indicates loss-side").
func (s WDLScore) LossSide() bool { return s == Loss || s == BlessedLoss }

// WinSide reports whether s favors the side to move.
func (s WDLScore) WinSide() bool { return s == Win || s == CursedWin }

// DTZRank is one root move's DTZ-derived rank; higher is better for the
// side to move.
type DTZRank struct {
	Move position.Move
	Rank int
}

// Adapter is the interface the core requires of the tablebase probe
// collaborator.
type Adapter interface {
	ProbeWDL(pos *position.Position) (ProbeState, WDLScore)
	ProbeDTZ(pos *position.Position, moves []position.Move) (ProbeState, []DTZRank)
	MaxCardinality() int
}

// NoneAdapter always fails; used when SyzygyPath is unset.
type NoneAdapter struct{}

func (NoneAdapter) ProbeWDL(*position.Position) (ProbeState, WDLScore) { return ProbeFail, Draw }
func (NoneAdapter) ProbeDTZ(*position.Position, []position.Move) (ProbeState, []DTZRank) {
	return ProbeFail, nil
}
func (NoneAdapter) MaxCardinality() int { return 0 }

// ProbeCache memoizes ProbeWDL results by Zobrist key, since the same
// endgame position recurs heavily near the leaves of a mate search. It
// has no clear operation: entries stay valid across searches for as long
// as the cache object lives. Grounded on the teacher's clustered engine/transposition.go
// (always-replace policy, sized by MiB), simplified to a single flat
// table since probe results don't need depth-preferred replacement.
type ProbeCache struct {
	mu      sync.RWMutex
	entries []cacheEntry
}

type cacheEntry struct {
	hash  uint64
	valid bool
	state ProbeState
	score WDLScore
}

// NewProbeCache builds a cache sized for roughly sizeMB megabytes.
func NewProbeCache(sizeMB int) *ProbeCache {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	n := (sizeMB * 1024 * 1024) / 24
	if n < 1024 {
		n = 1024
	}
	return &ProbeCache{entries: make([]cacheEntry, n)}
}

// ProbeWDL consults the cache, falling through to adapter.ProbeWDL on miss.
func (c *ProbeCache) ProbeWDL(adapter Adapter, pos *position.Position) (ProbeState, WDLScore) {
	hash := pos.Hash()
	idx := hash % uint64(len(c.entries))

	c.mu.RLock()
	e := c.entries[idx]
	c.mu.RUnlock()
	if e.valid && e.hash == hash {
		return e.state, e.score
	}

	state, score := adapter.ProbeWDL(pos)
	c.mu.Lock()
	c.entries[idx] = cacheEntry{hash: hash, valid: true, state: state, score: score}
	c.mu.Unlock()
	return state, score
}

// Cardinality returns the total piece count on the board (both sides,
// including kings), the standard tablebase "how many men" measure used
// to gate probes against MaxCardinality/SyzygyProbeLimit.
func Cardinality(pos *position.Position) int { return cardinality(pos) }

func cardinality(pos *position.Position) int {
	b := pos.Board()
	return bits.OnesCount64(b.White.Pawns|b.White.Knights|b.White.Bishops|b.White.Rooks|b.White.Queens|b.White.Kings) +
		bits.OnesCount64(b.Black.Pawns|b.Black.Knights|b.Black.Bishops|b.Black.Rooks|b.Black.Queens|b.Black.Kings)
}

func hasCastlingRights(pos *position.Position) bool {
	fields := strings.Fields(pos.ToFEN())
	if len(fields) < 3 {
		return false
	}
	return fields[2] != "-"
}

// RankRootMoves implements spec.md §4.4 rank_root_moves: under configured
// SyzygyProbeLimit/MaxCardinality and no-castling, call DTZ probe to rank;
// on DTZ failure call WDL probe; on both failures zero all tbRank. Returns
// whether the root position is covered by the tablebase (RootInTB).
func RankRootMoves(adapter Adapter, pos *position.Position, rootMoves []*search.RootMove, probeLimit int) bool {
	if hasCastlingRights(pos) {
		return false
	}
	if card := cardinality(pos); card > probeLimit || card > adapter.MaxCardinality() {
		return false
	}

	moves := make([]position.Move, len(rootMoves))
	for i, rm := range rootMoves {
		moves[i] = rm.Move
	}

	if state, dtz := adapter.ProbeDTZ(pos, moves); state == ProbeOK && len(dtz) > 0 {
		byMove := make(map[position.Move]int, len(dtz))
		for _, d := range dtz {
			byMove[d.Move] = d.Rank
		}
		for _, rm := range rootMoves {
			rm.TBRank = byMove[rm.Move]
		}
		return true
	}

	if state, wdl := adapter.ProbeWDL(pos); state == ProbeOK {
		for _, rm := range rootMoves {
			rm.TBRank = wdlRootRank(wdl)
		}
		return true
	}

	for _, rm := range rootMoves {
		rm.TBRank = 0
	}
	return false
}

func wdlRootRank(w WDLScore) int {
	switch w {
	case Win:
		return 1000
	case CursedWin:
		return 900
	case Draw:
		return 0
	case BlessedLoss:
		return -900
	default:
		return -1000
	}
}

// basicMateMaterial classifies own non-pawn material against the five
// endgame classes the engine can synthesize directly from DTZ data
// (spec.md §4.4, §1: KQK, KRK, KBBK, KBNK, KNNNK).
func basicMateMaterial(own dragontoothmg.Bitboards) bool {
	if own.Pawns != 0 {
		return false
	}
	q := bits.OnesCount64(own.Queens)
	r := bits.OnesCount64(own.Rooks)
	b := bits.OnesCount64(own.Bishops)
	n := bits.OnesCount64(own.Knights)
	switch {
	case q == 1 && r == 0 && b == 0 && n == 0:
		return true // KQK
	case r == 1 && q == 0 && b == 0 && n == 0:
		return true // KRK
	case b == 2 && q == 0 && r == 0 && n == 0:
		return true // KBBK
	case b == 1 && n == 1 && q == 0 && r == 0:
		return true // KBNK
	case n == 3 && q == 0 && r == 0 && b == 0:
		return true // KNNNK
	}
	return false
}

// IsBasicMate reports whether pos qualifies for the tablebase-synthesized
// mate path: side to move has no pawns, opponent has bare king, own
// material matches one of the five basic-mate classes, and the top
// root move's tbRank clears the threshold (spec.md §4.4).
func IsBasicMate(pos *position.Position, topTBRank int) bool {
	b := pos.Board()
	own, opp := b.White, b.Black
	if !b.Wtomove {
		own, opp = b.Black, b.White
	}
	oppBareKing := opp.Pawns|opp.Knights|opp.Bishops|opp.Rooks|opp.Queens == 0
	return oppBareKing && basicMateMaterial(own) && topTBRank > 900
}

// SyzygySearch recursively plays the top DTZ-ranked move until mate,
// building a forced win line from tablebase data (spec.md §4.4). It
// returns the mate value and the winning PV, or ok=false if the
// adapter cannot resolve a move at some step (e.g. Syzygy50MoveRule
// truncation, or a probe failure deeper in the line).
func SyzygySearch(adapter Adapter, pos *position.Position, maxPlies int) (value search.Value, pv []position.Move, ok bool) {
	played := 0
	defer func() {
		for i := 0; i < played; i++ {
			pos.UndoMove()
		}
	}()

	for ply := 0; ply <= maxPlies; ply++ {
		legal := pos.LegalMoves()
		if len(legal) == 0 {
			if pos.InCheck() {
				return search.MateIn(ply), pv, true
			}
			return search.VALUE_ZERO, nil, false
		}
		if ply == maxPlies {
			break
		}
		state, ranks := adapter.ProbeDTZ(pos, legal)
		if state != ProbeOK || len(ranks) == 0 {
			return 0, nil, false
		}
		best := ranks[0]
		for _, r := range ranks[1:] {
			if r.Rank > best.Rank {
				best = r
			}
		}
		pv = append(pv, best.Move)
		pos.DoMove(best.Move)
		played++
	}
	return 0, nil, false
}
