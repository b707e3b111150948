// Package search holds the data model shared by the alphabeta and pns
// engines: the Value scale, search Limits, RootMove bookkeeping and PV
// lines. Keeping these in one leaf package lets alphabeta and pns both
// depend on them without importing each other.
package search

import (
	"fmt"
	"strings"

	"mateforge/position"
)

// Value is a search score on the mate-centric scale used throughout the
// engine: a handful of plies from VALUE_MATE encodes "mate in k", anything
// below Checkmate in absolute value is a non-mate score (this
// core only ever reports mate scores or 0, per spec, but the scale mirrors
// the teacher's engine/search.go MaxScore/Checkmate constants in full so
// intermediate arithmetic behaves identically).
type Value int32

const (
	// VALUE_ZERO is a neutral/non-proving result.
	VALUE_ZERO Value = 0
	// VALUE_INFINITE bounds the root aspiration window from above.
	VALUE_INFINITE Value = 32500
	// VALUE_MATE is the score of delivering mate on the move (ply 0).
	VALUE_MATE Value = 32000
	// VALUE_MATE_IN_MAX_PLY is the worst still-a-mate score, used as the
	// alpha-beta searcher's initial bestValue sentinel.
	VALUE_MATE_IN_MAX_PLY Value = VALUE_MATE - MaxPly
	// Checkmate is the threshold above which a Value is "mate-ish";
	// named to match the teacher's engine/search.go Checkmate constant.
	Checkmate Value = 20000

	// MaxPly bounds recursion/stack depth (spec.md §3, MAX_PLY).
	MaxPly = 246
)

// MatedIn returns the score for being mated at ply (the side to move has
// just been checkmated after ply half-moves from the search root).
func MatedIn(ply int) Value { return -VALUE_MATE + Value(ply) }

// MateIn returns the score for delivering mate at ply.
func MateIn(ply int) Value { return VALUE_MATE - Value(ply) }

// IsMateScore reports whether v encodes a forced mate in either direction.
func IsMateScore(v Value) bool { return v >= Checkmate || v <= -Checkmate }

// ScoreString renders v as a UCI "mate N" or "cp N" token, grounded on the
// teacher's engine/searchutil.go getMateOrCPScore (ported from the
// "Blunder" chess engine per the teacher's own comment there).
func ScoreString(v Value) string {
	mateValue := int(VALUE_MATE)
	mateThreshold := int(Checkmate)
	score := int(v)

	switch {
	case score >= mateThreshold:
		pliesToMate := mateValue - score
		if pliesToMate < 0 {
			pliesToMate = 0
		}
		return fmt.Sprintf("mate %d", (pliesToMate+1)/2)
	case score <= -mateThreshold:
		pliesToMate := mateValue + score
		if pliesToMate < 0 {
			pliesToMate = 0
		}
		return fmt.Sprintf("mate %d", -((pliesToMate + 1) / 2))
	default:
		return fmt.Sprintf("cp %d", score)
	}
}

// PVLine is a variable-length sequence of moves: the best line found
// beneath a search stack frame.
type PVLine struct {
	Moves []position.Move
}

// String renders the PV as space-separated coordinate moves.
func (pv PVLine) String() string {
	var b strings.Builder
	for i, m := range pv.Moves {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.String())
	}
	return b.String()
}

// Clear empties the line in place, keeping the backing array.
func (pv *PVLine) Clear() { pv.Moves = pv.Moves[:0] }

// Set replaces the line with [m] followed by child's moves, mirroring the
// teacher's search.go PV-update-on-alpha-raise pattern.
func (pv *PVLine) Set(m position.Move, child PVLine) {
	pv.Moves = append(pv.Moves[:0], m)
	pv.Moves = append(pv.Moves, child.Moves...)
}

// RootMove is one root candidate and the best line found for it so far.
type RootMove struct {
	Move          position.Move
	PV            []position.Move
	Score         Value
	PreviousScore Value
	SelDepth      int
	TBRank        int
	TBScore       Value
	BestMoveCount int
}

// Less orders RootMoves for the descending sort required by spec.md §3:
// primarily by descending Score, ties broken by descending TBRank.
func (a RootMove) Less(b RootMove) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.TBRank > b.TBRank
}

// MoveSet is a lightweight membership filter over moves, used for the UCI
// `searchmoves` restriction and for the per-thread round-robin shares.
type MoveSet map[position.Move]struct{}

// NewMoveSet builds a MoveSet from a slice of moves.
func NewMoveSet(moves []position.Move) MoveSet {
	if len(moves) == 0 {
		return nil
	}
	s := make(MoveSet, len(moves))
	for _, m := range moves {
		s[m] = struct{}{}
	}
	return s
}

// Contains reports set membership; a nil/empty set matches everything,
// mirroring an absent `searchmoves` filter.
func (s MoveSet) Contains(m position.Move) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[m]
	return ok
}

// Limits bundles every stop condition a `go` command can carry.
// Invariant: Mate > 0 for every real invocation; callers must coerce
// infinite-or-zero-mate requests to Mate = 1 before constructing Limits
// (spec.md §3), the engine declines genuinely open-ended play.
type Limits struct {
	SearchMoves    MoveSet
	MoveTime       int64 // milliseconds, 0 = unset
	StartTime      int64 // unix millis
	LastOutputTime int64
	Nodes          uint64
	Depth          int
	Mate           int
	Perft          int
	Infinite       bool
}

// TargetDepth returns 2*mate-1, the half-move horizon the iterative
// deepening loop climbs to (spec.md §4.2).
func (l Limits) TargetDepth() int { return 2*l.Mate - 1 }
