// Package position wraps the dragontoothmg bitboard board with the
// repetition/draw bookkeeping and Chess960 metadata the mate search needs.
//
// The move generator, Zobrist hashing and bitboard primitives are supplied
// by github.com/Bubblyworld/dragontoothmg; this package only adds what that
// external collaborator does not track: a per-search history of played
// positions (for draw detection) and the side-to-move's Chess960 flag.
package position

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/Bubblyworld/dragontoothmg"
)

// Move is the opaque 16-bit-ish move value produced by the generator.
// Two sentinels satisfy From() == To(): the zero value (used for both
// MOVE_NONE and MOVE_NULL, distinguished only by how a caller applies it).
type Move = dragontoothmg.Move

// NoMove is the MOVE_NONE/MOVE_NULL sentinel.
const NoMove Move = 0

const fiftyMoveLimit = 100

// snapshot is one entry of the per-search history stack.
type snapshot struct {
	hash    uint64
	rule50  int
	unapply func()
	isNull  bool
}

// Position is a chess position plus the history needed to answer draw and
// repetition queries relative to an arbitrary ply (the root of whichever
// search currently owns this Position).
//
// A Position is owned by exactly one goroutine at a time: the coordinator
// hands each worker its own deep copy (see Clone) so that concurrent
// workers never share mutable board state.
type Position struct {
	board    dragontoothmg.Board
	Chess960 bool
	rule50   int
	history  []snapshot
}

// NewGame returns the standard starting position.
func NewGame() *Position {
	p := &Position{board: dragontoothmg.ParseFen(dragontoothmg.Startpos)}
	p.history = make([]snapshot, 0, 64)
	return p
}

// FromFEN parses a FEN string into a Position. Chess960 must be supplied by
// the caller (FEN alone does not disambiguate castling-rights notation).
func FromFEN(fen string, chess960 bool) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, fmt.Errorf("position: empty FEN")
	}
	board := dragontoothmg.ParseFen(fen)
	p := &Position{board: board, Chess960: chess960}
	p.history = make([]snapshot, 0, 64)
	return p, nil
}

// ToFEN renders the current position as FEN.
func (p *Position) ToFEN() string { return p.board.ToFen() }

// Board exposes the underlying generator board for packages (rank,
// alphabeta, pns, tablebase) that need raw bitboard access. Callers must
// not retain the pointer past the lifetime of a do/undo pair.
func (p *Position) Board() *dragontoothmg.Board { return &p.board }

// WhiteToMove reports the side to move.
func (p *Position) WhiteToMove() bool { return p.board.Wtomove }

// Hash returns the Zobrist key of the current position.
func (p *Position) Hash() uint64 { return p.board.Hash() }

// Ply returns how many moves (half-moves) have been played since this
// Position was created or last reset — i.e. the depth of the history stack.
func (p *Position) Ply() int { return len(p.history) }

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool { return p.board.OurKingInCheck() }

// IsCapture reports whether m captures a piece (including en passant).
func (p *Position) IsCapture(m Move) bool { return dragontoothmg.IsCapture(m, &p.board) }

// IsPromotion reports whether m promotes a pawn.
func (p *Position) IsPromotion(m Move) bool { return m.Promote() != dragontoothmg.Nothing }

// LegalMoves generates all legal moves for the side to move.
func (p *Position) LegalMoves() []Move { return p.board.GenerateLegalMoves() }

// HasLegalMoves reports whether the side to move has at least one legal move.
func (p *Position) HasLegalMoves() bool { return len(p.board.GenerateLegalMoves()) > 0 }

// GivesCheck reports whether playing m would leave the opponent in check.
// The generator does not expose this directly, so it is computed with a
// transient do/undo pair exactly as spec.md §4.1 prescribes for the ranker.
func (p *Position) GivesCheck(m Move) bool {
	undo := p.board.Apply(m)
	inCheck := p.board.OurKingInCheck()
	undo()
	return inCheck
}

// CountRepliesAfter plays m, counts the opponent's legal replies, and
// undoes it. Used by the OR-ply mating-move discriminator (spec.md §4.1).
func (p *Position) CountRepliesAfter(m Move) int {
	undo := p.board.Apply(m)
	n := len(p.board.GenerateLegalMoves())
	undo()
	return n
}

// CountKingRepliesAfter plays m, counts the opponent's legal king moves,
// and undoes it. Grounded on original_source/src/search.cpp's root-rank
// "R-Mobility" probe (MoveList<LEGAL, KING>(pos).size() after pos.do_move),
// used to penalize root moves that leave the defending king with many
// escape squares.
func (p *Position) CountKingRepliesAfter(m Move) int {
	undo := p.board.Apply(m)
	kings := p.board.Black.Kings
	if p.board.Wtomove {
		kings = p.board.White.Kings
	}
	kingSq := uint8(bits.TrailingZeros64(kings))
	n := 0
	for _, reply := range p.board.GenerateLegalMoves() {
		if reply.From() == kingSq {
			n++
		}
	}
	undo()
	return n
}

// DoMove plays m and pushes a history entry so UndoMove and the draw/
// repetition tests can unwind it later. It panics if m is not legal for
// the current position, mirroring the teacher's goosemg.Apply contract —
// callers must only ever pass moves drawn from LegalMoves.
func (p *Position) DoMove(m Move) {
	if p.IsCapture(m) || isPawnMove(&p.board, m) {
		p.rule50 = 0
	} else {
		p.rule50++
	}
	unapply := p.board.Apply(m)
	p.history = append(p.history, snapshot{hash: p.board.Hash(), rule50: p.rule50, unapply: unapply})
}

// UndoMove reverses the most recent DoMove/DoNullMove.
func (p *Position) UndoMove() {
	n := len(p.history)
	if n == 0 {
		return
	}
	last := p.history[n-1]
	last.unapply()
	p.history = p.history[:n-1]
	if n >= 2 {
		p.rule50 = p.history[n-2].rule50
	} else {
		p.rule50 = 0
	}
}

// DoNullMove plays a null move (side to move passes); never part of a
// reported PV.
func (p *Position) DoNullMove() {
	unapply := p.board.ApplyNullMove()
	p.rule50++
	p.history = append(p.history, snapshot{hash: p.board.Hash(), rule50: p.rule50, unapply: unapply, isNull: true})
}

// UndoNullMove reverses the most recent DoNullMove.
func (p *Position) UndoNullMove() { p.UndoMove() }

// IsDraw reports a rule-50 or repetition draw. A single earlier occurrence
// of the current position counts only if it lies at or after rootIndex;
// two earlier occurrences are a draw wherever they lie in the rule-50
// window, as in the teacher's engine/state_stack.go isDraw(ply, rootIndex).
func (p *Position) IsDraw(rootIndex int) bool {
	if p.rule50 >= fiftyMoveLimit {
		return true
	}
	if len(p.history) == 0 {
		return false
	}
	curr := p.history[len(p.history)-1]
	matches, firstIdx := p.repetitionInfo(curr.hash, curr.rule50)
	if matches >= 2 {
		return true
	}
	return matches >= 1 && firstIdx >= rootIndex && firstIdx != -1
}

// UpcomingRepetition detects a repetition one ply ahead, the query the
// teacher's search.go uses to clamp alpha; neither searcher here calls it.
func (p *Position) UpcomingRepetition(rootIndex int) bool {
	if len(p.history) <= 1 {
		return false
	}
	curr := p.history[len(p.history)-1]
	start := len(p.history) - 1 - curr.rule50
	if start < 0 {
		start = 0
	}
	for i := len(p.history) - 2; i >= start; i-- {
		if p.history[i].hash == curr.hash && i >= rootIndex {
			return true
		}
	}
	return false
}

func (p *Position) repetitionInfo(hash uint64, rule50 int) (count int, firstIdx int) {
	firstIdx = -1
	if len(p.history) <= 1 {
		return 0, firstIdx
	}
	start := len(p.history) - 1 - rule50
	if start < 0 {
		start = 0
	}
	end := len(p.history) - 2
	for i := start; i <= end; i++ {
		if p.history[i].hash == hash {
			count++
			if firstIdx == -1 {
				firstIdx = i
			}
		}
	}
	return count, firstIdx
}

// Clone returns an independent deep copy, used by the coordinator to hand
// every worker thread its own Position over the same starting material.
func (p *Position) Clone() *Position {
	c := &Position{board: p.board, Chess960: p.Chess960, rule50: p.rule50}
	c.history = make([]snapshot, len(p.history))
	copy(c.history, p.history)
	return c
}

// Perft counts leaf positions reachable in exactly depth plies, the
// standard move-generator correctness/speed benchmark (spec.md §6
// "go perft N").
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := p.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		p.DoMove(m)
		nodes += p.Perft(depth - 1)
		p.UndoMove()
	}
	return nodes
}

// PerftDivide returns the leaf count at depth-1 plies below each legal
// root move, for the `-divide` diagnostic mode.
func (p *Position) PerftDivide(depth int) map[Move]uint64 {
	div := make(map[Move]uint64)
	for _, m := range p.LegalMoves() {
		p.DoMove(m)
		div[m] = p.Perft(depth - 1)
		p.UndoMove()
	}
	return div
}

func isPawnMove(b *dragontoothmg.Board, m Move) bool {
	fromBit := uint64(1) << m.From()
	return (b.White.Pawns|b.Black.Pawns)&fromBit != 0
}
