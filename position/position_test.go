package position

import (
	"math/bits"
	"testing"
)

func TestPerftStartposKnownNodeCounts(t *testing.T) {
	cases := []struct {
		depth int
		nodes uint64
	}{
		{0, 1},
		{1, 20},
		{2, 400},
		{3, 8902},
	}
	for _, c := range cases {
		pos := NewGame()
		if got := pos.Perft(c.depth); got != c.nodes {
			t.Errorf("Perft(%d) = %d, want %d", c.depth, got, c.nodes)
		}
	}
}

func TestPerftDivideSumsToPerft(t *testing.T) {
	pos := NewGame()
	div := pos.PerftDivide(3)
	var total uint64
	for _, n := range div {
		total += n
	}
	want := pos.Perft(3)
	if total != want {
		t.Fatalf("divide sum = %d, want %d", total, want)
	}
	if len(div) != 20 {
		t.Fatalf("expected 20 root moves from startpos, got %d", len(div))
	}
}

func TestDoMoveUndoMoveRoundTrips(t *testing.T) {
	pos := NewGame()
	before := pos.ToFEN()
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		t.Fatalf("expected legal moves from startpos")
	}
	pos.DoMove(moves[0])
	if pos.ToFEN() == before {
		t.Fatalf("expected FEN to change after DoMove")
	}
	pos.UndoMove()
	if pos.ToFEN() != before {
		t.Fatalf("expected FEN to be restored after UndoMove, got %q want %q", pos.ToFEN(), before)
	}
}

func TestFromFENRejectsEmptyString(t *testing.T) {
	if _, err := FromFEN("   ", false); err == nil {
		t.Fatalf("expected an error for an empty FEN")
	}
}

func TestIsDrawFiftyMoveRule(t *testing.T) {
	// Two lone kings: every legal move is a non-pawn, non-capture move, so
	// rule50 advances by exactly one per halfmove with no resets.
	pos, err := FromFEN("8/8/8/4k3/8/4K3/8/8 w - - 0 1", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}
	rootIndex := pos.Ply()
	for i := 0; i < fiftyMoveLimit; i++ {
		moves := pos.LegalMoves()
		if len(moves) == 0 {
			t.Fatalf("ran out of legal moves before reaching the 50-move limit")
		}
		pos.DoMove(moves[0])
	}
	if !pos.IsDraw(rootIndex) {
		t.Fatalf("expected a fifty-move-rule draw after %d halfmoves without a pawn move or capture", fiftyMoveLimit)
	}
}

func TestCountKingRepliesAfterMatchesManualCount(t *testing.T) {
	pos, err := FromFEN("8/8/8/8/8/2k5/8/K7 w - - 0 1", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}
	before := pos.ToFEN()
	m := pos.LegalMoves()[0]

	pos.DoMove(m)
	kingSq := uint8(bits.TrailingZeros64(pos.board.Black.Kings))
	want := 0
	for _, reply := range pos.board.GenerateLegalMoves() {
		if reply.From() == kingSq {
			want++
		}
	}
	pos.UndoMove()

	if got := pos.CountKingRepliesAfter(m); got != want {
		t.Fatalf("CountKingRepliesAfter(%s) = %d, want %d", m.String(), got, want)
	}
	if pos.ToFEN() != before {
		t.Fatalf("expected position unchanged after CountKingRepliesAfter, got %q want %q", pos.ToFEN(), before)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	pos := NewGame()
	clone := pos.Clone()
	moves := pos.LegalMoves()
	clone.DoMove(moves[0])
	if pos.ToFEN() == clone.ToFEN() {
		t.Fatalf("expected clone mutation not to affect the original")
	}
}
