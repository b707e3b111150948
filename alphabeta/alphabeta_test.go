package alphabeta

import (
	"sync/atomic"
	"testing"

	"mateforge/position"
	"mateforge/search"
	"mateforge/tablebase"
)

func rootMovesFor(t *testing.T, pos *position.Position) []*search.RootMove {
	t.Helper()
	legal := pos.LegalMoves()
	out := make([]*search.RootMove, len(legal))
	for i, m := range legal {
		out[i] = &search.RootMove{Move: m}
	}
	return out
}

func TestIterativeDeepeningFindsMateInFour(t *testing.T) {
	pos, err := position.FromFEN("8/8/8/8/2Np4/3N4/k1K5/8 w - -", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}

	rootMoves := rootMovesFor(t, pos)
	var stop atomic.Bool
	s := NewSearcher(Config{KingMoves: 8, AllMoves: 250, Adapter: tablebase.NoneAdapter{}}, &stop, 4, pos.Ply())
	s.IterativeDeepening(pos, rootMoves)

	best := rootMoves[0]
	for _, rm := range rootMoves[1:] {
		if rm.Less(*best) {
			best = rm
		}
	}

	if !search.IsMateScore(best.Score) || best.Score <= 0 {
		t.Fatalf("expected a proven mate-for-white score, got %v", best.Score)
	}
	if best.Move.String() != "d3b4" {
		t.Fatalf("expected bestmove d3b4, got %s", best.Move.String())
	}
	wantPVLen := 7
	if len(best.PV) != wantPVLen {
		t.Fatalf("expected a %d-ply PV, got %d: %v", wantPVLen, len(best.PV), best.PV)
	}
}

func TestIterativeDeepeningReportsNoMateInOneFromStartpos(t *testing.T) {
	pos := position.NewGame()
	rootMoves := rootMovesFor(t, pos)
	var stop atomic.Bool
	s := NewSearcher(Config{KingMoves: 8, AllMoves: 250, Adapter: tablebase.NoneAdapter{}}, &stop, 1, pos.Ply())
	s.IterativeDeepening(pos, rootMoves)

	for _, rm := range rootMoves {
		if search.IsMateScore(rm.Score) && rm.Score > 0 {
			t.Fatalf("did not expect a proven mate in 1 from startpos, move %s scored %v", rm.Move.String(), rm.Score)
		}
	}
}
