package pns

import (
	"sync/atomic"
	"testing"

	"mateforge/position"
	"mateforge/search"
	"mateforge/tablebase"
)

func TestArenaAllocSequentialBeforeRecycling(t *testing.T) {
	a := NewArena(1)
	first, ok := a.alloc()
	if !ok {
		t.Fatalf("expected alloc to succeed on a fresh arena")
	}
	second, ok := a.alloc()
	if !ok {
		t.Fatalf("expected a second alloc to succeed")
	}
	if second <= first {
		t.Fatalf("expected sequential allocation before any FIFO recycling, got %d then %d", first, second)
	}
}

func TestRunProvesBackRankMateInOne(t *testing.T) {
	pos, err := position.FromFEN("6k1/5ppp/8/8/8/8/5PPP/4R1K1 w - - 0 1", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}

	legal := pos.LegalMoves()
	rootMoves := make([]*search.RootMove, len(legal))
	for i, m := range legal {
		rootMoves[i] = &search.RootMove{Move: m}
	}

	var stop atomic.Bool
	s := NewSearcher(Config{HashMB: 1, KingMoves: 8, Adapter: tablebase.NoneAdapter{}}, &stop, 1, pos.Ply(), nil)
	s.Run(pos, rootMoves, search.Limits{Mate: 1})

	var proven *search.RootMove
	for _, rm := range rootMoves {
		if search.IsMateScore(rm.Score) && rm.Score > 0 {
			proven = rm
			break
		}
	}
	if proven == nil {
		t.Fatalf("expected PNS to prove a mate in one, root moves: %+v", rootMoves)
	}
	if proven.Move.String() != "e1e8" {
		t.Fatalf("expected the proving move to be e1e8, got %s", proven.Move.String())
	}
}
