package coordinator

import (
	"sync/atomic"
	"testing"

	"mateforge/options"
	"mateforge/position"
	"mateforge/search"
	"mateforge/tablebase"
)

func TestStartThinkingFindsMateInFour(t *testing.T) {
	opts := options.Default()
	opts.Threads = 2
	pool := NewPool(&opts, tablebase.NoneAdapter{}, tablebase.NewProbeCache(1))

	pos, err := position.FromFEN("8/8/8/8/2Np4/3N4/k1K5/8 w - -", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}

	var stop atomic.Bool
	report := pool.StartThinking(pos, search.Limits{Mate: 4}, &stop)

	if report.Best == nil {
		t.Fatalf("expected a best root move")
	}
	if report.Best.Move.String() != "d3b4" {
		t.Fatalf("expected bestmove d3b4, got %s", report.Best.Move.String())
	}
	if report.Failed {
		t.Fatalf("expected a proven mate, got Failed=true")
	}
}

func TestStartThinkingEmptyRootSetFails(t *testing.T) {
	opts := options.Default()
	pool := NewPool(&opts, tablebase.NoneAdapter{}, tablebase.NewProbeCache(1))

	// Start position with a searchmoves filter that matches no legal
	// move, so the root move set is empty.
	pos := position.NewGame()
	var stop atomic.Bool
	limits := search.Limits{Mate: 1, SearchMoves: search.NewMoveSet([]position.Move{position.NoMove})}
	report := pool.StartThinking(pos, limits, &stop)

	if !report.Failed {
		t.Fatalf("expected Failed when searchmoves excludes every legal move")
	}
	if report.Best != nil {
		t.Fatalf("expected no best move when the root move list is empty")
	}
}
