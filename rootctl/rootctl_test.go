package rootctl

import (
	"testing"

	"mateforge/position"
	"mateforge/search"
)

func TestInitFiltersBySearchMoves(t *testing.T) {
	pos := position.NewGame()
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		t.Fatalf("expected legal moves from startpos")
	}
	only := search.NewMoveSet([]position.Move{legal[0]})

	res := Init(pos, nil, Options{KingMoves: 8, AllMoves: 250}, only, 1)
	if len(res.RootMoves) != 1 {
		t.Fatalf("expected exactly 1 root move after searchmoves filter, got %d", len(res.RootMoves))
	}
	if res.RootMoves[0].Move != legal[0] {
		t.Fatalf("expected the filtered root move to be %s", legal[0].String())
	}
}

func TestInitDistributesRoundRobin(t *testing.T) {
	pos := position.NewGame()
	res := Init(pos, nil, Options{KingMoves: 8, AllMoves: 250}, nil, 4)

	if len(res.Threads) != 4 {
		t.Fatalf("expected 4 thread shares, got %d", len(res.Threads))
	}
	var total int
	for _, share := range res.Threads {
		total += len(share)
	}
	if total != len(res.RootMoves) {
		t.Fatalf("expected the thread shares to partition every root move, got %d of %d", total, len(res.RootMoves))
	}
}

func TestInitEmptyRootMovesReturnsEmptyThreads(t *testing.T) {
	pos := position.NewGame()
	none := search.NewMoveSet([]position.Move{position.NoMove})
	res := Init(pos, nil, Options{KingMoves: 8, AllMoves: 250}, none, 2)
	if len(res.RootMoves) != 0 {
		t.Fatalf("expected no root moves when searchmoves excludes every legal move")
	}
	if len(res.Threads) != 2 {
		t.Fatalf("expected 2 (empty) thread shares, got %d", len(res.Threads))
	}
}
