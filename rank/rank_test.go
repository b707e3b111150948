package rank

import (
	"testing"

	"mateforge/position"
)

func TestRankFavorsCheckingMoveOverQuietMove(t *testing.T) {
	pos, err := position.FromFEN("8/8/8/8/2Np4/3N4/k1K5/8 w - -", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}

	var checking, quiet Move
	var haveChecking, haveQuiet bool
	for _, m := range pos.LegalMoves() {
		if pos.GivesCheck(m) {
			if !haveChecking {
				checking, haveChecking = m, true
			}
		} else if !haveQuiet {
			quiet, haveQuiet = m, true
		}
	}
	if !haveChecking || !haveQuiet {
		t.Skip("position does not offer both a checking and a quiet move")
	}

	if Rank(pos, checking, 0) <= Rank(pos, quiet, 0) {
		t.Fatalf("expected checking move %s to outrank quiet move %s", checking.String(), quiet.String())
	}
}

func TestRootRankDeterministic(t *testing.T) {
	pos := position.NewGame()
	for _, m := range pos.LegalMoves() {
		r1 := RootRank(pos, m)
		r2 := RootRank(pos, m)
		if r1 != r2 {
			t.Fatalf("RootRank(%s) not deterministic: %d vs %d", m.String(), r1, r2)
		}
	}
}
