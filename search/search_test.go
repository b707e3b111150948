package search

import "testing"

func TestScoreStringMateEncoding(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{MateIn(7), "mate 4"},
		{MatedIn(6), "mate -3"},
		{VALUE_ZERO, "cp 0"},
		{Value(150), "cp 150"},
	}
	for _, c := range cases {
		if got := ScoreString(c.v); got != c.want {
			t.Errorf("ScoreString(%d) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestIsMateScore(t *testing.T) {
	if !IsMateScore(MateIn(3)) {
		t.Fatalf("expected MateIn(3) to be a mate score")
	}
	if !IsMateScore(MatedIn(3)) {
		t.Fatalf("expected MatedIn(3) to be a mate score")
	}
	if IsMateScore(Value(500)) {
		t.Fatalf("did not expect a plain cp score to register as mate")
	}
}

func TestRootMoveLessOrdersByScoreThenTBRank(t *testing.T) {
	a := RootMove{Score: 100, TBRank: 1}
	b := RootMove{Score: 200, TBRank: 1}
	if !b.Less(a) {
		t.Fatalf("expected higher score to sort first")
	}

	c := RootMove{Score: 100, TBRank: 5}
	d := RootMove{Score: 100, TBRank: 1}
	if !c.Less(d) {
		t.Fatalf("expected equal score to break ties on higher TBRank")
	}
}

func TestMoveSetContainsNilMatchesEverything(t *testing.T) {
	var s MoveSet
	if !s.Contains(0) {
		t.Fatalf("expected a nil MoveSet to match everything")
	}
}

func TestPVLineSetPrependsMove(t *testing.T) {
	var pv PVLine
	child := PVLine{}
	pv.Set(0, child)
	if len(pv.Moves) != 1 {
		t.Fatalf("expected a 1-move PV, got %d", len(pv.Moves))
	}
}

func TestLimitsTargetDepth(t *testing.T) {
	l := Limits{Mate: 4}
	if got := l.TargetDepth(); got != 7 {
		t.Fatalf("expected targetDepth 7 for mate 4, got %d", got)
	}
}
