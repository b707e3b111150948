package tablebase

import (
	"testing"

	"mateforge/position"
)

type fakeAdapter struct {
	state     ProbeState
	wdl       WDLScore
	cardLimit int
	probes    int
}

func (a *fakeAdapter) ProbeWDL(*position.Position) (ProbeState, WDLScore) {
	a.probes++
	return a.state, a.wdl
}
func (a *fakeAdapter) ProbeDTZ(*position.Position, []position.Move) (ProbeState, []DTZRank) {
	return ProbeFail, nil
}
func (a *fakeAdapter) MaxCardinality() int { return a.cardLimit }

func TestNoneAdapterAlwaysFails(t *testing.T) {
	var a NoneAdapter
	state, wdl := a.ProbeWDL(nil)
	if state != ProbeFail || wdl != Draw {
		t.Fatalf("expected ProbeFail/Draw, got %v/%v", state, wdl)
	}
	if a.MaxCardinality() != 0 {
		t.Fatalf("expected MaxCardinality 0")
	}
}

func TestProbeCacheMemoizesByHash(t *testing.T) {
	pos, err := position.FromFEN("4k3/8/8/8/8/8/8/2B1K1N1 w - - 0 1", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}
	adapter := &fakeAdapter{state: ProbeOK, wdl: Win, cardLimit: 6}
	cache := NewProbeCache(4)

	state1, wdl1 := cache.ProbeWDL(adapter, pos)
	state2, wdl2 := cache.ProbeWDL(adapter, pos)

	if state1 != ProbeOK || wdl1 != Win || state2 != ProbeOK || wdl2 != Win {
		t.Fatalf("expected ProbeOK/Win both times, got (%v,%v) then (%v,%v)", state1, wdl1, state2, wdl2)
	}
	if adapter.probes != 1 {
		t.Fatalf("expected the second probe to hit the cache, underlying adapter was probed %d times", adapter.probes)
	}
}

func TestIsBasicMateRequiresNoPawnsAndHighTBRank(t *testing.T) {
	pos, err := position.FromFEN("4k3/8/8/8/8/8/8/2B1K1N1 w - - 0 1", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}
	if !IsBasicMate(pos, 950) {
		t.Fatalf("expected KBNK with tbRank 950 to be a basic mate")
	}
	if IsBasicMate(pos, 100) {
		t.Fatalf("expected a low tbRank to fail the basic-mate gate")
	}
}

func TestCardinalityCountsAllPieces(t *testing.T) {
	pos, err := position.FromFEN("4k3/8/8/8/8/8/8/2B1K1N1 w - - 0 1", false)
	if err != nil {
		t.Fatalf("parse FEN: %v", err)
	}
	if got := Cardinality(pos); got != 4 {
		t.Fatalf("expected cardinality 4 (k,b,k,n), got %d", got)
	}
}
