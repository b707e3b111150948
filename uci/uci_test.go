package uci

import (
	"bytes"
	"strings"
	"testing"
)

func TestUCIHandshake(t *testing.T) {
	var out bytes.Buffer
	e := NewEngine(&out)
	e.Run(strings.NewReader("uci\n"))

	got := out.String()
	if !strings.Contains(got, "id name "+engineName) {
		t.Fatalf("expected an id name line, got:\n%s", got)
	}
	if !strings.Contains(got, "uciok") {
		t.Fatalf("expected a trailing uciok line, got:\n%s", got)
	}
	if !strings.Contains(got, "option name Threads") {
		t.Fatalf("expected the option list to include Threads, got:\n%s", got)
	}
}

func TestIsReady(t *testing.T) {
	var out bytes.Buffer
	e := NewEngine(&out)
	e.Run(strings.NewReader("isready\n"))
	if strings.TrimSpace(out.String()) != "readyok" {
		t.Fatalf("expected readyok, got %q", out.String())
	}
}

func TestPositionAndGoMateFour(t *testing.T) {
	var out bytes.Buffer
	e := NewEngine(&out)
	e.Run(strings.NewReader("position fen 8/8/8/8/2Np4/3N4/k1K5/8 w - -\ngo mate 4\n"))

	got := out.String()
	if !strings.Contains(got, "bestmove d3b4") {
		t.Fatalf("expected bestmove d3b4, got:\n%s", got)
	}
	if !strings.Contains(got, "Success! Mate in 4 found!") {
		t.Fatalf("expected a success info string, got:\n%s", got)
	}
}

func TestGoWithoutDepthOrMateWarnsAndCoerces(t *testing.T) {
	var out bytes.Buffer
	e := NewEngine(&out)
	e.Run(strings.NewReader("go\n"))

	got := out.String()
	if !strings.Contains(got, "not supported") {
		t.Fatalf("expected a warning about missing depth/mate, got:\n%s", got)
	}
	if !strings.Contains(got, "bestmove") {
		t.Fatalf("expected a bestmove line even on a failed search, got:\n%s", got)
	}
}

func TestSetOptionUnknownName(t *testing.T) {
	var out bytes.Buffer
	e := NewEngine(&out)
	e.Run(strings.NewReader("setoption name NoSuchOption value 1\n"))
	if !strings.Contains(out.String(), "No such option") {
		t.Fatalf("expected a 'No such option' diagnostic, got:\n%s", out.String())
	}
}
