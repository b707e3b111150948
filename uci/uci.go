// Package uci is the UCI protocol front end (spec.md §6, §7): a line
// reader over stdin dispatching to the option registry, position setup
// and the search coordinator, emitting `info`/`bestmove` lines to stdout.
//
// The line-by-line bufio.Scanner loop, the per-command field scan, and
// the legal-move-string-match-first move resolution are grounded on the
// teacher's root uci.go; UCI wire output here stays on plain fmt/bufio
// exactly as the teacher does it — internal diagnostics go through
// mateforge/internal/elog instead, never onto this stream.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"mateforge/coordinator"
	"mateforge/internal/elog"
	"mateforge/options"
	"mateforge/position"
	"mateforge/search"
	"mateforge/tablebase"
)

const engineName = "mateforge 0.1"
const engineAuthor = "mateforge contributors"

// Engine holds the mutable state one UCI session threads through the
// command loop: the current Position, the option registry, and the
// search coordinator.
type Engine struct {
	pos        *position.Position
	opts       options.Options
	registry   *options.Registry
	adapter    tablebase.Adapter
	probeCache *tablebase.ProbeCache
	pool       *coordinator.Pool
	stop       atomic.Bool
	flipped    bool

	out *bufio.Writer
}

// NewEngine builds an Engine writing UCI output to out.
func NewEngine(out io.Writer) *Engine {
	e := &Engine{
		pos:  position.NewGame(),
		opts: options.Default(),
		out:  bufio.NewWriter(out),
	}
	e.registry = options.NewRegistry(&e.opts)
	e.adapter = tablebase.NoneAdapter{}
	e.probeCache = tablebase.NewProbeCache(4)
	e.pool = coordinator.NewPool(&e.opts, e.adapter, e.probeCache)
	return e
}

func (e *Engine) println(args ...interface{}) {
	fmt.Fprintln(e.out, args...)
	e.out.Flush()
}

func (e *Engine) printf(format string, args ...interface{}) {
	fmt.Fprintf(e.out, format, args...)
	e.out.Flush()
}

// Run reads UCI commands from in, one per line, until `quit` or EOF.
func (e *Engine) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "uci":
			e.handleUCI()
		case "isready":
			e.println("readyok")
		case "setoption":
			e.handleSetOption(line)
		case "position":
			e.handlePosition(line)
		case "go":
			e.handleGo(line)
		case "ucinewgame":
			e.pos = position.NewGame()
			e.stop.Store(false)
		case "stop":
			e.stop.Store(true)
		case "quit":
			return
		case "d":
			e.handleDebugBoard()
		case "flip":
			e.flipped = !e.flipped
			e.println("info string board display flipped:", e.flipped)
		case "compiler":
			e.printf("info string built with %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		case "bench":
			e.handleBench()
		case "eval":
			e.println("info string eval is not supported; this build only proves forced mates")
		default:
			e.printf("info string Unknown command: %s\n", line)
		}
	}
}

func (e *Engine) handleUCI() {
	e.println("id name", engineName)
	e.println("id author", engineAuthor)
	for _, line := range e.registry.Announce() {
		e.println(line)
	}
	e.println("uciok")
}

func (e *Engine) handleSetOption(line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 || strings.ToLower(fields[1]) != "name" {
		e.println("info string Malformed setoption command")
		return
	}
	rest := fields[2:]
	var nameParts, valueParts []string
	inValue := false
	for _, f := range rest {
		if !inValue && strings.EqualFold(f, "value") {
			inValue = true
			continue
		}
		if inValue {
			valueParts = append(valueParts, f)
		} else {
			nameParts = append(nameParts, f)
		}
	}
	name := strings.Join(nameParts, " ")
	value := strings.Join(valueParts, " ")

	if err := e.registry.Set(name, value); err != nil {
		e.printf("info string No such option: %s\n", name)
		return
	}
	if strings.EqualFold(name, "SyzygyPath") {
		// Loading the tablebase files themselves is the external
		// collaborator's job (spec.md §1); this only records the change.
		elog.Info().Str("syzygyPath", value).Msg("syzygy path changed")
	}
}

func (e *Engine) handlePosition(line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		e.println("info string Malformed position command")
		return
	}
	idx := 1
	var pos *position.Position

	switch strings.ToLower(fields[idx]) {
	case "startpos":
		pos = position.NewGame()
		idx++
	case "fen":
		idx++
		start := idx
		for idx < len(fields) && !strings.EqualFold(fields[idx], "moves") {
			idx++
		}
		fen := strings.Join(fields[start:idx], " ")
		var err error
		pos, err = position.FromFEN(fen, e.opts.UCIChess960)
		if err != nil {
			e.printf("info string Invalid fen position: %s\n", fen)
			return
		}
	default:
		e.println("info string Invalid position subcommand")
		return
	}

	if idx < len(fields) && strings.EqualFold(fields[idx], "moves") {
		idx++
		for ; idx < len(fields); idx++ {
			m, ok := resolveMove(pos, fields[idx])
			if !ok {
				e.printf("info string Move %s not found for position %s\n", fields[idx], pos.ToFEN())
				continue
			}
			pos.DoMove(m)
		}
	}
	e.pos = pos
}

// resolveMove matches against the current legal move list first (the
// teacher's own convention in uci.go), since a plain coordinate decode
// cannot disambiguate promotion/castling notation on its own.
func resolveMove(pos *position.Position, moveStr string) (position.Move, bool) {
	want := strings.ToLower(moveStr)
	for _, m := range pos.LegalMoves() {
		if strings.ToLower(m.String()) == want {
			return m, true
		}
	}
	return position.NoMove, false
}

func (e *Engine) handleGo(line string) {
	fields := strings.Fields(line)
	var limits search.Limits
	limits.StartTime = time.Now().UnixMilli()

	var searchMoves []position.Move
	sawDepthOrMate := false

	for i := 1; i < len(fields); i++ {
		switch strings.ToLower(fields[i]) {
		case "infinite":
			limits.Infinite = true
		case "searchmoves":
			for i+1 < len(fields) {
				m, ok := resolveMove(e.pos, fields[i+1])
				if !ok {
					break
				}
				searchMoves = append(searchMoves, m)
				i++
			}
		case "depth":
			if i+1 < len(fields) {
				i++
				if n, err := strconv.Atoi(fields[i]); err == nil {
					limits.Depth = n
					sawDepthOrMate = true
				}
			}
		case "mate":
			if i+1 < len(fields) {
				i++
				if n, err := strconv.Atoi(fields[i]); err == nil {
					limits.Mate = n
					sawDepthOrMate = true
				}
			}
		case "nodes":
			if i+1 < len(fields) {
				i++
				if n, err := strconv.ParseUint(fields[i], 10, 64); err == nil {
					limits.Nodes = n
				}
			}
		case "movetime":
			if i+1 < len(fields) {
				i++
				if n, err := strconv.ParseInt(fields[i], 10, 64); err == nil {
					limits.MoveTime = n
				}
			}
		case "perft":
			if i+1 < len(fields) {
				i++
				if n, err := strconv.Atoi(fields[i]); err == nil {
					limits.Perft = n
				}
			}
		default:
			e.printf("info string Unknown go subcommand %s\n", fields[i])
		}
	}

	if len(searchMoves) > 0 {
		limits.SearchMoves = search.NewMoveSet(searchMoves)
	}

	if limits.Perft > 0 {
		e.handlePerft(limits.Perft)
		return
	}

	if !sawDepthOrMate {
		e.println("info string go with no depth or mate limit is not supported! Please set a depth or mate limit.")
	}
	// A `depth N` limit without `mate` searches for a mate in N.
	if limits.Mate <= 0 && limits.Depth > 0 {
		limits.Mate = limits.Depth
	}
	// Limits invariant (spec.md §3): mate > 0 for every real invocation;
	// infinite or zero-mate requests coerce to mate=1.
	if limits.Mate <= 0 {
		limits.Mate = 1
	}

	if !e.pos.HasLegalMoves() {
		if e.pos.InCheck() {
			e.println("info depth 0 score mate 0")
		} else {
			e.println("info depth 0 score cp 0")
		}
		e.println("bestmove 0000")
		return
	}

	if e.opts.ProofNumberSearch {
		e.println("info string Starting Proof-Number Search ...")
	} else {
		e.println("info string Starting Alpha-Beta Search ...")
	}

	e.stop.Store(false)
	report := e.pool.StartThinking(e.pos, limits, &e.stop)
	e.emitReport(report)
}

func (e *Engine) emitReport(report coordinator.Report) {
	if report.Best == nil {
		e.println("info string Failure!")
		e.println("bestmove 0000")
		return
	}

	best := report.Best
	if search.IsMateScore(best.Score) && best.Score > 0 && len(best.PV) > 0 {
		e.printf("info string Success! Mate in %d found!\n", (len(best.PV)+1)/2)
	} else {
		e.println("info string Failure!")
	}

	e.printf("info depth %d seldepth %d nodes %d score %s pv %s\n",
		len(best.PV), report.SelDepth, report.Nodes, search.ScoreString(best.Score), pvString(best.PV))

	bestMove := best.Move.String()
	if len(best.PV) > 0 {
		bestMove = best.PV[0].String()
	}
	e.printf("bestmove %s\n", bestMove)
}

func pvString(pv []position.Move) string {
	parts := make([]string, len(pv))
	for i, m := range pv {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

func (e *Engine) handlePerft(depth int) {
	start := time.Now()
	nodes := e.pos.Perft(depth)
	elapsed := time.Since(start)
	nps := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		nps = float64(nodes) / secs
	}
	e.printf("info string perft %d nodes %d time %s nps %.0f\n", depth, nodes, elapsed, nps)
}

func (e *Engine) handleDebugBoard() {
	pos := e.pos
	e.printf("info string fen %s\n", pos.ToFEN())
	e.printf("info string key %x\n", pos.Hash())
	side := "white"
	if !pos.WhiteToMove() {
		side = "black"
	}
	if e.flipped {
		if side == "white" {
			side = "black"
		} else {
			side = "white"
		}
	}
	e.printf("info string side to move (display) %s\n", side)
}

// benchPositions are small fixed mate puzzles exercised by `bench` to
// report a steady nodes/nps figure, the way the teacher's cmd/perft
// -repeat loop reports steady perft timings.
var benchPositions = []struct {
	fen  string
	mate int
}{
	{"8/8/8/8/2Np4/3N4/k1K5/8 w - -", 4},
	{"6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1", 2},
}

func (e *Engine) handleBench() {
	var totalNodes uint64
	start := time.Now()
	for _, bp := range benchPositions {
		pos, err := position.FromFEN(bp.fen, false)
		if err != nil {
			continue
		}
		var stop atomic.Bool
		limits := search.Limits{Mate: bp.mate, StartTime: time.Now().UnixMilli()}
		report := e.pool.StartThinking(pos, limits, &stop)
		totalNodes += report.Nodes
	}
	elapsed := time.Since(start)
	nps := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		nps = float64(totalNodes) / secs
	}
	e.printf("info string bench %d positions nodes %d time %s nps %.0f\n", len(benchPositions), totalNodes, elapsed, nps)
}
