// Command perft is the move-generator benchmark/correctness tool,
// grounded on the teacher's own cmd/perft/main.go: same flag set, same
// divide-mode and repeat-timing-loop shape, now calling
// mateforge/position instead of the teacher's board package.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"sort"
	"time"

	"mateforge/position"
)

func main() {
	fen := flag.String("fen", "", "FEN of the position to perft (default: standard start position)")
	depth := flag.Int("depth", 5, "perft depth in half-moves")
	divide := flag.Bool("divide", false, "print the leaf count below each root move instead of the total")
	repeat := flag.Int("repeat", 1, "repeat the timed perft this many times")
	label := flag.String("label", "", "label printed alongside the timing line")
	cpuprofile := flag.String("cpuprofile", "", "write a CPU profile to this file")
	memprofile := flag.String("memprofile", "", "write a heap profile to this file")
	flag.Parse()

	var pos *position.Position
	var err error
	if *fen == "" {
		pos = position.NewGame()
	} else {
		pos, err = position.FromFEN(*fen, false)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid fen:", err)
			os.Exit(1)
		}
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *divide {
		div := pos.PerftDivide(*depth)
		moves := make([]string, 0, len(div))
		for m := range div {
			moves = append(moves, m.String())
		}
		sort.Strings(moves)
		var total uint64
		byStr := make(map[string]uint64, len(div))
		for m, n := range div {
			byStr[m.String()] = n
		}
		for _, ms := range moves {
			fmt.Printf("%s: %d\n", ms, byStr[ms])
			total += byStr[ms]
		}
		fmt.Printf("Total: %d\n", total)
		return
	}

	var nodes uint64
	start := time.Now()
	for i := 0; i < *repeat; i++ {
		nodes = pos.Perft(*depth)
	}
	elapsed := time.Since(start)
	nps := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		nps = float64(nodes) * float64(*repeat) / secs
	}
	fmt.Printf("%s \t%d \t\t%d \t\t%s \t%.0f\n", *label, *depth, nodes, elapsed, nps)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		pprof.WriteHeapProfile(f)
	}
}
