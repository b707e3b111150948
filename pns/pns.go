// Package pns implements the Proof-Number Search engine (spec.md §4.3):
// an explicit AND/OR proof tree held in a bounded, preallocated arena
// with FIFO recycling of proven/disproven subtrees.
//
// The arena-of-indices design mirrors how the teacher's
// engine/transposition.go preallocates a single backing slice sized from
// a MiB budget rather than growing a tree of pointers; the descent-stack
// parent tracking follows spec.md §9's "Parent links vs. explicit stack"
// design note.
package pns

import (
	"sync/atomic"

	"golang.org/x/exp/slices"

	"mateforge/position"
	"mateforge/rank"
	"mateforge/search"
	"mateforge/tablebase"
)

// Infinite is the saturating infinity proof/disproof numbers use.
const Infinite uint32 = 1 << 31

// NodeRef indexes into an Arena. rootNode (index 0) is reserved: it is
// always the actual tree root, and doubles as the null terminator for
// sibling/child chains (spec.md §3, §9).
type NodeRef uint32

const rootNode NodeRef = 0

// Node is one arena element (spec.md §3): pn, dn, move and two links.
// NewArena budgets nodeSizeBytes (24) per node when sizing the arena.
type Node struct {
	PN          uint32
	DN          uint32
	Move        position.Move
	NextSibling NodeRef
	FirstChild  NodeRef
}

func (n *Node) valueFor(isOR bool) uint32 {
	if isOR {
		return n.PN
	}
	return n.DN
}

// Arena is the contiguous preallocated node pool plus its recycling FIFO.
type Arena struct {
	nodes    []Node
	nextNode NodeRef
	fifo     []NodeRef
}

const nodeRecycleThreshold = 40
const nodeSizeBytes = 24

// NewArena preallocates min(hashMB, 32768) MiB worth of nodes, slot 0
// reserved as the tree root.
func NewArena(hashMB int) *Arena {
	if hashMB > 32768 {
		hashMB = 32768
	}
	if hashMB <= 0 {
		hashMB = 1
	}
	n := (hashMB * 1024 * 1024) / nodeSizeBytes
	if n < 4 {
		n = 4
	}
	a := &Arena{nodes: make([]Node, n), nextNode: 1}
	a.nodes[rootNode] = Node{PN: 1, DN: 1, NextSibling: rootNode, FirstChild: rootNode}
	return a
}

func (a *Arena) Root() *Node             { return &a.nodes[rootNode] }
func (a *Arena) Get(ref NodeRef) *Node   { return &a.nodes[ref] }

// nearlyFull reports arena exhaustion per spec.md §3.
func (a *Arena) nearlyFull() bool {
	return len(a.nodes)-int(a.nextNode) < 100 && len(a.fifo) < 100
}

func (a *Arena) alloc() (NodeRef, bool) {
	if len(a.fifo) >= nodeRecycleThreshold {
		ref := a.fifo[0]
		a.fifo = a.fifo[1:]
		return ref, true
	}
	if int(a.nextNode) >= len(a.nodes) {
		return 0, false
	}
	ref := a.nextNode
	a.nextNode++
	return ref, true
}

// recycleChildren pushes every child of node, and each of THAT child's
// own children, onto the recycling FIFO — called once when node
// transitions into a proven/disproven state, since nothing beneath it
// will ever be visited again. A child that is itself already resolved
// had its own children recycled when it resolved, so they are not
// pushed a second time.
func (a *Arena) recycleChildren(node *Node) {
	child := node.FirstChild
	for child != rootNode {
		c := a.Get(child)
		next := c.NextSibling
		if c.PN != 0 && c.DN != 0 {
			gc := c.FirstChild
			for gc != rootNode {
				a.fifo = append(a.fifo, gc)
				gc = a.Get(gc).NextSibling
			}
		}
		a.fifo = append(a.fifo, child)
		child = next
	}
}

// Stack is the fixed 128-frame descent stack (spec.md §3).
type Stack struct {
	frames [128]stackFrame
}

type stackFrame struct {
	parentNode NodeRef
	pv         search.PVLine
	updatePV   bool
}

func (s *Stack) At(ply int) *stackFrame { return &s.frames[ply] }

// Config bundles the options read at search start (spec.md §5).
type Config struct {
	HashMB     int
	KingMoves  int
	ProbeLimit int
	Adapter    tablebase.Adapter
	ProbeCache *tablebase.ProbeCache
}

// Searcher runs the single-threaded PNS loop.
type Searcher struct {
	cfg       Config
	arena     *Arena
	stop      *atomic.Bool
	mate      int
	targetDepth int
	rootIndex int
	rootMoves search.MoveSet
	nodes     atomic.Uint64
	oom       bool
}

// NewSearcher builds a Searcher proving mate-in-`mate` from rootIndex,
// restricted to rootMoves (this worker's round-robin share, or nil for
// "all root moves").
func NewSearcher(cfg Config, stop *atomic.Bool, mate, rootIndex int, rootMoves search.MoveSet) *Searcher {
	s := &Searcher{cfg: cfg, stop: stop, mate: mate, rootIndex: rootIndex, rootMoves: rootMoves}
	s.targetDepth = 2*mate - 1
	s.arena = NewArena(cfg.HashMB)
	return s
}

func (s *Searcher) Nodes() uint64    { return s.nodes.Load() }
func (s *Searcher) OutOfMemory() bool { return s.oom }

type rankedMove struct {
	move position.Move
	rank int
}

func rankMoves(pos *position.Position, moves []position.Move, ply int) []rankedMove {
	out := make([]rankedMove, len(moves))
	for i, m := range moves {
		out[i] = rankedMove{move: m, rank: rank.Rank(pos, m, ply)}
	}
	slices.SortStableFunc(out, func(a, b rankedMove) bool { return a.rank > b.rank })
	return out
}

// Run executes cycles until the root is proven/disproven, limits.Nodes
// is reached, the arena is nearly exhausted, or stop is set.
// limits.MoveTime is not checked.
func (s *Searcher) Run(pos *position.Position, rootMoves []*search.RootMove, limits search.Limits) {
	var stack Stack
	for {
		root := s.arena.Root()
		if root.PN == 0 || root.DN == 0 {
			return
		}
		if s.stop.Load() {
			return
		}
		if limits.Nodes != 0 && s.nodes.Load() >= limits.Nodes {
			return
		}
		if s.arena.nearlyFull() {
			s.oom = true
			s.stop.Store(true)
			return
		}
		s.cycle(pos, &stack, rootMoves)
	}
}

func (s *Searcher) cycle(pos *position.Position, stack *Stack, rootMoves []*search.RootMove) {
	leaf, ply := s.selectLeaf(pos, stack)
	leafNode := s.arena.Get(leaf)

	frame := stack.At(ply)
	frame.updatePV = false
	frame.pv.Clear()

	if leafNode.PN != 0 && leafNode.DN != 0 {
		s.expand(pos, stack, leaf, ply)
	}

	if ply > 0 {
		s.backpropagate(stack, leaf, ply)
	}

	root := stack.At(0)
	if root.updatePV && len(root.pv.Moves) > 0 {
		s.applyProvenPV(rootMoves, root.pv.Moves)
		root.updatePV = false
	}

	for i := 0; i < ply; i++ {
		pos.UndoMove()
	}
}

// selectLeaf descends from the root choosing, at each node, the child
// with minimum pn (OR node) or minimum dn (AND node), stopping as soon
// as the running choice matches the parent's value (spec.md §4.3
// Selection). It stops at any node that is itself already resolved
// (pn==0 or dn==0): nothing further beneath it can change its value, so
// there is nothing left to select into.
func (s *Searcher) selectLeaf(pos *position.Position, stack *Stack) (NodeRef, int) {
	current := rootNode
	ply := 0
	for {
		node := s.arena.Get(current)
		if node.PN == 0 || node.DN == 0 || node.FirstChild == rootNode || ply >= s.targetDepth {
			return current, ply
		}
		isOR := ply%2 == 0
		chosen := s.pickChild(node, isOR)
		move := s.arena.Get(chosen).Move

		pos.DoMove(move)
		ply++
		f := stack.At(ply)
		f.parentNode = current
		f.updatePV = false
		f.pv.Clear()
		current = chosen
	}
}

func (s *Searcher) pickChild(node *Node, isOR bool) NodeRef {
	parentVal := node.valueFor(isOR)
	best := node.FirstChild
	bestVal := s.arena.Get(best).valueFor(isOR)
	if bestVal != parentVal {
		for sib := s.arena.Get(best).NextSibling; sib != rootNode; sib = s.arena.Get(sib).NextSibling {
			v := s.arena.Get(sib).valueFor(isOR)
			if v < bestVal {
				best, bestVal = sib, v
				if bestVal == parentVal {
					break
				}
			}
		}
	}
	return best
}

// expand generates and ranks legal moves at the selected leaf, links a
// new child per kept move, and classifies each as terminal or not
// (spec.md §4.3 Expansion + Evaluation).
func (s *Searcher) expand(pos *position.Position, stack *Stack, leaf NodeRef, ply int) {
	leafNode := s.arena.Get(leaf)
	leafIsOR := ply%2 == 0

	legal := pos.LegalMoves()
	if ply == 0 && s.rootMoves != nil {
		filtered := make([]position.Move, 0, len(legal))
		for _, m := range legal {
			if s.rootMoves.Contains(m) {
				filtered = append(filtered, m)
			}
		}
		legal = filtered
	}

	ranked := rankMoves(pos, legal, ply)
	frontier := ply == s.targetDepth-1

	var prevSibling NodeRef
	childCount := 0

	for _, rm := range ranked {
		if s.stop.Load() {
			return
		}
		if frontier && childCount > 0 && !pos.GivesCheck(rm.move) {
			continue
		}

		pos.DoMove(rm.move)
		n := len(pos.LegalMoves())
		andNode := (ply+1)%2 == 1

		ref, ok := s.arena.alloc()
		if !ok {
			pos.UndoMove()
			s.oom = true
			s.stop.Store(true)
			return
		}
		node := s.arena.Get(ref)
		*node = Node{Move: rm.move, NextSibling: rootNode, FirstChild: rootNode}
		if andNode {
			node.PN, node.DN = 1+uint32(n), 1
		} else {
			node.PN, node.DN = 1, 1+uint32(n)
		}
		s.classifyTerminal(pos, node, andNode, ply+1, n)

		if node.PN == 0 {
			stack.At(ply).updatePV = true
			stack.At(ply).pv.Moves = append(stack.At(ply).pv.Moves[:0], rm.move)
		}

		pos.UndoMove()

		if childCount == 0 {
			leafNode.FirstChild = ref
		} else {
			s.arena.Get(prevSibling).NextSibling = ref
		}
		prevSibling = ref
		childCount++
		s.nodes.Add(1)

		if (leafIsOR && node.PN == 0) || (!leafIsOR && node.DN == 0) {
			return
		}
	}
}

// classifyTerminal applies the terminal condition table of spec.md §4.3.
func (s *Searcher) classifyTerminal(pos *position.Position, node *Node, andNode bool, ply, n int) {
	inCheck := pos.InCheck()
	switch {
	case n == 0 && inCheck && andNode:
		node.PN, node.DN = 0, Infinite
		return
	case n == 0 && inCheck && !andNode:
		node.PN, node.DN = Infinite, 0
		return
	case n == 0 && !inCheck:
		node.PN, node.DN = Infinite, 0
		return
	}

	if andNode && s.cfg.KingMoves < 8 && countKingMoves(pos) > s.cfg.KingMoves {
		node.PN, node.DN = Infinite, 0
		return
	}
	if !andNode && sideToMoveOnlyKing(pos) {
		node.PN, node.DN = Infinite, 0
		return
	}
	if pos.IsDraw(s.rootIndex) || ply == s.targetDepth {
		node.PN, node.DN = Infinite, 0
		return
	}

	if state, wdl, probed := s.probeLegal(pos); probed && state == tablebase.ProbeOK {
		switch {
		case wdl.LossSide() && !andNode:
			node.PN, node.DN = Infinite, 0
		case wdl.WinSide() && andNode:
			node.PN, node.DN = Infinite, 0
		case wdl == tablebase.Draw:
			node.PN, node.DN = Infinite, 0
		}
	}
}

func (s *Searcher) probeLegal(pos *position.Position) (tablebase.ProbeState, tablebase.WDLScore, bool) {
	if s.cfg.Adapter == nil {
		return tablebase.ProbeFail, tablebase.Draw, false
	}
	card := tablebase.Cardinality(pos)
	if card > s.cfg.ProbeLimit || card > s.cfg.Adapter.MaxCardinality() {
		return tablebase.ProbeFail, tablebase.Draw, false
	}
	if s.cfg.ProbeCache != nil {
		state, wdl := s.cfg.ProbeCache.ProbeWDL(s.cfg.Adapter, pos)
		return state, wdl, true
	}
	state, wdl := s.cfg.Adapter.ProbeWDL(pos)
	return state, wdl, true
}

// backpropagate walks from leaf up to the root, recomputing pn/dn at
// each ancestor and threading a proving PV upward when one was seeded
// during expansion (spec.md §4.3 Back-propagation).
func (s *Searcher) backpropagate(stack *Stack, leaf NodeRef, leafPly int) {
	current := leaf
	ply := leafPly
	for ply > 0 {
		frame := stack.At(ply)
		move := s.arena.Get(current).Move
		parentRef := frame.parentNode
		parent := s.arena.Get(parentRef)
		isOR := (ply-1)%2 == 0

		s.recompute(parent, isOR)

		if frame.updatePV {
			parentFrame := stack.At(ply - 1)
			parentFrame.pv.Moves = append(append([]position.Move{move}), frame.pv.Moves...)
			parentFrame.updatePV = true
		}

		current = parentRef
		ply--
	}
}

func (s *Searcher) recompute(node *Node, isOR bool) {
	wasResolved := node.PN == 0 || node.DN == 0

	var pnSum, dnSum uint64
	pnMin, dnMin := uint32(Infinite), uint32(Infinite)
	child := node.FirstChild
	for child != rootNode {
		c := s.arena.Get(child)
		pnSum += uint64(c.PN)
		dnSum += uint64(c.DN)
		if c.PN < pnMin {
			pnMin = c.PN
		}
		if c.DN < dnMin {
			dnMin = c.DN
		}
		child = c.NextSibling
	}

	if isOR {
		node.PN = pnMin
		node.DN = capSum(dnSum)
	} else {
		node.PN = capSum(pnSum)
		node.DN = dnMin
	}

	if !wasResolved && (node.PN == 0 || node.DN == 0) {
		s.arena.recycleChildren(node)
	}
}

func capSum(sum uint64) uint32 {
	if sum >= uint64(Infinite) {
		return Infinite
	}
	return uint32(sum)
}

// applyProvenPV finds the RootMove whose first move matches the proving
// PV's head and overwrites its PV and score (spec.md §4.3 PV extraction).
func (s *Searcher) applyProvenPV(rootMoves []*search.RootMove, pv []position.Move) {
	head := pv[0]
	for _, rm := range rootMoves {
		if rm.Move == head {
			rm.PV = append([]position.Move{}, pv...)
			rm.Score = search.VALUE_MATE - search.Value(len(pv))
			return
		}
	}
}

func countKingMoves(pos *position.Position) int {
	b := pos.Board()
	own := b.Black
	if b.Wtomove {
		own = b.White
	}
	kingSq := trailingZero(own.Kings)
	n := 0
	for _, m := range pos.LegalMoves() {
		if m.From() == kingSq {
			n++
		}
	}
	return n
}

// sideToMoveOnlyKing reports whether the side to move (the mating side at
// this OR node) has no mating material left — own = pos.count<ALL_PIECES>(us)
// == 1 in the original, not the opponent's material.
func sideToMoveOnlyKing(pos *position.Position) bool {
	b := pos.Board()
	own := b.White
	if !b.Wtomove {
		own = b.Black
	}
	return own.Pawns|own.Knights|own.Bishops|own.Rooks|own.Queens == 0
}

func trailingZero(bb uint64) uint8 {
	for i := uint8(0); i < 64; i++ {
		if bb&(uint64(1)<<i) != 0 {
			return i
		}
	}
	return 0
}
