package solver

import (
	"container/heap"

	"blockmaze.ai/internal/sim/actions"
)

const noParent = -1

type node struct {
	state  State
	key    string
	parent int
	action actions.Action
	g      float64
	h      float64
}

func (n *node) f() float64 { return n.g + n.h }

// arena owns every node of one search; parents are referenced by index.
type arena struct {
	nodes []node
}

func (a *arena) add(n node) int {
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

func (a *arena) at(i int) *node { return &a.nodes[i] }

// path walks parent handles back to the root.
func (a *arena) path(i int) []actions.Action {
	depth := 0
	for j := i; a.nodes[j].parent != noParent; j = a.nodes[j].parent {
		depth++
	}
	out := make([]actions.Action, depth)
	for j := i; a.nodes[j].parent != noParent; j = a.nodes[j].parent {
		depth--
		out[depth] = a.nodes[j].action
	}
	return out
}

type openEntry struct {
	f   float64
	seq uint64
	idx int
}

// openSet pops the lowest f; equal f values pop in insertion order.
type openSet struct {
	items []openEntry
	seq   uint64
}

func (o *openSet) Len() int { return len(o.items) }

func (o *openSet) Less(i, j int) bool {
	if o.items[i].f != o.items[j].f {
		return o.items[i].f < o.items[j].f
	}
	return o.items[i].seq < o.items[j].seq
}

func (o *openSet) Swap(i, j int) { o.items[i], o.items[j] = o.items[j], o.items[i] }

func (o *openSet) Push(x any) { o.items = append(o.items, x.(openEntry)) }

func (o *openSet) Pop() any {
	n := len(o.items)
	it := o.items[n-1]
	o.items = o.items[:n-1]
	return it
}

func (o *openSet) push(f float64, idx int) {
	heap.Push(o, openEntry{f: f, seq: o.seq, idx: idx})
	o.seq++
}

func (o *openSet) pop() int { return heap.Pop(o).(openEntry).idx }
