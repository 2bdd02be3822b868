package correlate

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// NodeID indexes the nodes handed to Toposort.
type NodeID int32

// Topo is the result of a Kahn sort. Nodes of one batch do not depend on
// each other; Cycles holds the nodes that never reached zero in-degree.
// Those split into Members, which lie on a cycle themselves, and Blocked,
// which only depend on one. Blocked is in dependency order.
type Topo struct {
	Order   []NodeID
	Batches [][]NodeID
	Cyclic  bool
	Cycles  []NodeID
	Members []NodeID
	Blocked []NodeID
}

// Toposort orders n nodes so that every node comes after the nodes deps
// returns for it. Ties are broken by node index, so the result is stable
// for a stable input order.
func Toposort(n int, deps func(i int) []int) *Topo {
	edges := make([][]NodeID, n)
	indeg := make([]int, n)
	for i := range n {
		seen := make(map[int]bool)
		for _, d := range deps(i) {
			if d < 0 || d >= n || seen[d] {
				continue
			}
			seen[d] = true
			edges[d] = append(edges[d], id(i))
			indeg[i]++
		}
	}

	topo := &Topo{Order: make([]NodeID, 0, n)}
	current := make([]NodeID, 0, n)
	for i := range n {
		if indeg[i] == 0 {
			current = append(current, id(i))
		}
	}

	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		var next []NodeID
		for _, from := range batch {
			topo.Order = append(topo.Order, from)
			for _, to := range edges[from] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != n {
		topo.Cyclic = true
		for i := range n {
			if indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, id(i))
			}
		}
		topo.splitCycles(edges)
	}
	return topo
}

// splitCycles finds the strongly connected components among the unsorted
// nodes. A node belongs to a cycle when its component has more than one
// node or it depends on itself; the rest are ordered by a second Kahn pass
// that treats cycle members as already placed.
func (t *Topo) splitCycles(edges [][]NodeID) {
	left := make(map[NodeID]bool, len(t.Cycles))
	for _, v := range t.Cycles {
		left[v] = true
	}
	member := make(map[NodeID]bool)
	for _, scc := range components(t.Cycles, edges, left) {
		if len(scc) > 1 || slices.Contains(edges[scc[0]], scc[0]) {
			for _, v := range scc {
				member[v] = true
			}
		}
	}

	indeg := make(map[NodeID]int)
	for _, from := range t.Cycles {
		if member[from] {
			t.Members = append(t.Members, from)
			continue
		}
		for _, to := range edges[from] {
			if left[to] && !member[to] {
				indeg[to]++
			}
		}
	}
	var current []NodeID
	for _, v := range t.Cycles {
		if !member[v] && indeg[v] == 0 {
			current = append(current, v)
		}
	}
	for len(current) > 0 {
		var next []NodeID
		for _, from := range current {
			t.Blocked = append(t.Blocked, from)
			for _, to := range edges[from] {
				if !left[to] || member[to] {
					continue
				}
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}
}

// components runs Tarjan's algorithm over the nodes in keep.
func components(nodes []NodeID, edges [][]NodeID, keep map[NodeID]bool) [][]NodeID {
	var (
		index   = make(map[NodeID]int)
		low     = make(map[NodeID]int)
		onStack = make(map[NodeID]bool)
		stack   []NodeID
		out     [][]NodeID
		counter int
	)
	var visit func(v NodeID)
	visit = func(v NodeID) {
		index[v], low[v] = counter, counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range edges[v] {
			if !keep[w] {
				continue
			}
			if _, seen := index[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var scc []NodeID
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		slices.Sort(scc)
		out = append(out, scc)
	}
	for _, v := range nodes {
		if _, seen := index[v]; !seen {
			visit(v)
		}
	}
	return out
}

func id(i int) NodeID {
	v, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("node id overflow: %w", err))
	}
	return v
}
