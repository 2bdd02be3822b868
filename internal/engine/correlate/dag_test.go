package correlate

import (
	"reflect"
	"testing"
)

func TestToposortBatches(t *testing.T) {
	// 0 <- 1 <- 3, 0 <- 2, 4 alone
	deps := map[int][]int{1: {0}, 2: {0}, 3: {1, 1}}
	topo := Toposort(5, func(i int) []int { return deps[i] })

	if topo.Cyclic {
		t.Fatalf("unexpected cycle: %v", topo.Cycles)
	}
	wantOrder := []NodeID{0, 4, 1, 2, 3}
	if !reflect.DeepEqual(topo.Order, wantOrder) {
		t.Errorf("Order = %v, want %v", topo.Order, wantOrder)
	}
	wantBatches := [][]NodeID{{0, 4}, {1, 2}, {3}}
	if !reflect.DeepEqual(topo.Batches, wantBatches) {
		t.Errorf("Batches = %v, want %v", topo.Batches, wantBatches)
	}
}

func TestToposortCycle(t *testing.T) {
	// 1 and 2 depend on each other, 3 depends on 2; 0 is free.
	deps := map[int][]int{1: {2}, 2: {1}, 3: {2}}
	topo := Toposort(4, func(i int) []int { return deps[i] })

	if !topo.Cyclic {
		t.Fatal("cycle not reported")
	}
	if !reflect.DeepEqual(topo.Order, []NodeID{0}) {
		t.Errorf("Order = %v, want [0]", topo.Order)
	}
	if !reflect.DeepEqual(topo.Cycles, []NodeID{1, 2, 3}) {
		t.Errorf("Cycles = %v, want [1 2 3]", topo.Cycles)
	}
	if !reflect.DeepEqual(topo.Members, []NodeID{1, 2}) {
		t.Errorf("Members = %v, want [1 2]", topo.Members)
	}
	if !reflect.DeepEqual(topo.Blocked, []NodeID{3}) {
		t.Errorf("Blocked = %v, want [3]", topo.Blocked)
	}
}

func TestToposortBlockedChainOrder(t *testing.T) {
	// 0 <-> 1 form the cycle; 4 needs 2, which needs 0; 3 needs 4.
	deps := map[int][]int{0: {1}, 1: {0}, 2: {0}, 3: {4}, 4: {2}}
	topo := Toposort(5, func(i int) []int { return deps[i] })

	if !reflect.DeepEqual(topo.Members, []NodeID{0, 1}) {
		t.Errorf("Members = %v, want [0 1]", topo.Members)
	}
	if !reflect.DeepEqual(topo.Blocked, []NodeID{2, 4, 3}) {
		t.Errorf("Blocked = %v, want [2 4 3]", topo.Blocked)
	}
}

func TestToposortTwoCycles(t *testing.T) {
	// 0 <-> 1 and 2 <-> 3, joined one way by 2 -> 1.
	deps := map[int][]int{0: {1}, 1: {0}, 2: {3, 1}, 3: {2}}
	topo := Toposort(4, func(i int) []int { return deps[i] })

	if !reflect.DeepEqual(topo.Members, []NodeID{0, 1, 2, 3}) {
		t.Errorf("Members = %v", topo.Members)
	}
	if len(topo.Blocked) != 0 {
		t.Errorf("Blocked = %v, want none", topo.Blocked)
	}
}

func TestToposortIgnoresOutOfRangeDeps(t *testing.T) {
	topo := Toposort(2, func(i int) []int { return []int{-1, 7} })
	if topo.Cyclic || len(topo.Order) != 2 {
		t.Errorf("got %+v", topo)
	}
}

func TestToposortSelfLoop(t *testing.T) {
	topo := Toposort(1, func(int) []int { return []int{0} })
	if !topo.Cyclic || len(topo.Cycles) != 1 {
		t.Errorf("self dependency not reported as a cycle: %+v", topo)
	}
	if !reflect.DeepEqual(topo.Members, []NodeID{0}) {
		t.Errorf("Members = %v, want [0]", topo.Members)
	}
}
