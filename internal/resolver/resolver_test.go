package resolver

import (
	"errors"
	"reflect"
	"testing"

	"scrum/internal/models"
)

func positions(order []int64) map[int64]int {
	pos := make(map[int64]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	return pos
}

func TestOrder_DependencyChain(t *testing.T) {
	// 2 depends on 1.
	g := Graph{1: nil, 2: {1}}
	order, err := Order(g, []int64{2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(order, []int64{1, 2}) {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestOrder_DiamondIsTopologicalAndComplete(t *testing.T) {
	// 4 depends on 2 and 3, both depend on 1. 5 is unrelated.
	g := Graph{1: nil, 2: {1}, 3: {1}, 4: {3, 2}, 5: nil}
	order, err := Order(g, []int64{4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected closure of 4 tasks, got %v", order)
	}
	pos := positions(order)
	if len(pos) != len(order) {
		t.Fatalf("task listed twice: %v", order)
	}
	for id, deps := range g {
		if _, in := pos[id]; !in {
			continue
		}
		for _, d := range deps {
			if pos[d] >= pos[id] {
				t.Fatalf("dependency %d must precede %d in %v", d, id, order)
			}
		}
	}
	if _, in := pos[5]; in {
		t.Fatalf("unrelated task leaked into %v", order)
	}
}

func TestOrder_Deterministic(t *testing.T) {
	g := Graph{1: nil, 2: nil, 3: {2, 1}, 4: {1}, 5: {4, 3}}
	first, err := Order(g, []int64{5, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Order(g, []int64{4, 5, 4})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: %v != %v", i, again, first)
		}
	}
	if want := []int64{1, 4, 2, 3, 5}; !reflect.DeepEqual(first, want) {
		t.Fatalf("order = %v, want %v", first, want)
	}
}

func TestOrder_CycleDetected(t *testing.T) {
	g := Graph{1: {2}, 2: {1}}
	_, err := Order(g, []int64{1})
	if !errors.Is(err, models.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if !reflect.DeepEqual(cycleErr.Path, []int64{1, 2, 1}) {
		t.Fatalf("cycle path = %v", cycleErr.Path)
	}
}

func TestOrder_IndirectCycleOutsideClosureIgnored(t *testing.T) {
	g := Graph{1: nil, 2: {1}, 3: {4}, 4: {3}}
	order, err := Order(g, []int64{2})
	if err != nil {
		t.Fatalf("cycle outside the closure must not fail ordering: %v", err)
	}
	if !reflect.DeepEqual(order, []int64{1, 2}) {
		t.Fatalf("order = %v", order)
	}
}

func TestOrder_UnknownGoal(t *testing.T) {
	_, err := Order(Graph{1: nil}, []int64{9})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckEdges(t *testing.T) {
	g := Graph{1: nil, 2: {1}, 3: {2}}

	if err := CheckEdges(g, 3, []int64{1, 2}); err != nil {
		t.Fatalf("acyclic update rejected: %v", err)
	}
	if err := CheckEdges(g, 1, []int64{3}); !errors.Is(err, models.ErrCyclicDependency) {
		t.Fatalf("expected cycle, got %v", err)
	}
	if err := CheckEdges(g, 2, []int64{2}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected invalid input for self dependency, got %v", err)
	}
	if g[1] != nil {
		t.Fatalf("CheckEdges must not mutate the graph")
	}
}
