// Package resolver orders tasks so that every task comes after its dependencies.
//
// All traversals visit goals and dependency lists in ascending id order, so the
// same graph and goal set always produce the same order.
package resolver

import (
	"slices"

	"scrum/internal/models"
)

// Graph maps every task id to the ids of the tasks it depends on.
type Graph map[int64][]int64

const (
	white = iota
	gray
	black
)

// Closure returns the goals plus every task reachable through dependency edges,
// sorted by id.
func Closure(g Graph, goals []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(goals))
	stack := sortedUnique(goals)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		deps, ok := g[id]
		if !ok {
			return nil, models.NotFoundf("task %d", id)
		}
		seen[id] = true
		for _, d := range deps {
			if _, ok := g[d]; !ok {
				return nil, models.NotFoundf("task %d depends on missing task %d", id, d)
			}
			if !seen[d] {
				stack = append(stack, d)
			}
		}
	}

	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

// Order returns the dependency closure of goals linearized so that each task
// appears once and after all of its dependencies. A cycle inside the closure
// fails with *CycleError before any ordering is attempted.
func Order(g Graph, goals []int64) ([]int64, error) {
	closure, err := Closure(g, goals)
	if err != nil {
		return nil, err
	}
	if cycle := findCycle(g, closure); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	color := make(map[int64]int, len(closure))
	order := make([]int64, 0, len(closure))

	var visit func(id int64)
	visit = func(id int64) {
		color[id] = gray
		for _, d := range sortedUnique(g[id]) {
			if color[d] == white {
				visit(d)
			}
		}
		color[id] = black
		order = append(order, id)
	}

	for _, id := range sortedUnique(goals) {
		if color[id] == white {
			visit(id)
		}
	}
	return order, nil
}

// Validate checks the whole graph for cycles.
func Validate(g Graph) error {
	ids := make([]int64, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if cycle := findCycle(g, ids); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

// CheckEdges reports the cycle that replacing task's dependencies with deps would
// create, or nil if the result stays acyclic. Self dependencies are rejected as
// invalid input rather than as a cycle.
func CheckEdges(g Graph, task int64, deps []int64) error {
	next := make(Graph, len(g)+1)
	for id, d := range g {
		next[id] = d
	}
	for _, d := range deps {
		if d == task {
			return models.Invalidf("task %d cannot depend on itself", task)
		}
	}
	next[task] = deps
	return Validate(next)
}

// findCycle runs a deterministic DFS rooted at each id in roots and returns the
// first cycle met, or nil.
func findCycle(g Graph, roots []int64) []int64 {
	color := make(map[int64]int, len(roots))
	var stack []int64
	var cycle []int64

	var dfs func(u int64) bool
	dfs = func(u int64) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range sortedUnique(g[u]) {
			switch color[v] {
			case white:
				if dfs(v) {
					return true
				}
			case gray:
				start := slices.Index(stack, v)
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, v)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}

	for _, id := range roots {
		if color[id] != white {
			continue
		}
		if dfs(id) {
			return cycle
		}
	}
	return nil
}

func sortedUnique(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
