// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"strings"

	"crossforge.dev/pkg/sets"
)

// A Graph is the dependency-ordered set of stages for one build request.
// It is immutable once constructed and its stage order is deterministic:
// identical requests yield identical sequences.
type Graph struct {
	stages []*Stage
	index  map[string]int
	preds  [][]int
	succs  [][]int
}

// newGraph resolves each stage's predecessor references,
// verifies acyclicity and output disjointness,
// and produces a topological order using the given declaration order
// as the tie-break.
func newGraph(stages []*Stage) (*Graph, error) {
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		key := s.Key()
		if _, exists := index[key]; exists {
			return nil, dependencyErrorf("duplicate stage %s", key)
		}
		index[key] = i
	}

	preds := make([][]int, len(stages))
	succs := make([][]int, len(stages))
	for i, s := range stages {
		for _, ref := range s.After {
			key := ref.String()
			if ref.Env == "" {
				key = s.Env.ID + "/" + ref.Name
			}
			j, ok := index[key]
			if !ok {
				return nil, dependencyErrorf("stage %s: predecessor %s cannot be resolved", s.Key(), key)
			}
			preds[i] = append(preds[i], j)
			succs[j] = append(succs[j], i)
		}
	}

	order, err := topoSort(stages, preds)
	if err != nil {
		return nil, err
	}

	// Renumber everything into execution order.
	sorted := make([]*Stage, len(stages))
	oldToNew := make([]int, len(stages))
	for newIdx, oldIdx := range order {
		sorted[newIdx] = stages[oldIdx]
		oldToNew[oldIdx] = newIdx
	}
	newIndex := make(map[string]int, len(sorted))
	newPreds := make([][]int, len(sorted))
	newSuccs := make([][]int, len(sorted))
	for newIdx, s := range sorted {
		newIndex[s.Key()] = newIdx
		oldIdx := order[newIdx]
		for _, p := range preds[oldIdx] {
			newPreds[newIdx] = append(newPreds[newIdx], oldToNew[p])
		}
		for _, p := range succs[oldIdx] {
			newSuccs[newIdx] = append(newSuccs[newIdx], oldToNew[p])
		}
	}
	g := &Graph{
		stages: sorted,
		index:  newIndex,
		preds:  newPreds,
		succs:  newSuccs,
	}
	if err := g.checkOutputDisjointness(); err != nil {
		return nil, err
	}
	return g, nil
}

// topoSort returns a topological order of stage indices.
// Ties break by declaration order:
// the earliest-declared ready stage is placed first.
func topoSort(stages []*Stage, preds [][]int) ([]int, error) {
	placed := make([]bool, len(stages))
	order := make([]int, 0, len(stages))
	for len(order) < len(stages) {
		found := false
		for i := range stages {
			if placed[i] {
				continue
			}
			ready := true
			for _, p := range preds[i] {
				if !placed[p] {
					ready = false
					break
				}
			}
			if ready {
				placed[i] = true
				order = append(order, i)
				found = true
				break
			}
		}
		if !found {
			var remaining []string
			for i, s := range stages {
				if !placed[i] {
					remaining = append(remaining, s.Key())
				}
			}
			return nil, dependencyErrorf("dependency cycle involving %s", strings.Join(remaining, ", "))
		}
	}
	return order, nil
}

// checkOutputDisjointness verifies that no two unordered stages of one
// environment declare overlapping output paths, so that concurrently
// ready stages never write the same prefix subpath.
func (g *Graph) checkOutputDisjointness() error {
	for i, a := range g.stages {
		for j := i + 1; j < len(g.stages); j++ {
			b := g.stages[j]
			if a.Env != b.Env || !a.writesUnder(b) {
				continue
			}
			if !g.reachable(i, j) && !g.reachable(j, i) {
				return dependencyErrorf("stages %s and %s declare overlapping outputs but are unordered", a.Key(), b.Key())
			}
		}
	}
	return nil
}

// reachable reports whether there is a path from stage i to stage j.
func (g *Graph) reachable(i, j int) bool {
	seen := sets.New(i)
	stack := []int{i}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == j {
			return true
		}
		for _, next := range g.succs[n] {
			if !seen.Has(next) {
				seen.Add(next)
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Len returns the number of stages in the graph.
func (g *Graph) Len() int {
	return len(g.stages)
}

// Stage returns the i'th stage in execution order.
func (g *Graph) Stage(i int) *Stage {
	return g.stages[i]
}

// Stages returns all stages in deterministic execution order.
// The caller must not modify the returned slice.
func (g *Graph) Stages() []*Stage {
	return g.stages
}

// Lookup returns the index of the stage with the given key
// in execution order.
func (g *Graph) Lookup(key string) (int, bool) {
	i, ok := g.index[key]
	return i, ok
}

// Predecessors returns the direct predecessor indices of stage i.
// The caller must not modify the returned slice.
func (g *Graph) Predecessors(i int) []int {
	return g.preds[i]
}

// Successors returns the direct successor indices of stage i.
// The caller must not modify the returned slice.
func (g *Graph) Successors(i int) []int {
	return g.succs[i]
}
