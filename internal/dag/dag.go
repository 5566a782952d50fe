// SPDX-License-Identifier: MPL-2.0

// Package dag orders the build tasks of an artifact. Nodes carry a payload and
// edges mean "must finish before"; Order returns payloads in a deterministic
// topological order.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle is the sentinel wrapped by CycleError.
	ErrCycle = errors.New("dependency cycle")
	// ErrUnknownNode is returned when an edge names a node that was never added.
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateNode is returned when a node ID is added twice.
	ErrDuplicateNode = errors.New("duplicate node")
)

type (
	// CycleError reports one cycle, as a closed path (first node repeated last).
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph of payloads of type T keyed by string IDs.
	Graph[T any] struct {
		ids     []string
		values  map[string]T
		targets map[string][]string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{
		values:  make(map[string]T),
		targets: make(map[string][]string),
	}
}

// Add inserts a node.
func (g *Graph[T]) Add(id string, value T) error {
	if _, ok := g.values[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}
	g.values[id] = value
	g.ids = append(g.ids, id)
	return nil
}

// Before records that from must finish before to starts. Both must exist.
func (g *Graph[T]) Before(from, to string) error {
	for _, id := range []string{from, to} {
		if _, ok := g.values[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}
	}
	g.targets[from] = append(g.targets[from], to)
	return nil
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int { return len(g.ids) }

// Order returns the payloads in topological order (Kahn's algorithm). Nodes
// that become ready together keep their insertion order. A cycle yields a
// *CycleError.
func (g *Graph[T]) Order() ([]T, error) {
	inDegree := make(map[string]int, len(g.ids))
	for _, id := range g.ids {
		for _, to := range g.targets[id] {
			inDegree[to]++
		}
	}

	queue := make([]string, 0, len(g.ids))
	for _, id := range g.ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	out := make([]T, 0, len(g.ids))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, g.values[id])
		for _, to := range g.targets[id] {
			inDegree[to]--
			if inDegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	if len(out) != len(g.ids) {
		return nil, &CycleError{Cycle: g.findCycle(inDegree)}
	}
	return out, nil
}

// findCycle walks from any node left with a positive in-degree until a node
// repeats. Every such node has a predecessor that is also left over, so
// following reverse edges always closes a loop.
func (g *Graph[T]) findCycle(inDegree map[string]int) []string {
	preds := make(map[string][]string)
	for _, from := range g.ids {
		if inDegree[from] == 0 {
			continue
		}
		for _, to := range g.targets[from] {
			if inDegree[to] > 0 {
				preds[to] = append(preds[to], from)
			}
		}
	}

	var start string
	for _, id := range g.ids {
		if inDegree[id] > 0 {
			start = id
			break
		}
	}

	seen := make(map[string]int)
	var path []string
	for cur := start; ; cur = preds[cur][0] {
		if i, ok := seen[cur]; ok {
			loop := append([]string{}, path[i:]...)
			// path follows reverse edges; flip it to read in execution order.
			for l, r := 0, len(loop)-1; l < r; l, r = l+1, r-1 {
				loop[l], loop[r] = loop[r], loop[l]
			}
			return append(loop, loop[0])
		}
		seen[cur] = len(path)
		path = append(path, cur)
		if len(preds[cur]) == 0 {
			return path
		}
	}
}
