// SPDX-License-Identifier: MPL-2.0

// Package dag provides a dependency graph with a stable depth-first topological
// sort and cycle reporting. It is used to order repack groups so that every
// group is merged after the groups it references.
package dag

import (
	"fmt"
	"strings"
)

const (
	unvisited visitState = iota
	inProgress
	done
)

type (
	visitState uint8

	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists the nodes of the cycle in traversal order, ending with a
		// repeat of the first node (A -> B -> A).
		Cycle []string
	}

	// Graph is a directed dependency graph over string keys. Nodes live in an
	// arena in insertion order; edges are stored as arena indexes. An edge from
	// A to B means "A depends on B", so B sorts before A.
	Graph struct {
		nodes []string
		index map[string]int
		deps  [][]int
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	g.id(name)
}

func (g *Graph) id(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.nodes)
	g.index[name] = i
	g.nodes = append(g.nodes, name)
	g.deps = append(g.deps, nil)
	return i
}

// AddDependency records that dependent depends on dependency. Both nodes are
// implicitly added if they don't exist. Repeated edges are recorded once and
// keep the position of their first insertion.
func (g *Graph) AddDependency(dependent, dependency string) {
	from, to := g.id(dependent), g.id(dependency)
	for _, existing := range g.deps[from] {
		if existing == to {
			return
		}
	}
	g.deps[from] = append(g.deps[from], to)
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Dependencies returns the direct dependencies of name in insertion order.
func (g *Graph) Dependencies(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, len(g.deps[i]))
	for j, d := range g.deps[i] {
		out[j] = g.nodes[d]
	}
	return out
}

// HasDependency reports whether dependent directly depends on dependency.
func (g *Graph) HasDependency(dependent, dependency string) bool {
	for _, d := range g.Dependencies(dependent) {
		if d == dependency {
			return true
		}
	}
	return false
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Sort returns the nodes ordered so that every dependency precedes its
// dependents. Roots are visited in insertion order and dependencies in the
// order they were added, so unconstrained nodes keep their relative order.
// Returns *CycleError if the graph contains a cycle.
func (g *Graph) Sort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	s := sorter{
		g:     g,
		state: make([]visitState, len(g.nodes)),
		order: make([]string, 0, len(g.nodes)),
	}
	for i := range g.nodes {
		if err := s.visit(i); err != nil {
			return nil, err
		}
	}
	return s.order, nil
}

// sorter carries the traversal state of one Sort call. path is the stack of
// in-progress nodes used to report the exact cycle.
type sorter struct {
	g     *Graph
	state []visitState
	path  []int
	order []string
}

func (s *sorter) visit(i int) error {
	switch s.state[i] {
	case done:
		return nil
	case inProgress:
		return s.cycleFrom(i)
	}

	s.state[i] = inProgress
	s.path = append(s.path, i)
	for _, dep := range s.g.deps[i] {
		if err := s.visit(dep); err != nil {
			return err
		}
	}
	s.path = s.path[:len(s.path)-1]
	s.state[i] = done
	s.order = append(s.order, s.g.nodes[i])
	return nil
}

func (s *sorter) cycleFrom(i int) error {
	start := 0
	for k, n := range s.path {
		if n == i {
			start = k
			break
		}
	}
	cycle := make([]string, 0, len(s.path)-start+1)
	for _, n := range s.path[start:] {
		cycle = append(cycle, s.g.nodes[n])
	}
	cycle = append(cycle, s.g.nodes[i])
	return &CycleError{Cycle: cycle}
}
