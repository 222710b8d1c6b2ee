// Package graph builds the include graph of a translation unit and answers
// reachability questions over it.
package graph

import (
	"sort"

	"github.com/phobologic/hdrcheck/internal/model"
)

// Graph maps each file to the files it includes. It is immutable after
// BuildGraph returns.
type Graph struct {
	includes map[string]map[string]struct{}
}

// BuildGraph creates the include graph from the edges reported by the
// front-end. Self edges are dropped and duplicates merged.
func BuildGraph(edges []model.IncludeEdge) *Graph {
	g := &Graph{includes: make(map[string]map[string]struct{})}
	for _, e := range edges {
		if e.From == "" || e.To == "" || e.From == e.To {
			continue // no self-edges
		}
		if g.includes[e.From] == nil {
			g.includes[e.From] = make(map[string]struct{})
		}
		g.includes[e.From][e.To] = struct{}{}
	}
	return g
}

// Includes returns the files h includes directly, sorted.
func (g *Graph) Includes(h string) []string {
	return sortedKeys(g.includes[h])
}

// Nodes returns every file that appears in an edge, sorted.
func (g *Graph) Nodes() []string {
	nodes := make(map[string]struct{})
	for from, tos := range g.includes {
		nodes[from] = struct{}{}
		for to := range tos {
			nodes[to] = struct{}{}
		}
	}
	return sortedKeys(nodes)
}

// Reachable returns the set of files reachable from roots through at least
// one edge. A root is only part of the result when a cycle leads back to it.
func (g *Graph) Reachable(roots ...string) map[string]struct{} {
	seen := make(map[string]struct{})
	stack := make([]string, 0, len(roots))
	for _, r := range roots {
		for to := range g.includes[r] {
			stack = append(stack, to)
		}
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		for to := range g.includes[h] {
			if _, ok := seen[to]; !ok {
				stack = append(stack, to)
			}
		}
	}
	return seen
}

// Closure returns Reachable(roots...) as a sorted slice.
func (g *Graph) Closure(roots ...string) []string {
	return sortedKeys(g.Reachable(roots...))
}

// Reaches reports whether target is reachable from h.
func (g *Graph) Reaches(h, target string) bool {
	_, ok := g.Reachable(h)[target]
	return ok
}

// Cost returns the number of distinct files h pulls in, not counting h.
func (g *Graph) Cost(h string) int {
	reach := g.Reachable(h)
	delete(reach, h)
	return len(reach)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
