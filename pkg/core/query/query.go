// Package query answers structural questions about a graph snapshot:
// reachability over the edge relation, selection highlighting, and the
// hierarchical descendants of a container.
package query

import (
	"github.com/matzehuels/dagscope/pkg/core/dag"
)

// Ancestors returns every node that can reach id by following edges forward,
// in breadth-first order. The start node is not included, even on a cycle.
func Ancestors(g *dag.DAG, id string) []string {
	return walk(g, id, g.Predecessors)
}

// Descendants returns every node reachable from id by following edges
// forward, in breadth-first order. The start node is not included.
func Descendants(g *dag.DAG, id string) []string {
	return walk(g, id, g.Successors)
}

func walk(g *dag.DAG, start string, next func(string) []string) []string {
	if _, ok := g.Node(start); !ok {
		return nil
	}
	seen := map[string]bool{start: true}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next(cur) {
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}

// HighlightSet is the part of the graph lying on a path through the
// selected node.
type HighlightSet struct {
	Nodes []string // Selected node, its ancestors and its descendants
	Edges []string // Edge IDs on forward paths from or backward paths to the selection
}

// Highlight computes the highlight set of id: the out-edges of id and its
// descendants, the in-edges of id and its ancestors, and all those nodes.
// An unknown id yields an empty set.
func Highlight(g *dag.DAG, id string) HighlightSet {
	if _, ok := g.Node(id); !ok {
		return HighlightSet{}
	}
	down := append([]string{id}, Descendants(g, id)...)
	up := append([]string{id}, Ancestors(g, id)...)

	hs := HighlightSet{Nodes: append(down, up[1:]...)}
	seen := make(map[string]bool)
	for _, n := range down {
		for _, e := range g.OutEdges(n) {
			if !seen[e.ID] {
				seen[e.ID] = true
				hs.Edges = append(hs.Edges, e.ID)
			}
		}
	}
	for _, n := range up {
		for _, e := range g.InEdges(n) {
			if !seen[e.ID] {
				seen[e.ID] = true
				hs.Edges = append(hs.Edges, e.ID)
			}
		}
	}
	return hs
}

// Select makes id the only selected node and flags its highlight set.
// Previous selection and highlights are cleared first. Selecting an unknown
// node clears the selection and reports false.
func Select(g *dag.DAG, id string) (HighlightSet, bool) {
	Unselect(g)
	if _, ok := g.Node(id); !ok {
		return HighlightSet{}, false
	}
	hs := Highlight(g, id)
	g.SetFlag(id, dag.FlagSelected, true)
	for _, n := range hs.Nodes {
		g.SetFlag(n, dag.FlagHighlighted, true)
	}
	for _, e := range hs.Edges {
		g.SetEdgeFlag(e, dag.FlagHighlighted, true)
	}
	return hs, true
}

// Unselect clears the selection and every highlight flag.
func Unselect(g *dag.DAG) {
	g.ClearFlag(dag.FlagSelected | dag.FlagHighlighted)
}

// Selected returns the currently selected node, if any.
func Selected(g *dag.DAG) (string, bool) {
	for _, n := range g.Nodes() {
		if n.Flags.Has(dag.FlagSelected) {
			return n.ID, true
		}
	}
	return "", false
}

// CollapsedDescendants returns every node transitively parented under id,
// depth first. These are the nodes hidden when id is collapsed.
func CollapsedDescendants(g *dag.DAG, id string) []string {
	var out []string
	var visit func(string)
	visit = func(p string) {
		for _, c := range g.Children(p) {
			out = append(out, c)
			visit(c)
		}
	}
	visit(id)
	return out
}
