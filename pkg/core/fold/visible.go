package fold

import "github.com/matzehuels/dagscope/pkg/core/dag"

// MetaEdgePrefix starts the id of an edge merged from hidden edges.
const MetaEdgePrefix = "meta:"

// View is the visible part of a snapshot, detached from the store.
type View struct {
	Nodes []dag.Node
	Edges []dag.Edge
}

// Node returns the visible node with the given ID.
func (v *View) Node(id string) (dag.Node, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return dag.Node{}, false
}

// Visible returns the nodes with no collapsed ancestor and the edges between
// them, as value copies.
//
// An edge touching a hidden node is re-targeted to that node's visible
// representative, the outermost collapsed container above it. Re-targeted
// edges that become self loops are dropped; the rest are merged per
// source→target pair into one meta edge, highlighted if any merged edge is
// and a validator only if all of them are.
func Visible(g *dag.DAG) View {
	var v View
	for _, n := range g.Nodes() {
		if representative(g, n.ID) == n.ID {
			c := *n
			v.Nodes = append(v.Nodes, c)
		}
	}

	meta := make(map[string]int)
	for _, e := range g.Edges() {
		from, to := representative(g, e.From), representative(g, e.To)
		if from == e.From && to == e.To {
			v.Edges = append(v.Edges, e)
			continue
		}
		if from == to {
			continue
		}
		id := MetaEdgePrefix + dag.EdgeID(from, to)
		if i, ok := meta[id]; ok {
			merged := &v.Edges[i]
			merged.Flags = merged.Flags.With(dag.FlagHighlighted, merged.Flags.Has(dag.FlagHighlighted) || e.Flags.Has(dag.FlagHighlighted))
			merged.Flags = merged.Flags.With(dag.FlagValidator, merged.Flags.Has(dag.FlagValidator) && e.Flags.Has(dag.FlagValidator))
			continue
		}
		meta[id] = len(v.Edges)
		v.Edges = append(v.Edges, dag.Edge{
			ID:    id,
			From:  from,
			To:    to,
			Flags: e.Flags & (dag.FlagHighlighted | dag.FlagValidator),
		})
	}
	return v
}

// representative returns the outermost collapsed ancestor of id, or id itself
// when no ancestor is collapsed.
func representative(g *dag.DAG, id string) string {
	rep := id
	n, ok := g.Node(id)
	if !ok {
		return id
	}
	for p := n.Parent; p != ""; {
		pn, ok := g.Node(p)
		if !ok {
			break
		}
		if pn.Flags.Has(dag.FlagCollapsed) {
			rep = p
		}
		p = pn.Parent
	}
	return rep
}
