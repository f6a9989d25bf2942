package transform

import (
	"fmt"
	"strings"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// ElideRaw removes raw companion nodes, rewiring their upstream edges to the
// node they belong to.
//
// For every standard node T whose id does not itself end in "_raw", the node
// T+"_raw" (if present and of kind Raw) is bypassed: each edge S→T_raw becomes
// S→T unless an S→T edge already exists or S is T. The raw node is then
// removed with all its edges. A raw node without incoming edges is removed
// without replacement.
//
// Raw nodes that no eligible T claims are removed as well and reported as
// DANGLING_REFERENCE, so no raw node survives the pass.
//
// ElideRaw returns the number of raw nodes removed and edges created.
func ElideRaw(g *dag.DAG, diags *derrors.Diagnostics) (elided, rewired int) {
	var transforms []string
	for _, n := range g.Nodes() {
		if n.Kind == dag.KindStandard && !strings.HasSuffix(n.ID, dag.RawSuffix) {
			transforms = append(transforms, n.ID)
		}
	}

	for _, t := range transforms {
		rawID := t + dag.RawSuffix
		raw, ok := g.Node(rawID)
		if !ok || !raw.IsRaw() {
			continue
		}
		for _, e := range g.InEdges(rawID) {
			if e.From == t || e.From == rawID || g.HasEdge(e.From, t) {
				continue
			}
			edge := dag.Edge{ID: uniqueEdgeID(g, e.From, t), From: e.From, To: t}
			if err := g.AddEdge(edge); err != nil {
				diags.Append(derrors.Wrap(derrors.ErrCodeInternal, err, "rewire %s", e.ID))
				continue
			}
			rewired++
		}
		g.RemoveNode(rawID)
		elided++
	}

	for _, n := range g.Nodes() {
		if !n.IsRaw() {
			continue
		}
		diags.Add(derrors.ErrCodeDanglingReference, "raw node %q has no companion %q; removed",
			n.ID, strings.TrimSuffix(n.ID, dag.RawSuffix))
		g.RemoveNode(n.ID)
		elided++
	}
	return elided, rewired
}

// uniqueEdgeID returns from->to, suffixed with #n if that id is taken.
func uniqueEdgeID(g *dag.DAG, from, to string) string {
	base := dag.EdgeID(from, to)
	id := base
	for n := 2; ; n++ {
		if _, taken := g.Edge(id); !taken {
			return id
		}
		id = fmt.Sprintf("%s#%d", base, n)
	}
}
