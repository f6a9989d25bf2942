package transform

import (
	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// AttachValidators moves every validation result under the node it
// validates and marks the validation structure.
//
// Each validation result and every edge touching it get [dag.FlagValidator],
// whether or not it could be attached. After the move, the container of the
// validated node (usually its module group) gets [dag.FlagValidated]; when
// the validated node sits at the root, the node itself carries the flag.
//
// A missing or unknown SourceRef is a DANGLING_REFERENCE diagnostic and the
// validation result stays where grouping put it. Returns the number of
// validation results attached.
func AttachValidators(g *dag.DAG, diags *derrors.Diagnostics) int {
	attached := 0
	for _, v := range g.Nodes() {
		if !v.IsValidationResult() {
			continue
		}

		g.SetFlag(v.ID, dag.FlagValidator, true)
		for _, e := range g.InEdges(v.ID) {
			g.SetEdgeFlag(e.ID, dag.FlagValidator, true)
		}
		for _, e := range g.OutEdges(v.ID) {
			g.SetEdgeFlag(e.ID, dag.FlagValidator, true)
		}

		if v.SourceRef == "" {
			diags.Add(derrors.ErrCodeDanglingReference, "validation result %q names no source node", v.ID)
			continue
		}
		src, ok := g.Node(v.SourceRef)
		if !ok {
			diags.Add(derrors.ErrCodeDanglingReference, "validation result %q: unknown source node %q", v.ID, v.SourceRef)
			continue
		}
		if err := g.Reparent(v.ID, src.ID); err != nil {
			diags.Append(derrors.Wrap(derrors.ErrCodeDanglingReference, err, "validation result %q", v.ID))
			continue
		}
		attached++

		if src.Parent != "" {
			g.SetFlag(src.Parent, dag.FlagValidated, true)
		} else {
			g.SetFlag(src.ID, dag.FlagValidated, true)
		}
	}
	return attached
}
