package transform

import (
	"errors"
	"maps"
	"strings"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// Ingest builds a flat staging graph from payload elements.
//
// Nodes are classified as follows:
//   - type "ValidationResult": [dag.KindValidationResult], source_node becomes SourceRef
//   - id "T_raw" where T is a node of the same payload: [dag.KindRaw]
//   - anything else: [dag.KindStandard]
//
// A "_raw" node whose companion is missing is an ordinary node. A nested
// suffix ("f_raw_raw" next to "f_raw") is not matched to any companion; the
// node is kept as an ordinary node with a DANGLING_REFERENCE diagnostic.
//
// Duplicate node ids keep the first occurrence (DUPLICATE_ID). Edges with an
// unknown endpoint are skipped (DANGLING_REFERENCE). No hierarchy is built.
func Ingest(el graph.Elements, diags *derrors.Diagnostics) *dag.DAG {
	g := dag.New()

	declared := make(map[string]graph.ElementNode, len(el.Nodes))
	for _, n := range el.Nodes {
		if _, dup := declared[n.ID]; !dup {
			declared[n.ID] = n
		}
	}

	for _, n := range el.Nodes {
		node := dag.Node{
			ID:     n.ID,
			Label:  n.Label,
			Kind:   classify(n, declared, diags),
			Module: n.Module,
			Meta:   maps.Clone(n.Attrs),
		}
		if node.Kind == dag.KindValidationResult {
			node.SourceRef = n.SourceNode
		}
		if err := g.AddNode(node); err != nil {
			if errors.Is(err, dag.ErrDuplicateNodeID) {
				diags.Add(derrors.ErrCodeDuplicateID, "node %q appears more than once; keeping the first", n.ID)
				continue
			}
			diags.Append(derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "node %q", n.ID))
		}
	}

	for _, e := range el.Edges {
		err := g.AddEdge(dag.Edge{ID: e.ID, From: e.Source, To: e.Target})
		switch {
		case err == nil:
		case errors.Is(err, dag.ErrUnknownSourceNode):
			diags.Add(derrors.ErrCodeDanglingReference, "edge %s: unknown source %q", e.ID, e.Source)
		case errors.Is(err, dag.ErrUnknownTargetNode):
			diags.Add(derrors.ErrCodeDanglingReference, "edge %s: unknown target %q", e.ID, e.Target)
		case errors.Is(err, dag.ErrDuplicateEdgeID):
			diags.Add(derrors.ErrCodeDuplicateID, "edge %q appears more than once; keeping the first", e.ID)
		default:
			diags.Append(derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "edge %q", e.ID))
		}
	}
	return g
}

func classify(n graph.ElementNode, declared map[string]graph.ElementNode, diags *derrors.Diagnostics) dag.Kind {
	if n.IsValidationResult() {
		return dag.KindValidationResult
	}
	if !n.IsRaw() {
		return dag.KindStandard
	}

	companion := strings.TrimSuffix(n.ID, dag.RawSuffix)
	c, ok := declared[companion]
	if !ok || c.IsValidationResult() {
		return dag.KindStandard
	}
	if c.IsRaw() {
		diags.Add(derrors.ErrCodeDanglingReference, "node %q: nested raw suffix on %q; left in place", n.ID, companion)
		return dag.KindStandard
	}
	return dag.KindRaw
}
