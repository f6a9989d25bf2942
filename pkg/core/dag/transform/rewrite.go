package transform

import (
	"github.com/matzehuels/dagscope/pkg/core/dag"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// Rewrite turns a flat compiler payload into the hierarchical snapshot the
// engine renders.
//
// Rewrite is pure: it builds a new graph and never touches the caller's
// store. It returns nil when the payload has no nodes, which callers treat as
// "keep the current snapshot". The passes always run in this order, since
// each one relies on the ids the previous one settled:
//
//  1. [Ingest]: classify nodes, drop dangling edges and duplicate ids
//  2. [GroupModules]: one container per module
//  3. [ElideRaw]: bypass and remove raw companions
//  4. [AttachValidators]: move validation results under their subject
//
// Problems with individual elements are collected in the result's
// Diagnostics; they never abort the rewrite.
func Rewrite(el graph.Elements) (*dag.DAG, *TransformResult) {
	result := &TransformResult{}
	if el.Empty() {
		return nil, result
	}

	g := Ingest(el, &result.Diagnostics)
	result.NodesIngested = g.NodeCount()
	result.EdgesIngested = g.EdgeCount()

	result.ModulesGrouped = GroupModules(g, &result.Diagnostics)
	result.RawElided, result.EdgesRewired = ElideRaw(g, &result.Diagnostics)
	result.ValidatorsAttached = AttachValidators(g, &result.Diagnostics)
	return g, result
}
