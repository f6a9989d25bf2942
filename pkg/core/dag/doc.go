// Package dag provides the graph store behind dagscope's rewrite engine.
//
// # Overview
//
// A [DAG] holds one snapshot of a compiler-produced dataflow graph: the
// nodes, the directed data-dependency edges between them, and a separate
// parent/child hierarchy used to group nodes into module containers and to
// attach validation results to the node they validate. Each node and edge
// also carries a small set of visual [Flags] (selected, highlighted,
// validated, validator, collapsed).
//
// # Node Kinds
//
//   - [KindStandard]: an ordinary computation step
//   - [KindRaw]: the unrefined output of a standard node, ID = standard ID + "_raw"
//   - [KindValidationResult]: the outcome of validating another node
//   - [KindModuleGroup]: a synthetic container, ID = label = module name
//
// # Invariants
//
// Every edge's endpoints exist in the snapshot and every Parent refers to an
// existing node. All mutators preserve both; [DAG.Validate] checks them.
//
// # Snapshot Replacement
//
// Updates never patch a snapshot from outside. Either build a staging graph
// and [DAG.Replace] it in, or call [DAG.Load], which stages internally and
// leaves the current snapshot untouched on error:
//
//	g := dag.New()
//	err := g.Load(nodes, edges) // all-or-nothing
//
// # Flags After Reloads
//
// [DAG.SetFlag] and [DAG.SetEdgeFlag] silently ignore unknown IDs, because
// layout callbacks may try to flag elements of a snapshot that was replaced
// in the meantime.
//
// # Concurrency
//
// DAG is not safe for concurrent use. Use [DAG.Clone] to hand a copy to
// another goroutine.
package dag
