// Package graph provides the wire formats at dagscope's boundaries.
//
// # Architecture
//
// The package sits between external JSON and the in-memory graph store:
//
//   - [Payload]: the flat update payload produced by the compiler
//   - [Graph]: the exported visual state of a snapshot (kinds, hierarchy, flags)
//   - [Layout]: node positions computed for one orientation
//   - pkg/core/dag.DAG: the internal representation
//
// # Update Payloads
//
// The compiler serializes its function graph in Cytoscape JSON. Elements may
// be flat or wrapped in a "data" object:
//
//	{
//	  "elements": {
//	    "nodes": [{"data": {"id": "f", "module": "features"}}, {"id": "f_raw", "module": "features"}],
//	    "edges": [{"data": {"source": "x", "target": "f_raw"}}]
//	  },
//	  "directed": true,
//	  "multigraph": false
//	}
//
// [DecodePayload] checks only the minimal shape (ids, edge endpoints) and
// reports violations as MALFORMED_PAYLOAD. Referential problems such as
// dangling edges are left to the rewrite pipeline, which skips the element
// and reports a diagnostic instead of rejecting the message.
//
// Recognized node keys:
//
//	id                                 Required, unique within the payload
//	label, name                        Display label (label wins)
//	module                             Owning module; drives grouping
//	type                               "ValidationResult" marks validation results
//	source_node                        Node a validation result belongs to
//	hamilton.data_quality.source_node  Same, as tagged by the compiler
//
// Every other key is passed through unmodified as node metadata.
//
// # Snapshot Export
//
//	g := graph.FromDAG(store)          // DAG → Graph
//	data, _ := graph.MarshalGraph(g)   // Graph → []byte
//	store, _ = graph.ToDAG(g)          // Graph → DAG (hierarchy and flags kept)
//
// # Concurrency
//
// All functions are safe for concurrent use; none hold package state.
package graph
