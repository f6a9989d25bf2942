// Package pkg provides the core libraries of dagscope.
//
// # Overview
//
// dagscope takes the dataflow graph a compiler emits for a set of modules and
// turns it into something a person can read: nodes grouped by module, raw
// intermediates hidden, validation results hung under what they validate,
// and containers that fold. The pkg directory is organized into these areas:
//
//  1. [core] - Domain logic (graph store, rewrite passes, queries, folding, rendering)
//  2. [engine] - The message-driven engine owning one snapshot
//  3. [graph] - Wire formats for payloads, snapshots and layouts
//  4. [compiler], [server], [watch] - Ways payloads and messages reach the engine
//  5. [cache], [config], [observability] - Infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	Compiler payload (file, websocket or HTTP)
//	         ↓
//	    [graph] package (decode elements)
//	         ↓
//	    [core/dag/transform] package (ingest, group, elide raw, attach validators)
//	         ↓
//	    [engine] package (snapshot + fold, select, rotate, save)
//	         ↓
//	    [core/render/nodelink] package (Graphviz layout + export)
//	         ↓
//	    SVG/DOT/JSON output
//
// # Quick Start
//
// Rewrite a payload and export it:
//
//	import (
//	    "context"
//	    "os"
//
//	    "github.com/matzehuels/dagscope/pkg/core/render/nodelink"
//	    "github.com/matzehuels/dagscope/pkg/engine"
//	    "github.com/matzehuels/dagscope/pkg/graph"
//	)
//
//	// 1. Read the compiler payload
//	p, _ := graph.ReadPayloadFile("dagscope.json")
//
//	// 2. Create an engine that lays out and exports with Graphviz
//	r := nodelink.NewRenderer(nodelink.Options{}, nil)
//	e := engine.New(engine.Options{Layout: r, Exporter: r})
//	defer e.Close()
//
//	// 3. Apply the payload
//	reply, _ := e.Handle(context.Background(), engine.Update{Payload: p})
//
//	// 4. Export the visible graph
//	reply, _ = e.Handle(context.Background(), engine.Save{Format: "svg"})
//	os.WriteFile("dagscope.svg", reply.Content, 0o644)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [core/dag] - The graph store: nodes, data edges and a separate parent/child
// hierarchy, with visual flags on both nodes and edges.
//
// [core/dag/transform] - The rewrite pipeline applied to every payload.
//
// [core/query] - Ancestor/descendant traversal and selection highlights.
//
// [core/fold] - Expand/collapse state and the visible scene.
//
// [core/render] - Orientation, scenes and positions; [core/render/nodelink]
// implements layout and export on Graphviz.
//
// ## Infrastructure
//
// [cache] - File, Redis and null backends for exports and the module selection.
//
// [observability] - Hook interfaces with a Prometheus implementation in
// [observability/prom].
//
// [errors] - Coded errors and per-message diagnostics.
package pkg
