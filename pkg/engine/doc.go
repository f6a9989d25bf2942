// Package engine applies inbound messages to a graph snapshot.
//
// An [Engine] owns one [dag.DAG] and processes messages strictly one at a
// time, either directly through [Engine.Handle] or through a mailbox
// ([Engine.Serve] plus [Engine.Send]). The message set is closed: [Update],
// [Rotate], [ExpandAll], [CollapseAll], [Expand], [Collapse], [Save],
// [Select] and [Unselect]. [DecodeMessage] turns the JSON envelope
//
//	{"command": "select", "details": {"nodeId": "f"}}
//
// into the matching type and rejects anything else with MALFORMED_PAYLOAD.
//
// # Updates
//
// An update runs the full rewrite (grouping, raw elision, validator
// attachment), resets the fold state and swaps the result in as the new
// snapshot. An update with no nodes keeps the previous snapshot.
//
// # Layout
//
// Every change that affects the picture queues a layout with the configured
// [LayoutEngine]. Layout runs on a single worker goroutine and only the latest
// request wins: results that finish after a newer request arrived are
// discarded. [Engine.WaitLayout] blocks until a given request has settled.
package engine
