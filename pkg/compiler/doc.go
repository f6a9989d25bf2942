// Package compiler is a websocket client for the dataflow compiler server.
//
// The server turns a set of module files into the graph payload the engine
// consumes. The protocol is JSON events of the form
//
//	{"command": "compileDAG", "details": {"module_file_paths": [...], "upstream_nodes": [], "downstream_nodes": []}}
//
// answered by {"command": "compileDAG", "details": {"graph": {...}}}, plus
// ping/pong for health checks. Failures come back as
// {"command": "error", "details": "message"} and surface as COMPILER_ERROR.
//
// A [Client] moves through [StateDisconnected], [StateConnecting],
// [StateOpen] and [StateClosing]. Dropped connections are re-dialled with
// the [Backoff] policy and the interrupted request is sent again.
package compiler
