package compiler

import "encoding/json"

// Wire commands understood by the compiler server.
const (
	cmdPing       = "ping"
	cmdPong       = "pong"
	cmdCompileDAG = "compileDAG"
	cmdError      = "error"
)

// Event is one websocket message in either direction. ID is attached to
// requests for log correlation; servers are not required to echo it.
type Event struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Details json.RawMessage `json:"details"`
}

// CompileRequest selects the modules to compile and, optionally, the nodes
// whose upstream or downstream closure should be kept.
type CompileRequest struct {
	ModuleFilePaths []string `json:"module_file_paths"`
	UpstreamNodes   []string `json:"upstream_nodes"`
	DownstreamNodes []string `json:"downstream_nodes"`
}

type compileReply struct {
	Graph json.RawMessage `json:"graph"`
}
