package graph

import (
	"slices"
	"strings"

	"github.com/matzehuels/dagscope/pkg/core/dag"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// TypeValidationResult is the compiler's type name for validation result nodes.
const TypeValidationResult = "ValidationResult"

// Attribute keys recognized on incoming node elements.
const (
	keyID         = "id"
	keyLabel      = "label"
	keyName       = "name"
	keyModule     = "module"
	keyType       = "type"
	keySourceNode = "source_node"
	keySource     = "source"
	keyTarget     = "target"
	keyData       = "data"

	// KeyHamiltonSourceNode is the tag the compiler uses to name the node a
	// validation result belongs to.
	KeyHamiltonSourceNode = "hamilton.data_quality.source_node"
)

// =============================================================================
// Payload - Compiler Update Format
// =============================================================================

// Payload is the body of an update message as delivered by the compiler.
//
// Elements may be flat objects or Cytoscape-wrapped ({"data": {...}}); both
// decode to the same [ElementNode] and [ElementEdge] values.
type Payload struct {
	Elements   Elements `json:"elements"`
	Directed   bool     `json:"directed"`
	Multigraph bool     `json:"multigraph"`
}

// Elements is the flat node and edge list of a payload.
type Elements struct {
	Nodes []ElementNode `json:"nodes"`
	Edges []ElementEdge `json:"edges"`
}

// Empty reports whether the payload carries no nodes. The compiler signals
// "nothing selected" this way.
func (e Elements) Empty() bool { return len(e.Nodes) == 0 }

// ElementNode is one incoming node before classification.
type ElementNode struct {
	ID         string
	Label      string
	Module     string
	Type       string
	SourceNode string
	Attrs      map[string]any // Remaining attributes, passed through unmodified
}

// IsValidationResult reports whether the compiler typed this node as a
// validation result.
func (n ElementNode) IsValidationResult() bool { return n.Type == TypeValidationResult }

// IsRaw reports whether the node id carries the raw companion suffix.
func (n ElementNode) IsRaw() bool { return strings.HasSuffix(n.ID, dag.RawSuffix) }

// ElementEdge is one incoming edge. ID is filled in during decoding when the
// compiler omits it.
type ElementEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// =============================================================================
// Graph - Snapshot Export Format
// =============================================================================

// Graph is the exported visual state of an engine snapshot.
// Used for API responses, the json export format and the terminal browser.
type Graph struct {
	Orientation string `json:"orientation,omitempty"`
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
}

// Node is a node of an exported snapshot.
type Node struct {
	ID        string         `json:"id"`
	Label     string         `json:"label,omitempty"`
	Kind      string         `json:"kind"`
	Module    string         `json:"module,omitempty"`
	SourceRef string         `json:"source_ref,omitempty"`
	Parent    string         `json:"parent,omitempty"`
	Flags     []string       `json:"flags,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// HasFlag reports whether the named flag is set.
func (n Node) HasFlag(name string) bool { return slices.Contains(n.Flags, name) }

// Edge is an edge of an exported snapshot.
type Edge struct {
	ID    string   `json:"id"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Flags []string `json:"flags,omitempty"`
}

// HasFlag reports whether the named flag is set.
func (e Edge) HasFlag(name string) bool { return slices.Contains(e.Flags, name) }

// =============================================================================
// DAG → Graph Conversion
// =============================================================================

// FromDAG converts a snapshot to its export format.
// Nodes and edges keep snapshot insertion order.
func FromDAG(g *dag.DAG) Graph {
	nodes := g.Nodes()
	edges := g.Edges()

	out := Graph{
		Nodes: make([]Node, len(nodes)),
		Edges: make([]Edge, len(edges)),
	}
	for i, n := range nodes {
		out.Nodes[i] = nodeFromDAG(n)
	}
	for i, e := range edges {
		out.Edges[i] = Edge{ID: e.ID, From: e.From, To: e.To, Flags: e.Flags.Names()}
	}
	return out
}

// ToDAG rebuilds a snapshot from its export format, including hierarchy and flags.
func ToDAG(gj Graph) (*dag.DAG, error) {
	nodes := make([]dag.Node, len(gj.Nodes))
	for i, nj := range gj.Nodes {
		nodes[i] = dag.Node{
			ID:        nj.ID,
			Label:     nj.Label,
			Kind:      dag.ParseKind(nj.Kind),
			Module:    nj.Module,
			SourceRef: nj.SourceRef,
			Parent:    nj.Parent,
			Meta:      copyMeta(nj.Meta),
			Flags:     parseFlags(nj.Flags),
		}
	}
	edges := make([]dag.Edge, len(gj.Edges))
	for i, ej := range gj.Edges {
		edges[i] = dag.Edge{ID: ej.ID, From: ej.From, To: ej.To, Flags: parseFlags(ej.Flags)}
	}

	d := dag.New()
	if err := d.Load(nodes, edges); err != nil {
		return nil, err
	}
	return d, nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

func nodeFromDAG(n *dag.Node) Node {
	node := Node{
		ID:        n.ID,
		Kind:      n.Kind.String(),
		Module:    n.Module,
		SourceRef: n.SourceRef,
		Parent:    n.Parent,
		Flags:     n.Flags.Names(),
	}
	if n.Label != "" && n.Label != n.ID {
		node.Label = n.Label
	}
	if len(n.Meta) > 0 {
		node.Meta = copyMeta(n.Meta)
	}
	return node
}

func parseFlags(names []string) dag.Flags {
	var fs dag.Flags
	for _, name := range names {
		if f, ok := dag.ParseFlag(name); ok {
			fs |= f
		}
	}
	return fs
}

// copyMeta creates a shallow copy of metadata to avoid mutation.
func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
