package dag

import "strings"

// Kind distinguishes the node variants produced by the compiler from the
// synthetic containers created during rewrite.
type Kind int

const (
	// KindStandard is an ordinary computation node.
	KindStandard Kind = iota
	// KindRaw carries the unrefined output of a same-named standard node.
	// Raw nodes never survive a rewrite.
	KindRaw
	// KindValidationResult is the outcome of validating another node's output.
	// SourceRef names the validated node.
	KindValidationResult
	// KindModuleGroup is a synthetic container aggregating all nodes of one module.
	// Its ID and label equal the module name.
	KindModuleGroup
)

// RawSuffix marks the ID of a raw companion node: raw ID = transform ID + RawSuffix.
const RawSuffix = "_raw"

var kindNames = [...]string{
	KindStandard:         "standard",
	KindRaw:              "raw",
	KindValidationResult: "validation_result",
	KindModuleGroup:      "module",
}

// String returns the kind's wire name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind converts a wire name back into a Kind. Unknown names map to KindStandard.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return Kind(k)
		}
	}
	return KindStandard
}

// Flags is a bit set of visual states attached to nodes and edges.
type Flags uint8

const (
	// FlagSelected marks the single selected node.
	FlagSelected Flags = 1 << iota
	// FlagHighlighted marks nodes and edges reachable from the selection.
	FlagHighlighted
	// FlagValidated marks the container of a node that has validation results.
	FlagValidated
	// FlagValidator marks validation result nodes and every edge touching them.
	FlagValidator
	// FlagCollapsed marks a container whose descendants are hidden.
	FlagCollapsed
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagSelected, "selected"},
	{FlagHighlighted, "highlighted"},
	{FlagValidated, "validated"},
	{FlagValidator, "validator"},
	{FlagCollapsed, "collapsed"},
}

// Has reports whether every bit of f is set.
func (fs Flags) Has(f Flags) bool { return fs&f == f }

// With returns fs with f set or cleared.
func (fs Flags) With(f Flags, on bool) Flags {
	if on {
		return fs | f
	}
	return fs &^ f
}

// Names returns the names of the set flags in a stable order.
func (fs Flags) Names() []string {
	var out []string
	for _, fn := range flagNames {
		if fs.Has(fn.flag) {
			out = append(out, fn.name)
		}
	}
	return out
}

// String joins the flag names with "|".
func (fs Flags) String() string { return strings.Join(fs.Names(), "|") }

// ParseFlag returns the flag with the given name.
func ParseFlag(name string) (Flags, bool) {
	for _, fn := range flagNames {
		if fn.name == name {
			return fn.flag, true
		}
	}
	return 0, false
}

// Node is a vertex of the graph snapshot.
//
// The zero value is not usable - ID must be set before adding to a DAG.
type Node struct {
	ID    string // Unique within a snapshot
	Label string // Display label (defaults to ID)
	Kind  Kind

	// Module is the module defining this node. Empty for module groups and
	// for nodes the compiler did not attribute to a module.
	Module string
	// SourceRef names the node a validation result validates. It is a back
	// reference, not an ownership edge.
	SourceRef string
	// Parent is the current hierarchical container ("" for the root).
	// Change it through DAG.Reparent.
	Parent string

	Meta  Metadata // Pass-through attributes
	Flags Flags
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// IsRaw reports whether the node is a raw companion.
func (n *Node) IsRaw() bool { return n.Kind == KindRaw }

// IsValidationResult reports whether the node is a validation result.
func (n *Node) IsValidationResult() bool { return n.Kind == KindValidationResult }

// IsModuleGroup reports whether the node is a synthetic module container.
func (n *Node) IsModuleGroup() bool { return n.Kind == KindModuleGroup }

// Edge is a directed data dependency between two nodes.
type Edge struct {
	ID    string
	From  string // Source node ID
	To    string // Target node ID
	Flags Flags
}

// EdgeID returns the canonical ID for an edge created by the engine.
func EdgeID(from, to string) string { return from + "->" + to }
