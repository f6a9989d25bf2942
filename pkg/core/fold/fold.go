// Package fold manages expand/collapse state of containers in a snapshot.
//
// Fold state lives on the graph as [dag.FlagCollapsed]. A collapsed node
// stays in the store; its hierarchical descendants are only hidden from the
// visible scene handed to layout and export.
//
// Eligible nodes are module groups, validated nodes and any node that
// currently has children (for example a node hosting validation results).
//
// The default fold, applied by [Reset] after every rewrite, collapses every
// validated node and expands everything else. Bulk operations compute the
// complete target [State] first and write it in one pass, so a layout run
// never observes a half-applied transition.
package fold

import (
	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// State maps each eligible node to whether it is collapsed.
type State map[string]bool

// Eligible reports whether the node can be expanded or collapsed.
func Eligible(g *dag.DAG, id string) bool {
	n, ok := g.Node(id)
	if !ok {
		return false
	}
	return n.IsModuleGroup() || n.Flags.Has(dag.FlagValidated) || len(g.Children(id)) > 0
}

// Capture returns the current fold state of every eligible node.
func Capture(g *dag.DAG) State {
	s := make(State)
	for _, n := range g.Nodes() {
		if Eligible(g, n.ID) {
			s[n.ID] = n.Flags.Has(dag.FlagCollapsed)
		}
	}
	return s
}

// Default returns the fold state a fresh snapshot starts in: validated nodes
// collapsed, all other eligible nodes expanded.
func Default(g *dag.DAG) State {
	s := make(State)
	for _, n := range g.Nodes() {
		if Eligible(g, n.ID) {
			s[n.ID] = n.Flags.Has(dag.FlagValidated)
		}
	}
	return s
}

// Apply writes s to the graph. Nodes missing from s, or no longer eligible,
// end up expanded. It returns the number of nodes whose state changed.
func Apply(g *dag.DAG, s State) int {
	changed := 0
	for _, n := range g.Nodes() {
		want := s[n.ID] && Eligible(g, n.ID)
		if n.Flags.Has(dag.FlagCollapsed) != want {
			changed++
		}
		g.SetFlag(n.ID, dag.FlagCollapsed, want)
	}
	return changed
}

// Reset applies the default fold.
func Reset(g *dag.DAG) int { return Apply(g, Default(g)) }

// ExpandAll expands every eligible node in one pass.
func ExpandAll(g *dag.DAG) int {
	s := Capture(g)
	for id := range s {
		s[id] = false
	}
	return Apply(g, s)
}

// CollapseAll returns every eligible node to its default fold: validated
// nodes collapsed, module groups and other containers expanded. After
// ExpandAll followed by CollapseAll the fold equals the one after rewrite.
func CollapseAll(g *dag.DAG) int { return Reset(g) }

// Expand expands a single node. Returns NOT_FOUND for unknown ids and
// INVALID_INPUT for nodes that cannot be folded.
func Expand(g *dag.DAG, id string) (bool, error) { return set(g, id, false) }

// Collapse collapses a single node. Errors as for [Expand].
func Collapse(g *dag.DAG, id string) (bool, error) { return set(g, id, true) }

// Toggle flips a single node and returns its new collapsed state.
func Toggle(g *dag.DAG, id string) (bool, error) {
	n, ok := g.Node(id)
	if !ok {
		return false, derrors.New(derrors.ErrCodeNotFound, "node %q not found", id)
	}
	collapsed := !n.Flags.Has(dag.FlagCollapsed)
	if _, err := set(g, id, collapsed); err != nil {
		return false, err
	}
	return collapsed, nil
}

func set(g *dag.DAG, id string, collapsed bool) (bool, error) {
	n, ok := g.Node(id)
	if !ok {
		return false, derrors.New(derrors.ErrCodeNotFound, "node %q not found", id)
	}
	if !Eligible(g, id) {
		return false, derrors.New(derrors.ErrCodeInvalidInput, "node %q has nothing to fold", id)
	}
	if n.Flags.Has(dag.FlagCollapsed) == collapsed {
		return false, nil
	}
	g.SetFlag(id, dag.FlagCollapsed, collapsed)
	return true, nil
}

// IsCollapsed reports whether id is collapsed or hidden beneath a collapsed
// ancestor.
func IsCollapsed(g *dag.DAG, id string) bool {
	for cur := id; cur != ""; {
		n, ok := g.Node(cur)
		if !ok {
			return false
		}
		if n.Flags.Has(dag.FlagCollapsed) {
			return true
		}
		cur = n.Parent
	}
	return false
}
