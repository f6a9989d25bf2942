package transform

import (
	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// GroupModules creates one module group per distinct module name and moves
// every member under it. It returns the number of groups created.
//
// Groups are created in order of first appearance. An existing module group
// with the same name is reused, so running the pass twice is harmless. If a
// non-group node already uses the module name as its id, the module cannot be
// represented: a DUPLICATE_ID diagnostic is reported and its members stay
// where they are. Nodes without a module remain at the root.
func GroupModules(g *dag.DAG, diags *derrors.Diagnostics) int {
	var modules []string
	members := make(map[string][]string)
	for _, n := range g.Nodes() {
		if n.IsModuleGroup() || n.Module == "" {
			continue
		}
		if _, seen := members[n.Module]; !seen {
			modules = append(modules, n.Module)
		}
		members[n.Module] = append(members[n.Module], n.ID)
	}

	created := 0
	for _, m := range modules {
		if existing, ok := g.Node(m); ok {
			if !existing.IsModuleGroup() {
				diags.Add(derrors.ErrCodeDuplicateID, "module %q collides with node %q; not grouped", m, existing.ID)
				continue
			}
		} else {
			if err := g.AddNode(dag.Node{ID: m, Label: m, Kind: dag.KindModuleGroup}); err != nil {
				diags.Append(derrors.Wrap(derrors.ErrCodeInternal, err, "module group %q", m))
				continue
			}
			created++
		}

		for _, id := range members[m] {
			if err := g.Reparent(id, m); err != nil {
				diags.Append(derrors.Wrap(derrors.ErrCodeInternal, err, "group %q into %q", id, m))
			}
		}
	}
	return created
}
