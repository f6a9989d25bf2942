// Package transform rewrites a flat compiler payload into dagscope's
// hierarchical graph model.
//
// # Overview
//
// The compiler describes its function graph as a flat list of nodes and
// edges. Nodes carry a module name, some are raw intermediates of another
// node, and some are validation results pointing back at the node they
// check. [Rewrite] turns that into a snapshot where:
//
//   - Every module is a container holding its nodes
//   - Raw intermediates are gone and their inputs feed the real node directly
//   - Validation results sit inside the node they validate
//
// # Module Grouping
//
// [GroupModules] creates one [dag.KindModuleGroup] node per distinct module
// name (id and label equal to the name) and reparents the members:
//
//	Before: f(module=features), g(module=features), x
//	After:  features{f, g}, x
//
// # Raw Elision
//
// [ElideRaw] bypasses raw companions, matched purely by the "_raw" suffix:
//
//	Before: x → f_raw → f
//	After:  x → f
//
// Rewired edges never duplicate an existing source→target pair.
//
// # Validation Attachment
//
// [AttachValidators] reparents each validation result under its source node,
// flags it and its edges as validators (rendered compactly, edges hidden),
// and flags the validated node's container as validated. Validated
// containers start collapsed.
//
// # Diagnostics
//
// Rewrite never fails. Dangling edges, unknown source references and
// duplicate ids are skipped and reported in [TransformResult.Diagnostics]
// with DANGLING_REFERENCE or DUPLICATE_ID codes.
package transform
