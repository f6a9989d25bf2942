package transform

import derrors "github.com/matzehuels/dagscope/pkg/errors"

// TransformResult contains metrics about the rewrite applied to one payload.
//
// TransformResult is returned by [Rewrite] to provide visibility into what
// the passes did. The engine logs it and forwards Diagnostics to the caller.
type TransformResult struct {
	// NodesIngested and EdgesIngested count the payload elements accepted into
	// the staging graph, before any pass ran.
	NodesIngested int
	EdgesIngested int

	// ModulesGrouped is the number of module group containers created.
	ModulesGrouped int

	// RawElided is the number of raw companion nodes removed.
	RawElided int

	// EdgesRewired is the number of edges created to bypass raw companions.
	// Duplicates of an existing source→target pair are not counted.
	EdgesRewired int

	// ValidatorsAttached is the number of validation results moved under the
	// node they validate.
	ValidatorsAttached int

	// Diagnostics lists every element that was skipped or rejected. A
	// non-empty list never means the rewrite failed.
	Diagnostics derrors.Diagnostics
}
