package transform_test

import (
	"fmt"

	"github.com/matzehuels/dagscope/pkg/core/dag/transform"
	"github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
)

func ExampleRewrite() {
	// orders → spend_raw → spend, all in module "features",
	// plus a validation result checking spend.
	el := graph.Elements{
		Nodes: []graph.ElementNode{
			{ID: "orders", Module: "sources"},
			{ID: "spend", Module: "features"},
			{ID: "spend_raw", Module: "features"},
			{ID: "spend_check", Module: "features", Type: graph.TypeValidationResult, SourceNode: "spend"},
		},
		Edges: []graph.ElementEdge{
			{ID: "e1", Source: "orders", Target: "spend_raw"},
			{ID: "e2", Source: "spend_raw", Target: "spend"},
			{ID: "e3", Source: "spend", Target: "spend_check"},
		},
	}

	g, result := transform.Rewrite(el)

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Modules grouped:", result.ModulesGrouped)
	fmt.Println("Raw elided:", result.RawElided)
	fmt.Println("Edges rewired:", result.EdgesRewired)
	fmt.Println("Validators attached:", result.ValidatorsAttached)
	fmt.Println("features:", g.Children("features"))
	fmt.Println("spend:", g.Children("spend"))
	fmt.Println("orders → spend:", g.HasEdge("orders", "spend"))
	// Output:
	// Nodes: 5
	// Edges: 2
	// Modules grouped: 2
	// Raw elided: 1
	// Edges rewired: 1
	// Validators attached: 1
	// features: [spend]
	// spend: [spend_check]
	// orders → spend: true
}

func ExampleElideRaw() {
	el := graph.Elements{
		Nodes: []graph.ElementNode{{ID: "x"}, {ID: "f"}, {ID: "f_raw"}},
		Edges: []graph.ElementEdge{{ID: "e1", Source: "x", Target: "f_raw"}},
	}

	var diags errors.Diagnostics
	g := transform.Ingest(el, &diags)
	elided, rewired := transform.ElideRaw(g, &diags)

	fmt.Println("Elided:", elided, "Rewired:", rewired)
	for _, e := range g.Edges() {
		fmt.Println(e.ID)
	}
	// Output:
	// Elided: 1 Rewired: 1
	// x->f
}
