package graph_test

import (
	"fmt"

	"github.com/matzehuels/dagscope/pkg/graph"
)

func ExampleDecodePayload() {
	data := []byte(`{
	  "elements": {
	    "nodes": [
	      {"data": {"id": "spend", "module": "features"}},
	      {"data": {"id": "spend_raw", "module": "features"}}
	    ],
	    "edges": [
	      {"data": {"source": "orders", "target": "spend_raw"}}
	    ]
	  },
	  "directed": true
	}`)

	p, err := graph.DecodePayload(data)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	for _, n := range p.Elements.Nodes {
		fmt.Println(n.ID, n.Module, n.IsRaw())
	}
	fmt.Println("Edge:", p.Elements.Edges[0].ID)
	// Output:
	// spend features false
	// spend_raw features true
	// Edge: orders->spend_raw
}
