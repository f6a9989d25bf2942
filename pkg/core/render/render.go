// Package render defines what the engine hands to its layout and export
// collaborators: the orientation, the visible scene and computed positions.
//
// The engine never draws. It builds a [Scene] (a detached copy of the
// visible nodes and edges plus the current [Orientation]) and passes it to
// whatever layout engine or exporter it was given; pkg/core/render/nodelink
// is the Graphviz-backed implementation of both.
package render

import (
	"fmt"
	"strings"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	"github.com/matzehuels/dagscope/pkg/core/fold"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// Orientation is the direction of the hierarchical layout.
type Orientation string

const (
	LeftToRight Orientation = "LR"
	TopToBottom Orientation = "TB"
)

// DefaultOrientation is the orientation of a freshly created engine.
const DefaultOrientation = LeftToRight

// Flip returns the other orientation.
func (o Orientation) Flip() Orientation {
	if o == TopToBottom {
		return LeftToRight
	}
	return TopToBottom
}

// Valid reports whether o is one of the two supported orientations.
func (o Orientation) Valid() bool { return o == LeftToRight || o == TopToBottom }

func (o Orientation) String() string { return string(o) }

// ParseOrientation accepts "LR"/"TB" in any case, plus the long names
// "left-to-right" and "top-to-bottom".
func ParseOrientation(s string) (Orientation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lr", "left-to-right":
		return LeftToRight, true
	case "tb", "top-to-bottom":
		return TopToBottom, true
	}
	return "", false
}

// Export formats.
const (
	FormatSVG  = "svg"  // Always supported
	FormatDOT  = "dot"  // Graphviz source of the scene
	FormatJSON = "json" // graph.Graph of the scene
)

// Formats lists the supported export formats.
var Formats = []string{FormatSVG, FormatDOT, FormatJSON}

// Scene is the visible element set at one moment, detached from the store.
type Scene struct {
	Orientation Orientation
	Nodes       []dag.Node
	Edges       []dag.Edge
}

// NewScene captures the visible part of g.
func NewScene(g *dag.DAG, o Orientation) Scene {
	v := fold.Visible(g)
	return Scene{Orientation: o, Nodes: v.Nodes, Edges: v.Edges}
}

// Empty reports whether the scene has no nodes.
func (s Scene) Empty() bool { return len(s.Nodes) == 0 }

// Node returns the visible node with the given ID.
func (s Scene) Node(id string) (dag.Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return dag.Node{}, false
}

// Children returns the visible children of id ("" for top level), in scene order.
func (s Scene) Children(id string) []string {
	var out []string
	for _, n := range s.Nodes {
		if n.Parent == id {
			out = append(out, n.ID)
		}
	}
	return out
}

// Graph converts the scene to its wire format.
func (s Scene) Graph() (graph.Graph, error) {
	g := dag.New()
	if err := g.Load(s.Nodes, s.Edges); err != nil {
		return graph.Graph{}, fmt.Errorf("scene: %w", err)
	}
	out := graph.FromDAG(g)
	out.Orientation = s.Orientation.String()
	return out, nil
}

// Point is the center of a laid-out node.
type Point struct {
	X, Y float64
}

// Positions is the output of a layout run.
type Positions struct {
	Orientation Orientation
	Width       float64
	Height      float64
	Nodes       map[string]Point
}

// Export converts positions to the wire format, ordered by the given scene.
func (p Positions) Export(s Scene) graph.Layout {
	l := graph.Layout{
		Orientation: p.Orientation.String(),
		Engine:      "dot",
		Width:       p.Width,
		Height:      p.Height,
		Nodes:       make([]graph.Placement, 0, len(p.Nodes)),
	}
	for _, n := range s.Nodes {
		if pt, ok := p.Nodes[n.ID]; ok {
			l.Nodes = append(l.Nodes, graph.Placement{ID: n.ID, X: pt.X, Y: pt.Y})
		}
	}
	return l
}
