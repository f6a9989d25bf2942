package nodelink

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	"github.com/matzehuels/dagscope/pkg/core/render"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
)

func TestRendererExport(t *testing.T) {
	r := NewRenderer(Options{}, nil)
	defer r.Close()
	ctx := context.Background()
	s := scene(render.LeftToRight)

	svg, err := r.Export(ctx, s, render.FormatSVG)
	if err != nil {
		t.Fatalf("Export(svg) error = %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("Export(svg) did not return SVG")
	}

	dot, err := r.Export(ctx, s, render.FormatDOT)
	if err != nil || !bytes.HasPrefix(dot, []byte("digraph G")) {
		t.Errorf("Export(dot) = %q, %v", dot, err)
	}

	data, err := r.Export(ctx, s, render.FormatJSON)
	if err != nil {
		t.Fatalf("Export(json) error = %v", err)
	}
	var g graph.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("Export(json) is not a graph: %v", err)
	}
	if len(g.Nodes) != 4 || g.Orientation != "LR" {
		t.Errorf("Export(json) = %d nodes, orientation %q", len(g.Nodes), g.Orientation)
	}

	for _, format := range []string{"png", "pdf", ""} {
		out, err := r.Export(ctx, s, format)
		if !derrors.Is(err, derrors.ErrCodeUnsupportedFormat) {
			t.Errorf("Export(%q) error = %v, want UNSUPPORTED_FORMAT", format, err)
		}
		if out != nil {
			t.Errorf("Export(%q) returned content", format)
		}
	}
}

func TestRendererLayout(t *testing.T) {
	r := NewRenderer(Options{}, nil)
	defer r.Close()

	p, err := r.Layout(context.Background(), scene(render.TopToBottom))
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if p.Orientation != render.TopToBottom {
		t.Errorf("Orientation = %v, want TB", p.Orientation)
	}
	for _, id := range []string{"f", "f_check", "x"} {
		if _, ok := p.Nodes[id]; !ok {
			t.Errorf("no position for %s", id)
		}
	}
	if p.Width <= 0 || p.Height <= 0 {
		t.Errorf("size = %vx%v, want positive", p.Width, p.Height)
	}

	empty, err := r.Layout(context.Background(), render.Scene{Orientation: render.LeftToRight})
	if err != nil || len(empty.Nodes) != 0 {
		t.Errorf("Layout(empty) = %+v, %v", empty, err)
	}
}

func TestRendererLayoutUnusualIDs(t *testing.T) {
	r := NewRenderer(Options{}, nil)
	defer r.Close()

	s := render.Scene{
		Orientation: render.TopToBottom,
		Nodes: []dag.Node{
			{ID: "plain"},
			{ID: "bracket", Label: "df[col]"},
			{ID: "größe"},
			{ID: "a-b", Label: `say "hi"`},
		},
		Edges: []dag.Edge{
			{ID: "plain->bracket", From: "plain", To: "bracket"},
			{ID: "größe->a-b", From: "größe", To: "a-b"},
		},
	}
	p, err := r.Layout(context.Background(), s)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(p.Nodes) != len(s.Nodes) {
		t.Errorf("Layout() positioned %d nodes, want %d: %v", len(p.Nodes), len(s.Nodes), p.Nodes)
	}
	for _, n := range s.Nodes {
		if _, ok := p.Nodes[n.ID]; !ok {
			t.Errorf("no position for %q", n.ID)
		}
	}
	// TB puts a source above its target, and graphviz's y axis points up.
	if p.Nodes["plain"].Y <= p.Nodes["bracket"].Y {
		t.Errorf("plain.Y = %v, want above bracket.Y = %v", p.Nodes["plain"].Y, p.Nodes["bracket"].Y)
	}
}
