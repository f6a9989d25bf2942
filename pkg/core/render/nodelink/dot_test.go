package nodelink

import (
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	"github.com/matzehuels/dagscope/pkg/core/render"
)

func scene(o render.Orientation) render.Scene {
	return render.Scene{
		Orientation: o,
		Nodes: []dag.Node{
			{ID: "m", Label: "m", Kind: dag.KindModuleGroup, Flags: dag.FlagValidated},
			{ID: "f", Parent: "m", Flags: dag.FlagSelected | dag.FlagHighlighted},
			{ID: "f_check", Kind: dag.KindValidationResult, Parent: "f", SourceRef: "f", Flags: dag.FlagValidator},
			{ID: "x"},
		},
		Edges: []dag.Edge{
			{ID: "x->f", From: "x", To: "f", Flags: dag.FlagHighlighted},
			{ID: "f->f_check", From: "f", To: "f_check", Flags: dag.FlagValidator},
		},
	}
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(scene(render.LeftToRight), Options{})

	for _, want := range []string{
		"digraph G",
		"rankdir=LR;",
		`subgraph "cluster_m"`,
		`label="Module: m";`,
		`subgraph "cluster_f"`,
		`"x" -> "f"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %q", want)
		}
	}
}

func TestToDOT_Orientation(t *testing.T) {
	if dot := ToDOT(scene(render.TopToBottom), Options{}); !strings.Contains(dot, "rankdir=TB;") {
		t.Error("ToDOT() ignores TB orientation")
	}
	if dot := ToDOT(scene(""), Options{}); !strings.Contains(dot, "rankdir=LR;") {
		t.Error("ToDOT() should default to LR")
	}
}

func TestToDOT_Styling(t *testing.T) {
	dot := ToDOT(scene(render.LeftToRight), Options{})

	if !strings.Contains(dot, `label="check"`) {
		t.Error("validator label should drop the parent prefix")
	}
	if !strings.Contains(dot, `"f" -> "f_check" [id="f->f_check", style=invis]`) {
		t.Error("validator edge should be invisible")
	}
	if !strings.Contains(dot, `"x" -> "f" [id="x->f", color="#e4572e", penwidth=2]`) {
		t.Error("highlighted edge should use the highlight color")
	}
	if !strings.Contains(dot, `fillcolor="#cfe8ff"`) {
		t.Error("selected node should use the selection fill")
	}
}

func TestToDOT_Collapsed(t *testing.T) {
	s := render.Scene{
		Orientation: render.LeftToRight,
		Nodes: []dag.Node{
			{ID: "m", Kind: dag.KindModuleGroup, Flags: dag.FlagCollapsed | dag.FlagValidated},
			{ID: "x"},
		},
		Edges: []dag.Edge{{ID: "meta:x->m", From: "x", To: "m"}},
	}
	dot := ToDOT(s, Options{})

	if strings.Contains(dot, "cluster_m") {
		t.Error("collapsed group should not be a cluster")
	}
	if !strings.Contains(dot, "shape=folder") || !strings.Contains(dot, "peripheries=2") {
		t.Error("collapsed group should be a double-outlined folder node")
	}
	if !strings.Contains(dot, "style=dashed") {
		t.Error("meta edge should be dashed")
	}
}

func TestToDOT_Detailed(t *testing.T) {
	s := render.Scene{Nodes: []dag.Node{{ID: "f", Meta: dag.Metadata{"doc": "total spend"}}}}
	dot := ToDOT(s, Options{Detailed: true})

	if !strings.Contains(dot, `kind: standard`) {
		t.Error("detailed output missing kind")
	}
	if !strings.Contains(dot, "doc: total spend") {
		t.Error("detailed output missing metadata")
	}
}

func TestParseFloats(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		want    []float64
		wantErr bool
	}{
		{"99,36", 2, []float64{99, 36}, false},
		{"0,0,154.5,116", 4, []float64{0, 0, 154.5, 116}, false},
		{"27,80.5!", 2, []float64{27, 80.5}, false},
		{"-3.5, 1e2", 2, []float64{-3.5, 100}, false},
		{"1,2,3", 2, nil, true},
		{"a,b", 2, nil, true},
		{"", 2, nil, true},
	}
	for _, tt := range tests {
		got, err := parseFloats(tt.in, tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFloats(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("parseFloats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
