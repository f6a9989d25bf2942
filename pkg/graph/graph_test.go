package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantErr   bool
		wantNodes int
		wantEdges int
		check     func(t *testing.T, p Payload)
	}{
		{
			name:      "Flat",
			data:      `{"elements":{"nodes":[{"id":"f","module":"m"},{"id":"f_raw","module":"m"}],"edges":[{"id":"e1","source":"x","target":"f_raw"}]},"directed":true}`,
			wantNodes: 2,
			wantEdges: 1,
			check: func(t *testing.T, p Payload) {
				if !p.Directed {
					t.Error("Directed = false, want true")
				}
				if p.Elements.Nodes[0].Module != "m" {
					t.Errorf("Module = %q, want m", p.Elements.Nodes[0].Module)
				}
				if !p.Elements.Nodes[1].IsRaw() {
					t.Error("f_raw should be raw")
				}
				if p.Elements.Edges[0].ID != "e1" {
					t.Errorf("edge ID = %q, want e1", p.Elements.Edges[0].ID)
				}
			},
		},
		{
			name:      "CytoscapeWrapped",
			data:      `{"elements":{"nodes":[{"data":{"id":"v","name":"f_check","type":"ValidationResult","hamilton.data_quality.source_node":"f","doc":"checks f"}}],"edges":[{"data":{"source":"f","target":"v"}}]}}`,
			wantNodes: 1,
			wantEdges: 1,
			check: func(t *testing.T, p Payload) {
				n := p.Elements.Nodes[0]
				if !n.IsValidationResult() {
					t.Error("IsValidationResult() = false, want true")
				}
				if n.Label != "f_check" {
					t.Errorf("Label = %q, want f_check", n.Label)
				}
				if n.SourceNode != "f" {
					t.Errorf("SourceNode = %q, want f", n.SourceNode)
				}
				if n.Attrs["doc"] != "checks f" {
					t.Errorf("Attrs[doc] = %v, want pass-through", n.Attrs["doc"])
				}
				if p.Elements.Edges[0].ID != "f->v" {
					t.Errorf("edge ID = %q, want f->v", p.Elements.Edges[0].ID)
				}
			},
		},
		{
			name:      "SourceNodeShortKey",
			data:      `{"elements":{"nodes":[{"id":"v","type":"ValidationResult","source_node":"f"}]}}`,
			wantNodes: 1,
			check: func(t *testing.T, p Payload) {
				if p.Elements.Nodes[0].SourceNode != "f" {
					t.Errorf("SourceNode = %q, want f", p.Elements.Nodes[0].SourceNode)
				}
			},
		},
		{
			name:      "EmptyNodes",
			data:      `{"elements":{"nodes":[],"edges":[]}}`,
			wantNodes: 0,
			check: func(t *testing.T, p Payload) {
				if !p.Elements.Empty() {
					t.Error("Empty() = false, want true")
				}
			},
		},
		{name: "NotJSON", data: `{elements`, wantErr: true},
		{name: "MissingElements", data: `{"directed":true}`, wantErr: true},
		{name: "NodeWithoutID", data: `{"elements":{"nodes":[{"label":"f"}]}}`, wantErr: true},
		{name: "NumericID", data: `{"elements":{"nodes":[{"id":7}]}}`, wantErr: true},
		{name: "NodeNotObject", data: `{"elements":{"nodes":["f"]}}`, wantErr: true},
		{name: "EdgeWithoutTarget", data: `{"elements":{"nodes":[{"id":"f"}],"edges":[{"source":"f"}]}}`, wantErr: true},
		{name: "EdgeNumericID", data: `{"elements":{"nodes":[{"id":"f"}],"edges":[{"id":1,"source":"f","target":"f"}]}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload([]byte(tt.data))
			if tt.wantErr {
				if !derrors.Is(err, derrors.ErrCodeMalformedPayload) {
					t.Fatalf("DecodePayload() error = %v, want MALFORMED_PAYLOAD", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if len(p.Elements.Nodes) != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", len(p.Elements.Nodes), tt.wantNodes)
			}
			if len(p.Elements.Edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(p.Elements.Edges), tt.wantEdges)
			}
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestFillEdgeIDs(t *testing.T) {
	edges := []ElementEdge{
		{Source: "a", Target: "b"},
		{ID: "a->b#2", Source: "x", Target: "y"},
		{Source: "a", Target: "b"},
		{ID: "keep", Source: "a", Target: "c"},
	}
	FillEdgeIDs(edges)

	want := []string{"a->b", "a->b#2", "a->b#3", "keep"}
	for i, e := range edges {
		if e.ID != want[i] {
			t.Errorf("edges[%d].ID = %q, want %q", i, e.ID, want[i])
		}
	}

	again := []ElementEdge{{Source: "a", Target: "b"}, {Source: "a", Target: "b"}}
	FillEdgeIDs(again)
	if again[0].ID != "a->b" || again[1].ID != "a->b#2" {
		t.Errorf("FillEdgeIDs() not deterministic: %q, %q", again[0].ID, again[1].ID)
	}
}

func TestFromDAG(t *testing.T) {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "m", Label: "m", Kind: dag.KindModuleGroup, Flags: dag.FlagValidated | dag.FlagCollapsed})
	_ = g.AddNode(dag.Node{ID: "f", Module: "m", Parent: "m", Meta: dag.Metadata{"doc": "step"}})
	_ = g.AddNode(dag.Node{ID: "v", Kind: dag.KindValidationResult, SourceRef: "f", Parent: "f", Flags: dag.FlagValidator})
	_ = g.AddEdge(dag.Edge{ID: "f->v", From: "f", To: "v", Flags: dag.FlagValidator})

	out := FromDAG(g)
	if len(out.Nodes) != 3 || len(out.Edges) != 1 {
		t.Fatalf("FromDAG() = %d nodes, %d edges, want 3, 1", len(out.Nodes), len(out.Edges))
	}

	m := out.Nodes[0]
	if m.Kind != "module" {
		t.Errorf("m.Kind = %q, want module", m.Kind)
	}
	if m.Label != "" {
		t.Errorf("m.Label = %q, want omitted when equal to ID", m.Label)
	}
	if !m.HasFlag("validated") || !m.HasFlag("collapsed") {
		t.Errorf("m.Flags = %v, want validated and collapsed", m.Flags)
	}
	if f := out.Nodes[1]; f.Parent != "m" || f.Meta["doc"] != "step" {
		t.Errorf("f = %+v, want parent m with meta", f)
	}
	if v := out.Nodes[2]; v.Kind != "validation_result" || v.SourceRef != "f" {
		t.Errorf("v = %+v", v)
	}
	if !out.Edges[0].HasFlag("validator") {
		t.Errorf("edge flags = %v, want validator", out.Edges[0].Flags)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "m", Kind: dag.KindModuleGroup})
	_ = g.AddNode(dag.Node{ID: "a", Parent: "m", Flags: dag.FlagSelected})
	_ = g.AddNode(dag.Node{ID: "b", Parent: "m"})
	_ = g.AddEdge(dag.Edge{ID: "a->b", From: "a", To: "b", Flags: dag.FlagHighlighted})

	var buf bytes.Buffer
	if err := WriteGraph(FromDAG(g), &buf); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	back, err := ReadGraph(&buf)
	if err != nil {
		t.Fatalf("ReadGraph() error = %v", err)
	}

	if back.NodeCount() != 3 || back.EdgeCount() != 1 {
		t.Fatalf("round trip = %d nodes, %d edges", back.NodeCount(), back.EdgeCount())
	}
	if a, _ := back.Node("a"); a.Parent != "m" || !a.Flags.Has(dag.FlagSelected) {
		t.Errorf("a = %+v, want parent m and selected", a)
	}
	if e, _ := back.Edge("a->b"); !e.Flags.Has(dag.FlagHighlighted) {
		t.Errorf("edge flags = %v, want highlighted", e.Flags)
	}
}

func TestReadPayloadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	data := `{"elements":{"nodes":[{"data":{"id":"a"}},{"data":{"id":"b"}}],"edges":[{"data":{"source":"a","target":"b"}}]}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := ReadPayloadFile(path)
	if err != nil {
		t.Fatalf("ReadPayloadFile() error = %v", err)
	}
	if len(p.Elements.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(p.Elements.Nodes))
	}

	_, err = ReadPayloadFile(filepath.Join(dir, "missing.json"))
	if !derrors.Is(err, derrors.ErrCodeFileNotFound) {
		t.Errorf("ReadPayloadFile(missing) error = %v, want FILE_NOT_FOUND", err)
	}

	_, err = ReadPayload(strings.NewReader(`[]`))
	if !derrors.Is(err, derrors.ErrCodeMalformedPayload) {
		t.Errorf("ReadPayload([]) error = %v, want MALFORMED_PAYLOAD", err)
	}
}

func TestLayout(t *testing.T) {
	l := Layout{
		Orientation: "LR",
		Engine:      "dot",
		Nodes:       []Placement{{ID: "a", X: 10, Y: 20}},
	}
	data, err := MarshalLayout(l)
	if err != nil {
		t.Fatalf("MarshalLayout() error = %v", err)
	}
	back, err := UnmarshalLayout(data)
	if err != nil {
		t.Fatalf("UnmarshalLayout() error = %v", err)
	}
	if p, ok := back.Find("a"); !ok || p.X != 10 || p.Y != 20 {
		t.Errorf("Find(a) = %+v, %v", p, ok)
	}
	if _, ok := back.Find("b"); ok {
		t.Error("Find(b) should fail")
	}

	if _, err := UnmarshalLayout([]byte(`{"nodes":[]}`)); err == nil {
		t.Error("UnmarshalLayout() without orientation should fail")
	}
}

func TestWritePayloadFile(t *testing.T) {
	in := `{"directed":true,"elements":{
	  "nodes":[
	    {"data":{"id":"spend","name":"spend","module":"features","doc":"total spend","tags":{"stage":"prod"}}},
	    {"data":{"id":"spend_check","type":"ValidationResult","hamilton.data_quality.source_node":"spend"}}
	  ],
	  "edges":[{"data":{"source":"spend","target":"spend_check"}}]}}`
	want, err := DecodePayload([]byte(in))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "payload.json")
	if err := WritePayloadFile(path, want); err != nil {
		t.Fatalf("WritePayloadFile() error: %v", err)
	}
	got, err := ReadPayloadFile(path)
	if err != nil {
		t.Fatalf("ReadPayloadFile() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}
