package transform

import (
	"reflect"
	"slices"
	"testing"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
)

func node(id, module string) graph.ElementNode {
	return graph.ElementNode{ID: id, Module: module}
}

func validator(id, module, source string) graph.ElementNode {
	return graph.ElementNode{ID: id, Module: module, Type: graph.TypeValidationResult, SourceNode: source}
}

func edge(id, src, tgt string) graph.ElementEdge {
	return graph.ElementEdge{ID: id, Source: src, Target: tgt}
}

func mustNode(t *testing.T, g *dag.DAG, id string) *dag.Node {
	t.Helper()
	n, ok := g.Node(id)
	if !ok {
		t.Fatalf("node %q missing", id)
	}
	return n
}

func TestRewriteRawElision(t *testing.T) {
	el := graph.Elements{
		Nodes: []graph.ElementNode{node("x", ""), node("f", "m"), node("f_raw", "m")},
		Edges: []graph.ElementEdge{edge("e1", "x", "f_raw")},
	}

	g, result := Rewrite(el)
	if g == nil {
		t.Fatal("Rewrite() returned nil graph")
	}

	if _, ok := g.Node("f_raw"); ok {
		t.Error("f_raw still present")
	}
	if !g.HasEdge("x", "f") {
		t.Error("edge x→f missing")
	}
	if f := mustNode(t, g, "f"); f.Parent != "m" {
		t.Errorf("f.Parent = %q, want m", f.Parent)
	}
	if m := mustNode(t, g, "m"); !m.IsModuleGroup() || m.Label != "m" {
		t.Errorf("m = %+v, want module group labelled m", m)
	}
	if x := mustNode(t, g, "x"); x.Parent != "" {
		t.Errorf("x.Parent = %q, want root", x.Parent)
	}
	if result.RawElided != 1 || result.EdgesRewired != 1 || result.ModulesGrouped != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Diagnostics.Len() != 0 {
		t.Errorf("Diagnostics = %v, want none", result.Diagnostics)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestRewriteValidationAttachment(t *testing.T) {
	el := graph.Elements{
		Nodes: []graph.ElementNode{node("f", "m"), validator("v", "m", "f"), node("g", "m")},
		Edges: []graph.ElementEdge{edge("e1", "f", "v"), edge("e2", "f", "g")},
	}

	g, result := Rewrite(el)

	v := mustNode(t, g, "v")
	if v.Parent != "f" {
		t.Errorf("v.Parent = %q, want f", v.Parent)
	}
	if !v.Flags.Has(dag.FlagValidator) {
		t.Error("v missing validator flag")
	}
	if e, _ := g.Edge("e1"); !e.Flags.Has(dag.FlagValidator) {
		t.Error("edge f→v missing validator flag")
	}
	if e, _ := g.Edge("e2"); e.Flags.Has(dag.FlagValidator) {
		t.Error("edge f→g should not be a validator edge")
	}
	if m := mustNode(t, g, "m"); !m.Flags.Has(dag.FlagValidated) {
		t.Error("module group m missing validated flag")
	}
	if f := mustNode(t, g, "f"); f.Flags.Has(dag.FlagValidated) {
		t.Error("f should not carry validated when it has a container")
	}
	if result.ValidatorsAttached != 1 {
		t.Errorf("ValidatorsAttached = %d, want 1", result.ValidatorsAttached)
	}
}

func TestAttachValidatorsAtRoot(t *testing.T) {
	el := graph.Elements{
		Nodes: []graph.ElementNode{node("f", ""), validator("v", "", "f")},
	}
	g, _ := Rewrite(el)

	if v := mustNode(t, g, "v"); v.Parent != "f" {
		t.Errorf("v.Parent = %q, want f", v.Parent)
	}
	if f := mustNode(t, g, "f"); !f.Flags.Has(dag.FlagValidated) {
		t.Error("root-level f should carry validated itself")
	}
}

func TestRewriteDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		el    graph.Elements
		code  derrors.Code
		count int
		check func(t *testing.T, g *dag.DAG)
	}{
		{
			name: "DanglingEdge",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("a", ""), node("b", "")},
				Edges: []graph.ElementEdge{edge("e1", "a", "b"), edge("e2", "a", "ghost"), edge("e3", "ghost", "b")},
			},
			code:  derrors.ErrCodeDanglingReference,
			count: 2,
			check: func(t *testing.T, g *dag.DAG) {
				if g.EdgeCount() != 1 {
					t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
				}
			},
		},
		{
			name: "DuplicateNode",
			el: graph.Elements{
				Nodes: []graph.ElementNode{{ID: "a", Label: "first"}, {ID: "a", Label: "second"}},
			},
			code:  derrors.ErrCodeDuplicateID,
			count: 1,
			check: func(t *testing.T, g *dag.DAG) {
				if a := mustNode(t, g, "a"); a.Label != "first" {
					t.Errorf("a.Label = %q, want first", a.Label)
				}
			},
		},
		{
			name: "DuplicateEdge",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("a", ""), node("b", "")},
				Edges: []graph.ElementEdge{edge("e", "a", "b"), edge("e", "b", "a")},
			},
			code:  derrors.ErrCodeDuplicateID,
			count: 1,
		},
		{
			name: "UnknownSourceRef",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("f", "m"), validator("v", "m", "ghost")},
			},
			code:  derrors.ErrCodeDanglingReference,
			count: 1,
			check: func(t *testing.T, g *dag.DAG) {
				v := mustNode(t, g, "v")
				if v.Parent != "m" {
					t.Errorf("v.Parent = %q, want m", v.Parent)
				}
				if !v.Flags.Has(dag.FlagValidator) {
					t.Error("unattached v should still be a validator")
				}
			},
		},
		{
			name: "MissingSourceRef",
			el: graph.Elements{
				Nodes: []graph.ElementNode{validator("v", "", "")},
			},
			code:  derrors.ErrCodeDanglingReference,
			count: 1,
		},
		{
			name: "ModuleCollidesWithNode",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("m", ""), node("f", "m")},
			},
			code:  derrors.ErrCodeDuplicateID,
			count: 1,
			check: func(t *testing.T, g *dag.DAG) {
				if f := mustNode(t, g, "f"); f.Parent != "" {
					t.Errorf("f.Parent = %q, want root", f.Parent)
				}
			},
		},
		{
			name: "NestedRawSuffix",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("f", ""), node("f_raw", ""), node("f_raw_raw", "")},
				Edges: []graph.ElementEdge{edge("e1", "f_raw_raw", "f_raw")},
			},
			code:  derrors.ErrCodeDanglingReference,
			count: 1,
			check: func(t *testing.T, g *dag.DAG) {
				if _, ok := g.Node("f_raw"); ok {
					t.Error("f_raw should be elided")
				}
				n := mustNode(t, g, "f_raw_raw")
				if n.IsRaw() {
					t.Error("f_raw_raw should be left as an ordinary node")
				}
				if !g.HasEdge("f_raw_raw", "f") {
					t.Error("f_raw_raw should feed f after elision")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, result := Rewrite(tt.el)
			if got := result.Diagnostics.Count(tt.code); got != tt.count {
				t.Errorf("Count(%s) = %d, want %d (%v)", tt.code, got, tt.count, result.Diagnostics)
			}
			if err := g.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}

func TestElideRaw(t *testing.T) {
	tests := []struct {
		name        string
		el          graph.Elements
		wantEdges   [][2]string
		wantRewired int
	}{
		{
			name: "NoIncoming",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("f", ""), node("f_raw", "")},
				Edges: []graph.ElementEdge{edge("e1", "f_raw", "f")},
			},
			wantEdges:   nil,
			wantRewired: 0,
		},
		{
			name: "SkipsExistingPair",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("x", ""), node("f", ""), node("f_raw", "")},
				Edges: []graph.ElementEdge{edge("e1", "x", "f_raw"), edge("e2", "x", "f"), edge("e3", "f_raw", "f")},
			},
			wantEdges:   [][2]string{{"x", "f"}},
			wantRewired: 0,
		},
		{
			name: "ManyInputs",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("a", ""), node("b", ""), node("f", ""), node("f_raw", "")},
				Edges: []graph.ElementEdge{edge("e1", "a", "f_raw"), edge("e2", "b", "f_raw"), edge("e3", "f_raw", "f")},
			},
			wantEdges:   [][2]string{{"a", "f"}, {"b", "f"}},
			wantRewired: 2,
		},
		{
			name: "NoSelfLoop",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("f", ""), node("f_raw", "")},
				Edges: []graph.ElementEdge{edge("e1", "f", "f_raw")},
			},
			wantEdges:   nil,
			wantRewired: 0,
		},
		{
			name: "OrphanRawSuffixIsOrdinary",
			el: graph.Elements{
				Nodes: []graph.ElementNode{node("x", ""), node("data_raw", "")},
				Edges: []graph.ElementEdge{edge("e1", "x", "data_raw")},
			},
			wantEdges:   [][2]string{{"x", "data_raw"}},
			wantRewired: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags derrors.Diagnostics
			g := Ingest(tt.el, &diags)
			_, rewired := ElideRaw(g, &diags)

			if rewired != tt.wantRewired {
				t.Errorf("rewired = %d, want %d", rewired, tt.wantRewired)
			}
			var got [][2]string
			for _, e := range g.Edges() {
				got = append(got, [2]string{e.From, e.To})
			}
			if !slices.Equal(got, tt.wantEdges) {
				t.Errorf("edges = %v, want %v", got, tt.wantEdges)
			}
			for _, n := range g.Nodes() {
				if n.IsRaw() {
					t.Errorf("raw node %q survived", n.ID)
				}
			}
		})
	}
}

func TestElideRawRemovesUnclaimedRaw(t *testing.T) {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "v", Kind: dag.KindValidationResult})
	_ = g.AddNode(dag.Node{ID: "v_raw", Kind: dag.KindRaw})

	var diags derrors.Diagnostics
	elided, _ := ElideRaw(g, &diags)

	if elided != 1 {
		t.Errorf("elided = %d, want 1", elided)
	}
	if _, ok := g.Node("v_raw"); ok {
		t.Error("unclaimed raw node survived")
	}
	if !diags.Has(derrors.ErrCodeDanglingReference) {
		t.Error("expected DANGLING_REFERENCE diagnostic")
	}
}

func TestRewriteEmpty(t *testing.T) {
	g, result := Rewrite(graph.Elements{Edges: []graph.ElementEdge{edge("e", "a", "b")}})
	if g != nil {
		t.Errorf("Rewrite(empty) = %v, want nil", g)
	}
	if result == nil || result.Diagnostics.Len() != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestRewriteInvariants(t *testing.T) {
	el := graph.Elements{
		Nodes: []graph.ElementNode{
			node("load", "io"), node("load_raw", "io"),
			node("clean", "prep"), node("clean_raw", "prep"),
			validator("clean_ok", "prep", "clean"),
			validator("load_ok", "io", "load"),
			node("report", ""),
		},
		Edges: []graph.ElementEdge{
			edge("e1", "load_raw", "load"),
			edge("e2", "load", "clean_raw"),
			edge("e3", "clean_raw", "clean"),
			edge("e4", "clean", "clean_ok"),
			edge("e5", "load", "load_ok"),
			edge("e6", "clean", "report"),
		},
	}

	g, _ := Rewrite(el)
	for _, n := range g.Nodes() {
		if n.IsRaw() {
			t.Errorf("raw node %q survived", n.ID)
		}
		if n.IsValidationResult() && n.Parent != n.SourceRef {
			t.Errorf("%s.Parent = %q, want %q", n.ID, n.Parent, n.SourceRef)
		}
	}
	groups := 0
	for _, n := range g.Nodes() {
		if n.IsModuleGroup() {
			groups++
			if n.ID != n.Label {
				t.Errorf("group %q has label %q", n.ID, n.Label)
			}
		}
	}
	if groups != 2 {
		t.Errorf("module groups = %d, want 2", groups)
	}
	if !g.HasEdge("load", "clean") {
		t.Error("load→clean missing after elision")
	}

	again, _ := Rewrite(el)
	if !reflect.DeepEqual(graph.FromDAG(g), graph.FromDAG(again)) {
		t.Error("rewriting the same payload twice produced different snapshots")
	}
}

func TestGroupModulesIdempotent(t *testing.T) {
	var diags derrors.Diagnostics
	g := Ingest(graph.Elements{Nodes: []graph.ElementNode{node("a", "m"), node("b", "m")}}, &diags)

	if n := GroupModules(g, &diags); n != 1 {
		t.Errorf("GroupModules() = %d, want 1", n)
	}
	if n := GroupModules(g, &diags); n != 0 {
		t.Errorf("second GroupModules() = %d, want 0", n)
	}
	if got := g.Children("m"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Children(m) = %v, want [a b]", got)
	}
	if diags.Len() != 0 {
		t.Errorf("Diagnostics = %v", diags)
	}
}
