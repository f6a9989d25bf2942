package query

import (
	"slices"
	"sort"
	"testing"

	"github.com/matzehuels/dagscope/pkg/core/dag"
)

// diamond builds a → b → d, a → c → d, plus an unrelated x → y and a module
// group m holding b and c.
func diamond(t *testing.T) *dag.DAG {
	t.Helper()
	g := dag.New()
	for _, id := range []string{"m", "a", "b", "c", "d", "x", "y"} {
		if err := g.AddNode(dag.Node{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	_ = g.Reparent("b", "m")
	_ = g.Reparent("c", "m")
	for _, e := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}, {"x", "y"}} {
		if err := g.AddEdge(dag.Edge{ID: dag.EdgeID(e[0], e[1]), From: e[0], To: e[1]}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	sort.Strings(out)
	return out
}

func TestReachability(t *testing.T) {
	g := diamond(t)

	tests := []struct {
		name string
		fn   func(*dag.DAG, string) []string
		id   string
		want []string
	}{
		{"DescendantsOfRoot", Descendants, "a", []string{"b", "c", "d"}},
		{"DescendantsOfLeaf", Descendants, "d", nil},
		{"AncestorsOfLeaf", Ancestors, "d", []string{"a", "b", "c"}},
		{"AncestorsOfMiddle", Ancestors, "b", []string{"a"}},
		{"HierarchyIgnored", Descendants, "m", nil},
		{"Unknown", Ancestors, "ghost", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sorted(tt.fn(g, tt.id)); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReachabilityCycle(t *testing.T) {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "a"})
	_ = g.AddNode(dag.Node{ID: "b"})
	_ = g.AddEdge(dag.Edge{ID: "ab", From: "a", To: "b"})
	_ = g.AddEdge(dag.Edge{ID: "ba", From: "b", To: "a"})

	if got := Descendants(g, "a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Descendants(a) = %v, want [b]", got)
	}
}

func TestSelect(t *testing.T) {
	g := diamond(t)

	hs, ok := Select(g, "b")
	if !ok {
		t.Fatal("Select(b) = false")
	}
	wantEdges := []string{"a->b", "b->d"}
	if got := sorted(hs.Edges); !slices.Equal(got, wantEdges) {
		t.Errorf("highlighted edges = %v, want %v", got, wantEdges)
	}
	for _, e := range g.Edges() {
		want := slices.Contains(wantEdges, e.ID)
		if e.Flags.Has(dag.FlagHighlighted) != want {
			t.Errorf("edge %s highlighted = %v, want %v", e.ID, !want, want)
		}
	}
	for _, id := range []string{"a", "b", "d"} {
		if n, _ := g.Node(id); !n.Flags.Has(dag.FlagHighlighted) {
			t.Errorf("node %s not highlighted", id)
		}
	}
	if n, _ := g.Node("c"); n.Flags.Has(dag.FlagHighlighted) {
		t.Error("c is not on a path through b")
	}
	if sel, ok := Selected(g); !ok || sel != "b" {
		t.Errorf("Selected() = %q, %v, want b", sel, ok)
	}

	// Reselecting moves the selection.
	Select(g, "a")
	if n, _ := g.Node("b"); n.Flags.Has(dag.FlagSelected) {
		t.Error("b still selected after selecting a")
	}
	if e, _ := g.Edge("c->d"); !e.Flags.Has(dag.FlagHighlighted) {
		t.Error("c->d should be highlighted from a")
	}

	Unselect(g)
	for _, e := range g.Edges() {
		if e.Flags.Has(dag.FlagHighlighted) {
			t.Errorf("edge %s still highlighted", e.ID)
		}
	}
	for _, n := range g.Nodes() {
		if n.Flags.Has(dag.FlagHighlighted | dag.FlagSelected) {
			t.Errorf("node %s still flagged", n.ID)
		}
	}
	if _, ok := Selected(g); ok {
		t.Error("Selected() after Unselect should be empty")
	}

	if _, ok := Select(g, "ghost"); ok {
		t.Error("Select(ghost) = true")
	}
}

func TestCollapsedDescendants(t *testing.T) {
	g := diamond(t)
	_ = g.AddNode(dag.Node{ID: "v", Parent: "b"})

	got := CollapsedDescendants(g, "m")
	if want := []string{"b", "v", "c"}; !slices.Equal(got, want) {
		t.Errorf("CollapsedDescendants(m) = %v, want %v", got, want)
	}
	if got := CollapsedDescendants(g, "d"); len(got) != 0 {
		t.Errorf("CollapsedDescendants(d) = %v, want empty", got)
	}
}
