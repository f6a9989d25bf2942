package nodelink

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	"github.com/matzehuels/dagscope/pkg/core/fold"
	"github.com/matzehuels/dagscope/pkg/core/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes node kind and metadata in node labels.
	// When false, only the display label is shown.
	Detailed bool
}

// Colors used for visual flags.
const (
	colorHighlight = "#e4572e"
	colorSelected  = "#cfe8ff"
	colorValidated = "#2a9d8f"
	colorValidator = "#f4f4f4"
	colorModule    = "#f7f7fb"
)

// ToDOT converts a scene to Graphviz DOT format.
// The resulting DOT string can be rendered with [RenderSVG] or laid out with [Layout].
//
// Expanded module groups become clusters labelled "Module: <name>". An
// expanded node that hosts children (validation results) becomes an
// unlabelled cluster holding the node and its children. Collapsed
// containers are drawn as single nodes. Validator edges are invisible and
// merged meta edges are dashed.
func ToDOT(s render.Scene, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir(s.Orientation))
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	byID := make(map[string]dag.Node, len(s.Nodes))
	for _, n := range s.Nodes {
		byID[n.ID] = n
	}
	w := &dotWriter{buf: &buf, scene: s, nodes: byID, opts: opts}
	w.children("", 1)

	buf.WriteString("\n")
	for _, e := range s.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(edgeAttrs(e), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func rankdir(o render.Orientation) string {
	if o.Valid() {
		return o.String()
	}
	return render.DefaultOrientation.String()
}

type dotWriter struct {
	buf   *bytes.Buffer
	scene render.Scene
	nodes map[string]dag.Node
	opts  Options
}

func (w *dotWriter) children(parent string, depth int) {
	for _, id := range w.scene.Children(parent) {
		w.element(w.nodes[id], depth)
	}
}

func (w *dotWriter) element(n dag.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	kids := w.scene.Children(n.ID)
	if len(kids) == 0 || n.Flags.Has(dag.FlagCollapsed) {
		fmt.Fprintf(w.buf, "%s%q [%s];\n", indent, n.ID, strings.Join(w.nodeAttrs(n), ", "))
		return
	}

	fmt.Fprintf(w.buf, "%ssubgraph %q {\n", indent, "cluster_"+n.ID)
	inner := indent + "  "
	if n.IsModuleGroup() {
		fmt.Fprintf(w.buf, "%slabel=%q;\n", inner, moduleLabel(n))
		fmt.Fprintf(w.buf, "%sstyle=\"rounded,filled\";\n", inner)
		fmt.Fprintf(w.buf, "%sfillcolor=%q;\n", inner, colorModule)
	} else {
		fmt.Fprintf(w.buf, "%slabel=\"\";\n", inner)
		fmt.Fprintf(w.buf, "%sstyle=\"rounded,dashed\";\n", inner)
		fmt.Fprintf(w.buf, "%s%q [%s];\n", inner, n.ID, strings.Join(w.nodeAttrs(n), ", "))
	}
	if n.Flags.Has(dag.FlagValidated) {
		fmt.Fprintf(w.buf, "%scolor=%q;\n", inner, colorValidated)
	}
	w.children(n.ID, depth+1)
	fmt.Fprintf(w.buf, "%s}\n", indent)
}

func (w *dotWriter) nodeAttrs(n dag.Node) []string {
	attrs := []string{
		fmt.Sprintf("id=%q", n.ID),
		fmt.Sprintf("label=%q", fmtLabel(n, w.opts.Detailed)),
	}
	switch {
	case n.IsModuleGroup():
		attrs = append(attrs, "shape=folder", fmt.Sprintf("fillcolor=%q", colorModule))
	case n.IsValidationResult():
		attrs = append(attrs, "shape=note", "fontsize=10", fmt.Sprintf("fillcolor=%q", colorValidator))
	}
	if n.Flags.Has(dag.FlagCollapsed) {
		attrs = append(attrs, "peripheries=2")
	}
	if n.Flags.Has(dag.FlagValidated) {
		attrs = append(attrs, fmt.Sprintf("color=%q", colorValidated))
	}
	if n.Flags.Has(dag.FlagSelected) {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", colorSelected))
	}
	if n.Flags.Has(dag.FlagHighlighted) {
		attrs = append(attrs, fmt.Sprintf("color=%q", colorHighlight), "penwidth=2")
	}
	return attrs
}

func edgeAttrs(e dag.Edge) []string {
	attrs := []string{fmt.Sprintf("id=%q", e.ID)}
	if e.Flags.Has(dag.FlagValidator) {
		attrs = append(attrs, "style=invis")
	} else if strings.HasPrefix(e.ID, fold.MetaEdgePrefix) {
		attrs = append(attrs, "style=dashed")
	}
	if e.Flags.Has(dag.FlagHighlighted) {
		attrs = append(attrs, fmt.Sprintf("color=%q", colorHighlight), "penwidth=2")
	}
	return attrs
}

func fmtLabel(n dag.Node, detailed bool) string {
	label := displayLabel(n)
	if !detailed {
		return label
	}

	parts := []string{"kind: " + n.Kind.String()}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// displayLabel shortens validator labels by their parent's name and prefixes
// module groups.
func displayLabel(n dag.Node) string {
	switch {
	case n.IsModuleGroup():
		return moduleLabel(n)
	case n.IsValidationResult() && n.Parent != "":
		if short := strings.TrimPrefix(n.DisplayLabel(), n.Parent+"_"); short != "" {
			return short
		}
	}
	return n.DisplayLabel()
}

func moduleLabel(n dag.Node) string { return "Module: " + n.DisplayLabel() }
