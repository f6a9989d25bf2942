package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dagscope/pkg/core/render"
)

// runtime lazily instantiates one Graphviz instance and serializes access to it.
type runtime struct {
	mu sync.Mutex
	gv *graphviz.Graphviz
}

// instance returns the Graphviz instance, creating it on first use. The
// caller must hold r.mu.
func (r *runtime) instance(ctx context.Context) (*graphviz.Graphviz, error) {
	if r.gv == nil {
		gv, err := graphviz.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("init graphviz: %w", err)
		}
		r.gv = gv
	}
	return r.gv, nil
}

func (r *runtime) render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gv, err := r.instance(ctx)
	if err != nil {
		return nil, err
	}
	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// layout runs the dot layout and reads the computed pos and bb attributes
// back from the graph.
func (r *runtime) layout(ctx context.Context, dot string, o render.Orientation) (render.Positions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gv, err := r.instance(ctx)
	if err != nil {
		return render.Positions{}, err
	}
	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return render.Positions{}, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	// Rendering attaches the layout attributes to the graph.
	if err := gv.Render(ctx, g, graphviz.XDOT, io.Discard); err != nil {
		return render.Positions{}, fmt.Errorf("render: %w", err)
	}
	return positions(g, o)
}

func (r *runtime) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gv == nil {
		return nil
	}
	err := r.gv.Close()
	r.gv = nil
	return err
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	var r runtime
	defer r.close()
	svg, err := r.render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(svg), nil
}

// Layout runs the Graphviz dot layout on a DOT graph and returns the
// position of every node.
func Layout(ctx context.Context, dot string, o render.Orientation) (render.Positions, error) {
	var r runtime
	defer r.close()
	return r.layout(ctx, dot, o)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// positions collects node centers and the bounding box from a laid out graph.
func positions(g *graphviz.Graph, o render.Orientation) (render.Positions, error) {
	p := render.Positions{Orientation: o, Nodes: make(map[string]render.Point)}

	if bb := g.GetStr("bb"); bb != "" {
		v, err := parseFloats(bb, 4)
		if err != nil {
			return render.Positions{}, fmt.Errorf("parse bb: %w", err)
		}
		p.Width, p.Height = v[2]-v[0], v[3]-v[1]
	}

	n, err := g.FirstNode()
	for ; err == nil && n != nil; n, err = g.NextNode(n) {
		id, err := n.Name()
		if err != nil {
			return render.Positions{}, fmt.Errorf("node name: %w", err)
		}
		pos := n.GetStr("pos")
		if pos == "" {
			continue
		}
		v, err := parseFloats(pos, 2)
		if err != nil {
			return render.Positions{}, fmt.Errorf("parse pos of %s: %w", id, err)
		}
		p.Nodes[id] = render.Point{X: v[0], Y: v[1]}
	}
	if err != nil {
		return render.Positions{}, fmt.Errorf("walk nodes: %w", err)
	}
	return p, nil
}

// parseFloats parses a comma separated list of exactly n numbers. A trailing
// "!" (pinned position) is ignored.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(strings.TrimSuffix(s, "!"), ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d values, got %q", n, s)
	}
	out := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
