package nodelink

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dagscope/pkg/core/render"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// Renderer lays out and exports scenes with Graphviz. It keeps one Graphviz
// instance alive between calls and is safe for concurrent use.
//
// Renderer satisfies both the engine's layout and export interfaces.
type Renderer struct {
	opts   Options
	logger *log.Logger
	rt     runtime
}

// NewRenderer creates a Renderer. A nil logger uses log.Default().
func NewRenderer(opts Options, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{opts: opts, logger: logger}
}

// Layout computes node positions for the scene in its orientation.
func (r *Renderer) Layout(ctx context.Context, s render.Scene) (render.Positions, error) {
	if s.Empty() {
		return render.Positions{Orientation: s.Orientation, Nodes: map[string]render.Point{}}, nil
	}
	p, err := r.rt.layout(ctx, ToDOT(s, r.opts), s.Orientation)
	if err != nil {
		return render.Positions{}, derrors.Wrap(derrors.ErrCodeInternal, err, "layout")
	}
	r.logger.Debug("layout complete", "nodes", len(p.Nodes), "orientation", s.Orientation)
	return p, nil
}

// Export draws the scene in the requested format and returns the content
// verbatim. Supported formats are listed in [render.Formats]; anything else
// is an UNSUPPORTED_FORMAT error.
func (r *Renderer) Export(ctx context.Context, s render.Scene, format string) ([]byte, error) {
	switch format {
	case render.FormatSVG:
		out, err := r.rt.render(ctx, ToDOT(s, r.opts), graphviz.SVG)
		if err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInternal, err, "export svg")
		}
		return normalizeViewBox(out), nil
	case render.FormatDOT:
		return []byte(ToDOT(s, r.opts)), nil
	case render.FormatJSON:
		g, err := s.Graph()
		if err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInternal, err, "export json")
		}
		return json.MarshalIndent(g, "", "  ")
	default:
		return nil, derrors.New(derrors.ErrCodeUnsupportedFormat, "unsupported export format %q (supported: svg, dot, json)", format)
	}
}

// Close releases the Graphviz instance.
func (r *Renderer) Close() error { return r.rt.close() }
