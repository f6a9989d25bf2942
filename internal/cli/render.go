package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/config"
	"github.com/matzehuels/dagscope/pkg/core/render"
	"github.com/matzehuels/dagscope/pkg/engine"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	input       string   // payload file written by the compiler
	output      string   // output base path; extensions are appended per format
	formats     []string // export formats: "svg", "dot", "json"
	orientation string   // "LR" or "TB"; empty uses the configured default
	expandAll   bool     // expand every container before exporting
	detailed    bool     // include kind and module in node labels
	layout      bool     // also write the computed layout as <base>.layout.json
	noCache     bool     // bypass the export cache
}

// renderResult describes what one render produced.
type renderResult struct {
	Files  []string
	Nodes  int
	Edges  int
	Cached bool // every export came from the cache
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Export a compiler payload as SVG, DOT or scene JSON",
		Long: `Render reads a compiler payload, rewrites it (module grouping, raw
elision, validator attachment) and exports the visible graph.

Validated modules start collapsed; pass --expand-all to show everything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.input = args[0]
			opts.formats = parseFormats(formatsStr)
			return c.runRender(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: input path without extension)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output formats: svg, dot, json (comma-separated, default svg)")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "", "layout orientation: LR or TB")
	cmd.Flags().BoolVar(&opts.expandAll, "expand-all", false, "expand every container")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node kind and module in labels")
	cmd.Flags().BoolVar(&opts.layout, "layout", false, "also write node positions as <output>.layout.json")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the export cache")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts renderOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	ch, keyer, err := c.openCache(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer ch.Close()

	prog := newProgress(c.Logger)
	res, err := c.renderFile(withLogger(ctx, c.Logger), cfg, ch, keyer, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %s", filepath.Base(opts.input)))

	for _, f := range res.Files {
		printFile(f)
	}
	printStats(res.Nodes, res.Edges, res.Cached)
	return nil
}

// renderFile runs one payload through a fresh engine and writes every
// requested format. Exports are looked up in ch first, keyed by the hash of
// the rewritten snapshot, so re-rendering an unchanged payload is cheap.
func (c *CLI) renderFile(ctx context.Context, cfg config.Config, ch cache.Cache, keyer cache.Keyer, opts renderOpts) (renderResult, error) {
	logger := loggerFromContext(ctx)
	for _, f := range opts.formats {
		if !slices.Contains(render.Formats, f) {
			return renderResult{}, usageError("unsupported format %q (want %s)", f, strings.Join(render.Formats, ", "))
		}
	}
	o, err := orientation(opts.orientation, cfg)
	if err != nil {
		return renderResult{}, err
	}

	p, err := graph.ReadPayloadFile(opts.input)
	if err != nil {
		return renderResult{}, err
	}

	detailed := opts.detailed || cfg.Render.Detailed
	r := c.newRenderer(cfg, detailed)
	defer r.Close()
	e := c.newEngine(o, r)
	defer e.Close()

	reply, err := e.Handle(ctx, engine.Update{Payload: p})
	if err != nil {
		return renderResult{}, err
	}
	printRewrite(reply.Result)
	seq := reply.LayoutSeq

	if opts.expandAll {
		reply, err := e.Handle(ctx, engine.ExpandAll{})
		if err != nil {
			return renderResult{}, err
		}
		if reply.LayoutSeq != 0 {
			seq = reply.LayoutSeq
		}
	}

	base := opts.output
	if base == "" {
		base = strings.TrimSuffix(opts.input, filepath.Ext(opts.input))
	}

	hash, o := e.SnapshotHash()
	scene := e.Scene()

	res := renderResult{Nodes: len(scene.Nodes), Edges: len(scene.Edges), Cached: true}
	for _, format := range opts.formats {
		key := keyer.ExportKey(hash, cache.ExportKeyOpts{Format: format, Orientation: string(o), Detailed: detailed})
		content, ok, err := ch.Get(ctx, key)
		if err != nil {
			logger.Warn("export cache read failed", "error", err)
		}
		if !ok {
			res.Cached = false
			reply, err := e.Handle(ctx, engine.Save{Format: format})
			if err != nil {
				return renderResult{}, err
			}
			content = reply.Content
			if err := ch.Set(ctx, key, content, 0); err != nil {
				logger.Warn("export cache write failed", "error", err)
			}
		}

		path := outputPath(base, format)
		if err := writeFile(path, content); err != nil {
			return renderResult{}, err
		}
		res.Files = append(res.Files, path)
	}

	if opts.layout {
		if err := e.WaitLayout(ctx, seq); err != nil {
			return renderResult{}, err
		}
		l, ok := e.Layout()
		if !ok {
			return renderResult{}, fmt.Errorf("layout: no result for %s", opts.input)
		}
		path := base + ".layout.json"
		if err := graph.WriteLayoutFile(l, path); err != nil {
			return renderResult{}, err
		}
		res.Files = append(res.Files, path)
	}
	return res, nil
}

// outputPath derives the file for one format. JSON exports get a ".scene"
// infix so they never overwrite the payload they were rendered from.
func outputPath(base, format string) string {
	if format == render.FormatJSON {
		return base + ".scene.json"
	}
	return base + "." + format
}

func writeFile(path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, content, 0o644)
}
