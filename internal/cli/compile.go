package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/compiler"
	"github.com/matzehuels/dagscope/pkg/graph"
)

const defaultPayloadFile = "dagscope.json"

type compileOpts struct {
	modules    []string
	upstream   []string
	downstream []string
	output     string
	render     string // formats to render after compiling, empty for none
}

// compileCommand creates the compile command, which asks the compiler server
// for a fresh payload and stores it on disk.
func (c *CLI) compileCommand() *cobra.Command {
	var opts compileOpts

	cmd := &cobra.Command{
		Use:   "compile [module...]",
		Short: "Compile modules into a payload via the compiler server",
		Long: `Compile sends the given module files to the compiler server and writes
the returned graph payload to disk.

Without arguments the modules selected with "dagscope modules select" are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.modules = args
			return c.runCompile(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", defaultPayloadFile, "payload output path")
	cmd.Flags().StringSliceVar(&opts.upstream, "upstream", nil, "limit the graph to these nodes and their upstream")
	cmd.Flags().StringSliceVar(&opts.downstream, "downstream", nil, "limit the graph to these nodes and their downstream")
	cmd.Flags().StringVar(&opts.render, "render", "", "also render the payload in these formats (e.g. svg,dot)")

	return cmd
}

func (c *CLI) runCompile(ctx context.Context, opts compileOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	ch, keyer, err := c.openCache(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer ch.Close()

	paths := opts.modules
	if len(paths) == 0 {
		mods := cache.NewModules(ch, keyer, workspace(cfg))
		if paths, err = mods.SelectedPaths(ctx); err != nil {
			return err
		}
		if len(paths) == 0 {
			printWarning("No modules given and none selected")
			printNextStep("Select modules with", appName+" modules select <file>...")
			return nil
		}
	}
	paths = absPaths(paths)

	client := c.newCompiler(cfg)
	defer client.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Compiling %d modules...", len(paths)))
	spinner.Start()
	p, err := client.Compile(ctx, compiler.CompileRequest{
		ModuleFilePaths: paths,
		UpstreamNodes:   opts.upstream,
		DownstreamNodes: opts.downstream,
	})
	if err != nil {
		spinner.StopWithError("Compile failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Compiled %d modules", len(paths)))

	if err := graph.WritePayloadFile(opts.output, p); err != nil {
		return err
	}
	printFile(opts.output)
	printDetail("%d nodes · %d edges", len(p.Elements.Nodes), len(p.Elements.Edges))

	if opts.render == "" {
		printNextStep("Render it with", appName+" render "+opts.output)
		return nil
	}
	res, err := c.renderFile(withLogger(ctx, c.Logger), cfg, ch, keyer, renderOpts{
		input:   opts.output,
		formats: parseFormats(opts.render),
	})
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		printFile(f)
	}
	printStats(res.Nodes, res.Edges, res.Cached)
	return nil
}

// absPaths makes module paths absolute; the compiler server resolves them
// from its own working directory.
func absPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out[i] = p
	}
	return out
}
