package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dagscope/pkg/watch"
)

// watchCommand creates the watch command, which re-renders a payload every
// time the compiler rewrites it.
func (c *CLI) watchCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-render a payload whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.input = args[0]
			opts.formats = parseFormats(formatsStr)
			return c.runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: input path without extension)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output formats: svg, dot, json (comma-separated, default svg)")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "", "layout orientation: LR or TB")
	cmd.Flags().BoolVar(&opts.expandAll, "expand-all", false, "expand every container")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node kind and module in labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the export cache")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, opts renderOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	ch, keyer, err := c.openCache(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer ch.Close()
	ctx = withLogger(ctx, c.Logger)

	renderOnce := func() {
		prog := newProgress(c.Logger)
		res, err := c.renderFile(ctx, cfg, ch, keyer, opts)
		if err != nil {
			printError("%v", err)
			return
		}
		prog.done(fmt.Sprintf("Rendered %d files", len(res.Files)))
		printStats(res.Nodes, res.Edges, res.Cached)
	}
	renderOnce()

	w, err := watch.New([]string{opts.input}, func(ctx context.Context, changes []watch.Change) {
		if payloadChanged(changes) {
			renderOnce()
		}
	}, watch.Options{Debounce: cfg.Watch.Debounce.Duration, Logger: c.Logger})
	if err != nil {
		return err
	}
	defer w.Close()

	printInfo("Watching %s", StyleHighlight.Render(opts.input))
	printDetail("Press Ctrl+C to stop")
	return w.Run(ctx)
}

// payloadChanged reports whether a batch left the file with new content.
// A lone remove is the first half of an atomic replace and is ignored.
func payloadChanged(changes []watch.Change) bool {
	for _, ch := range changes {
		if ch.Op == watch.OpCreate || ch.Op == watch.OpWrite {
			return true
		}
	}
	return false
}
