package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dagscope/pkg/engine"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// browseCommand creates the browse command, an interactive terminal view of
// a payload after rewrite.
func (c *CLI) browseCommand() *cobra.Command {
	var orient string

	cmd := &cobra.Command{
		Use:   "browse [file]",
		Short: "Fold, select and rotate a graph in the terminal",
		Long: `Browse rewrites the payload and shows it as a tree.

Keys: enter folds the container under the cursor, s selects a node and
highlights its ancestors and descendants, u clears the selection, r rotates
the layout, e expands everything and c resets the fold.

Resetting the fold collapses validated nodes and expands everything else,
the same fold a fresh payload starts with. On a graph without validation
results it changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), args[0], orient)
		},
	}

	cmd.Flags().StringVar(&orient, "orientation", "", "initial orientation: LR or TB")

	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, path, orient string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	o, err := orientation(orient, cfg)
	if err != nil {
		return err
	}
	p, err := graph.ReadPayloadFile(path)
	if err != nil {
		return err
	}

	// The browser never lays out or exports, so the engine runs bare. Its
	// logs would draw over the alternate screen.
	e := engine.New(engine.Options{Orientation: o, Logger: log.New(io.Discard)})
	defer e.Close()

	reply, err := e.Handle(ctx, engine.Update{Payload: p})
	if err != nil {
		return err
	}
	printDiagnostics(reply.Diagnostics)

	if _, err := tea.NewProgram(NewBrowseModel(ctx, e), tea.WithContext(ctx), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	return nil
}
