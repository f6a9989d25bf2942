package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dagscope/pkg/cache"
)

// modulesCommand creates the modules command group. The selection lives in
// the configured cache backend, keyed by workspace.
func (c *CLI) modulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Manage the module selection used by compile",
	}

	cmd.AddCommand(c.modulesListCommand())
	cmd.AddCommand(c.modulesEditCommand("select", "Register modules and include them in compiles", (*cache.Modules).Select))
	cmd.AddCommand(c.modulesEditCommand("unselect", "Register modules but leave them out of compiles", (*cache.Modules).Unselect))
	cmd.AddCommand(c.modulesEditCommand("remove", "Forget modules entirely", (*cache.Modules).Remove))
	cmd.AddCommand(c.modulesPickCommand())

	return cmd
}

// openModules opens the module selection of the current workspace. The
// returned close function releases the cache.
func (c *CLI) openModules(ctx context.Context) (*cache.Modules, func() error, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	ch, keyer, err := c.openCache(ctx, cfg, false)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewModules(ch, keyer, workspace(cfg)), ch.Close, nil
}

func (c *CLI) modulesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, closeFn, err := c.openModules(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			selected, unselected, err := mods.Partition(cmd.Context())
			if err != nil {
				return err
			}
			if len(selected)+len(unselected) == 0 {
				printInfo("No modules registered")
				return nil
			}
			for _, m := range selected {
				printKeyValue(StyleSuccess.Render(iconSuccess)+" "+m.Label, m.Path)
			}
			for _, m := range unselected {
				printKeyValue("  "+m.Label, StyleDim.Render(m.Path))
			}
			printDetail("%d of %d selected", len(selected), len(selected)+len(unselected))
			return nil
		},
	}
}

type modulesEditFunc func(m *cache.Modules, ctx context.Context, paths ...string) error

func (c *CLI) modulesEditCommand(use, short string, edit modulesEditFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, closeFn, err := c.openModules(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := edit(mods, cmd.Context(), absPaths(args)...); err != nil {
				return err
			}
			printSuccess("%s: %d modules", use, len(args))
			return nil
		},
	}
}

func (c *CLI) modulesPickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pick [file...]",
		Short: "Choose exactly which registered modules are selected",
		Long: `Pick selects the given modules and unselects every other registered one.

Without arguments an interactive picker over the registered modules opens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mods, closeFn, err := c.openModules(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if len(args) > 0 {
				if err := mods.Pick(ctx, absPaths(args)...); err != nil {
					return err
				}
				printSuccess("Picked %d modules", len(args))
				return nil
			}

			all, err := mods.List(ctx)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				printInfo("No modules registered")
				printNextStep("Register modules with", appName+" modules select <file>...")
				return nil
			}

			final, err := tea.NewProgram(NewPickModel(all), tea.WithContext(ctx)).Run()
			if err != nil {
				return fmt.Errorf("picker: %w", err)
			}
			m := final.(PickModel)
			if !m.Confirmed {
				printInfo("Selection unchanged")
				return nil
			}
			picked := m.Picked()
			if err := mods.Pick(ctx, picked...); err != nil {
				return err
			}
			printSuccess("Picked %d of %d modules", len(picked), len(all))
			return nil
		},
	}
}
