package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dagscope/pkg/config"
)

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configShowCommand())

	return cmd
}

func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.resolvedConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				printWarning("%s already exists", path)
				printNextStep("Overwrite it with", appName+" config init --force")
				return nil
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			printSuccess("Wrote default configuration")
			printFile(path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(c.resolvedConfigPath())
		},
	}
}

func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			printKeyValue("orientation", cfg.Orientation)
			printKeyValue("server", cfg.Server.Addr)
			printKeyValue("compiler", cfg.Compiler.URL)
			printKeyValue("attempts", strconv.Itoa(cfg.Compiler.MaxAttempts))
			printKeyValue("timeout", cfg.Compiler.Timeout.String())
			printKeyValue("cache", cfg.Cache.Backend)
			switch cfg.Cache.Backend {
			case config.CacheFile:
				printKeyValue("cache dir", cfg.Cache.Dir)
			case config.CacheRedis:
				printKeyValue("redis", fmt.Sprintf("%s/%d", cfg.Cache.RedisAddr, cfg.Cache.RedisDB))
			}
			printKeyValue("workspace", workspace(cfg))
			printKeyValue("debounce", cfg.Watch.Debounce.String())
			printKeyValue("detailed", strconv.FormatBool(cfg.Render.Detailed))
			return nil
		},
	}
}
