// Package cli implements the dagscope command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dagscope/pkg/buildinfo"
	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/compiler"
	"github.com/matzehuels/dagscope/pkg/config"
	"github.com/matzehuels/dagscope/pkg/core/render"
	"github.com/matzehuels/dagscope/pkg/core/render/nodelink"
	"github.com/matzehuels/dagscope/pkg/engine"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for key prefixes and display.
	appName = "dagscope"

	// envRedisPassword holds the redis password; it is never read from the config file.
	envRedisPassword = "DAGSCOPE_REDIS_PASSWORD"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "dagscope explores compiler dataflow graphs",
		Long:         `dagscope ingests the dataflow graph produced by a compiler, groups it by module, hides raw intermediates, attaches validation results to what they validate, and lets you fold, select, lay out and export the result.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.compileCommand())
	root.AddCommand(c.modulesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// config loads the configuration file on first use.
func (c *CLI) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	c.Logger.Debug("config loaded", "path", c.resolvedConfigPath(), "cache", cfg.Cache.Backend)
	c.cfg = &cfg
	return cfg, nil
}

func (c *CLI) resolvedConfigPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return config.DefaultPath()
}

// orientation resolves a --orientation flag value against the configured default.
func orientation(flag string, cfg config.Config) (render.Orientation, error) {
	v := flag
	if v == "" {
		v = cfg.Orientation
	}
	o, ok := render.ParseOrientation(v)
	if !ok {
		return "", usageError("unknown orientation %q (want LR or TB)", v)
	}
	return o, nil
}

// =============================================================================
// Factories
// =============================================================================

// openCache opens the configured cache backend. noCache forces a null cache.
func (c *CLI) openCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, cache.Keyer, error) {
	if noCache {
		return cache.NewNullCache(), cache.NewDefaultKeyer(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), cache.NewDefaultKeyer(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: os.Getenv(envRedisPassword),
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return rc, cache.NewScopedKeyer(nil, appName+":"), nil
	default:
		fc, err := cache.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			c.Logger.Warn("file cache unavailable, continuing without cache", "dir", cfg.Cache.Dir, "error", err)
			return cache.NewNullCache(), cache.NewDefaultKeyer(), nil
		}
		return fc, cache.NewDefaultKeyer(), nil
	}
}

// workspace returns the key under which the module selection is stored.
func workspace(cfg config.Config) string {
	if cfg.Cache.Workspace != "" {
		return cfg.Cache.Workspace
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "default"
}

func (c *CLI) newRenderer(cfg config.Config, detailed bool) *nodelink.Renderer {
	return nodelink.NewRenderer(nodelink.Options{Detailed: detailed || cfg.Render.Detailed}, c.Logger)
}

// newEngine creates an engine that lays out and exports through r.
func (c *CLI) newEngine(o render.Orientation, r *nodelink.Renderer) *engine.Engine {
	return engine.New(engine.Options{
		Orientation: o,
		Layout:      r,
		Exporter:    r,
		Logger:      c.Logger,
	})
}

func (c *CLI) newCompiler(cfg config.Config) *compiler.Client {
	return compiler.New(compiler.Options{
		URL: cfg.Compiler.URL,
		Backoff: compiler.Backoff{
			MaxAttempts: cfg.Compiler.MaxAttempts,
			Initial:     cfg.Compiler.InitialBackoff.Duration,
			Max:         cfg.Compiler.MaxBackoff.Duration,
		},
		Timeout: cfg.Compiler.Timeout.Duration,
		Logger:  c.Logger,
	})
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{render.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// usageError reports a bad flag or argument.
func usageError(format string, args ...any) error {
	return derrors.New(derrors.ErrCodeInvalidInput, format, args...)
}
