package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/engine"
	"github.com/matzehuels/dagscope/pkg/graph"
	"github.com/matzehuels/dagscope/pkg/observability"
	"github.com/matzehuels/dagscope/pkg/observability/prom"
	"github.com/matzehuels/dagscope/pkg/server"
	"github.com/matzehuels/dagscope/pkg/watch"
)

const shutdownTimeout = 5 * time.Second

type serveOpts struct {
	addr        string
	watch       string // payload file fed to the engine on every change
	orientation string
	detailed    bool
	noCache     bool
}

// serveCommand creates the serve command, which runs one engine behind the
// HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		Long: `Serve runs the rewrite engine behind an HTTP API. Clients post payloads
and fold/select/rotate messages and fetch the graph, its layout or an export.

With --watch the given payload file is loaded at startup and reloaded
whenever it changes. Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.watch, "watch", "", "payload file to load and reload on change")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "", "initial orientation: LR or TB")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node kind and module in exported labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the export cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	o, err := orientation(opts.orientation, cfg)
	if err != nil {
		return err
	}
	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	metrics := prom.New()
	observability.SetEngineHooks(metrics)
	observability.SetCacheHooks(metrics)
	observability.SetCompilerHooks(metrics)

	ch, keyer, err := c.openCache(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer ch.Close()

	r := c.newRenderer(cfg, opts.detailed)
	defer r.Close()
	e := c.newEngine(o, r)
	defer e.Close()

	client := c.newCompiler(cfg)
	defer client.Close()

	mods := cache.NewModules(ch, keyer, workspace(cfg))

	srv := server.New(e,
		server.WithLogger(c.Logger),
		server.WithMetrics(metrics.Handler()),
		server.WithCompiler(client, mods),
		server.WithExportCache(ch, keyer),
	)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Serve(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if opts.watch != "" {
		if err := c.loadPayload(ctx, e, opts.watch); err != nil {
			c.Logger.Warn("initial load failed", "file", opts.watch, "error", err)
		}
		w, err := watch.New([]string{opts.watch}, func(ctx context.Context, changes []watch.Change) {
			if !payloadChanged(changes) {
				return
			}
			if err := c.loadPayload(ctx, e, opts.watch); err != nil {
				c.Logger.Warn("reload failed", "file", opts.watch, "error", err)
			}
		}, watch.Options{Debounce: cfg.Watch.Debounce.Duration, Logger: c.Logger})
		if err != nil {
			return err
		}
		defer w.Close()
		g.Go(func() error { return w.Run(ctx) })
	}

	g.Go(func() error {
		c.Logger.Info("listening", "addr", addr, "orientation", o)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		c.Logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// loadPayload reads path and sends it to the engine's Serve loop.
func (c *CLI) loadPayload(ctx context.Context, e *engine.Engine, path string) error {
	p, err := graph.ReadPayloadFile(path)
	if err != nil {
		return err
	}
	reply, err := e.Send(ctx, engine.Update{Payload: p})
	if err != nil {
		return err
	}
	c.Logger.Info("payload loaded", "file", path, "nodes", e.NodeCount(), "diagnostics", len(reply.Diagnostics))
	return nil
}
