package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/core/dag"
	"github.com/matzehuels/dagscope/pkg/core/dag/transform"
	"github.com/matzehuels/dagscope/pkg/core/fold"
	"github.com/matzehuels/dagscope/pkg/core/query"
	"github.com/matzehuels/dagscope/pkg/core/render"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
	"github.com/matzehuels/dagscope/pkg/observability"
)

// Exporter serializes a scene into one of the supported export formats.
type Exporter interface {
	Export(ctx context.Context, s render.Scene, format string) ([]byte, error)
}

// Options configures an Engine. The zero value is usable: no layout runs,
// save fails with UNSUPPORTED_FORMAT, hooks come from the observability
// registry and logs go to log.Default().
type Options struct {
	Orientation render.Orientation
	Layout      LayoutEngine
	Exporter    Exporter
	Hooks       observability.EngineHooks
	Logger      *log.Logger

	// OnLayout is called from the layout worker after a fresh result is applied.
	OnLayout func(render.Positions)
}

// Reply is the outcome of one handled message.
type Reply struct {
	Command     Command
	Orientation render.Orientation

	// Changed reports whether the snapshot or its visual state changed.
	Changed bool

	// Diagnostics lists the elements an update skipped or rejected.
	Diagnostics derrors.Diagnostics
	Result      *transform.TransformResult

	// Highlight is set for select.
	Highlight *query.HighlightSet

	// Content and Format are set for save. SnapshotHash identifies the state
	// Content was exported from.
	Content      []byte
	Format       string
	SnapshotHash string

	// LayoutSeq identifies the layout request the message triggered, zero if none.
	LayoutSeq uint64
}

// Engine owns the graph snapshot and applies inbound messages to it one at a
// time. Readers such as Snapshot may run concurrently with Handle.
type Engine struct {
	mu          sync.RWMutex
	graph       *dag.DAG
	orientation render.Orientation

	exporter Exporter
	sched    *scheduler
	hooks    observability.EngineHooks
	logger   *log.Logger

	inbox chan request
}

type request struct {
	ctx   context.Context
	msg   Message
	reply chan response
}

type response struct {
	reply *Reply
	err   error
}

// New creates an engine with an empty snapshot.
func New(opts Options) *Engine {
	if !opts.Orientation.Valid() {
		opts.Orientation = render.DefaultOrientation
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.Engine()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	e := &Engine{
		graph:       dag.New(),
		orientation: opts.Orientation,
		exporter:    opts.Exporter,
		hooks:       opts.Hooks,
		logger:      opts.Logger,
		inbox:       make(chan request),
	}
	if opts.Layout != nil {
		e.sched = newScheduler(opts.Layout, opts.Hooks, opts.Logger, opts.OnLayout)
	}
	return e
}

// Close stops the layout worker.
func (e *Engine) Close() error {
	if e.sched != nil {
		e.sched.close()
	}
	return nil
}

// Handle applies one message. Message-level failures (unknown node, bad
// format) are returned as errors and leave the snapshot untouched;
// element-level problems in an update are reported in Reply.Diagnostics.
func (e *Engine) Handle(ctx context.Context, msg Message) (*Reply, error) {
	start := time.Now()
	reply, err := e.handle(ctx, msg)
	e.hooks.OnMessage(ctx, string(msg.Command()), time.Since(start), err)
	if err != nil {
		e.logger.Warn("message failed", "command", msg.Command(), "error", derrors.UserMessage(err))
		return nil, err
	}
	return reply, nil
}

func (e *Engine) handle(ctx context.Context, msg Message) (*Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reply := &Reply{Command: msg.Command()}

	switch m := msg.(type) {
	case Update:
		start := time.Now()
		g, res := transform.Rewrite(m.Payload.Elements)
		reply.Result = res
		reply.Diagnostics = res.Diagnostics
		if g == nil {
			e.logger.Info("empty update, keeping current graph")
			break
		}
		fold.Reset(g)
		e.graph.Replace(g)
		reply.Changed = true
		e.hooks.OnRewrite(ctx, g.NodeCount(), g.EdgeCount(), res.Diagnostics.Len(), time.Since(start))
		e.logger.Info("graph updated",
			"nodes", g.NodeCount(),
			"edges", g.EdgeCount(),
			"modules", res.ModulesGrouped,
			"raw_elided", res.RawElided,
			"validators", res.ValidatorsAttached,
			"duration", time.Since(start))
		for _, d := range res.Diagnostics {
			e.logger.Warn("skipped element", "code", d.Code, "detail", d.Message)
		}

	case Rotate:
		e.orientation = e.orientation.Flip()
		reply.Changed = true
		e.logger.Debug("rotated", "orientation", e.orientation)

	case ExpandAll:
		reply.Changed = fold.ExpandAll(e.graph) > 0

	case CollapseAll:
		reply.Changed = fold.CollapseAll(e.graph) > 0

	case Expand:
		changed, err := fold.Expand(e.graph, m.NodeID)
		if err != nil {
			return nil, err
		}
		reply.Changed = changed

	case Collapse:
		changed, err := fold.Collapse(e.graph, m.NodeID)
		if err != nil {
			return nil, err
		}
		reply.Changed = changed

	case Select:
		hs, ok := query.Select(e.graph, m.NodeID)
		if !ok {
			return nil, derrors.New(derrors.ErrCodeNotFound, "node %q not found", m.NodeID)
		}
		reply.Highlight = &hs
		reply.Changed = true

	case Unselect:
		_, had := query.Selected(e.graph)
		query.Unselect(e.graph)
		reply.Changed = had

	case Save:
		content, err := e.export(ctx, m.Format)
		if err != nil {
			return nil, err
		}
		reply.Content = content
		reply.Format = m.Format
		reply.SnapshotHash = e.snapshotHash()

	default:
		return nil, derrors.New(derrors.ErrCodeMalformedPayload, "unhandled command %q", msg.Command())
	}

	reply.Orientation = e.orientation
	if reply.Changed && e.sched != nil {
		reply.LayoutSeq = e.sched.request(render.NewScene(e.graph, e.orientation))
	}
	return reply, nil
}

func (e *Engine) export(ctx context.Context, format string) ([]byte, error) {
	if e.exporter == nil {
		return nil, derrors.New(derrors.ErrCodeUnsupportedFormat, "no exporter configured for %q", format)
	}
	start := time.Now()
	content, err := e.exporter.Export(ctx, render.NewScene(e.graph, e.orientation), format)
	e.hooks.OnExport(ctx, format, len(content), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	e.logger.Info("exported", "format", format, "bytes", len(content))
	return content, nil
}

// Serve processes messages submitted through Send until ctx is cancelled.
// Only one Serve loop should run per engine.
func (e *Engine) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-e.inbox:
			reply, err := e.Handle(req.ctx, req.msg)
			req.reply <- response{reply: reply, err: err}
		}
	}
}

// Send submits a message to the Serve loop and waits for its reply.
func (e *Engine) Send(ctx context.Context, msg Message) (*Reply, error) {
	req := request{ctx: ctx, msg: msg, reply: make(chan response, 1)}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case e.inbox <- req:
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-req.reply:
		return resp.reply, resp.err
	}
}

// WaitLayout blocks until the layout requested with seq, or a newer one, has
// settled. It returns immediately when the engine has no layout engine or
// seq is zero.
func (e *Engine) WaitLayout(ctx context.Context, seq uint64) error {
	if e.sched == nil || seq == 0 {
		return nil
	}
	return e.sched.wait(ctx, seq)
}

// Snapshot returns the serialized graph, including fold and selection flags.
func (e *Engine) Snapshot() graph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	gj := graph.FromDAG(e.graph)
	gj.Orientation = string(e.orientation)
	return gj
}

// SnapshotHash returns the hash of the current snapshot together with the
// orientation it was taken in. The hash covers fold and selection flags.
func (e *Engine) SnapshotHash() (string, render.Orientation) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotHash(), e.orientation
}

func (e *Engine) snapshotHash() string {
	gj := graph.FromDAG(e.graph)
	gj.Orientation = string(e.orientation)
	data, err := json.Marshal(gj)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// Scene returns the currently visible scene.
func (e *Engine) Scene() render.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return render.NewScene(e.graph, e.orientation)
}

// Orientation returns the current layout orientation.
func (e *Engine) Orientation() render.Orientation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orientation
}

// Positions returns the most recently applied layout and whether one exists.
func (e *Engine) Positions() (render.Positions, bool) {
	if e.sched == nil {
		return render.Positions{}, false
	}
	pos, seq := e.sched.current()
	return pos, seq > 0 && pos.Nodes != nil
}

// Layout returns the applied layout in its serialized form.
func (e *Engine) Layout() (graph.Layout, bool) {
	pos, ok := e.Positions()
	if !ok {
		return graph.Layout{}, false
	}
	return pos.Export(e.Scene()), true
}

// NodeCount returns the number of nodes in the snapshot.
func (e *Engine) NodeCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.NodeCount()
}
