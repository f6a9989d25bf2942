package engine

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dagscope/pkg/core/render"
	"github.com/matzehuels/dagscope/pkg/observability"
)

// LayoutEngine computes node positions for a scene. Implementations may be
// slow; the engine never blocks message handling on them.
type LayoutEngine interface {
	Layout(ctx context.Context, s render.Scene) (render.Positions, error)
}

// scheduler runs layout requests on a single worker goroutine. Only the most
// recent request matters: a request queued while another is pending replaces
// it, and a run that finishes after a newer request arrived is discarded.
type scheduler struct {
	layout  LayoutEngine
	hooks   observability.EngineHooks
	logger  *log.Logger
	onApply func(render.Positions)

	mu        sync.Mutex
	seq       uint64     // last requested
	pending   *layoutJob // waiting to start
	applied   uint64     // last settled, applied or failed
	positions render.Positions
	lastErr   error
	settled   chan struct{} // closed and replaced whenever applied advances

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

type layoutJob struct {
	seq   uint64
	scene render.Scene
}

func newScheduler(le LayoutEngine, hooks observability.EngineHooks, logger *log.Logger, onApply func(render.Positions)) *scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scheduler{
		layout:  le,
		hooks:   hooks,
		logger:  logger,
		onApply: onApply,
		settled: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// request queues a layout of scene and returns its sequence number.
func (s *scheduler) request(scene render.Scene) uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.pending = &layoutJob{seq: seq, scene: scene}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return seq
}

func (s *scheduler) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		job := s.pending
		s.pending = nil
		s.mu.Unlock()
		if job == nil {
			continue
		}
		s.execute(ctx, job)
	}
}

func (s *scheduler) execute(ctx context.Context, job *layoutJob) {
	start := time.Now()
	s.hooks.OnLayoutStart(ctx, len(job.scene.Nodes))

	pos, err := s.layout.Layout(ctx, job.scene)
	elapsed := time.Since(start)

	s.mu.Lock()
	stale := job.seq != s.seq
	if !stale {
		if err == nil {
			s.positions = pos
		}
		s.lastErr = err
		s.applied = job.seq
		close(s.settled)
		s.settled = make(chan struct{})
	}
	s.mu.Unlock()

	s.hooks.OnLayoutComplete(ctx, elapsed, stale, err)
	switch {
	case stale:
		s.logger.Debug("discarded stale layout", "seq", job.seq, "duration", elapsed)
	case err != nil:
		s.logger.Warn("layout failed", "seq", job.seq, "error", err)
	default:
		s.logger.Debug("layout applied", "seq", job.seq, "nodes", len(pos.Nodes), "duration", elapsed)
		if s.onApply != nil {
			s.onApply(pos)
		}
	}
}

// wait blocks until a layout at least as new as seq has settled and returns
// that run's error.
func (s *scheduler) wait(ctx context.Context, seq uint64) error {
	for {
		s.mu.Lock()
		if s.applied >= seq {
			err := s.lastErr
			s.mu.Unlock()
			return err
		}
		ch := s.settled
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return context.Canceled
		case <-ch:
		}
	}
}

func (s *scheduler) current() (render.Positions, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions, s.applied
}

func (s *scheduler) close() {
	s.cancel()
	<-s.done
}
