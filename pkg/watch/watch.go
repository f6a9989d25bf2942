// Package watch reports changes to a fixed set of files, debounced into batches.
//
// Editors often save by writing a temporary file and renaming it over the
// original, which drops a direct fsnotify watch on the file. The watcher
// therefore watches each file's directory and filters events by path.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change seen on a file.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file event.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler receives one debounced batch, at most one Change per path.
type Handler func(ctx context.Context, changes []Change)

// DefaultDebounce is the batching window when Options leaves it zero.
const DefaultDebounce = 150 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *log.Logger
}

// Watcher watches a set of files.
type Watcher struct {
	files    map[string]bool
	fsw      *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logger   *log.Logger
}

// New starts watching the directories of paths. Paths need not exist yet.
func New(paths []string, handler Handler, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no paths")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		files:    make(map[string]bool, len(paths)),
		fsw:      fsw,
		handler:  handler,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Files returns the watched file paths, absolute.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// Run delivers batches to the handler until ctx is cancelled or the watcher
// is closed. The handler runs on Run's goroutine. A pending batch is flushed
// before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		batch  []Change
		timer  *time.Timer
		timerC <-chan time.Time
	)
	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		changes := dedupe(batch)
		batch = nil
		w.logger.Debug("files changed", "count", len(changes))
		if w.handler != nil {
			w.handler(ctx, changes)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !w.files[abs] {
				continue
			}
			batch = append(batch, Change{Path: abs, Op: convertOp(ev.Op), Time: time.Now()})
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		}
	}
}

// Close stops watching. A running Run returns after flushing.
func (w *Watcher) Close() error { return w.fsw.Close() }

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

// dedupe keeps the last change per path, ordered by first appearance.
func dedupe(batch []Change) []Change {
	idx := make(map[string]int, len(batch))
	var out []Change
	for _, c := range batch {
		if i, ok := idx[c.Path]; ok {
			out[i] = c
			continue
		}
		idx[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
