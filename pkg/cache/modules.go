package cache

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
)

// Module is one registered module file and whether it takes part in compiles.
type Module struct {
	Path   string `json:"path"`
	Label  string `json:"label"`
	Picked bool   `json:"picked"`
}

// Modules is the module selection of one workspace. The whole selection is
// stored as a single JSON value, so any Cache backend can hold it.
//
// Modules serializes its own read-modify-write cycles but not those of other
// processes sharing the backend.
type Modules struct {
	cache Cache
	key   string
	mu    sync.Mutex
}

// NewModules returns the selection stored under keyer.ModulesKey(workspace).
// A nil keyer uses DefaultKeyer.
func NewModules(c Cache, keyer Keyer, workspace string) *Modules {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &Modules{cache: c, key: keyer.ModulesKey(workspace)}
}

type moduleState map[string]Module

func (m *Modules) read(ctx context.Context) (moduleState, error) {
	data, ok, err := m.cache.Get(ctx, m.key)
	if err != nil {
		return nil, fmt.Errorf("read modules: %w", err)
	}
	state := make(moduleState)
	if !ok {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode modules: %w", err)
	}
	return state, nil
}

func (m *Modules) write(ctx context.Context, state moduleState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := m.cache.Set(ctx, m.key, data, 0); err != nil {
		return fmt.Errorf("write modules: %w", err)
	}
	return nil
}

func (m *Modules) update(ctx context.Context, fn func(moduleState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, err := m.read(ctx)
	if err != nil {
		return err
	}
	fn(state)
	return m.write(ctx, state)
}

func entry(path string, picked bool) Module {
	return Module{Path: path, Label: filepath.Base(path), Picked: picked}
}

// Select adds the paths as picked, overwriting existing entries.
func (m *Modules) Select(ctx context.Context, paths ...string) error {
	return m.update(ctx, func(s moduleState) {
		for _, p := range paths {
			s[p] = entry(p, true)
		}
	})
}

// Unselect adds the paths as not picked. Registering a new module goes
// through Unselect, so it is known but does not compile until selected.
func (m *Modules) Unselect(ctx context.Context, paths ...string) error {
	return m.update(ctx, func(s moduleState) {
		for _, p := range paths {
			s[p] = entry(p, false)
		}
	})
}

// Pick makes exactly the given paths picked: they are selected, and every
// other known module is unselected.
func (m *Modules) Pick(ctx context.Context, paths ...string) error {
	return m.update(ctx, func(s moduleState) {
		for p := range s {
			s[p] = entry(p, false)
		}
		for _, p := range paths {
			s[p] = entry(p, true)
		}
	})
}

// Remove forgets the paths.
func (m *Modules) Remove(ctx context.Context, paths ...string) error {
	return m.update(ctx, func(s moduleState) {
		for _, p := range paths {
			delete(s, p)
		}
	})
}

// List returns all known modules sorted by path.
func (m *Modules) List(ctx context.Context) ([]Module, error) {
	m.mu.Lock()
	state, err := m.read(ctx)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]Module, 0, len(state))
	for _, mod := range state {
		out = append(out, mod)
	}
	slices.SortFunc(out, func(a, b Module) int { return cmp.Compare(a.Path, b.Path) })
	return out, nil
}

// Partition splits the modules into picked and unpicked, each sorted by path.
func (m *Modules) Partition(ctx context.Context) (selected, unselected []Module, err error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, mod := range all {
		if mod.Picked {
			selected = append(selected, mod)
		} else {
			unselected = append(unselected, mod)
		}
	}
	return selected, unselected, nil
}

// SelectedPaths returns the paths of picked modules.
func (m *Modules) SelectedPaths(ctx context.Context) ([]string, error) {
	selected, _, err := m.Partition(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(selected))
	for i, mod := range selected {
		paths[i] = mod.Path
	}
	return paths, nil
}
