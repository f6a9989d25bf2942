package cli

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/config"
	"github.com/matzehuels/dagscope/pkg/core/render"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/watch"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()
	var buf bytes.Buffer
	c := New(&buf, log.ErrorLevel)
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.Workspace = "test"
	c.cfg = &cfg
	return c
}

func TestRootCommand(t *testing.T) {
	root := testCLI(t).RootCommand()

	want := []string{"browse", "cache", "compile", "completion", "config", "modules", "render", "serve", "watch"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("RootCommand() missing subcommand %q", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("RootCommand() missing --config flag")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"  ", []string{"svg"}},
		{"dot", []string{"dot"}},
		{"svg, DOT,,json", []string{"svg", "dot", "json"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrientation(t *testing.T) {
	cfg := config.Default()
	cfg.Orientation = "TB"

	tests := []struct {
		flag    string
		want    render.Orientation
		wantErr bool
	}{
		{"", render.TopToBottom, false},
		{"lr", render.LeftToRight, false},
		{"top-to-bottom", render.TopToBottom, false},
		{"diagonal", "", true},
	}
	for _, tt := range tests {
		got, err := orientation(tt.flag, cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("orientation(%q) error = %v, wantErr %v", tt.flag, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !derrors.Is(err, derrors.ErrCodeInvalidInput) {
				t.Errorf("orientation(%q) code = %v, want %v", tt.flag, derrors.GetCode(err), derrors.ErrCodeInvalidInput)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("orientation(%q) = %v, want %v", tt.flag, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		base, format, want string
	}{
		{"out/graph", "svg", "out/graph.svg"},
		{"out/graph", "dot", "out/graph.dot"},
		{"out/graph", "json", "out/graph.scene.json"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.base, tt.format); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.base, tt.format, got, tt.want)
		}
	}
}

func TestPayloadChanged(t *testing.T) {
	tests := []struct {
		name string
		ops  []watch.Op
		want bool
	}{
		{"write", []watch.Op{watch.OpWrite}, true},
		{"create", []watch.Op{watch.OpCreate}, true},
		{"remove only", []watch.Op{watch.OpRemove}, false},
		{"rename then create", []watch.Op{watch.OpRename, watch.OpCreate}, true},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := make([]watch.Change, len(tt.ops))
			for i, op := range tt.ops {
				changes[i] = watch.Change{Path: "/p.json", Op: op}
			}
			if got := payloadChanged(changes); got != tt.want {
				t.Errorf("payloadChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkspace(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Workspace = "proj"
	if got := workspace(cfg); got != "proj" {
		t.Errorf("workspace() = %q, want %q", got, "proj")
	}
	cfg.Cache.Workspace = ""
	if got := workspace(cfg); got == "" {
		t.Error("workspace() returned empty string without a configured workspace")
	}
}

func TestOpenCache(t *testing.T) {
	c := testCLI(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		backend string
		noCache bool
		want    any
	}{
		{"file", config.CacheFile, false, &cache.FileCache{}},
		{"none", config.CacheNone, false, &cache.NullCache{}},
		{"no-cache flag", config.CacheFile, true, &cache.NullCache{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *c.cfg
			cfg.Cache.Backend = tt.backend
			ch, keyer, err := c.openCache(ctx, cfg, tt.noCache)
			if err != nil {
				t.Fatalf("openCache() error: %v", err)
			}
			defer ch.Close()
			if keyer == nil {
				t.Error("openCache() returned nil keyer")
			}
			if reflect.TypeOf(ch) != reflect.TypeOf(tt.want) {
				t.Errorf("openCache() = %T, want %T", ch, tt.want)
			}
		})
	}
}
