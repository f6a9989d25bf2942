// Package config loads dagscope.toml.
//
// A missing file is not an error; every field has a default. Durations are
// written as strings ("250ms", "5s"). Unknown keys are rejected so typos do
// not silently fall back to defaults.
//
//	orientation = "TB"
//
//	[server]
//	addr = "127.0.0.1:7878"
//
//	[compiler]
//	url = "ws://127.0.0.1:8080/"
//	timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// FileName is the config file name inside the config directory.
const FileName = "dagscope.toml"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Duration is a time.Duration that reads and writes as a string.
type Duration struct{ time.Duration }

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full configuration.
type Config struct {
	Orientation string         `toml:"orientation"`
	Server      ServerConfig   `toml:"server"`
	Compiler    CompilerConfig `toml:"compiler"`
	Cache       CacheConfig    `toml:"cache"`
	Watch       WatchConfig    `toml:"watch"`
	Render      RenderConfig   `toml:"render"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type CompilerConfig struct {
	URL            string   `toml:"url"`
	MaxAttempts    int      `toml:"max_attempts"`
	InitialBackoff Duration `toml:"initial_backoff"`
	MaxBackoff     Duration `toml:"max_backoff"`
	Timeout        Duration `toml:"timeout"`
}

type CacheConfig struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	Workspace string `toml:"workspace"`
}

type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

type RenderConfig struct {
	Detailed bool `toml:"detailed"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Orientation: "LR",
		Server:      ServerConfig{Addr: "127.0.0.1:7878"},
		Compiler: CompilerConfig{
			URL:            "ws://127.0.0.1:8080/",
			MaxAttempts:    5,
			InitialBackoff: Duration{200 * time.Millisecond},
			MaxBackoff:     Duration{5 * time.Second},
			Timeout:        Duration{30 * time.Second},
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Dir:     defaultCacheDir(),
		},
		Watch: WatchConfig{Debounce: Duration{150 * time.Millisecond}},
	}
}

// DefaultPath returns dagscope.toml in the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(dir, "dagscope", FileName)
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "dagscope")
	}
	return filepath.Join(dir, "dagscope")
}

// Load reads path over the defaults. An empty path means DefaultPath; a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, derrors.New(derrors.ErrCodeInvalidInput, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields and ranges.
func (c Config) Validate() error {
	switch c.Orientation {
	case "LR", "TB":
	default:
		return derrors.New(derrors.ErrCodeInvalidInput, "orientation must be LR or TB, got %q", c.Orientation)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return derrors.New(derrors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	default:
		return derrors.New(derrors.ErrCodeInvalidInput, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Compiler.MaxAttempts < 1 {
		return derrors.New(derrors.ErrCodeInvalidInput, "compiler.max_attempts must be at least 1")
	}
	if c.Compiler.InitialBackoff.Duration < 0 || c.Compiler.MaxBackoff.Duration < 0 ||
		c.Compiler.Timeout.Duration < 0 || c.Watch.Debounce.Duration < 0 {
		return derrors.New(derrors.ErrCodeInvalidInput, "durations must not be negative")
	}
	return nil
}

// Write saves cfg to path, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
