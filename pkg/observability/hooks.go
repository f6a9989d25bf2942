// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup, or
// pass them explicitly to the component they instrument, to receive events
// about message handling, layout runs, cache operations and compiler calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The Prometheus implementation lives in the prom subpackage so that
// libraries importing this package stay free of metric dependencies.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New()
//	    observability.SetEngineHooks(m)
//	    observability.SetCacheHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	// ... rewrite ...
//	observability.Engine().OnRewrite(ctx, nodes, edges, diags, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from the graph engine.
type EngineHooks interface {
	// OnMessage records one handled inbound message.
	OnMessage(ctx context.Context, command string, duration time.Duration, err error)

	// OnRewrite records a completed rewrite of an update payload.
	OnRewrite(ctx context.Context, nodeCount, edgeCount, diagnostics int, duration time.Duration)

	// Layout events. Stale is true when a newer request superseded the run
	// and its result was discarded.
	OnLayoutStart(ctx context.Context, nodeCount int)
	OnLayoutComplete(ctx context.Context, duration time.Duration, stale bool, err error)

	// OnExport records an export in the given format.
	OnExport(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Compiler Hooks
// =============================================================================

// CompilerHooks receives events from the compiler transport.
type CompilerHooks interface {
	// OnRequest records an outgoing command.
	OnRequest(ctx context.Context, command string)

	// OnResponse records the outcome of a command.
	OnResponse(ctx context.Context, command string, duration time.Duration, err error)

	// OnStateChange records a connection state transition.
	OnStateChange(ctx context.Context, from, to string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnMessage(context.Context, string, time.Duration, error)      {}
func (NoopEngineHooks) OnRewrite(context.Context, int, int, int, time.Duration)      {}
func (NoopEngineHooks) OnLayoutStart(context.Context, int)                           {}
func (NoopEngineHooks) OnLayoutComplete(context.Context, time.Duration, bool, error) {}
func (NoopEngineHooks) OnExport(context.Context, string, int, time.Duration, error)  {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopCompilerHooks is a no-op implementation of CompilerHooks.
type NoopCompilerHooks struct{}

func (NoopCompilerHooks) OnRequest(context.Context, string)                        {}
func (NoopCompilerHooks) OnResponse(context.Context, string, time.Duration, error) {}
func (NoopCompilerHooks) OnStateChange(context.Context, string, string)            {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks   EngineHooks   = NoopEngineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	compilerHooks CompilerHooks = NoopCompilerHooks{}
	hooksMu       sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup before any engine is created.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetCompilerHooks registers custom compiler hooks.
// This should be called once at application startup before any client is created.
func SetCompilerHooks(h CompilerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		compilerHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Compiler returns the registered compiler hooks.
func Compiler() CompilerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return compilerHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	cacheHooks = NoopCacheHooks{}
	compilerHooks = NoopCompilerHooks{}
}
