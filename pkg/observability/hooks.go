// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through package-level hook registries; the default
// hooks are no-ops, so instrumentation costs nothing until main registers a
// backend. Hooks are registered by main and never by libraries, which keeps
// the import graph acyclic.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnQueryStart(ctx, len(missing))
//	// ... dispatch queries ...
//	observability.Pipeline().OnQueryComplete(ctx, len(missing), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the render pipeline.
type PipelineHooks interface {
	// Query batching events. distinct is the number of keys sent to the oracle.
	OnQueryStart(ctx context.Context, distinct int)
	OnQueryComplete(ctx context.Context, distinct int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, slides int)
	OnLayoutComplete(ctx context.Context, slides int, duration time.Duration, err error)

	// Export events
	OnExportStart(ctx context.Context, format string, units int)
	OnExportComplete(ctx context.Context, format string, units int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, kind string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, kind string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, kind string, size int)
}

// =============================================================================
// Oracle Hooks
// =============================================================================

// OracleHooks receives events from measurement oracle processes.
type OracleHooks interface {
	// OnCommand records a command written to the oracle.
	OnCommand(ctx context.Context, command string)

	// OnResponse records the oracle's reply to a command.
	OnResponse(ctx context.Context, command string, duration time.Duration)

	// OnError records a failed exchange.
	OnError(ctx context.Context, command string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnQueryStart(context.Context, int)                                   {}
func (NoopPipelineHooks) OnQueryComplete(context.Context, int, time.Duration, error)          {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                                  {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, time.Duration, error)         {}
func (NoopPipelineHooks) OnExportStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnExportComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopOracleHooks is a no-op implementation of OracleHooks.
type NoopOracleHooks struct{}

func (NoopOracleHooks) OnCommand(context.Context, string)                 {}
func (NoopOracleHooks) OnResponse(context.Context, string, time.Duration) {}
func (NoopOracleHooks) OnError(context.Context, string, error)            {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	oracleHooks   OracleHooks   = NoopOracleHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
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

// SetOracleHooks registers custom oracle hooks.
// This should be called once at application startup before any oracle is started.
func SetOracleHooks(h OracleHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		oracleHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Oracle returns the registered oracle hooks.
func Oracle() OracleHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return oracleHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	oracleHooks = NoopOracleHooks{}
}
