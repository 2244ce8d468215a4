// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the hooks returned by [Layout], [Cache],
// [Store] and [Notify]. By default every hook is a no-op; the binary installs
// real implementations at startup (see pkg/metrics for the Prometheus one).
// Libraries therefore never import a metrics backend directly.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := metrics.New(prometheus.DefaultRegisterer)
//	    observability.SetLayoutHooks(m)
//	    observability.SetCacheHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnLayoutStart(ctx, "skyline", len(tiles))
//	res, err := s.Layout(tiles, columns)
//	observability.Layout().OnLayoutComplete(ctx, "skyline", len(tiles), res.Fallbacks, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from layout computation.
type LayoutHooks interface {
	OnLayoutStart(ctx context.Context, strategy string, tiles int)
	OnLayoutComplete(ctx context.Context, strategy string, tiles, fallbacks int, duration time.Duration, err error)

	// OnRelayout records a watch-triggered recomputation. coalesced is the
	// number of change events folded into it.
	OnRelayout(ctx context.Context, wallID string, coalesced int)
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
// Store Hooks
// =============================================================================

// StoreHooks receives events from wall store backends.
type StoreHooks interface {
	// OnStoreCall records one backend operation.
	OnStoreCall(ctx context.Context, backend, op string, duration time.Duration, err error)
}

// =============================================================================
// Notify Hooks
// =============================================================================

// NotifyHooks receives events from change notification backends.
type NotifyHooks interface {
	// OnPublish records an outgoing change event.
	OnPublish(ctx context.Context, backend, wallID string, err error)

	// OnReceive records an incoming change event.
	OnReceive(ctx context.Context, backend, wallID string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutStart(context.Context, string, int) {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopLayoutHooks) OnRelayout(context.Context, string, int) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreCall(context.Context, string, string, time.Duration, error) {}

// NoopNotifyHooks is a no-op implementation of NotifyHooks.
type NoopNotifyHooks struct{}

func (NoopNotifyHooks) OnPublish(context.Context, string, string, error) {}
func (NoopNotifyHooks) OnReceive(context.Context, string, string)        {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	notifyHooks NotifyHooks = NoopNotifyHooks{}
	hooksMu     sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetNotifyHooks registers custom notify hooks.
func SetNotifyHooks(h NotifyHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		notifyHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Notify returns the registered notify hooks.
func Notify() NotifyHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return notifyHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	cacheHooks = NoopCacheHooks{}
	storeHooks = NoopStoreHooks{}
	notifyHooks = NoopNotifyHooks{}
}
