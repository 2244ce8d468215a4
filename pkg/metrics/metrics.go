// Package metrics implements the observability hooks with Prometheus
// collectors and provides liveness and readiness checks for the server.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/memorywall/pkg/observability"
)

// Collector holds the memorywall collectors. It implements every hook
// interface in pkg/observability.
type Collector struct {
	LayoutsComputed *prometheus.CounterVec
	LayoutDuration  *prometheus.HistogramVec
	LayoutTiles     *prometheus.HistogramVec
	LayoutFallbacks *prometheus.CounterVec
	Relayouts       *prometheus.CounterVec
	RelayoutEvents  prometheus.Histogram

	CacheOps   *prometheus.CounterVec
	CacheBytes *prometheus.CounterVec

	StoreCalls    *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	NotifyEvents *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		LayoutsComputed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memorywall_layouts_total",
			Help: "Layouts computed, by strategy and outcome",
		}, []string{"strategy", "status"}),

		LayoutDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memorywall_layout_duration_seconds",
			Help:    "Time to compute a layout",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"strategy"}),

		LayoutTiles: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memorywall_layout_tiles",
			Help:    "Tiles per computed layout",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"strategy"}),

		LayoutFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memorywall_layout_fallbacks_total",
			Help: "Tiles placed by the 1x1 fallback",
		}, []string{"strategy"}),

		Relayouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memorywall_relayouts_total",
			Help: "Watch-triggered recomputations",
		}, []string{"wall"}),

		RelayoutEvents: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "memorywall_relayout_coalesced_events",
			Help:    "Change events folded into one recomputation",
			Buckets: []float64{1, 2, 4, 8, 16, 32},
		}),

		CacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memorywall_cache_ops_total",
			Help: "Cache lookups and writes",
		}, []string{"key_type", "op"}),

		CacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memorywall_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}, []string{"key_type"}),

		StoreCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memorywall_store_calls_total",
			Help: "Store backend operations",
		}, []string{"backend", "op", "status"}),

		StoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memorywall_store_duration_seconds",
			Help:    "Store backend latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"backend", "op"}),

		NotifyEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memorywall_notify_events_total",
			Help: "Change notifications published and received",
		}, []string{"backend", "direction", "status"}),
	}
}

// Install registers c as every observability hook.
func (c *Collector) Install() {
	observability.SetLayoutHooks(c)
	observability.SetCacheHooks(c)
	observability.SetStoreHooks(c)
	observability.SetNotifyHooks(c)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) OnLayoutStart(context.Context, string, int) {}

func (c *Collector) OnLayoutComplete(_ context.Context, strategy string, tiles, fallbacks int, d time.Duration, err error) {
	c.LayoutsComputed.WithLabelValues(strategy, status(err)).Inc()
	if err != nil {
		return
	}
	c.LayoutDuration.WithLabelValues(strategy).Observe(d.Seconds())
	c.LayoutTiles.WithLabelValues(strategy).Observe(float64(tiles))
	if fallbacks > 0 {
		c.LayoutFallbacks.WithLabelValues(strategy).Add(float64(fallbacks))
	}
}

func (c *Collector) OnRelayout(_ context.Context, wallID string, coalesced int) {
	c.Relayouts.WithLabelValues(wallID).Inc()
	c.RelayoutEvents.Observe(float64(coalesced))
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheOps.WithLabelValues(keyType, "set").Inc()
	c.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (c *Collector) OnStoreCall(_ context.Context, backend, op string, d time.Duration, err error) {
	c.StoreCalls.WithLabelValues(backend, op, status(err)).Inc()
	c.StoreDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

func (c *Collector) OnPublish(_ context.Context, backend, _ string, err error) {
	c.NotifyEvents.WithLabelValues(backend, "out", status(err)).Inc()
}

func (c *Collector) OnReceive(_ context.Context, backend, _ string) {
	c.NotifyEvents.WithLabelValues(backend, "in", "ok").Inc()
}

var (
	_ observability.LayoutHooks = (*Collector)(nil)
	_ observability.CacheHooks  = (*Collector)(nil)
	_ observability.StoreHooks  = (*Collector)(nil)
	_ observability.NotifyHooks = (*Collector)(nil)
)
