package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/memorywall/pkg/observability"
)

func TestCollectorRecordsLayouts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	ctx := context.Background()

	c.OnLayoutComplete(ctx, "skyline", 12, 0, time.Millisecond, nil)
	c.OnLayoutComplete(ctx, "skyline", 3, 1, time.Millisecond, nil)
	c.OnLayoutComplete(ctx, "spiral", 3, 0, time.Millisecond, errors.New("no room"))

	if got := testutil.ToFloat64(c.LayoutsComputed.WithLabelValues("skyline", "ok")); got != 2 {
		t.Errorf("skyline ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.LayoutsComputed.WithLabelValues("spiral", "error")); got != 1 {
		t.Errorf("spiral error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.LayoutFallbacks.WithLabelValues("skyline")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
}

func TestCollectorCacheAndStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	ctx := context.Background()

	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "layout", 100)
	c.OnStoreCall(ctx, "postgres", "list_tiles", time.Millisecond, nil)
	c.OnPublish(ctx, "nats", "w1", nil)
	c.OnReceive(ctx, "nats", "w1")
	c.OnRelayout(ctx, "w1", 3)

	if got := testutil.ToFloat64(c.CacheOps.WithLabelValues("layout", "miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.CacheBytes.WithLabelValues("layout")); got != 100 {
		t.Errorf("bytes = %v, want 100", got)
	}
	if got := testutil.ToFloat64(c.StoreCalls.WithLabelValues("postgres", "list_tiles", "ok")); got != 1 {
		t.Errorf("store calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.NotifyEvents.WithLabelValues("nats", "in", "ok")); got != 1 {
		t.Errorf("received = %v, want 1", got)
	}
}

func TestCollectorInstall(t *testing.T) {
	t.Cleanup(observability.Reset)
	c := New(prometheus.NewRegistry())
	c.Install()

	if observability.Layout() != c || observability.Cache() != c {
		t.Error("Install should register the collector as hooks")
	}

	observability.Layout().OnLayoutComplete(context.Background(), "masonry", 5, 0, time.Millisecond, nil)
	if got := testutil.ToFloat64(c.LayoutsComputed.WithLabelValues("masonry", "ok")); got != 1 {
		t.Errorf("masonry ok = %v, want 1", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.OnLayoutComplete(context.Background(), "skyline", 1, 0, time.Millisecond, nil)
	c.OnCacheHit(context.Background(), "tiles")

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"memorywall_layouts_total", "memorywall_layout_duration_seconds", "memorywall_cache_ops_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metric %s not exposed", name)
		}
	}
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker(time.Second)
	if !h.Liveness().OK {
		t.Error("Liveness should always be OK")
	}

	h.Register("store", func(context.Context) error { return nil })
	if st := h.Readiness(context.Background()); !st.OK || len(st.Checks) != 1 {
		t.Errorf("Readiness = %+v", st)
	}

	h.Register("cache", func(context.Context) error { return errors.New("refused") })
	st := h.Readiness(context.Background())
	if st.OK {
		t.Error("Readiness should fail when a probe fails")
	}
	if len(st.Checks) != 2 || st.Checks[0].Name != "cache" || st.Checks[0].Error != "refused" {
		t.Errorf("Checks = %+v", st.Checks)
	}
}

func TestHealthCheckerTimeout(t *testing.T) {
	h := NewHealthChecker(10 * time.Millisecond)
	h.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if st := h.Readiness(context.Background()); st.OK {
		t.Error("slow probe should fail after the timeout")
	}
}
