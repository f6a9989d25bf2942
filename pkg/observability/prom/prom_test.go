package prom

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := New()

	m.OnMessage(ctx, "update", time.Millisecond, nil)
	m.OnMessage(ctx, "save", time.Millisecond, errors.New("boom"))
	m.OnRewrite(ctx, 12, 15, 2, time.Millisecond)
	m.OnLayoutComplete(ctx, time.Millisecond, true, nil)
	m.OnExport(ctx, "svg", 4096, time.Millisecond, nil)
	m.OnCacheHit(ctx, "modules")
	m.OnStateChange(ctx, "connecting", "open")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"update ok", testutil.ToFloat64(m.messages.WithLabelValues("update", "ok")), 1},
		{"save error", testutil.ToFloat64(m.messages.WithLabelValues("save", "error")), 1},
		{"nodes", testutil.ToFloat64(m.graphNodes), 12},
		{"edges", testutil.ToFloat64(m.graphEdges), 15},
		{"diagnostics", testutil.ToFloat64(m.diagnostics), 2},
		{"stale layout", testutil.ToFloat64(m.layouts.WithLabelValues("stale")), 1},
		{"svg export", testutil.ToFloat64(m.exports.WithLabelValues("svg", "ok")), 1},
		{"cache hit", testutil.ToFloat64(m.cacheOps.WithLabelValues("modules", "hit")), 1},
		{"state", testutil.ToFloat64(m.compilerState.WithLabelValues("connecting", "open")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.OnMessage(context.Background(), "rotate", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `dagscope_engine_messages_total{command="rotate",status="ok"} 1`) {
		t.Errorf("metrics output missing message counter:\n%s", body)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.OnCacheMiss(context.Background(), "modules")
	if got := testutil.ToFloat64(b.cacheOps.WithLabelValues("modules", "miss")); got != 0 {
		t.Errorf("second instance saw %v misses, want 0", got)
	}
}
