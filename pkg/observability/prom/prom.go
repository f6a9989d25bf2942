// Package prom implements the observability hooks with Prometheus metrics.
//
// Metrics are registered on a private registry, so several instances (for
// example one per test) never collide. Serve them with [Metrics.Handler].
package prom

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/dagscope/pkg/observability"
)

const namespace = "dagscope"

var (
	_ observability.EngineHooks   = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.CompilerHooks = (*Metrics)(nil)
)

// Metrics collects engine, cache and compiler metrics.
type Metrics struct {
	registry *prometheus.Registry

	messages        *prometheus.CounterVec
	messageDuration *prometheus.HistogramVec
	rewriteDuration prometheus.Histogram
	graphNodes      prometheus.Gauge
	graphEdges      prometheus.Gauge
	diagnostics     prometheus.Counter
	layouts         *prometheus.CounterVec
	layoutDuration  prometheus.Histogram
	exports         *prometheus.CounterVec
	exportBytes     prometheus.Histogram
	cacheOps        *prometheus.CounterVec
	compilerCalls   *prometheus.CounterVec
	compilerLatency *prometheus.HistogramVec
	compilerState   *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// messages counts handled inbound messages.
		// Labels: command, status (ok, error)
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "messages_total",
			Help:      "Inbound messages handled by the engine",
		}, []string{"command", "status"}),
		messageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "message_duration_seconds",
			Help:      "Time to apply one inbound message",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"command"}),
		rewriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rewrite_duration_seconds",
			Help:      "Time to rewrite an update payload",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		graphNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "graph_nodes",
			Help:      "Nodes in the current snapshot",
		}),
		graphEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "graph_edges",
			Help:      "Edges in the current snapshot",
		}),
		diagnostics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "diagnostics_total",
			Help:      "Elements skipped or rejected during rewrite",
		}),

		// layouts counts layout runs.
		// Labels: status (ok, stale, error)
		layouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "runs_total",
			Help:      "Layout runs by outcome",
		}, []string{"status"}),
		layoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "duration_seconds",
			Help:      "Layout run duration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		// exports counts exports.
		// Labels: format, status (ok, error)
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "total",
			Help:      "Exports by format and outcome",
		}, []string{"format", "status"}),
		exportBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "bytes",
			Help:      "Size of exported content",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),

		// cacheOps counts cache operations.
		// Labels: key_type, op (hit, miss, set)
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by key type",
		}, []string{"key_type", "op"}),

		compilerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "requests_total",
			Help:      "Commands sent to the compiler server",
		}, []string{"command", "status"}),
		compilerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "latency_seconds",
			Help:      "Compiler round-trip latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"command"}),
		compilerState: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "state_transitions_total",
			Help:      "Connection state transitions",
		}, []string{"from", "to"}),
	}
}

// Registry returns the registry holding all metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnMessage implements observability.EngineHooks.
func (m *Metrics) OnMessage(_ context.Context, command string, d time.Duration, err error) {
	m.messages.WithLabelValues(command, status(err)).Inc()
	m.messageDuration.WithLabelValues(command).Observe(d.Seconds())
}

// OnRewrite implements observability.EngineHooks.
func (m *Metrics) OnRewrite(_ context.Context, nodes, edges, diags int, d time.Duration) {
	m.rewriteDuration.Observe(d.Seconds())
	m.graphNodes.Set(float64(nodes))
	m.graphEdges.Set(float64(edges))
	m.diagnostics.Add(float64(diags))
}

// OnLayoutStart implements observability.EngineHooks.
func (m *Metrics) OnLayoutStart(context.Context, int) {}

// OnLayoutComplete implements observability.EngineHooks.
func (m *Metrics) OnLayoutComplete(_ context.Context, d time.Duration, stale bool, err error) {
	s := status(err)
	if stale && err == nil {
		s = "stale"
	}
	m.layouts.WithLabelValues(s).Inc()
	m.layoutDuration.Observe(d.Seconds())
}

// OnExport implements observability.EngineHooks.
func (m *Metrics) OnExport(_ context.Context, format string, size int, _ time.Duration, err error) {
	m.exports.WithLabelValues(format, status(err)).Inc()
	if err == nil {
		m.exportBytes.Observe(float64(size))
	}
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
}

// OnRequest implements observability.CompilerHooks.
func (m *Metrics) OnRequest(context.Context, string) {}

// OnResponse implements observability.CompilerHooks.
func (m *Metrics) OnResponse(_ context.Context, command string, d time.Duration, err error) {
	m.compilerCalls.WithLabelValues(command, status(err)).Inc()
	m.compilerLatency.WithLabelValues(command).Observe(d.Seconds())
}

// OnStateChange implements observability.CompilerHooks.
func (m *Metrics) OnStateChange(_ context.Context, from, to string) {
	m.compilerState.WithLabelValues(from, to).Inc()
}
