package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type rpcMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics

	executionMetricsOnce sync.Once
	executionRegistry    *ExecutionMetrics
)

// RPC returns the lazily-initialised registry recording JSON-RPC activity.
func RPC() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mirrorevm",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mirrorevm",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "mirrorevm",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mirrorevm",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by the rate limiter.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records one JSON-RPC request. code is the JSON-RPC error code, or
// zero for a successful response.
func (m *rpcMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, strconv.Itoa(code)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// ExecutionMetrics tracks simulated calls, gas estimates and traces.
type ExecutionMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	gas        *prometheus.HistogramVec
	steps      prometheus.Histogram
	inflight   prometheus.Gauge
}

// Execution exposes the singleton execution metrics registry.
func Execution() *ExecutionMetrics {
	executionMetricsOnce.Do(func() {
		executionRegistry = &ExecutionMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mirrorevm",
				Subsystem: "execution",
				Name:      "operations_total",
				Help:      "Count of call, estimate and trace operations segmented by outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "mirrorevm",
				Subsystem: "execution",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for execution operations including state reads.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			gas: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "mirrorevm",
				Subsystem: "execution",
				Name:      "gas",
				Help:      "Gas used by calls and gas returned by estimates.",
				Buckets:   prometheus.ExponentialBuckets(21_000, 2, 10),
			}, []string{"operation"}),
			steps: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "mirrorevm",
				Subsystem: "execution",
				Name:      "trace_steps",
				Help:      "Number of interpreter steps recorded per trace.",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
			}),
			inflight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "mirrorevm",
				Subsystem: "execution",
				Name:      "inflight",
				Help:      "Operations currently queued or running on the worker pool.",
			}),
		}
		prometheus.MustRegister(
			executionRegistry.operations,
			executionRegistry.latency,
			executionRegistry.gas,
			executionRegistry.steps,
			executionRegistry.inflight,
		)
	})
	return executionRegistry
}

// Observe records the outcome of one operation.
func (m *ExecutionMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveGas records gas used by a call or returned by an estimate.
func (m *ExecutionMetrics) ObserveGas(operation string, gas uint64) {
	if m == nil {
		return
	}
	m.gas.WithLabelValues(operation).Observe(float64(gas))
}

// ObserveTraceSteps records the length of a trace.
func (m *ExecutionMetrics) ObserveTraceSteps(steps int) {
	if m == nil {
		return
	}
	m.steps.Observe(float64(steps))
}

// Track marks an operation as in flight until the returned func is called.
func (m *ExecutionMetrics) Track() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}
