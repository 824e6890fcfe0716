// Package metrics exposes the service's Prometheus collectors. Lock registry
// gauges are pull-based: the registry is sampled at scrape time, never pushed.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of ledger mutations by kind and result.",
		},
		[]string{"kind", "result"},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "engine",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a per-account lock.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
		},
	)

	// Snapshot sources for the pull-based lock gauges. Swappable so tests can
	// wire fresh applications without re-registering collectors.
	lockHandlesFn  atomic.Value // func() int
	deepestQueueFn atomic.Value // func() int

	lockHandles = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "engine",
			Name:      "lock_handles",
			Help:      "Number of per-account lock handles created.",
		},
		func() float64 { return sample(&lockHandlesFn) },
	)

	lockDeepestQueue = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "ledger",
			Subsystem: "engine",
			Name:      "lock_deepest_queue",
			Help:      "Waiter count of the most contended account lock.",
		},
		func() float64 { return sample(&deepestQueueFn) },
	)
)

func sample(v *atomic.Value) float64 {
	if fn, ok := v.Load().(func() int); ok && fn != nil {
		return float64(fn())
	}
	return 0
}

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerOperations,
		lockWait,
		lockHandles,
		lockDeepestQueue,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// RegisterLockGauges points the pull-based lock gauges at the registry's
// snapshot accessors. The latest wiring wins.
func RegisterLockGauges(activeHandles func() int, deepestQueue func() int) {
	lockHandlesFn.Store(activeHandles)
	deepestQueueFn.Store(deepestQueue)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordLedgerOperation counts one engine operation outcome.
func RecordLedgerOperation(kind, result string) {
	ledgerOperations.WithLabelValues(kind, result).Inc()
}

// ObserveLockWait records the time a caller queued for an account lock.
func ObserveLockWait(d time.Duration) {
	if d < 0 {
		d = 0
	}
	lockWait.Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "accounts" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/accounts"
	}
	if len(parts) == 2 {
		return "/accounts/:id"
	}
	return "/accounts/:id/" + parts[2]
}
