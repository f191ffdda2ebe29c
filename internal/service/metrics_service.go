package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stitchline/atelier-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// workflow engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	transitions     *prometheus.CounterVec
	barrierFired    prometheus.Counter
	itemsPicked     prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	packetTransitions    uint64
	sectionTransitions   uint64
	orderTransitions     uint64
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "State transitions applied by the workflow engine",
	}, []string{"entity", "to"})

	barrierFired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workflow_qa_barrier_fired_total",
		Help: "Times the all-sections-approved barrier advanced an order item",
	})

	itemsPicked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workflow_items_picked_total",
		Help: "Pick list items marked picked",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHitRatio, cacheHits, cacheMisses,
		transitions, barrierFired, itemsPicked, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		transitions:     transitions,
		barrierFired:    barrierFired,
		itemsPicked:     itemsPicked,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup outcome.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordPacketTransition counts a packet status change.
func (m *MetricsService) RecordPacketTransition(to models.PacketStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues("packet", string(to)).Inc()
	atomic.AddUint64(&m.packetTransitions, 1)
}

// RecordSectionTransition counts a section status change.
func (m *MetricsService) RecordSectionTransition(to models.SectionStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues("section", string(to)).Inc()
	atomic.AddUint64(&m.sectionTransitions, 1)
}

// RecordOrderTransition counts an order item status change.
func (m *MetricsService) RecordOrderTransition(to models.OrderStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues("order_item", string(to)).Inc()
	atomic.AddUint64(&m.orderTransitions, 1)
}

// RecordBarrierFired counts an order item crossing the QA fan-in barrier.
func (m *MetricsService) RecordBarrierFired() {
	if m == nil {
		return
	}
	m.barrierFired.Inc()
}

// RecordItemPicked counts one pick.
func (m *MetricsService) RecordItemPicked() {
	if m == nil {
		return
	}
	m.itemsPicked.Inc()
}

// Snapshot returns aggregated counters for the analytics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		PacketTransitions:        atomic.LoadUint64(&m.packetTransitions),
		SectionTransitions:       atomic.LoadUint64(&m.sectionTransitions),
		OrderTransitions:         atomic.LoadUint64(&m.orderTransitions),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
