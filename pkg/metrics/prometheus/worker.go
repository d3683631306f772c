// Package prometheus implements the metric interfaces of pkg/metrics on the
// process Prometheus registry.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openaprs/aprsinject/pkg/metrics"
)

func init() {
	metrics.RegisterWorkerMetricsConstructor(newWorkerMetrics)
}

// workerMetrics is the Prometheus implementation of metrics.WorkerMetrics.
type workerMetrics struct {
	frames      prometheus.Counter
	packets     *prometheus.CounterVec
	rejects     *prometheus.CounterVec
	deferred    prometheus.Counter
	dropped     prometheus.Counter
	disconnects prometheus.Counter
	queueDepth  prometheus.Gauge

	cacheTries  *prometheus.GaugeVec
	cacheHits   *prometheus.GaugeVec
	cacheMisses *prometheus.GaugeVec
	cacheStored *prometheus.GaugeVec
	cacheMean   *prometheus.GaugeVec

	sqlTries    *prometheus.GaugeVec
	sqlHits     *prometheus.GaugeVec
	sqlMisses   *prometheus.GaugeVec
	sqlInserted *prometheus.GaugeVec
	sqlFailed   *prometheus.GaugeVec
}

func newWorkerMetrics() metrics.WorkerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &workerMetrics{
		frames: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aprsinject_frames_total",
			Help: "Total number of broker frames consumed",
		}),
		packets: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "aprsinject_packets_total",
			Help: "Total number of injected packets by type",
		}, []string{"type"}),
		rejects: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "aprsinject_rejects_total",
			Help: "Total number of rejected packets by reason",
		}, []string{"reason"}),
		deferred: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aprsinject_deferred_total",
			Help: "Total number of packet deferrals (transient failures)",
		}),
		dropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aprsinject_dropped_total",
			Help: "Total number of packets dropped after retry exhaustion",
		}),
		disconnects: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aprsinject_broker_disconnects_total",
			Help: "Total number of lost broker connections",
		}),
		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "aprsinject_result_queue_depth",
			Help: "Current length of the result queue",
		}),
		cacheTries: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_cache_tries",
			Help: "Cache lookups in the last emit interval by namespace",
		}, []string{"namespace"}),
		cacheHits: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_cache_hits",
			Help: "Cache hits in the last emit interval by namespace",
		}, []string{"namespace"}),
		cacheMisses: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_cache_misses",
			Help: "Cache misses in the last emit interval by namespace",
		}, []string{"namespace"}),
		cacheStored: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_cache_stored",
			Help: "Cache writes in the last emit interval by namespace",
		}, []string{"namespace"}),
		cacheMean: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_cache_latency_mean_seconds",
			Help: "Running-mean cache latency in the last emit interval by namespace",
		}, []string{"namespace"}),
		sqlTries: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_sql_tries",
			Help: "Resolver SQL lookups in the last emit interval by namespace",
		}, []string{"namespace"}),
		sqlHits: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_sql_hits",
			Help: "Resolver SQL hits in the last emit interval by namespace",
		}, []string{"namespace"}),
		sqlMisses: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_sql_misses",
			Help: "Resolver SQL misses in the last emit interval by namespace",
		}, []string{"namespace"}),
		sqlInserted: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_sql_inserted",
			Help: "Resolver SQL inserts in the last emit interval by namespace",
		}, []string{"namespace"}),
		sqlFailed: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsinject_sql_failed",
			Help: "Resolver SQL failures in the last emit interval by namespace",
		}, []string{"namespace"}),
	}
}

func (m *workerMetrics) RecordFrame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

func (m *workerMetrics) RecordPacket(packetType string) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(packetType).Inc()
}

func (m *workerMetrics) RecordReject(reason string) {
	if m == nil {
		return
	}
	m.rejects.WithLabelValues(reason).Inc()
}

func (m *workerMetrics) RecordDeferred() {
	if m == nil {
		return
	}
	m.deferred.Inc()
}

func (m *workerMetrics) RecordDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *workerMetrics) RecordBrokerDisconnect() {
	if m == nil {
		return
	}
	m.disconnects.Inc()
}

func (m *workerMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *workerMetrics) RecordCacheNamespace(ns string, tries, hits, misses, stored uint64, meanLatency float64) {
	if m == nil {
		return
	}
	m.cacheTries.WithLabelValues(ns).Set(float64(tries))
	m.cacheHits.WithLabelValues(ns).Set(float64(hits))
	m.cacheMisses.WithLabelValues(ns).Set(float64(misses))
	m.cacheStored.WithLabelValues(ns).Set(float64(stored))
	m.cacheMean.WithLabelValues(ns).Set(meanLatency)
}

func (m *workerMetrics) RecordSQLNamespace(ns string, tries, hits, misses, inserted, failed uint64) {
	if m == nil {
		return
	}
	m.sqlTries.WithLabelValues(ns).Set(float64(tries))
	m.sqlHits.WithLabelValues(ns).Set(float64(hits))
	m.sqlMisses.WithLabelValues(ns).Set(float64(misses))
	m.sqlInserted.WithLabelValues(ns).Set(float64(inserted))
	m.sqlFailed.WithLabelValues(ns).Set(float64(failed))
}
