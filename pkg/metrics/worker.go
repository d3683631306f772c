package metrics

// WorkerMetrics provides observability for the ingest pipeline.
//
// This interface is optional: pass nil to disable metrics collection with
// zero overhead. The Prometheus implementation registers its constructor at
// init time so packages consuming the interface never import the
// implementation directly.
type WorkerMetrics interface {
	// RecordFrame counts one consumed broker frame.
	RecordFrame()

	// RecordPacket counts one successfully injected packet by type
	// ("position", "message", "telemetry", ...).
	RecordPacket(packetType string)

	// RecordReject counts one rejected packet by reason ("invparse",
	// "duplicate", "tosoon", "tofast").
	RecordReject(reason string)

	// RecordDeferred counts one deferral (transient failure, retried).
	RecordDeferred()

	// RecordDropped counts one packet dropped after retry exhaustion.
	RecordDropped()

	// RecordBrokerDisconnect counts one lost broker connection.
	RecordBrokerDisconnect()

	// SetQueueDepth reports the current result-queue length.
	SetQueueDepth(n int)

	// RecordCacheNamespace folds one emit interval of cache counters for a
	// namespace.
	RecordCacheNamespace(ns string, tries, hits, misses, stored uint64, meanLatency float64)

	// RecordSQLNamespace folds one emit interval of resolver counters for a
	// namespace.
	RecordSQLNamespace(ns string, tries, hits, misses, inserted, failed uint64)
}

// NewWorkerMetrics creates a Prometheus-backed WorkerMetrics instance, or
// nil when metrics are not enabled (InitRegistry not called).
func NewWorkerMetrics() WorkerMetrics {
	if !IsEnabled() || newPrometheusWorkerMetrics == nil {
		return nil
	}
	return newPrometheusWorkerMetrics()
}

// newPrometheusWorkerMetrics is implemented in pkg/metrics/prometheus.
// The indirection keeps this package free of the implementation import.
var newPrometheusWorkerMetrics func() WorkerMetrics

// RegisterWorkerMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterWorkerMetricsConstructor(constructor func() WorkerMetrics) {
	newPrometheusWorkerMetrics = constructor
}
