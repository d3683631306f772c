package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaprs/aprsinject/pkg/metrics"
)

func TestNewWorkerMetricsDisabled(t *testing.T) {
	// Registry not initialized in this process yet.
	if metrics.IsEnabled() {
		t.Skip("registry already initialized by another test")
	}
	assert.Nil(t, metrics.NewWorkerMetrics())
}

func TestWorkerMetricsCounters(t *testing.T) {
	metrics.InitRegistry()
	m := metrics.NewWorkerMetrics()
	require.NotNil(t, m)

	m.RecordFrame()
	m.RecordPacket("position")
	m.RecordPacket("position")
	m.RecordReject("duplicate")
	m.RecordDeferred()
	m.RecordDropped()
	m.SetQueueDepth(7)

	wm := m.(*workerMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(wm.frames))
	assert.Equal(t, 2.0, testutil.ToFloat64(wm.packets.WithLabelValues("position")))
	assert.Equal(t, 1.0, testutil.ToFloat64(wm.rejects.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(wm.deferred))
	assert.Equal(t, 1.0, testutil.ToFloat64(wm.dropped))
	assert.Equal(t, 7.0, testutil.ToFloat64(wm.queueDepth))

	m.RecordCacheNamespace("callsign", 10, 8, 2, 1, 0.002)
	assert.Equal(t, 10.0, testutil.ToFloat64(wm.cacheTries.WithLabelValues("callsign")))
	assert.Equal(t, 8.0, testutil.ToFloat64(wm.cacheHits.WithLabelValues("callsign")))

	m.RecordSQLNamespace("callsign", 5, 3, 2, 2, 0)
	assert.Equal(t, 5.0, testutil.ToFloat64(wm.sqlTries.WithLabelValues("callsign")))
	assert.Equal(t, 2.0, testutil.ToFloat64(wm.sqlInserted.WithLabelValues("callsign")))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *workerMetrics
	m.RecordFrame()
	m.RecordPacket("position")
	m.RecordReject("tofast")
	m.SetQueueDepth(1)
	m.RecordCacheNamespace("callsign", 0, 0, 0, 0, 0)
	m.RecordSQLNamespace("callsign", 0, 0, 0, 0, 0)
}
