// Package worker drives the ingest pipeline: it pulls frames from the
// broker, splits them into per-packet results, and walks each result through
// parse, reject checks, entity resolution, injection, and notification. One
// worker owns one broker subscription, one store, and one result queue.
package worker

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openaprs/aprsinject/internal/logger"
	"github.com/openaprs/aprsinject/pkg/aprs"
	"github.com/openaprs/aprsinject/pkg/broker"
	"github.com/openaprs/aprsinject/pkg/cache"
	"github.com/openaprs/aprsinject/pkg/kv"
	"github.com/openaprs/aprsinject/pkg/metrics"
	"github.com/openaprs/aprsinject/pkg/store"
)

// Status is the per-result state machine position.
type Status int

const (
	// StatusNone is a freshly enqueued, unparsed result.
	StatusNone Status = iota
	// StatusOk flows toward injection and is terminal on success.
	StatusOk
	// StatusRejected is terminal: the line did not parse.
	StatusRejected
	// StatusDuplicate is terminal: an identical packet arrived recently.
	StatusDuplicate
	// StatusPositError is terminal: the fix failed a movement rule.
	StatusPositError
	// StatusDeferred is transient: retried with backoff, then dropped or
	// kept depending on the drop-defer policy.
	StatusDeferred
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusRejected:
		return "rejected"
	case StatusDuplicate:
		return "duplicate"
	case StatusPositError:
		return "position error"
	case StatusDeferred:
		return "deferred"
	default:
		return "none"
	}
}

// Result is one packet line moving through the pipeline.
type Result struct {
	PacketText string
	ArrivedAt  int64
	Packet     *aprs.Packet
	Error      string
	Status     Status
	Retries    int
}

// Broker is the slice of the broker the worker consumes; satisfied by
// *broker.Broker.
type Broker interface {
	Receive(ctx context.Context) (broker.Frame, error)
	Ack(f broker.Frame) error
	Publish(destination, body string) error
	Disconnects() uint64
}

// Resolver is the slice of the store the worker drives; satisfied by
// *store.Store.
type Resolver interface {
	CallsignID(source string) (string, bool)
	NameID(name string) (string, bool)
	DestID(name string) (string, bool)
	DigiID(name string) (string, bool)
	MaidenheadID(locator string) (string, bool)
	PacketID(callsignID string) (string, bool)
	SetPath(packetID, body string) bool
	SetStatus(packetID, body string) bool
	IconBySymbol(table, code string, course int) (aprs.Icon, bool)

	InjectRaw(p *aprs.Packet) bool
	InjectPosition(p *aprs.Packet) bool
	InjectMessage(p *aprs.Packet) bool
	InjectTelemetry(p *aprs.Packet) bool

	Duplicate(hash string) (*kv.Record, bool)
	SetDuplicate(hash string, rec *kv.Record)
	LastFix(source string) (*kv.Record, bool)
	SetLastFix(source string, rec *kv.Record)
	AddPositionTrack(callsignID string, lat, lng float64, ts int64)
	AddLastPosition(locator string, rec *kv.Record)
	SetLocatorSeen(locator string)

	Stats() *store.SQLStatsSet
	EmitStats() *store.SQLStatsSet
	Cache() *cache.Cache
}

// Config tunes the worker loop.
type Config struct {
	// DropDefer discards a result after its last deferral instead of
	// blocking the queue on it.
	DropDefer bool `mapstructure:"drop_defer" yaml:"drop_defer"`

	// MaxResultsPerPass bounds how many queued results one loop iteration
	// processes before polling the broker again.
	MaxResultsPerPass int `mapstructure:"max_results_per_pass" validate:"gt=0" yaml:"max_results_per_pass"`

	// DeferRetries is the attempt budget for a deferred result.
	DeferRetries int `mapstructure:"defer_retries" validate:"gte=1" yaml:"defer_retries"`

	// DeferBackoff is the sleep before re-attempting a deferred result.
	DeferBackoff time.Duration `mapstructure:"defer_backoff" yaml:"defer_backoff"`

	// PollTimeout bounds the broker read per loop iteration.
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`

	// LocatorFlushInterval is the cadence of the grid-presence batch write.
	LocatorFlushInterval time.Duration `mapstructure:"locator_flush_interval" yaml:"locator_flush_interval"`

	// StatsInterval is the cadence of the short throughput log line.
	StatsInterval time.Duration `mapstructure:"stats_interval" yaml:"stats_interval"`

	// EmitInterval is the cadence of the short stats push to metrics.
	EmitInterval time.Duration `mapstructure:"emit_interval" yaml:"emit_interval"`

	// ReportInterval is the cadence of the long stats log line.
	ReportInterval time.Duration `mapstructure:"report_interval" yaml:"report_interval"`

	// Glyphs prints a one-character console glyph per processed packet.
	Glyphs bool `mapstructure:"glyphs" yaml:"glyphs"`
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxResultsPerPass == 0 {
		c.MaxResultsPerPass = 100
	}
	if c.DeferRetries == 0 {
		c.DeferRetries = 3
	}
	if c.DeferBackoff == 0 {
		c.DeferBackoff = 3 * time.Second
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = time.Second
	}
	if c.LocatorFlushInterval == 0 {
		c.LocatorFlushInterval = 5 * time.Second
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = 60 * time.Second
	}
	if c.EmitInterval == 0 {
		c.EmitInterval = 5 * time.Second
	}
	if c.ReportInterval == 0 {
		c.ReportInterval = 3600 * time.Second
	}
}

// Stats aggregates one report interval of pipeline activity.
type Stats struct {
	Frames  uint64
	Packets uint64
	// Age accumulates now-minus-created per packet; the report divides by
	// Packets for the mean ingest lag.
	Age int64

	Position  uint64
	Message   uint64
	Telemetry uint64
	Status    uint64
	Weather   uint64
	Beacon    uint64
	Other     uint64

	RejectInvparse  uint64
	RejectDuplicate uint64
	RejectTosoon    uint64
	RejectTofast    uint64
	Deferred        uint64
	Dropped         uint64
}

// Worker is the ingest pipeline loop. Single-owner, not safe for concurrent
// use.
type Worker struct {
	broker  Broker
	store   Resolver
	cfg     Config
	metrics metrics.WorkerMetrics

	queue    []*Result
	locators map[string]struct{}
	stats    Stats

	lastLocatorFlush time.Time
	lastStats        time.Time
	lastEmit         time.Time
	lastReport       time.Time
	lastDisconnects  uint64

	// Snapshot of the counters at the last throughput line, for rates.
	prevFrames  uint64
	prevPackets uint64

	console io.Writer
	now     func() time.Time
	sleep   func(time.Duration)
}

// New builds a Worker over a connected broker and store. m may be nil when
// metrics are disabled.
func New(b Broker, s Resolver, cfg Config, m metrics.WorkerMetrics) *Worker {
	cfg.ApplyDefaults()
	now := time.Now()
	return &Worker{
		broker:           b,
		store:            s,
		cfg:              cfg,
		metrics:          m,
		locators:         make(map[string]struct{}),
		lastLocatorFlush: now,
		lastStats:        now,
		lastEmit:         now,
		lastReport:       now,
		console:          os.Stdout,
		now:              time.Now,
		sleep:            time.Sleep,
	}
}

// Run is the worker loop: poll one frame, work the queue, keep the periodic
// chores current. Returns when ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.poll(ctx)
		w.processQueue()
		w.flushLocators(false)
		w.logThroughput(false)
		w.emit(false)
		w.report(false)
	}
}

// poll receives at most one frame, splits it into results, and acks it.
// The ack follows the enqueue so a crash between the two re-delivers.
func (w *Worker) poll(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, w.cfg.PollTimeout)
	defer cancel()

	f, err := w.broker.Receive(rctx)
	if err != nil {
		return
	}
	if f.MessageID == "" {
		logger.Warn("frame without message-id, skipping")
		return
	}

	w.stats.Frames++
	if w.metrics != nil {
		w.metrics.RecordFrame()
	}

	w.enqueue(f.Body)

	if err := w.broker.Ack(f); err != nil {
		logger.Warn("ack failed",
			logger.KeyMessageID, f.MessageID,
			logger.KeyError, err)
	}
}

// enqueue splits a frame body into per-packet results. Each line carries an
// arrival timestamp prefix; lines without one are unusable and dropped.
func (w *Worker) enqueue(body string) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		tsText, raw, found := strings.Cut(line, " ")
		if !found || raw == "" {
			logger.Debug("unusable frame line", logger.KeyBody, line)
			continue
		}
		ts, err := strconv.ParseInt(tsText, 10, 64)
		if err != nil {
			logger.Debug("unusable frame timestamp", logger.KeyBody, line)
			continue
		}

		w.queue = append(w.queue, &Result{PacketText: raw, ArrivedAt: ts})
	}
}

// processQueue works up to MaxResultsPerPass results off the queue front.
// Deferred results go back to the front after a backoff, until their retry
// budget runs out.
func (w *Worker) processQueue() {
	for n := 0; n < w.cfg.MaxResultsPerPass && len(w.queue) > 0; n++ {
		r := w.queue[0]
		w.queue = w.queue[1:]

		w.handle(r)

		if r.Status != StatusDeferred {
			continue
		}

		w.stats.Deferred++
		if w.metrics != nil {
			w.metrics.RecordDeferred()
		}
		w.glyph("!")

		r.Retries++
		if r.Retries < w.cfg.DeferRetries {
			w.sleep(w.cfg.DeferBackoff)
			w.queue = append([]*Result{r}, w.queue...)
			continue
		}

		if w.cfg.DropDefer {
			w.stats.Dropped++
			if w.metrics != nil {
				w.metrics.RecordDropped()
			}
			logger.Warn("dropping deferred packet",
				logger.KeySource, r.PacketText,
				logger.KeyReason, r.Error,
				logger.KeyAttempts, r.Retries)
			continue
		}

		// Policy off: the result blocks the queue head until it goes in.
		r.Retries = 0
		w.sleep(w.cfg.DeferBackoff)
		w.queue = append([]*Result{r}, w.queue...)
	}

	if w.metrics != nil {
		w.metrics.SetQueueDepth(len(w.queue))
	}
}

// flushLocators batches the grids seen since the last flush into cache
// writes, one per grid per interval.
func (w *Worker) flushLocators(force bool) {
	if !force && w.now().Sub(w.lastLocatorFlush) < w.cfg.LocatorFlushInterval {
		return
	}
	w.lastLocatorFlush = w.now()

	for locator := range w.locators {
		w.store.SetLocatorSeen(locator)
	}
	w.locators = make(map[string]struct{})
}

// logThroughput writes the short-cadence rate line: packets and frames since
// the last line, per second, plus the mean ingest lag.
func (w *Worker) logThroughput(force bool) {
	elapsed := w.now().Sub(w.lastStats)
	if !force && elapsed < w.cfg.StatsInterval {
		return
	}
	w.lastStats = w.now()

	secs := elapsed.Seconds()
	if secs <= 0 {
		secs = 1
	}

	frames := w.stats.Frames - w.prevFrames
	packets := w.stats.Packets - w.prevPackets
	w.prevFrames = w.stats.Frames
	w.prevPackets = w.stats.Packets

	meanAge := int64(0)
	if w.stats.Packets > 0 {
		meanAge = w.stats.Age / int64(w.stats.Packets)
	}

	logger.Info("throughput",
		"packets", packets,
		"pps", float64(packets)/secs,
		"frames", frames,
		"fps", float64(frames)/secs,
		logger.KeyAge, meanAge,
		"disconnects", w.broker.Disconnects(),
		"queue", len(w.queue))
}

// emit pushes the short-interval counters into the metrics sink and resets
// them.
func (w *Worker) emit(force bool) {
	if w.metrics == nil {
		return
	}
	if !force && w.now().Sub(w.lastEmit) < w.cfg.EmitInterval {
		return
	}
	w.lastEmit = w.now()

	if d := w.broker.Disconnects(); d > w.lastDisconnects {
		for i := w.lastDisconnects; i < d; i++ {
			w.metrics.RecordBrokerDisconnect()
		}
		w.lastDisconnects = d
	}

	cacheStats := w.store.Cache().EmitStats()
	for _, ns := range cacheStats.Namespaces() {
		st := cacheStats.NS(ns)
		w.metrics.RecordCacheNamespace(ns, st.Tries, st.Hits, st.Misses, st.Stored,
			cacheStats.Profile(ns).Mean)
	}
	cacheStats.Reset()

	sqlStats := w.store.EmitStats()
	for _, ns := range sqlStats.Namespaces() {
		st := sqlStats.NS(ns)
		w.metrics.RecordSQLNamespace(ns, st.Tries, st.Hits, st.Misses, st.Inserted, st.Failed)
	}
	sqlStats.Reset()
}

// report writes the long-interval stats log line and resets the counters.
func (w *Worker) report(force bool) {
	if !force && w.now().Sub(w.lastReport) < w.cfg.ReportInterval {
		return
	}
	w.lastReport = w.now()

	meanAge := int64(0)
	if w.stats.Packets > 0 {
		meanAge = w.stats.Age / int64(w.stats.Packets)
	}

	logger.Info("ingest report",
		"frames", w.stats.Frames,
		"packets", w.stats.Packets,
		logger.KeyAge, meanAge,
		"position", w.stats.Position,
		"message", w.stats.Message,
		"telemetry", w.stats.Telemetry,
		"invparse", w.stats.RejectInvparse,
		"duplicate", w.stats.RejectDuplicate,
		"tosoon", w.stats.RejectTosoon,
		"tofast", w.stats.RejectTofast,
		"deferred", w.stats.Deferred,
		"dropped", w.stats.Dropped)

	sqlStats := w.store.Stats()
	for _, ns := range sqlStats.Namespaces() {
		st := sqlStats.NS(ns)
		logger.Info("sql namespace",
			logger.KeyNamespace, ns,
			"tries", st.Tries,
			"hits", st.Hits,
			"misses", st.Misses,
			"inserted", st.Inserted,
			"failed", st.Failed)
	}

	cacheStats := w.store.Cache().Stats()
	for _, ns := range cacheStats.Namespaces() {
		st := cacheStats.NS(ns)
		logger.Info("cache namespace",
			logger.KeyNamespace, ns,
			"tries", st.Tries,
			"hits", st.Hits,
			"misses", st.Misses,
			"stored", st.Stored,
			"hit_rate", st.HitRate())
	}

	w.stats = Stats{}
	w.prevFrames = 0
	w.prevPackets = 0

	// Long-interval store/cache sets reset with the report.
	sqlStats.Reset()
	cacheStats.Reset()
}

func (w *Worker) glyph(g string) {
	if w.cfg.Glyphs {
		io.WriteString(w.console, g)
	}
}
