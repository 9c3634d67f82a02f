package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/bganilkumar/ConnectionManager/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "connmgr"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// statementKinds lists the kinds pre-created as labeled write counters.
var statementKinds = []types.StatementKind{
	types.KindInsert,
	types.KindUpdate,
	types.KindDelete,
	types.KindSelect,
	types.KindRaw,
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// All metrics are pre-created at initialization time for optimal performance.
// Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string

	// Pool metrics
	acquireTotal        *metrics.Counter
	acquireErrors       *metrics.Counter
	acquireWait         *metrics.Histogram
	sessionsCreated     *metrics.Counter
	sessionCreateErrors *metrics.Counter
	sessionsIdle        atomic.Int64
	sessionsInUse       atomic.Int64

	// Read metrics
	readTotal    *metrics.Counter
	readErrors   *metrics.Counter
	readDuration *metrics.Histogram

	// Write metrics
	writeTotal    map[types.StatementKind]*metrics.Counter
	writeErrors   map[types.StatementKind]*metrics.Counter
	writeDuration *metrics.Histogram
	asyncTimeouts *metrics.Counter

	// Fault buffer metrics
	faultBuffered          *metrics.Counter
	faultReplayed          *metrics.Counter
	faultDiscarded         *metrics.Counter
	faultPendingKeys       atomic.Int64
	faultPendingStatements atomic.Int64

	// Journal metrics
	journalAppends      *metrics.Counter
	journalAppendErrors *metrics.Counter
	journalDiscards     *metrics.Counter
	journalRecovered    *metrics.Counter
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally.
// All metrics are pre-created at initialization for optimal performance.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	mgr, _ := connmgr.NewManager(factory,
//	    connmgr.WithMetrics(collector),
//	)
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "connmgr",
	}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

// initMetrics pre-creates all metrics with the configured prefix.
func (c *Collector) initMetrics() {
	p := c.prefix

	// Pool metrics
	c.acquireTotal = c.set.NewCounter(fmt.Sprintf(`%s_acquire_total`, p))
	c.acquireErrors = c.set.NewCounter(fmt.Sprintf(`%s_acquire_errors_total`, p))
	c.acquireWait = c.set.NewHistogram(fmt.Sprintf(`%s_acquire_wait_seconds`, p))
	c.sessionsCreated = c.set.NewCounter(fmt.Sprintf(`%s_sessions_created_total`, p))
	c.sessionCreateErrors = c.set.NewCounter(fmt.Sprintf(`%s_session_create_errors_total`, p))
	c.set.NewGauge(fmt.Sprintf(`%s_sessions_idle`, p), func() float64 {
		return float64(c.sessionsIdle.Load())
	})
	c.set.NewGauge(fmt.Sprintf(`%s_sessions_in_use`, p), func() float64 {
		return float64(c.sessionsInUse.Load())
	})

	// Read metrics
	c.readTotal = c.set.NewCounter(fmt.Sprintf(`%s_read_total`, p))
	c.readErrors = c.set.NewCounter(fmt.Sprintf(`%s_read_errors_total`, p))
	c.readDuration = c.set.NewHistogram(fmt.Sprintf(`%s_read_duration_seconds`, p))

	// Write metrics, labeled by statement kind
	c.writeTotal = make(map[types.StatementKind]*metrics.Counter, len(statementKinds))
	c.writeErrors = make(map[types.StatementKind]*metrics.Counter, len(statementKinds))
	for _, kind := range statementKinds {
		c.writeTotal[kind] = c.set.NewCounter(fmt.Sprintf(`%s_write_total{kind="%s"}`, p, kind))
		c.writeErrors[kind] = c.set.NewCounter(fmt.Sprintf(`%s_write_errors_total{kind="%s"}`, p, kind))
	}
	c.writeDuration = c.set.NewHistogram(fmt.Sprintf(`%s_write_duration_seconds`, p))
	c.asyncTimeouts = c.set.NewCounter(fmt.Sprintf(`%s_async_timeouts_total`, p))

	// Fault buffer metrics
	c.faultBuffered = c.set.NewCounter(fmt.Sprintf(`%s_fault_buffered_total`, p))
	c.faultReplayed = c.set.NewCounter(fmt.Sprintf(`%s_fault_replayed_total`, p))
	c.faultDiscarded = c.set.NewCounter(fmt.Sprintf(`%s_fault_discarded_total`, p))
	c.set.NewGauge(fmt.Sprintf(`%s_fault_pending_keys`, p), func() float64 {
		return float64(c.faultPendingKeys.Load())
	})
	c.set.NewGauge(fmt.Sprintf(`%s_fault_pending_statements`, p), func() float64 {
		return float64(c.faultPendingStatements.Load())
	})

	// Journal metrics
	c.journalAppends = c.set.NewCounter(fmt.Sprintf(`%s_journal_appends_total`, p))
	c.journalAppendErrors = c.set.NewCounter(fmt.Sprintf(`%s_journal_append_errors_total`, p))
	c.journalDiscards = c.set.NewCounter(fmt.Sprintf(`%s_journal_discards_total`, p))
	c.journalRecovered = c.set.NewCounter(fmt.Sprintf(`%s_journal_recovered_total`, p))
}

// Set returns the underlying metrics set.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// writeCounter returns the pre-created counter for kind, creating one on
// the fly for kinds outside the known set.
func (c *Collector) writeCounter(m map[types.StatementKind]*metrics.Counter, name string, kind types.StatementKind) *metrics.Counter {
	if counter, ok := m[kind]; ok {
		return counter
	}

	return c.set.GetOrCreateCounter(fmt.Sprintf(`%s_%s{kind="%s"}`, c.prefix, name, kind))
}

// ----------------------
// Pool
// ----------------------

// IncAcquireTotal increments the session acquisition counter.
func (c *Collector) IncAcquireTotal() {
	c.acquireTotal.Inc()
}

// IncAcquireError increments the failed acquisition counter.
func (c *Collector) IncAcquireError() {
	c.acquireErrors.Inc()
}

// ObserveAcquireWait records time spent waiting for a pool permit in seconds.
func (c *Collector) ObserveAcquireWait(seconds float64) {
	c.acquireWait.Update(seconds)
}

// IncSessionCreated increments the lazily-created session counter.
func (c *Collector) IncSessionCreated() {
	c.sessionsCreated.Inc()
}

// IncSessionCreateError increments the failed session creation counter.
func (c *Collector) IncSessionCreateError() {
	c.sessionCreateErrors.Inc()
}

// SetSessionsIdle sets the idle session gauge.
func (c *Collector) SetSessionsIdle(n int) {
	c.sessionsIdle.Store(int64(n))
}

// SetSessionsInUse sets the in-use session gauge.
func (c *Collector) SetSessionsInUse(n int) {
	c.sessionsInUse.Store(int64(n))
}

// ----------------------
// Read Operations
// ----------------------

// IncReadTotal increments the total read operations counter.
func (c *Collector) IncReadTotal() {
	c.readTotal.Inc()
}

// IncReadError increments the read error counter.
func (c *Collector) IncReadError() {
	c.readErrors.Inc()
}

// ObserveReadDuration records a read operation duration in seconds.
func (c *Collector) ObserveReadDuration(seconds float64) {
	c.readDuration.Update(seconds)
}

// ----------------------
// Write Operations
// ----------------------

// IncWriteTotal increments the write counter for a statement kind.
func (c *Collector) IncWriteTotal(kind types.StatementKind) {
	c.writeCounter(c.writeTotal, "write_total", kind).Inc()
}

// IncWriteError increments the write error counter for a statement kind.
func (c *Collector) IncWriteError(kind types.StatementKind) {
	c.writeCounter(c.writeErrors, "write_errors_total", kind).Inc()
}

// ObserveWriteDuration records a write operation duration in seconds.
func (c *Collector) ObserveWriteDuration(seconds float64) {
	c.writeDuration.Update(seconds)
}

// IncAsyncTimeout increments the counter of asynchronous waits that gave up.
func (c *Collector) IncAsyncTimeout() {
	c.asyncTimeouts.Inc()
}

// ----------------------
// Fault Buffer
// ----------------------

// IncFaultBuffered increments the counter of statements buffered for replay.
func (c *Collector) IncFaultBuffered() {
	c.faultBuffered.Inc()
}

// IncFaultReplayed increments the counter of replayed statements.
func (c *Collector) IncFaultReplayed() {
	c.faultReplayed.Inc()
}

// IncFaultDiscarded increments the counter of discarded statements.
func (c *Collector) IncFaultDiscarded() {
	c.faultDiscarded.Inc()
}

// SetFaultPendingKeys sets the gauge of keys with buffered statements.
func (c *Collector) SetFaultPendingKeys(n int) {
	c.faultPendingKeys.Store(int64(n))
}

// SetFaultPendingStatements sets the gauge of buffered statements.
func (c *Collector) SetFaultPendingStatements(n int) {
	c.faultPendingStatements.Store(int64(n))
}

// ----------------------
// Journal
// ----------------------

// IncJournalAppend increments the journal append counter.
func (c *Collector) IncJournalAppend() {
	c.journalAppends.Inc()
}

// IncJournalAppendError increments the journal append error counter.
func (c *Collector) IncJournalAppendError() {
	c.journalAppendErrors.Inc()
}

// IncJournalDiscard increments the journal discard counter.
func (c *Collector) IncJournalDiscard() {
	c.journalDiscards.Inc()
}

// AddJournalRecovered adds to the counter of statements recovered from
// the journal.
func (c *Collector) AddJournalRecovered(n int) {
	c.journalRecovered.Add(n)
}
