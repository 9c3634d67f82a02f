package types

// MetricsCollector defines methods for collecting operational metrics.
//
// Implementations should be thread-safe as methods may be called
// concurrently from pool, executor, and fault buffer goroutines.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/bganilkumar/ConnectionManager/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	mgr, _ := connmgr.NewManager(factory,
//	    connmgr.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Session Pool
	// ----------------------

	// IncAcquireTotal increments the counter of session acquisitions.
	IncAcquireTotal()

	// IncAcquireError increments the counter of failed acquisitions,
	// including context cancellations while waiting for a permit.
	IncAcquireError()

	// ObserveAcquireWait records the time spent waiting for a pool permit
	// in seconds.
	ObserveAcquireWait(seconds float64)

	// IncSessionCreated increments the counter of sessions created lazily
	// by the pool.
	IncSessionCreated()

	// IncSessionCreateError increments the counter of failed session
	// creation attempts. Each such failure restored a pool permit.
	IncSessionCreateError()

	// SetSessionsIdle sets the gauge of idle pooled sessions.
	SetSessionsIdle(n int)

	// SetSessionsInUse sets the gauge of sessions currently handed out.
	SetSessionsInUse(n int)

	// ----------------------
	// Read Operations
	// ----------------------

	// IncReadTotal increments the total read operations counter.
	IncReadTotal()

	// IncReadError increments the read error counter.
	IncReadError()

	// ObserveReadDuration records a read operation duration in seconds.
	ObserveReadDuration(seconds float64)

	// ----------------------
	// Write Operations
	// ----------------------

	// IncWriteTotal increments the write counter for a statement kind.
	IncWriteTotal(kind StatementKind)

	// IncWriteError increments the write error counter for a statement kind.
	IncWriteError(kind StatementKind)

	// ObserveWriteDuration records a write operation duration in seconds.
	ObserveWriteDuration(seconds float64)

	// IncAsyncTimeout increments the counter of asynchronous waits that
	// expired before the underlying operation completed.
	IncAsyncTimeout()

	// ----------------------
	// Fault Buffer
	// ----------------------

	// IncFaultBuffered increments the counter of statements recorded for
	// replay after a transient failure.
	IncFaultBuffered()

	// IncFaultReplayed increments the counter of buffered statements
	// successfully replayed.
	IncFaultReplayed()

	// IncFaultDiscarded increments the counter of buffered statements
	// dropped without replay (flush or clear).
	IncFaultDiscarded()

	// SetFaultPendingKeys sets the gauge of keys with buffered statements.
	SetFaultPendingKeys(n int)

	// SetFaultPendingStatements sets the gauge of buffered statements
	// across all keys.
	SetFaultPendingStatements(n int)

	// ----------------------
	// Journal
	// ----------------------

	// IncJournalAppend increments the counter of statements mirrored to
	// the durable journal.
	IncJournalAppend()

	// IncJournalAppendError increments the counter of journal append
	// failures. Journal writes are best-effort; failures do not affect the
	// in-memory fault buffer.
	IncJournalAppendError()

	// IncJournalDiscard increments the counter of journal discard
	// operations (one per cleared key).
	IncJournalDiscard()

	// AddJournalRecovered adds to the counter of statements recovered from
	// the journal at startup.
	AddJournalRecovered(n int)
}
