// Package fault buffers write statements that failed transiently so a later
// successful write for the same entity key can replay them in order.
//
// The buffer is a concurrent multi-map from entity key to an ordered list of
// [types.Statement] values. Operations on the same key are atomic with
// respect to each other; operations on disjoint keys do not contend beyond a
// short registry lookup. Callers that need to serialize a whole
// read-execute-mutate cycle for one key (the write executor does) take the
// key's exclusive lock via [Buffer.LockKey].
//
// Buffered statements live in memory and are lost on process exit unless a
// [Journal] mirrors them to durable storage.
package fault

import (
	"sync"

	"github.com/bganilkumar/ConnectionManager/internal/logging"
	"github.com/bganilkumar/ConnectionManager/internal/metrics"
	"github.com/bganilkumar/ConnectionManager/types"
)

// Buffer is the retry cache: per-key ordered lists of failed write
// statements awaiting replay.
//
// All methods are safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	entries map[string][]types.Statement
	count   int

	lockMu sync.Mutex
	locks  map[string]*keyLock

	logger  types.Logger
	metrics types.MetricsCollector
}

// keyLock is one entry in the per-key lock registry. refs counts holders and
// waiters so the entry can be removed once the last one releases.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithLogger sets the logger used for discard reporting.
func WithLogger(logger types.Logger) Option {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector for buffer counters and gauges.
func WithMetrics(collector types.MetricsCollector) Option {
	return func(b *Buffer) {
		if collector != nil {
			b.metrics = collector
		}
	}
}

// New creates an empty Buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		entries: make(map[string][]types.Statement),
		locks:   make(map[string]*keyLock),
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewNopMetrics(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// RecordFailure appends stmts, in order, to the buffered list for key. The
// entry is created if absent. Recording nothing is a no-op.
func (b *Buffer) RecordFailure(key string, stmts ...types.Statement) {
	if len(stmts) == 0 {
		return
	}

	b.mu.Lock()
	b.entries[key] = append(b.entries[key], stmts...)
	b.count += len(stmts)
	keys, total := len(b.entries), b.count
	b.mu.Unlock()

	for range stmts {
		b.metrics.IncFaultBuffered()
	}
	b.metrics.SetFaultPendingKeys(keys)
	b.metrics.SetFaultPendingStatements(total)
}

// PendingFor returns a copy of the buffered statements for key in the order
// they were recorded, or nil when nothing is pending. Mutating the returned
// slice does not affect the buffer.
func (b *Buffer) PendingFor(key string) []types.Statement {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stmts := b.entries[key]
	if len(stmts) == 0 {
		return nil
	}

	out := make([]types.Statement, len(stmts))
	copy(out, stmts)

	return out
}

// Clear removes every buffered statement for key and returns how many were
// removed. Other keys are untouched.
func (b *Buffer) Clear(key string) int {
	b.mu.Lock()
	removed := len(b.entries[key])
	if removed > 0 {
		delete(b.entries, key)
		b.count -= removed
	}
	keys, total := len(b.entries), b.count
	b.mu.Unlock()

	if removed > 0 {
		b.metrics.SetFaultPendingKeys(keys)
		b.metrics.SetFaultPendingStatements(total)
	}

	return removed
}

// FlushAll drains every entry and returns the drained mapping. Intended for
// shutdown diagnostics: anything still buffered at that point will not be
// replayed, so each discarded entry is logged.
func (b *Buffer) FlushAll() map[string][]types.Statement {
	b.mu.Lock()
	drained := b.entries
	b.entries = make(map[string][]types.Statement)
	b.count = 0
	b.mu.Unlock()

	if len(drained) == 0 {
		return nil
	}

	for key, stmts := range drained {
		b.logger.Warn("discarding buffered statements", "key", key, "statements", len(stmts))
		for range stmts {
			b.metrics.IncFaultDiscarded()
		}
	}
	b.metrics.SetFaultPendingKeys(0)
	b.metrics.SetFaultPendingStatements(0)

	return drained
}

// Pending reports the number of keys with buffered statements and the total
// number of buffered statements.
func (b *Buffer) Pending() (keys int, statements int) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries), b.count
}

// LockKey blocks until the caller holds the exclusive lock for key, then
// returns the matching unlock function. Locks for different keys are
// independent: holding one never blocks acquisition of another.
//
// The write executor wraps each attempt for a key in LockKey so the
// read-buffer, execute, mutate-buffer cycle is serialized per key without
// any cross-key contention.
//
// Parameters:
//   - key: entity key to lock.
//
// Returns:
//   - func(): releases the lock; must be called exactly once.
func (b *Buffer) LockKey(key string) func() {
	b.lockMu.Lock()
	l, ok := b.locks[key]
	if !ok {
		l = &keyLock{}
		b.locks[key] = l
	}
	l.refs++
	b.lockMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		b.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(b.locks, key)
		}
		b.lockMu.Unlock()
	}
}
