package connmgr

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	"github.com/bganilkumar/ConnectionManager/fault"
	"github.com/bganilkumar/ConnectionManager/pool"
	"github.com/bganilkumar/ConnectionManager/types"
)

// journalRecoverTimeout bounds the startup journal scan.
const journalRecoverTimeout = 30 * time.Second

// Manager is the entry point for managed device-model persistence.
//
// It owns a bounded session pool, a per-key fault buffer, and optionally a
// durable journal mirroring that buffer. Device rows are keyed by serial
// number; every write for a serial flows through the same build, execute,
// classify cycle, so a write that fails transiently is buffered and replayed
// in front of the next write for that serial.
//
// A Manager is constructed with NewManager and is safe for concurrent use.
// Construct as many managers as you need; each owns its own pool and buffer.
type Manager struct {
	factory cql.SessionFactory
	pool    *pool.Pool
	buffer  *fault.Buffer
	journal fault.Journal

	table            string
	batchType        types.BatchType
	asyncWaitTimeout time.Duration

	closed atomic.Bool

	logger  types.Logger
	metrics types.MetricsCollector
}

// NewManager creates a Manager around the given session factory.
//
// No sessions are opened here; the pool fills lazily as operations acquire
// capacity. If a journal is configured, its contents are recovered into the
// fault buffer before the manager is returned, so statements buffered by a
// previous process replay in front of the first write for their serial. A
// recovery failure fails construction: silently dropping journaled
// statements would break the replay guarantee.
//
// Parameters:
//   - factory: Driver session factory; must not be nil
//   - opts: Optional configuration
//
// Returns:
//   - *Manager: A ready-to-use manager
//   - error: types.ErrNilFactory, pool construction errors, or a journal
//     recovery failure
func NewManager(factory cql.SessionFactory, opts ...Option) (*Manager, error) {
	if factory == nil {
		return nil, types.ErrNilFactory
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.AsyncWaitTimeout <= 0 {
		cfg.AsyncWaitTimeout = pool.DefaultAsyncWaitTimeout
	}

	p, err := pool.New(factory,
		pool.WithCapacity(cfg.Capacity),
		pool.WithAsyncWaitTimeout(cfg.AsyncWaitTimeout),
		pool.WithLogger(cfg.Logger),
		pool.WithMetrics(cfg.Metrics),
	)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		factory:          factory,
		pool:             p,
		buffer:           fault.New(fault.WithLogger(cfg.Logger), fault.WithMetrics(cfg.Metrics)),
		journal:          cfg.Journal,
		table:            cfg.Table,
		batchType:        cfg.BatchType,
		asyncWaitTimeout: cfg.AsyncWaitTimeout,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
	}

	if m.journal != nil {
		if err := m.recoverJournal(); err != nil {
			return nil, fmt.Errorf("connmgr: journal recovery failed: %w", err)
		}
	}

	m.logger.Info("connection manager ready",
		"keyspace", factory.Keyspace(),
		"table", m.table,
		"capacity", cfg.Capacity,
	)

	return m, nil
}

// recoverJournal seeds the fault buffer with statements journaled by a
// previous process.
func (m *Manager) recoverJournal() error {
	ctx, cancel := context.WithTimeout(context.Background(), journalRecoverTimeout)
	defer cancel()

	entries, err := m.journal.Recover(ctx)
	if err != nil {
		return err
	}

	recovered := 0
	for key, stmts := range entries {
		m.buffer.RecordFailure(key, stmts...)
		recovered += len(stmts)
	}

	if recovered > 0 {
		m.metrics.AddJournalRecovered(recovered)
		m.logger.Info("journal recovery complete", "keys", len(entries), "statements", recovered)
	}

	return nil
}

// Insert persists a new device row for serial. Newly inserted rows start
// administratively down.
//
// A transient failure buffers the statement for replay with the next write
// for the same serial; a validation failure does not.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - serial: Device serial number, the row key
//   - params: Device parameters, stored as a JSON document
//
// Returns:
//   - error: nil on success, *types.ValidationError, *types.TransientError,
//     *types.PoolExhaustedError, or types.ErrManagerClosed
func (m *Manager) Insert(ctx context.Context, serial string, params map[string]string) error {
	return m.execute(ctx, serial, m.insertStatement(serial, params))
}

// Update overwrites the stored parameters for serial. The administrative
// state of the row is left untouched.
func (m *Manager) Update(ctx context.Context, serial string, params map[string]string) error {
	return m.execute(ctx, serial, m.updateStatement(serial, params))
}

// Reset deletes the device row for serial.
func (m *Manager) Reset(ctx context.Context, serial string) error {
	return m.execute(ctx, serial, m.deleteStatement(serial))
}

// Select reads the device row for serial.
//
// Returns:
//   - *DeviceRecord: The stored row
//   - error: types.ErrNotFound when no row exists for serial; otherwise a
//     classified read failure
func (m *Manager) Select(ctx context.Context, serial string) (*DeviceRecord, error) {
	if m.closed.Load() {
		return nil, types.ErrManagerClosed
	}

	return m.selectOne(ctx, serial)
}

// Save upserts the device row for serial: existing rows get their parameters
// updated, absent ones are inserted.
//
// The probe and the write run under the serial's key lock, so two concurrent
// Saves for one serial cannot both observe the row as absent.
func (m *Manager) Save(ctx context.Context, serial string, params map[string]string) error {
	if m.closed.Load() {
		return types.ErrManagerClosed
	}

	unlock := m.buffer.LockKey(serial)
	defer unlock()

	_, err := m.selectOne(ctx, serial)
	switch {
	case err == nil:
		return m.executeLocked(ctx, serial, m.updateStatement(serial, params), nil)
	case errors.Is(err, types.ErrNotFound):
		return m.executeLocked(ctx, serial, m.insertStatement(serial, params), nil)
	default:
		return err
	}
}

// InsertAsync runs Insert on a goroutine and returns its future.
//
// The returned future's Wait applies the configured asynchronous wait bound.
// An expired wait abandons only the caller's view: the write keeps running,
// but a cycle whose waiter gave up no longer touches the fault buffer.
func (m *Manager) InsertAsync(ctx context.Context, serial string, params map[string]string) *WriteFuture {
	return m.executeAsync(ctx, serial, m.insertStatement(serial, params))
}

// UpdateAsync runs Update on a goroutine and returns its future.
func (m *Manager) UpdateAsync(ctx context.Context, serial string, params map[string]string) *WriteFuture {
	return m.executeAsync(ctx, serial, m.updateStatement(serial, params))
}

// ResetAsync runs Reset on a goroutine and returns its future.
func (m *Manager) ResetAsync(ctx context.Context, serial string) *WriteFuture {
	return m.executeAsync(ctx, serial, m.deleteStatement(serial))
}

// SelectAsync runs Select on a goroutine and returns its future. Reads have
// no fault-buffer side effects, so an expired wait simply leaves the result
// to be observed later through Done and Result.
func (m *Manager) SelectAsync(ctx context.Context, serial string) *SelectFuture {
	if m.closed.Load() {
		return resolvedSelectFuture(types.ErrManagerClosed, m.asyncWaitTimeout, m.metrics)
	}

	f := newSelectFuture(m.asyncWaitTimeout, m.metrics)
	go func() {
		defer close(f.done)

		f.rec, f.err = m.selectOne(ctx, serial)
	}()

	return f
}

// selectOne wraps the row read with read metrics. An absent row is not a
// read error.
func (m *Manager) selectOne(ctx context.Context, serial string) (*DeviceRecord, error) {
	m.metrics.IncReadTotal()
	start := time.Now()

	rec, err := m.selectRow(ctx, serial)
	m.metrics.ObserveReadDuration(time.Since(start).Seconds())

	if err != nil && !errors.Is(err, types.ErrNotFound) {
		m.metrics.IncReadError()
	}

	return rec, err
}

func (m *Manager) selectRow(ctx context.Context, serial string) (*DeviceRecord, error) {
	s, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	stmt := m.selectStatement(serial)

	var (
		gotSerial string
		obj       string
		adminUp   bool
	)
	if err := s.Scan(ctx, stmt, &gotSerial, &obj, &adminUp); err != nil {
		return nil, m.factory.ClassifyError("select", stmt.Query, err)
	}

	params, err := decodeParams(obj)
	if err != nil {
		return nil, err
	}

	return &DeviceRecord{Serial: gotSerial, Params: params, AdminUp: adminUp}, nil
}

// AcquireSession checks a raw session handle out of the pool for statements
// outside the managed device-model operations. The handle must be closed to
// return its capacity; writes through it bypass the fault buffer.
func (m *Manager) AcquireSession(ctx context.Context) (*pool.PooledSession, error) {
	if m.closed.Load() {
		return nil, types.ErrManagerClosed
	}

	return m.pool.Acquire(ctx)
}

// Ping verifies the cluster is reachable by checking a session out of the
// pool and returning it. When the pool holds no idle session this dials the
// cluster, so a healthy return means a session could actually be built.
func (m *Manager) Ping(ctx context.Context) error {
	s, err := m.AcquireSession(ctx)
	if err != nil {
		return err
	}
	s.Close()

	return nil
}

// PendingFaults reports the number of serials with buffered statements and
// the total number of buffered statements awaiting replay.
func (m *Manager) PendingFaults() (keys int, statements int) {
	return m.buffer.Pending()
}

// Keyspace returns the keyspace managed sessions are bound to.
func (m *Manager) Keyspace() string {
	return m.factory.Keyspace()
}

// Closed reports whether the manager has been shut down.
func (m *Manager) Closed() bool {
	return m.closed.Load()
}

// Shutdown marks the manager closed, shuts the pool down, closes the
// journal, and discards anything still in the fault buffer.
//
// Statements still buffered at shutdown are logged as discarded; if a
// journal is configured they remain journaled and will be recovered by the
// next process.
//
// Returns:
//   - []*pool.CloseFuture: One future per idle session being torn down; wait
//     on them to observe connection teardown. Nil on repeated calls.
func (m *Manager) Shutdown() []*pool.CloseFuture {
	if m.closed.Swap(true) {
		return nil
	}

	futures := m.pool.Shutdown()

	if m.journal != nil {
		if err := m.journal.Close(); err != nil {
			m.logger.Error("journal close failed", "error", err)
		}
	}

	m.buffer.FlushAll()
	m.logger.Info("connection manager shut down", "closing", len(futures))

	return futures
}

// Close shuts the manager down and waits for every idle session to finish
// closing or ctx to expire.
func (m *Manager) Close(ctx context.Context) error {
	for _, f := range m.Shutdown() {
		if err := f.WaitContext(ctx); err != nil {
			return err
		}
	}

	return nil
}
