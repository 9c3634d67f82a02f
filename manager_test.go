package connmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	"github.com/bganilkumar/ConnectionManager/journal"
	"github.com/bganilkumar/ConnectionManager/types"
)

var (
	errNoHost    = errors.New("no host available")
	errBadSyntax = errors.New("line 1: syntax error")
	errNoRows    = errors.New("row not found")
)

// scriptedFactory implements cql.SessionFactory over a single shared
// scripted session.
type scriptedFactory struct {
	mu             sync.Mutex
	keyspace       string
	session        *scriptedSession
	created        int
	createFailures int
	createErr      error
}

func newScriptedFactory() *scriptedFactory {
	return &scriptedFactory{keyspace: "simulator", session: newScriptedSession()}
}

func (f *scriptedFactory) NewSession(ctx context.Context) (cql.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createFailures > 0 {
		f.createFailures--
		return nil, f.createErr
	}

	f.created++

	return f.session, nil
}

func (f *scriptedFactory) Keyspace() string {
	return f.keyspace
}

func (f *scriptedFactory) ClassifyError(op, query string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, errBadSyntax):
		return &types.ValidationError{Query: query, Cause: err}
	case errors.Is(err, errNoRows):
		return types.ErrNotFound
	default:
		return &types.TransientError{Op: op, Cause: err}
	}
}

// statementRecord is one executed statement as seen by the mock driver.
type statementRecord struct {
	query string
	args  []any
}

// deviceRow is a scripted row returned by scans.
type deviceRow struct {
	obj     string
	adminUp bool
}

// scriptedSession implements cql.Session with per-call failure scripts and
// scripted scan rows.
type scriptedSession struct {
	mu sync.Mutex

	execs      []statementRecord
	batches    [][]cql.BatchEntry
	batchKinds []types.BatchType
	scans      int

	failExecs   int
	execErr     error
	failBatches int
	batchErr    error
	execDelay   time.Duration

	scanErr error
	rows    map[string]deviceRow

	closed atomic.Bool
}

func newScriptedSession() *scriptedSession {
	return &scriptedSession{rows: make(map[string]deviceRow)}
}

func (s *scriptedSession) Query(stmt string, values ...any) cql.Query {
	return &scriptedQuery{session: s, statement: stmt, values: values}
}

func (s *scriptedSession) Batch(kind cql.BatchType) cql.Batch {
	return &scriptedBatch{session: s, kind: kind}
}

func (s *scriptedSession) Close() {
	s.closed.Store(true)
}

func (s *scriptedSession) failNextExecs(n int, err error) {
	s.mu.Lock()
	s.failExecs, s.execErr = n, err
	s.mu.Unlock()
}

func (s *scriptedSession) failNextBatches(n int, err error) {
	s.mu.Lock()
	s.failBatches, s.batchErr = n, err
	s.mu.Unlock()
}

func (s *scriptedSession) setExecDelay(d time.Duration) {
	s.mu.Lock()
	s.execDelay = d
	s.mu.Unlock()
}

func (s *scriptedSession) setRow(serial string, params map[string]string, adminUp bool) {
	s.mu.Lock()
	s.rows[serial] = deviceRow{obj: encodeParams(params), adminUp: adminUp}
	s.mu.Unlock()
}

func (s *scriptedSession) setScanErr(err error) {
	s.mu.Lock()
	s.scanErr = err
	s.mu.Unlock()
}

func (s *scriptedSession) execRecords() []statementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]statementRecord, len(s.execs))
	copy(out, s.execs)

	return out
}

func (s *scriptedSession) batchRecords() [][]cql.BatchEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]cql.BatchEntry, len(s.batches))
	copy(out, s.batches)

	return out
}

func (s *scriptedSession) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scans
}

// scriptedQuery implements cql.Query for testing.
type scriptedQuery struct {
	session   *scriptedSession
	statement string
	values    []any
	released  bool
}

func (q *scriptedQuery) Consistency(_ cql.Consistency) cql.Query { return q }
func (q *scriptedQuery) PageSize(_ int) cql.Query                { return q }
func (q *scriptedQuery) PageState(_ []byte) cql.Query            { return q }
func (q *scriptedQuery) WithTimestamp(_ int64) cql.Query         { return q }
func (q *scriptedQuery) Statement() string                       { return q.statement }
func (q *scriptedQuery) Values() []any                           { return q.values }
func (q *scriptedQuery) Release()                                { q.released = true }

func (q *scriptedQuery) Exec() error {
	return q.ExecContext(context.Background())
}

func (q *scriptedQuery) ExecContext(_ context.Context) error {
	s := q.session

	s.mu.Lock()
	delay := s.execDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.execs = append(s.execs, statementRecord{query: q.statement, args: q.values})

	if s.failExecs > 0 {
		s.failExecs--
		return s.execErr
	}

	return nil
}

func (q *scriptedQuery) Scan(dest ...any) error {
	return q.ScanContext(context.Background(), dest...)
}

func (q *scriptedQuery) ScanContext(_ context.Context, dest ...any) error {
	s := q.session

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans++

	if s.scanErr != nil {
		return s.scanErr
	}

	row, ok := s.rows[q.values[0].(string)]
	if !ok {
		return errNoRows
	}

	*(dest[0].(*string)) = q.values[0].(string)
	*(dest[1].(*string)) = row.obj
	*(dest[2].(*bool)) = row.adminUp

	return nil
}

func (q *scriptedQuery) Iter() cql.Iter {
	return &scriptedIter{}
}

func (q *scriptedQuery) IterContext(_ context.Context) cql.Iter {
	return &scriptedIter{}
}

func (q *scriptedQuery) MapScan(_ map[string]any) error {
	return q.session.scanErr
}

func (q *scriptedQuery) MapScanContext(_ context.Context, _ map[string]any) error {
	return q.session.scanErr
}

// scriptedBatch implements cql.Batch for testing.
type scriptedBatch struct {
	session *scriptedSession
	kind    cql.BatchType
	entries []cql.BatchEntry
}

func (b *scriptedBatch) Query(stmt string, args ...any) cql.Batch {
	b.entries = append(b.entries, cql.BatchEntry{Statement: stmt, Args: args})
	return b
}

func (b *scriptedBatch) Consistency(_ cql.Consistency) cql.Batch { return b }
func (b *scriptedBatch) WithTimestamp(_ int64) cql.Batch         { return b }
func (b *scriptedBatch) Size() int                               { return len(b.entries) }
func (b *scriptedBatch) Statements() []cql.BatchEntry            { return b.entries }

func (b *scriptedBatch) Exec() error {
	return b.ExecContext(context.Background())
}

func (b *scriptedBatch) ExecContext(_ context.Context) error {
	s := b.session

	s.mu.Lock()
	delay := s.execDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]cql.BatchEntry, len(b.entries))
	copy(entries, b.entries)
	s.batches = append(s.batches, entries)
	s.batchKinds = append(s.batchKinds, b.kind)

	if s.failBatches > 0 {
		s.failBatches--
		return s.batchErr
	}

	return nil
}

// scriptedIter implements cql.Iter for testing.
type scriptedIter struct{}

func (i *scriptedIter) Scan(_ ...any) bool                  { return false }
func (i *scriptedIter) Close() error                        { return nil }
func (i *scriptedIter) MapScan(_ map[string]any) bool       { return false }
func (i *scriptedIter) SliceMap() ([]map[string]any, error) { return nil, nil }
func (i *scriptedIter) PageState() []byte                   { return nil }
func (i *scriptedIter) NumRows() int                        { return 0 }
func (i *scriptedIter) Scanner() cql.Scanner                { return &scriptedScanner{} }

type scriptedScanner struct{}

func (s *scriptedScanner) Next() bool          { return false }
func (s *scriptedScanner) Scan(_ ...any) error { return nil }
func (s *scriptedScanner) Err() error          { return nil }

func newTestManager(t *testing.T, opts ...Option) (*Manager, *scriptedFactory) {
	t.Helper()

	factory := newScriptedFactory()
	m, err := NewManager(factory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown() })

	return m, factory
}

func TestNewManagerValidation(t *testing.T) {
	t.Run("nil factory", func(t *testing.T) {
		m, err := NewManager(nil)
		require.ErrorIs(t, err, types.ErrNilFactory)
		assert.Nil(t, m)
	})

	t.Run("invalid capacity", func(t *testing.T) {
		m, err := NewManager(newScriptedFactory(), WithCapacity(0))
		require.ErrorIs(t, err, types.ErrInvalidCapacity)
		assert.Nil(t, m)
	})

	t.Run("defaults", func(t *testing.T) {
		m, _ := newTestManager(t)
		assert.Equal(t, "simulator", m.Keyspace())
		assert.False(t, m.Closed())

		keys, stmts := m.PendingFaults()
		assert.Equal(t, 0, keys)
		assert.Equal(t, 0, stmts)
	})
}

func TestWriteOperations(t *testing.T) {
	m, f := newTestManager(t)
	params := map[string]string{"model": "X9"}

	t.Run("insert", func(t *testing.T) {
		require.NoError(t, m.Insert(t.Context(), "SN-1", params))

		execs := f.session.execRecords()
		require.Len(t, execs, 1)
		assert.Equal(t, "INSERT INTO model (serialno, modelobj, isadminup) VALUES (?, ?, ?)", execs[0].query)
		assert.Equal(t, []any{"SN-1", encodeParams(params), false}, execs[0].args)
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, m.Update(t.Context(), "SN-1", params))

		execs := f.session.execRecords()
		require.Len(t, execs, 2)
		assert.Equal(t, "UPDATE model SET modelobj = ? WHERE serialno = ?", execs[1].query)
		assert.Equal(t, []any{encodeParams(params), "SN-1"}, execs[1].args)
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, m.Reset(t.Context(), "SN-1"))

		execs := f.session.execRecords()
		require.Len(t, execs, 3)
		assert.Equal(t, "DELETE FROM model WHERE serialno = ?", execs[2].query)
		assert.Equal(t, []any{"SN-1"}, execs[2].args)
	})
}

func TestTransientFailureBuffersAndReplays(t *testing.T) {
	m, f := newTestManager(t)
	s := f.session

	// First write fails transiently: it is buffered and the error still
	// surfaces.
	s.failNextExecs(1, errNoHost)
	err := m.Insert(t.Context(), "SN-1", map[string]string{"rev": "a"})
	require.ErrorIs(t, err, types.ErrTransient)
	require.True(t, errors.Is(err, errNoHost))

	keys, stmts := m.PendingFaults()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, stmts)

	// The next write carries the pending statement as a batch. When the
	// batch fails too, only the new statement joins the buffer; the
	// constituents are already there.
	s.failNextBatches(1, errNoHost)
	require.ErrorIs(t, m.Update(t.Context(), "SN-1", map[string]string{"rev": "b"}), types.ErrTransient)

	keys, stmts = m.PendingFaults()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 2, stmts)

	// A successful write replays everything in original order and clears
	// the key.
	require.NoError(t, m.Update(t.Context(), "SN-1", map[string]string{"rev": "c"}))

	batches := s.batchRecords()
	require.Len(t, batches, 2)

	replay := batches[1]
	require.Len(t, replay, 3)
	assert.Contains(t, replay[0].Statement, "INSERT INTO model")
	assert.Contains(t, replay[1].Statement, "UPDATE model")
	assert.Contains(t, replay[2].Statement, "UPDATE model")
	assert.Equal(t, []any{encodeParams(map[string]string{"rev": "c"}), "SN-1"}, replay[2].Args)

	s.mu.Lock()
	kind := s.batchKinds[1]
	s.mu.Unlock()
	assert.Equal(t, types.LoggedBatch, kind)

	keys, stmts = m.PendingFaults()
	assert.Equal(t, 0, keys)
	assert.Equal(t, 0, stmts)
}

func TestValidationFailureNeverBuffered(t *testing.T) {
	t.Run("fresh key", func(t *testing.T) {
		m, f := newTestManager(t)

		f.session.failNextExecs(1, errBadSyntax)
		err := m.Insert(t.Context(), "SN-1", nil)
		require.ErrorIs(t, err, types.ErrInvalidStatement)
		assert.NotErrorIs(t, err, types.ErrTransient)

		keys, stmts := m.PendingFaults()
		assert.Equal(t, 0, keys)
		assert.Equal(t, 0, stmts)
	})

	t.Run("key with pending statements", func(t *testing.T) {
		m, f := newTestManager(t)

		f.session.failNextExecs(1, errNoHost)
		require.ErrorIs(t, m.Insert(t.Context(), "SN-1", nil), types.ErrTransient)

		// The replay batch is rejected as invalid: the new statement must
		// not join the buffer, and the already-buffered one must not be
		// lost.
		f.session.failNextBatches(1, errBadSyntax)
		require.ErrorIs(t, m.Update(t.Context(), "SN-1", nil), types.ErrInvalidStatement)

		keys, stmts := m.PendingFaults()
		assert.Equal(t, 1, keys)
		assert.Equal(t, 1, stmts)
	})
}

func TestAcquisitionFailureNeverBuffered(t *testing.T) {
	factory := newScriptedFactory()
	m, err := NewManager(factory, WithCapacity(1))
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown() })

	factory.mu.Lock()
	factory.createFailures, factory.createErr = 1, errNoHost
	factory.mu.Unlock()

	err = m.Insert(t.Context(), "SN-1", nil)
	require.ErrorIs(t, err, types.ErrPoolExhausted)
	assert.NotErrorIs(t, err, types.ErrTransient)

	// The statement never reached the wire, so nothing awaits replay.
	keys, stmts := m.PendingFaults()
	assert.Equal(t, 0, keys)
	assert.Equal(t, 0, stmts)
	assert.Empty(t, factory.session.execRecords())
}

func TestKeyIsolation(t *testing.T) {
	m, f := newTestManager(t)

	f.session.failNextExecs(1, errNoHost)
	require.ErrorIs(t, m.Insert(t.Context(), "SN-A", nil), types.ErrTransient)

	// Writes for other serials proceed independently: no replay batch, no
	// contention with SN-A's buffered statement.
	var wg sync.WaitGroup
	for i := range 8 {
		serial := fmt.Sprintf("SN-%02d", i)
		wg.Go(func() {
			assert.NoError(t, m.Update(t.Context(), serial, map[string]string{"n": serial}))
		})
	}
	wg.Wait()

	assert.Empty(t, f.session.batchRecords(), "disjoint keys must not pick up another key's buffer")

	keys, stmts := m.PendingFaults()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, stmts)
}

func TestSelect(t *testing.T) {
	m, f := newTestManager(t)

	t.Run("found", func(t *testing.T) {
		params := map[string]string{"model": "X9", "fw": "2.1"}
		f.session.setRow("SN-1", params, true)

		rec, err := m.Select(t.Context(), "SN-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "SN-1", rec.Serial)
		assert.Equal(t, params, rec.Params)
		assert.True(t, rec.AdminUp)
	})

	t.Run("not found", func(t *testing.T) {
		rec, err := m.Select(t.Context(), "SN-absent")
		require.ErrorIs(t, err, types.ErrNotFound)
		assert.NotErrorIs(t, err, types.ErrTransient)
		assert.Nil(t, rec)
	})

	t.Run("transient failure", func(t *testing.T) {
		f.session.setScanErr(errNoHost)
		defer f.session.setScanErr(nil)

		rec, err := m.Select(t.Context(), "SN-1")
		require.ErrorIs(t, err, types.ErrTransient)
		assert.Nil(t, rec)
	})
}

func TestSave(t *testing.T) {
	t.Run("inserts absent row", func(t *testing.T) {
		m, f := newTestManager(t)
		params := map[string]string{"model": "X9"}

		require.NoError(t, m.Save(t.Context(), "SN-1", params))

		execs := f.session.execRecords()
		require.Len(t, execs, 1)
		assert.Contains(t, execs[0].query, "INSERT INTO model")
		assert.Equal(t, []any{"SN-1", encodeParams(params), false}, execs[0].args)
		assert.Equal(t, 1, f.session.scanCount(), "save probes for the row first")
	})

	t.Run("updates existing row", func(t *testing.T) {
		m, f := newTestManager(t)
		f.session.setRow("SN-1", map[string]string{"model": "X9"}, true)
		params := map[string]string{"model": "X9", "fw": "3.0"}

		require.NoError(t, m.Save(t.Context(), "SN-1", params))

		execs := f.session.execRecords()
		require.Len(t, execs, 1)
		assert.Contains(t, execs[0].query, "UPDATE model")
		assert.Equal(t, []any{encodeParams(params), "SN-1"}, execs[0].args)
	})

	t.Run("probe failure propagates", func(t *testing.T) {
		m, f := newTestManager(t)
		f.session.setScanErr(errNoHost)

		require.ErrorIs(t, m.Save(t.Context(), "SN-1", nil), types.ErrTransient)
		assert.Empty(t, f.session.execRecords(), "no write may run when the probe fails")
	})
}

func TestAsyncWriteCompletes(t *testing.T) {
	m, f := newTestManager(t)

	fut := m.InsertAsync(t.Context(), "SN-1", map[string]string{"model": "X9"})
	require.NoError(t, fut.Wait())

	execs := f.session.execRecords()
	require.Len(t, execs, 1)
	assert.Contains(t, execs[0].query, "INSERT INTO model")
}

func TestAsyncWaitTimeoutDoesNotBuffer(t *testing.T) {
	m, f := newTestManager(t, WithAsyncWaitTimeout(60*time.Millisecond))
	s := f.session

	s.setExecDelay(250 * time.Millisecond)
	s.failNextExecs(1, errNoHost)

	fut := m.InsertAsync(t.Context(), "SN-1", nil)
	require.ErrorIs(t, fut.Wait(), types.ErrAsyncWaitTimeout)

	// Let the in-flight write finish; its transient failure was abandoned,
	// so it must not have been buffered.
	<-fut.Done()

	keys, stmts := m.PendingFaults()
	assert.Equal(t, 0, keys)
	assert.Equal(t, 0, stmts)

	// The outcome itself is still observable.
	assert.ErrorIs(t, fut.Err(), types.ErrTransient)
}

func TestAsyncAbandonedSuccessDoesNotClear(t *testing.T) {
	m, f := newTestManager(t, WithAsyncWaitTimeout(60*time.Millisecond))
	s := f.session

	s.failNextExecs(1, errNoHost)
	require.ErrorIs(t, m.Insert(t.Context(), "SN-1", map[string]string{"rev": "a"}), types.ErrTransient)

	// The async replay batch succeeds on the wire, but its waiter has
	// already given up: the buffer must stay as it was.
	s.setExecDelay(250 * time.Millisecond)
	fut := m.UpdateAsync(t.Context(), "SN-1", map[string]string{"rev": "b"})
	require.ErrorIs(t, fut.Wait(), types.ErrAsyncWaitTimeout)
	<-fut.Done()

	require.NoError(t, fut.Err())

	keys, stmts := m.PendingFaults()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, stmts)

	// An owned write still replays and clears as usual.
	s.setExecDelay(0)
	require.NoError(t, m.Update(t.Context(), "SN-1", map[string]string{"rev": "c"}))

	keys, stmts = m.PendingFaults()
	assert.Equal(t, 0, keys)
	assert.Equal(t, 0, stmts)
}

func TestAsyncFireAndForgetStillBuffers(t *testing.T) {
	m, f := newTestManager(t)

	f.session.failNextExecs(1, errNoHost)
	fut := m.InsertAsync(t.Context(), "SN-1", nil)

	// Nobody waits, so nobody abandons: the cycle keeps its buffer side
	// effects.
	<-fut.Done()
	require.ErrorIs(t, fut.Err(), types.ErrTransient)

	keys, stmts := m.PendingFaults()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, stmts)
}

func TestSelectAsync(t *testing.T) {
	m, f := newTestManager(t)
	params := map[string]string{"model": "X9"}
	f.session.setRow("SN-1", params, false)

	rec, err := m.SelectAsync(t.Context(), "SN-1").Wait()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "SN-1", rec.Serial)
	assert.Equal(t, params, rec.Params)
	assert.False(t, rec.AdminUp)
}

func TestPing(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		m, _ := newTestManager(t)

		require.NoError(t, m.Ping(t.Context()))
		assert.Equal(t, 1, m.pool.Idle(), "ping returns its session to the pool")
	})

	t.Run("cluster unreachable", func(t *testing.T) {
		factory := newScriptedFactory()
		m, err := NewManager(factory)
		require.NoError(t, err)
		t.Cleanup(func() { m.Shutdown() })

		factory.mu.Lock()
		factory.createFailures, factory.createErr = 1, errNoHost
		factory.mu.Unlock()

		require.ErrorIs(t, m.Ping(t.Context()), types.ErrPoolExhausted)
	})
}

func TestAcquireSession(t *testing.T) {
	m, f := newTestManager(t)

	s, err := m.AcquireSession(t.Context())
	require.NoError(t, err)

	require.NoError(t, s.Execute(t.Context(), types.Statement{
		Kind:  types.KindRaw,
		Query: "TRUNCATE model",
	}))

	require.True(t, s.Close())
	require.False(t, s.Close(), "second close must report it did nothing")

	execs := f.session.execRecords()
	require.Len(t, execs, 1)
	assert.Equal(t, "TRUNCATE model", execs[0].query)
}

func TestManagerClosedOperations(t *testing.T) {
	m, _ := newTestManager(t)
	m.Shutdown()

	require.ErrorIs(t, m.Insert(t.Context(), "SN-1", nil), types.ErrManagerClosed)
	require.ErrorIs(t, m.Update(t.Context(), "SN-1", nil), types.ErrManagerClosed)
	require.ErrorIs(t, m.Reset(t.Context(), "SN-1"), types.ErrManagerClosed)
	require.ErrorIs(t, m.Save(t.Context(), "SN-1", nil), types.ErrManagerClosed)
	require.ErrorIs(t, m.Ping(t.Context()), types.ErrManagerClosed)

	_, err := m.Select(t.Context(), "SN-1")
	require.ErrorIs(t, err, types.ErrManagerClosed)

	_, err = m.AcquireSession(t.Context())
	require.ErrorIs(t, err, types.ErrManagerClosed)

	require.ErrorIs(t, m.InsertAsync(t.Context(), "SN-1", nil).Wait(), types.ErrManagerClosed)

	_, err = m.SelectAsync(t.Context(), "SN-1").Wait()
	require.ErrorIs(t, err, types.ErrManagerClosed)

	assert.True(t, m.Closed())
}

func TestShutdown(t *testing.T) {
	j := journal.NewMemory()
	m, f := newTestManager(t, WithJournal(j))

	// Park one idle session and leave one statement buffered.
	require.NoError(t, m.Ping(t.Context()))
	f.session.failNextExecs(1, errNoHost)
	require.ErrorIs(t, m.Insert(t.Context(), "SN-1", nil), types.ErrTransient)

	futures := m.Shutdown()
	require.Len(t, futures, 1)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, futures[0].WaitContext(ctx))
	assert.True(t, f.session.closed.Load(), "idle sessions must be torn down")

	// The in-memory buffer is flushed; the journal keeps the statement for
	// the next process but accepts no further writes.
	keys, stmts := m.PendingFaults()
	assert.Equal(t, 0, keys)
	assert.Equal(t, 0, stmts)
	assert.Equal(t, 1, j.Len())
	require.ErrorIs(t, j.Append(context.Background(), "SN-2", []types.Statement{{Query: "x"}}), types.ErrJournalClosed)

	// Repeated shutdowns are no-ops.
	require.Nil(t, m.Shutdown())
}

func TestClose(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Ping(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	require.NoError(t, m.Close(ctx))
	assert.True(t, m.Closed())

	// Closing again has nothing left to wait on.
	require.NoError(t, m.Close(ctx))
}

func TestJournalMirroring(t *testing.T) {
	j := journal.NewMemory()
	m, f := newTestManager(t, WithJournal(j))

	f.session.failNextExecs(1, errNoHost)
	require.ErrorIs(t, m.Insert(t.Context(), "SN-1", map[string]string{"rev": "a"}), types.ErrTransient)
	assert.Equal(t, 1, j.Len(), "buffered statements must be mirrored to the journal")

	require.NoError(t, m.Update(t.Context(), "SN-1", map[string]string{"rev": "b"}))
	assert.Equal(t, 0, j.Len(), "a replayed key must be discarded from the journal")
}

func TestJournalRecoverySeedsBuffer(t *testing.T) {
	j := journal.NewMemory()
	seeded := types.Statement{
		Kind:  types.KindInsert,
		Query: "INSERT INTO model (serialno, modelobj, isadminup) VALUES (?, ?, ?)",
		Args:  []any{"SN-7", "{}", false},
	}
	require.NoError(t, j.Append(t.Context(), "SN-7", []types.Statement{seeded}))

	m, f := newTestManager(t, WithJournal(j))

	keys, stmts := m.PendingFaults()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, stmts)

	// The recovered statement replays in front of the next write for its
	// serial.
	require.NoError(t, m.Update(t.Context(), "SN-7", map[string]string{"rev": "b"}))

	batches := f.session.batchRecords()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, seeded.Query, batches[0][0].Statement)

	keys, stmts = m.PendingFaults()
	assert.Equal(t, 0, keys)
	assert.Equal(t, 0, stmts)
	assert.Equal(t, 0, j.Len())
}

// brokenJournal fails recovery; everything else is inert.
type brokenJournal struct {
	err error
}

func (j *brokenJournal) Append(context.Context, string, []types.Statement) error {
	return nil
}

func (j *brokenJournal) Discard(context.Context, string) error {
	return nil
}

func (j *brokenJournal) Recover(context.Context) (map[string][]types.Statement, error) {
	return nil, j.err
}

func (j *brokenJournal) Close() error {
	return nil
}

func TestJournalRecoveryFailureFailsConstruction(t *testing.T) {
	cause := errors.New("stream offline")

	m, err := NewManager(newScriptedFactory(), WithJournal(&brokenJournal{err: cause}))
	require.Error(t, err)
	require.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "journal recovery failed")
	assert.Nil(t, m)
}
