package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	"github.com/bganilkumar/ConnectionManager/types"
)

// Fault errors injected by the fake cluster.
var (
	// ErrClusterDown is returned by every operation while the fake cluster
	// is marked down.
	ErrClusterDown = errors.New("testutil: cluster is down")

	// ErrInvalidQuery marks an injected failure that factories classify as
	// a statement defect.
	ErrInvalidQuery = errors.New("testutil: invalid query")

	// ErrRowNotFound is returned by scans that match no row; factories
	// classify it as types.ErrNotFound.
	ErrRowNotFound = errors.New("testutil: row not found")
)

// FakeRow is one device row held by the fake cluster.
type FakeRow struct {
	Obj     string
	AdminUp bool
}

// FakeCluster is an in-memory stand-in for a Cassandra cluster hosting the
// device-model table.
//
// It applies the manager's INSERT, UPDATE, and DELETE statements to a row
// map and answers its SELECT scans, so tests and simulations can verify
// end state without a real cluster. Faults are injected with SetDown and
// FailNextWrites.
//
// All methods are safe for concurrent use.
type FakeCluster struct {
	mu        sync.RWMutex
	rows      map[string]FakeRow
	execDelay time.Duration

	down       atomic.Bool
	failWrites atomic.Int64
	writeErr   error

	writes  atomic.Int64
	batches atomic.Int64
	reads   atomic.Int64
}

// NewFakeCluster creates an empty fake cluster.
func NewFakeCluster() *FakeCluster {
	return &FakeCluster{rows: make(map[string]FakeRow)}
}

// SetDown marks the cluster down or up. While down, every operation fails
// with ErrClusterDown.
func (c *FakeCluster) SetDown(down bool) {
	c.down.Store(down)
}

// Down reports whether the cluster is marked down.
func (c *FakeCluster) Down() bool {
	return c.down.Load()
}

// FailNextWrites makes the next n write executions fail with err. A batch
// counts as one execution.
func (c *FakeCluster) FailNextWrites(n int, err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()

	c.failWrites.Store(int64(n))
}

// SetExecDelay delays every statement and batch execution by d.
func (c *FakeCluster) SetExecDelay(d time.Duration) {
	c.mu.Lock()
	c.execDelay = d
	c.mu.Unlock()
}

// Row returns the stored row for serial.
func (c *FakeCluster) Row(serial string) (FakeRow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row, ok := c.rows[serial]

	return row, ok
}

// PutRow stores a row directly, bypassing the statement path.
func (c *FakeCluster) PutRow(serial string, row FakeRow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows[serial] = row
}

// RowCount returns the number of stored rows.
func (c *FakeCluster) RowCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.rows)
}

// Writes returns the number of successful single-statement executions.
func (c *FakeCluster) Writes() int64 {
	return c.writes.Load()
}

// Batches returns the number of successful batch executions.
func (c *FakeCluster) Batches() int64 {
	return c.batches.Load()
}

// Reads returns the number of scans served, including misses.
func (c *FakeCluster) Reads() int64 {
	return c.reads.Load()
}

func (c *FakeCluster) delay() {
	c.mu.RLock()
	d := c.execDelay
	c.mu.RUnlock()

	if d > 0 {
		time.Sleep(d)
	}
}

// writeFault reports the fault the next write should fail with, if any.
func (c *FakeCluster) writeFault() error {
	if c.down.Load() {
		return ErrClusterDown
	}

	for {
		n := c.failWrites.Load()
		if n <= 0 {
			return nil
		}
		if c.failWrites.CompareAndSwap(n, n-1) {
			c.mu.RLock()
			err := c.writeErr
			c.mu.RUnlock()

			if err == nil {
				err = ErrClusterDown
			}

			return err
		}
	}
}

func (c *FakeCluster) execute(query string, args []any) error {
	c.delay()

	if err := c.writeFault(); err != nil {
		return err
	}

	c.apply(query, args)
	c.writes.Add(1)

	return nil
}

func (c *FakeCluster) executeBatch(entries []cql.BatchEntry) error {
	c.delay()

	if err := c.writeFault(); err != nil {
		return err
	}

	for _, e := range entries {
		c.apply(e.Statement, e.Args)
	}
	c.batches.Add(1)

	return nil
}

// apply mutates the row map according to the statement shape. Unknown
// statements are counted but change nothing.
func (c *FakeCluster) apply(query string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.HasPrefix(query, "INSERT INTO") && len(args) == 3:
		c.rows[args[0].(string)] = FakeRow{Obj: args[1].(string), AdminUp: args[2].(bool)}
	case strings.HasPrefix(query, "UPDATE") && len(args) == 2:
		// Cassandra UPDATE is an upsert on the touched columns.
		serial := args[1].(string)
		row := c.rows[serial]
		row.Obj = args[0].(string)
		c.rows[serial] = row
	case strings.HasPrefix(query, "DELETE") && len(args) == 1:
		delete(c.rows, args[0].(string))
	}
}

func (c *FakeCluster) scan(serial string, dest []any) error {
	c.reads.Add(1)

	if c.down.Load() {
		return ErrClusterDown
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	row, ok := c.rows[serial]
	if !ok {
		return ErrRowNotFound
	}

	if len(dest) >= 3 {
		copyValue(dest[0], serial)
		copyValue(dest[1], row.Obj)
		copyValue(dest[2], row.AdminUp)
	}

	return nil
}

// FakeFactory implements cql.SessionFactory over a FakeCluster.
type FakeFactory struct {
	cluster  *FakeCluster
	keyspace string

	createFails atomic.Int64
	createErr   error

	opened atomic.Int64
	closed atomic.Int64
}

// Compile-time assertion that FakeFactory implements cql.SessionFactory.
var _ cql.SessionFactory = (*FakeFactory)(nil)

// NewFakeFactory creates a factory producing sessions bound to cluster.
func NewFakeFactory(cluster *FakeCluster) *FakeFactory {
	return &FakeFactory{cluster: cluster, keyspace: "simulator"}
}

// FailNextCreates makes the next n NewSession calls fail with err.
func (f *FakeFactory) FailNextCreates(n int, err error) {
	f.createErr = err
	f.createFails.Store(int64(n))
}

// Opened returns the number of sessions created.
func (f *FakeFactory) Opened() int64 {
	return f.opened.Load()
}

// Closed returns the number of sessions closed.
func (f *FakeFactory) Closed() int64 {
	return f.closed.Load()
}

func (f *FakeFactory) NewSession(ctx context.Context) (cql.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for {
		n := f.createFails.Load()
		if n <= 0 {
			break
		}
		if f.createFails.CompareAndSwap(n, n-1) {
			return nil, f.createErr
		}
	}

	if f.cluster.Down() {
		return nil, ErrClusterDown
	}

	f.opened.Add(1)

	return &FakeSession{cluster: f.cluster, factory: f}, nil
}

func (f *FakeFactory) Keyspace() string {
	return f.keyspace
}

func (f *FakeFactory) ClassifyError(op, query string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRowNotFound):
		return types.ErrNotFound
	case errors.Is(err, ErrInvalidQuery):
		return &types.ValidationError{Query: query, Cause: err}
	default:
		return &types.TransientError{Op: op, Cause: err}
	}
}

// FakeSession implements cql.Session against a FakeCluster.
type FakeSession struct {
	cluster *FakeCluster
	factory *FakeFactory
	done    atomic.Bool
}

// Compile-time assertion that FakeSession implements cql.Session.
var _ cql.Session = (*FakeSession)(nil)

func (s *FakeSession) Query(stmt string, values ...any) cql.Query {
	return &fakeQuery{cluster: s.cluster, statement: stmt, values: values}
}

func (s *FakeSession) Batch(kind cql.BatchType) cql.Batch {
	return &fakeBatch{cluster: s.cluster, kind: kind}
}

func (s *FakeSession) Close() {
	if s.done.CompareAndSwap(false, true) && s.factory != nil {
		s.factory.closed.Add(1)
	}
}

// IsClosed reports whether the session has been closed.
func (s *FakeSession) IsClosed() bool {
	return s.done.Load()
}

// fakeQuery implements cql.Query against the fake cluster.
type fakeQuery struct {
	cluster   *FakeCluster
	statement string
	values    []any
	released  bool
}

func (q *fakeQuery) Consistency(_ cql.Consistency) cql.Query { return q }
func (q *fakeQuery) PageSize(_ int) cql.Query                { return q }
func (q *fakeQuery) PageState(_ []byte) cql.Query            { return q }
func (q *fakeQuery) WithTimestamp(_ int64) cql.Query         { return q }
func (q *fakeQuery) Statement() string                       { return q.statement }
func (q *fakeQuery) Values() []any                           { return q.values }
func (q *fakeQuery) Release()                                { q.released = true }

func (q *fakeQuery) Exec() error {
	return q.ExecContext(context.Background())
}

func (q *fakeQuery) ExecContext(_ context.Context) error {
	return q.cluster.execute(q.statement, q.values)
}

func (q *fakeQuery) Scan(dest ...any) error {
	return q.ScanContext(context.Background(), dest...)
}

func (q *fakeQuery) ScanContext(_ context.Context, dest ...any) error {
	if len(q.values) == 0 {
		return ErrRowNotFound
	}

	serial, ok := q.values[0].(string)
	if !ok {
		return ErrInvalidQuery
	}

	return q.cluster.scan(serial, dest)
}

func (q *fakeQuery) Iter() cql.Iter {
	return &fakeIter{}
}

func (q *fakeQuery) IterContext(_ context.Context) cql.Iter {
	return &fakeIter{}
}

func (q *fakeQuery) MapScan(_ map[string]any) error {
	return ErrRowNotFound
}

func (q *fakeQuery) MapScanContext(_ context.Context, _ map[string]any) error {
	return ErrRowNotFound
}

// fakeBatch implements cql.Batch against the fake cluster.
type fakeBatch struct {
	cluster *FakeCluster
	kind    cql.BatchType
	entries []cql.BatchEntry
}

func (b *fakeBatch) Query(stmt string, args ...any) cql.Batch {
	b.entries = append(b.entries, cql.BatchEntry{Statement: stmt, Args: args})
	return b
}

func (b *fakeBatch) Consistency(_ cql.Consistency) cql.Batch { return b }
func (b *fakeBatch) WithTimestamp(_ int64) cql.Batch         { return b }
func (b *fakeBatch) Size() int                               { return len(b.entries) }
func (b *fakeBatch) Statements() []cql.BatchEntry            { return b.entries }

func (b *fakeBatch) Exec() error {
	return b.ExecContext(context.Background())
}

func (b *fakeBatch) ExecContext(_ context.Context) error {
	return b.cluster.executeBatch(b.entries)
}

// fakeIter implements cql.Iter; the manager's reads go through Scan, so the
// iterator surface stays empty.
type fakeIter struct{}

func (i *fakeIter) Scan(_ ...any) bool                  { return false }
func (i *fakeIter) Close() error                        { return nil }
func (i *fakeIter) MapScan(_ map[string]any) bool       { return false }
func (i *fakeIter) SliceMap() ([]map[string]any, error) { return nil, nil }
func (i *fakeIter) PageState() []byte                   { return nil }
func (i *fakeIter) NumRows() int                        { return 0 }
func (i *fakeIter) Scanner() cql.Scanner                { return &fakeScanner{} }

type fakeScanner struct{}

func (s *fakeScanner) Next() bool          { return false }
func (s *fakeScanner) Scan(_ ...any) error { return nil }
func (s *fakeScanner) Err() error          { return nil }

// copyValue copies a value to a destination pointer.
func copyValue(dest, src any) {
	switch d := dest.(type) {
	case *string:
		if s, ok := src.(string); ok {
			*d = s
		}
	case *int:
		if s, ok := src.(int); ok {
			*d = s
		}
	case *int64:
		if s, ok := src.(int64); ok {
			*d = s
		}
	case *float64:
		if s, ok := src.(float64); ok {
			*d = s
		}
	case *bool:
		if s, ok := src.(bool); ok {
			*d = s
		}
	case *[]byte:
		if s, ok := src.([]byte); ok {
			*d = s
		}
	}
}
