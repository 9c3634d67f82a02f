package pool

import (
	"context"
	"sync"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	"github.com/bganilkumar/ConnectionManager/types"
)

// PooledSession is a single-use handle to a pooled driver session.
//
// A handle is either checked out to exactly one caller or released; once
// released it can never be reused. Close returns the underlying session to
// the pool exactly once, no matter how many times it is called, and every
// other operation after Close fails with types.ErrHandleClosed.
//
// The handle itself is safe for concurrent use, but it represents one
// checkout: callers that want parallelism should acquire more handles.
type PooledSession struct {
	pool *Pool
	raw  cql.Session

	mu       sync.Mutex
	released bool
}

func newPooledSession(p *Pool, raw cql.Session) *PooledSession {
	return &PooledSession{pool: p, raw: raw}
}

// Execute runs a single statement.
//
// The raw driver error is returned unclassified; callers that need the
// shared taxonomy classify it through the factory.
func (s *PooledSession) Execute(ctx context.Context, stmt types.Statement) error {
	if s.Closed() {
		return types.ErrHandleClosed
	}

	q := s.raw.Query(stmt.Query, stmt.Args...)
	defer q.Release()

	return q.ExecContext(ctx)
}

// ExecuteBatch runs an ordered list of statements as one driver batch.
func (s *PooledSession) ExecuteBatch(ctx context.Context, kind types.BatchType, stmts []types.Statement) error {
	if s.Closed() {
		return types.ErrHandleClosed
	}

	batch := s.raw.Batch(kind)
	for _, stmt := range stmts {
		batch.Query(stmt.Query, stmt.Args...)
	}

	return batch.ExecContext(ctx)
}

// Query executes a read statement and returns its iterator.
func (s *PooledSession) Query(ctx context.Context, stmt types.Statement) (cql.Iter, error) {
	if s.Closed() {
		return nil, types.ErrHandleClosed
	}

	q := s.raw.Query(stmt.Query, stmt.Args...)

	return q.IterContext(ctx), nil
}

// Scan executes a read statement and scans the first row into dest.
func (s *PooledSession) Scan(ctx context.Context, stmt types.Statement, dest ...any) error {
	if s.Closed() {
		return types.ErrHandleClosed
	}

	q := s.raw.Query(stmt.Query, stmt.Args...)
	defer q.Release()

	return q.ScanContext(ctx, dest...)
}

// ExecuteAsync fires the statement on a goroutine and returns a future
// that resolves when the driver call completes.
//
// ExecuteAsync consumes the handle: the goroutine releases it back to the
// pool after the driver call returns, so the checkout keeps counting
// against capacity for as long as the operation is in flight. Do not use
// the handle after calling ExecuteAsync.
//
// An expired ExecFuture.Wait never cancels the in-flight operation.
func (s *PooledSession) ExecuteAsync(ctx context.Context, stmt types.Statement) *ExecFuture {
	if s.Closed() {
		return resolvedExecFuture(types.ErrHandleClosed, s.pool.asyncWaitTimeout, s.pool.metrics)
	}

	f := newExecFuture(s.pool.asyncWaitTimeout, s.pool.metrics)
	go func() {
		defer close(f.done)
		defer s.Close()

		q := s.raw.Query(stmt.Query, stmt.Args...)
		defer q.Release()

		f.err = q.ExecContext(ctx)
	}()

	return f
}

// Prepare returns a prepared-statement handle bound to this session.
//
// The driver prepares statements server-side transparently on first
// execution; Prepared is a client-side convenience that keeps the query
// text in one place and pins execution to the owning handle so the
// close-once semantics still apply.
func (s *PooledSession) Prepare(query string) (*Prepared, error) {
	if s.Closed() {
		return nil, types.ErrHandleClosed
	}

	return &Prepared{session: s, query: query}, nil
}

// Close releases the handle back to the pool.
//
// Only the first call performs the release; later calls are no-ops. Close
// reports whether this call released the handle, so a double close is
// detectable at the call site instead of silently growing the pool.
func (s *PooledSession) Close() bool {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return false
	}
	s.released = true
	s.mu.Unlock()

	s.pool.release(s.raw)

	return true
}

// Closed reports whether the handle has been released.
func (s *PooledSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.released
}

// Keyspace returns the keyspace this session is bound to.
func (s *PooledSession) Keyspace() string {
	return s.pool.factory.Keyspace()
}

// Prepared is a statement prepared against one pooled session.
type Prepared struct {
	session *PooledSession
	query   string
}

// Bind returns a structured statement with the given arguments bound.
func (p *Prepared) Bind(args ...any) types.Statement {
	return types.Statement{
		Kind:  types.KindRaw,
		Query: p.query,
		Args:  args,
	}
}

// Exec runs the prepared statement with the given arguments.
func (p *Prepared) Exec(ctx context.Context, args ...any) error {
	return p.session.Execute(ctx, p.Bind(args...))
}

// Query executes the prepared statement as a read and returns its
// iterator.
func (p *Prepared) Query(ctx context.Context, args ...any) (cql.Iter, error) {
	return p.session.Query(ctx, p.Bind(args...))
}

// Scan executes the prepared statement as a read and scans the first row
// into dest. Bound arguments are passed as a slice so they stay distinct
// from the scan destinations.
func (p *Prepared) Scan(ctx context.Context, args []any, dest ...any) error {
	return p.session.Scan(ctx, p.Bind(args...), dest...)
}

// Statement returns the query text the handle was prepared with.
func (p *Prepared) Statement() string {
	return p.query
}
