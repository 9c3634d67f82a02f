package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	"github.com/bganilkumar/ConnectionManager/types"
)

// errBadKeyspace marks creation failures the mock factory classifies as
// statement defects.
var errBadKeyspace = errors.New("keyspace does not exist")

// mockFactory implements cql.SessionFactory for testing.
type mockFactory struct {
	mu        sync.Mutex
	keyspace  string
	created   int
	failures  int   // fail this many NewSession calls before succeeding
	createErr error // error returned while failures > 0
	sessions  []*mockSession
}

func newMockFactory() *mockFactory {
	return &mockFactory{keyspace: "devices"}
}

func (f *mockFactory) NewSession(ctx context.Context) (cql.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return nil, f.createErr
	}

	f.created++
	s := &mockSession{}
	f.sessions = append(f.sessions, s)

	return s, nil
}

func (f *mockFactory) Keyspace() string {
	return f.keyspace
}

func (f *mockFactory) ClassifyError(op, query string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errBadKeyspace) {
		return &types.ValidationError{Query: query, Cause: err}
	}

	return &types.TransientError{Op: op, Cause: err}
}

func (f *mockFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.created
}

// mockSession implements cql.Session for testing.
type mockSession struct {
	mu        sync.Mutex
	queries   []string
	batches   []*mockBatch
	execErr   error
	execDelay time.Duration
	scanErr   error
	closed    atomic.Bool
}

func (m *mockSession) Query(stmt string, values ...any) cql.Query {
	m.mu.Lock()
	m.queries = append(m.queries, stmt)
	m.mu.Unlock()

	return &mockQuery{session: m, statement: stmt, values: values}
}

func (m *mockSession) Batch(kind cql.BatchType) cql.Batch {
	b := &mockBatch{session: m, kind: kind}
	m.mu.Lock()
	m.batches = append(m.batches, b)
	m.mu.Unlock()

	return b
}

func (m *mockSession) Close() {
	m.closed.Store(true)
}

func (m *mockSession) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queries)
}

// mockQuery implements cql.Query for testing.
type mockQuery struct {
	session   *mockSession
	statement string
	values    []any
	released  bool
}

func (q *mockQuery) Consistency(_ cql.Consistency) cql.Query { return q }
func (q *mockQuery) PageSize(_ int) cql.Query                { return q }
func (q *mockQuery) PageState(_ []byte) cql.Query            { return q }
func (q *mockQuery) WithTimestamp(_ int64) cql.Query         { return q }
func (q *mockQuery) Statement() string                       { return q.statement }
func (q *mockQuery) Values() []any                           { return q.values }
func (q *mockQuery) Release()                                { q.released = true }

func (q *mockQuery) Exec() error {
	if q.session.execDelay > 0 {
		time.Sleep(q.session.execDelay)
	}

	return q.session.execErr
}

func (q *mockQuery) ExecContext(_ context.Context) error {
	return q.Exec()
}

func (q *mockQuery) Scan(dest ...any) error {
	return q.session.scanErr
}

func (q *mockQuery) ScanContext(_ context.Context, dest ...any) error {
	return q.Scan(dest...)
}

func (q *mockQuery) Iter() cql.Iter {
	return &mockIter{}
}

func (q *mockQuery) IterContext(_ context.Context) cql.Iter {
	return &mockIter{}
}

func (q *mockQuery) MapScan(_ map[string]any) error {
	return q.session.scanErr
}

func (q *mockQuery) MapScanContext(_ context.Context, _ map[string]any) error {
	return q.session.scanErr
}

// mockBatch implements cql.Batch for testing.
type mockBatch struct {
	session *mockSession
	kind    cql.BatchType
	entries []cql.BatchEntry
}

func (b *mockBatch) Query(stmt string, args ...any) cql.Batch {
	b.entries = append(b.entries, cql.BatchEntry{Statement: stmt, Args: args})
	return b
}

func (b *mockBatch) Consistency(_ cql.Consistency) cql.Batch { return b }
func (b *mockBatch) WithTimestamp(_ int64) cql.Batch         { return b }
func (b *mockBatch) Size() int                               { return len(b.entries) }
func (b *mockBatch) Statements() []cql.BatchEntry            { return b.entries }

func (b *mockBatch) Exec() error {
	return b.session.execErr
}

func (b *mockBatch) ExecContext(_ context.Context) error {
	return b.session.execErr
}

// mockIter implements cql.Iter for testing.
type mockIter struct{}

func (i *mockIter) Scan(_ ...any) bool                  { return false }
func (i *mockIter) Close() error                        { return nil }
func (i *mockIter) MapScan(_ map[string]any) bool       { return false }
func (i *mockIter) SliceMap() ([]map[string]any, error) { return nil, nil }
func (i *mockIter) PageState() []byte                   { return nil }
func (i *mockIter) NumRows() int                        { return 0 }
func (i *mockIter) Scanner() cql.Scanner                { return &mockScanner{} }

type mockScanner struct{}

func (s *mockScanner) Next() bool          { return false }
func (s *mockScanner) Scan(_ ...any) error { return nil }
func (s *mockScanner) Err() error          { return nil }

func TestNewValidation(t *testing.T) {
	t.Run("nil factory", func(t *testing.T) {
		p, err := New(nil)
		require.ErrorIs(t, err, types.ErrNilFactory)
		assert.Nil(t, p)
	})

	t.Run("invalid capacity", func(t *testing.T) {
		p, err := New(newMockFactory(), WithCapacity(0))
		require.ErrorIs(t, err, types.ErrInvalidCapacity)
		assert.Nil(t, p)
	})

	t.Run("defaults", func(t *testing.T) {
		p, err := New(newMockFactory())
		require.NoError(t, err)
		assert.Equal(t, DefaultCapacity, p.Capacity())
		assert.Equal(t, 0, p.Idle())
		assert.Equal(t, 0, p.InUse())
	})
}

func TestAcquireLazyCreation(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(2))
	require.NoError(t, err)

	// Nothing exists until the first acquire.
	require.Equal(t, 0, factory.createdCount())

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, factory.createdCount())
	assert.Equal(t, 1, p.InUse())

	// Release parks the session; the next acquire reuses it.
	require.True(t, s.Close())
	assert.Equal(t, 1, p.Idle())

	s2, err := p.Acquire(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, factory.createdCount(), "idle session should be reused, not recreated")
	require.True(t, s2.Close())
}

func TestCapacityInvariant(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(2))
	require.NoError(t, err)

	// Two acquirers proceed immediately.
	first, err := p.Acquire(t.Context())
	require.NoError(t, err)
	second, err := p.Acquire(t.Context())
	require.NoError(t, err)

	// Three more block until a release occurs.
	var proceeded atomic.Int32
	var wg sync.WaitGroup
	for range 3 {
		wg.Go(func() {
			s, err := p.Acquire(t.Context())
			if err != nil {
				return
			}
			proceeded.Add(1)
			s.Close()
		})
	}

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(0), proceeded.Load(), "no acquirer may proceed while capacity is exhausted")

	first.Close()
	second.Close()
	wg.Wait()

	require.Equal(t, int32(3), proceeded.Load())
	assert.LessOrEqual(t, factory.createdCount(), 2, "pool must never hold more sessions than capacity")
}

func TestNoPermitLeakOnCreationFailure(t *testing.T) {
	factory := newMockFactory()
	factory.createErr = errors.New("no route to host")
	factory.failures = 1

	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.ErrorIs(t, err, types.ErrPoolExhausted)
	require.True(t, errors.Is(err, factory.createErr))
	assert.Nil(t, s)

	// The permit was restored: with capacity 1, a leaked permit would make
	// this acquire block until the deadline.
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	s, err = p.Acquire(ctx)
	require.NoError(t, err, "acquire must succeed once the creation fault clears")
	require.True(t, s.Close())
}

func TestCreationValidationErrorPropagates(t *testing.T) {
	factory := newMockFactory()
	factory.createErr = errBadKeyspace
	factory.failures = 1

	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.ErrorIs(t, err, types.ErrInvalidStatement)
	assert.NotErrorIs(t, err, types.ErrPoolExhausted)
	assert.Nil(t, s)

	// The permit is restored on this path too.
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	s, err = p.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, s.Close())
}

func TestAcquireContextCancelledWhileBlocked(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	holder, err := p.Acquire(t.Context())
	require.NoError(t, err)
	defer holder.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	s, err := p.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, s)
}

func TestBlockedAcquirerGetsReleasedSession(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	holder, err := p.Acquire(t.Context())
	require.NoError(t, err)
	heldRaw := holder.raw

	type acquireResult struct {
		session *PooledSession
		at      time.Time
		err     error
	}

	results := make(chan acquireResult, 1)
	go func() {
		s, err := p.Acquire(context.Background())
		results <- acquireResult{session: s, at: time.Now(), err: err}
	}()

	// The second acquirer must still be blocked.
	select {
	case <-results:
		t.Fatal("acquire proceeded while the sole session was checked out")
	case <-time.After(100 * time.Millisecond):
	}

	releasedAt := time.Now()
	require.True(t, holder.Close())

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Same(t, heldRaw, r.session.raw, "waiter must receive the released session, not a new one")
		assert.False(t, r.at.Before(releasedAt), "acquire must not complete before the release")
		require.True(t, r.session.Close())
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not complete after release")
	}

	assert.Equal(t, 1, factory.createdCount())
}

func TestAcquireAfterShutdown(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	require.Nil(t, p.Shutdown())
	require.True(t, p.Closed())

	s, err := p.Acquire(t.Context())
	require.ErrorIs(t, err, types.ErrPoolClosed)
	assert.Nil(t, s)
}

func TestShutdownDrainsIdleSessions(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(2))
	require.NoError(t, err)

	a, err := p.Acquire(t.Context())
	require.NoError(t, err)
	b, err := p.Acquire(t.Context())
	require.NoError(t, err)
	require.True(t, a.Close())
	require.True(t, b.Close())
	require.Equal(t, 2, p.Idle())

	futures := p.Shutdown()
	require.Len(t, futures, 2)

	for _, f := range futures {
		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
		require.NoError(t, f.WaitContext(ctx))
		cancel()
	}

	for _, s := range factory.sessions {
		assert.True(t, s.closed.Load(), "drained sessions must be closed")
	}

	// Shutdown is idempotent.
	require.Nil(t, p.Shutdown())
}

func TestReleaseAfterShutdownClosesSession(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	holder, err := p.Acquire(t.Context())
	require.NoError(t, err)

	futures := p.Shutdown()
	require.Empty(t, futures, "nothing idle to drain while the session is checked out")

	require.True(t, holder.Close())
	assert.Equal(t, 0, p.Idle(), "session released after shutdown must not be recycled")
	assert.True(t, factory.sessions[0].closed.Load())
}
