package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
)

// FaultSwitch toggles injected failures for wrapped sessions and factories.
//
// A switch can fail every operation until cleared, or a fixed number of
// operations. It is safe for concurrent use, so a scenario goroutine can
// flip it while workers are writing.
type FaultSwitch struct {
	mu  sync.Mutex
	err error
	n   int64
}

// NewFaultSwitch returns a switch with no active fault.
func NewFaultSwitch() *FaultSwitch {
	return &FaultSwitch{}
}

// Set fails every guarded operation with err until Clear is called.
func (f *FaultSwitch) Set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
	f.n = -1
}

// SetN fails the next n guarded operations with err.
func (f *FaultSwitch) SetN(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
	f.n = int64(n)
}

// Clear removes the active fault.
func (f *FaultSwitch) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = nil
	f.n = 0
}

// Active reports whether the switch currently injects failures.
func (f *FaultSwitch) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.n != 0
}

// take consumes one failure, returning nil when the switch is idle.
func (f *FaultSwitch) take() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.n == 0 {
		return nil
	}
	if f.n > 0 {
		f.n--
	}

	return f.err
}

// ChaosFactory wraps a session factory and injects failures into session
// creation. Execution-level faults belong on ChaosSession.
type ChaosFactory struct {
	Factory cql.SessionFactory

	// CreateFaults guards NewSession. Nil disables injection.
	CreateFaults *FaultSwitch
	// SessionDelay is applied to every operation of created sessions.
	SessionDelay time.Duration
	// SessionFaults guards operations of created sessions.
	SessionFaults *FaultSwitch
}

// Compile-time assertion that ChaosFactory implements cql.SessionFactory.
var _ cql.SessionFactory = (*ChaosFactory)(nil)

func (f *ChaosFactory) NewSession(ctx context.Context) (cql.Session, error) {
	if f.CreateFaults != nil {
		if err := f.CreateFaults.take(); err != nil {
			return nil, err
		}
	}

	s, err := f.Factory.NewSession(ctx)
	if err != nil {
		return nil, err
	}

	return &ChaosSession{Session: s, Delay: f.SessionDelay, Faults: f.SessionFaults}, nil
}

func (f *ChaosFactory) Keyspace() string {
	return f.Factory.Keyspace()
}

func (f *ChaosFactory) ClassifyError(op, query string, err error) error {
	return f.Factory.ClassifyError(op, query, err)
}

// ChaosSession wraps a session and injects latency and failures into its
// operations. Simulations use it to exercise fault buffering and replay
// against a live cluster without touching the cluster itself.
type ChaosSession struct {
	Session cql.Session
	Delay   time.Duration
	Faults  *FaultSwitch
}

// Compile-time assertion that ChaosSession implements cql.Session.
var _ cql.Session = (*ChaosSession)(nil)

func (s *ChaosSession) disturb(ctx context.Context) error {
	if err := sleepCtx(ctx, s.Delay); err != nil {
		return err
	}
	if s.Faults != nil {
		if err := s.Faults.take(); err != nil {
			return err
		}
	}

	return nil
}

// Query returns a query that applies the session's latency and faults
// before execution.
func (s *ChaosSession) Query(stmt string, values ...any) cql.Query {
	return &chaosQuery{session: s, query: s.Session.Query(stmt, values...)}
}

// Batch returns a batch that applies the session's latency and faults
// before execution.
func (s *ChaosSession) Batch(kind cql.BatchType) cql.Batch {
	return &chaosBatch{session: s, batch: s.Session.Batch(kind)}
}

// Close closes the underlying session.
func (s *ChaosSession) Close() {
	s.Session.Close()
}

type chaosQuery struct {
	session *ChaosSession
	query   cql.Query
}

func (q *chaosQuery) Consistency(c cql.Consistency) cql.Query {
	q.query = q.query.Consistency(c)
	return q
}

func (q *chaosQuery) PageSize(n int) cql.Query {
	q.query = q.query.PageSize(n)
	return q
}

func (q *chaosQuery) PageState(state []byte) cql.Query {
	q.query = q.query.PageState(state)
	return q
}

func (q *chaosQuery) WithTimestamp(ts int64) cql.Query {
	q.query = q.query.WithTimestamp(ts)
	return q
}

func (q *chaosQuery) Exec() error {
	return q.ExecContext(context.Background())
}

func (q *chaosQuery) ExecContext(ctx context.Context) error {
	if err := q.session.disturb(ctx); err != nil {
		return err
	}

	return q.query.ExecContext(ctx)
}

func (q *chaosQuery) Scan(dest ...any) error {
	return q.ScanContext(context.Background(), dest...)
}

func (q *chaosQuery) ScanContext(ctx context.Context, dest ...any) error {
	if err := q.session.disturb(ctx); err != nil {
		return err
	}

	return q.query.ScanContext(ctx, dest...)
}

func (q *chaosQuery) Iter() cql.Iter {
	return q.query.Iter()
}

func (q *chaosQuery) IterContext(ctx context.Context) cql.Iter {
	return q.query.IterContext(ctx)
}

func (q *chaosQuery) MapScan(m map[string]any) error {
	return q.MapScanContext(context.Background(), m)
}

func (q *chaosQuery) MapScanContext(ctx context.Context, m map[string]any) error {
	if err := q.session.disturb(ctx); err != nil {
		return err
	}

	return q.query.MapScanContext(ctx, m)
}

func (q *chaosQuery) Statement() string {
	return q.query.Statement()
}

func (q *chaosQuery) Values() []any {
	return q.query.Values()
}

func (q *chaosQuery) Release() {
	q.query.Release()
}

type chaosBatch struct {
	session *ChaosSession
	batch   cql.Batch
}

func (b *chaosBatch) Query(stmt string, args ...any) cql.Batch {
	b.batch = b.batch.Query(stmt, args...)
	return b
}

func (b *chaosBatch) Consistency(c cql.Consistency) cql.Batch {
	b.batch = b.batch.Consistency(c)
	return b
}

func (b *chaosBatch) WithTimestamp(ts int64) cql.Batch {
	b.batch = b.batch.WithTimestamp(ts)
	return b
}

func (b *chaosBatch) Exec() error {
	return b.ExecContext(context.Background())
}

func (b *chaosBatch) ExecContext(ctx context.Context) error {
	if err := b.session.disturb(ctx); err != nil {
		return err
	}

	return b.batch.ExecContext(ctx)
}

func (b *chaosBatch) Size() int {
	return b.batch.Size()
}

func (b *chaosBatch) Statements() []cql.BatchEntry {
	return b.batch.Statements()
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
