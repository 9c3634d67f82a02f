package chaos

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
)

// ErrDropped is the injected failure for dropped operations. Driver
// classifiers do not recognize it, so it surfaces as transient, which
// matches an abrupt network partition.
var ErrDropped = errors.New("chaos: operation dropped")

// SessionConfig holds the chaos configuration shared by every session a
// Factory creates.
type SessionConfig struct {
	LatencyFunc func() time.Duration // Return 0 for no delay
	ErrorFunc   func() error         // Return nil for no error
	DropRate    float64              // 0.0-1.0 probability to drop
}

// Factory wraps a cql.SessionFactory so every session it creates injects
// the same chaos. Scenarios flip one switch and all live sessions obey,
// including sessions the pool created before the flip.
type Factory struct {
	inner  cql.SessionFactory
	config *atomic.Pointer[SessionConfig]
}

// Compile-time assertion that Factory implements cql.SessionFactory.
var _ cql.SessionFactory = (*Factory)(nil)

// NewFactory creates a chaos factory wrapping the real one.
func NewFactory(inner cql.SessionFactory) *Factory {
	return &Factory{
		inner:  inner,
		config: &atomic.Pointer[SessionConfig]{},
	}
}

// NewSession creates a session whose operations obey the current chaos
// configuration.
func (f *Factory) NewSession(ctx context.Context) (cql.Session, error) {
	s, err := f.inner.NewSession(ctx)
	if err != nil {
		return nil, err
	}

	return &Session{wrapped: s, config: f.config}, nil
}

// Keyspace returns the wrapped factory's keyspace.
func (f *Factory) Keyspace() string {
	return f.inner.Keyspace()
}

// ClassifyError delegates to the wrapped factory.
func (f *Factory) ClassifyError(op, query string, err error) error {
	return f.inner.ClassifyError(op, query, err)
}

// SetConfig replaces the chaos configuration for all sessions.
func (f *Factory) SetConfig(cfg SessionConfig) {
	f.config.Store(&cfg)
}

// SetLatency sets a fixed latency for all operations.
func (f *Factory) SetLatency(d time.Duration) {
	f.SetConfig(SessionConfig{
		LatencyFunc: func() time.Duration { return d },
	})
}

// SetErrorRate sets a probability of dropping operations. Rate 1.0 kills
// the cluster from the client's point of view.
// Note: This overwrites any previous configuration.
func (f *Factory) SetErrorRate(rate float64) {
	f.SetConfig(SessionConfig{
		DropRate: rate,
	})
}

// Reset clears all injected chaos.
func (f *Factory) Reset() {
	f.SetConfig(SessionConfig{})
}

// Session wraps a cql.Session to inject chaos.
type Session struct {
	wrapped cql.Session
	config  *atomic.Pointer[SessionConfig]
}

// Compile-time assertion that Session implements cql.Session.
var _ cql.Session = (*Session)(nil)

// Query creates a new query for the given statement.
func (s *Session) Query(stmt string, values ...any) cql.Query {
	return &Query{
		wrapped: s.wrapped.Query(stmt, values...),
		config:  s.config,
	}
}

// Batch creates a new batch of the given type.
func (s *Session) Batch(kind cql.BatchType) cql.Batch {
	return &Batch{
		wrapped: s.wrapped.Batch(kind),
		config:  s.config,
	}
}

// Close terminates the session.
func (s *Session) Close() {
	s.wrapped.Close()
}

// Query wraps a cql.Query to inject chaos.
type Query struct {
	wrapped cql.Query
	config  *atomic.Pointer[SessionConfig]
}

// Compile-time assertion that Query implements cql.Query.
var _ cql.Query = (*Query)(nil)

func (q *Query) injectChaos() error {
	cfg := q.config.Load()
	if cfg != nil {
		if cfg.LatencyFunc != nil {
			time.Sleep(cfg.LatencyFunc())
		}
		if cfg.DropRate > 0 {
			// Use crypto/rand for better randomness distribution
			n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
			if float64(n.Int64())/1000000.0 < cfg.DropRate {
				return ErrDropped
			}
		}
		if cfg.ErrorFunc != nil {
			if err := cfg.ErrorFunc(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (q *Query) Consistency(c cql.Consistency) cql.Query {
	q.wrapped = q.wrapped.Consistency(c)
	return q
}

func (q *Query) PageSize(n int) cql.Query {
	q.wrapped = q.wrapped.PageSize(n)
	return q
}

func (q *Query) PageState(state []byte) cql.Query {
	q.wrapped = q.wrapped.PageState(state)
	return q
}

func (q *Query) WithTimestamp(ts int64) cql.Query {
	q.wrapped = q.wrapped.WithTimestamp(ts)
	return q
}

func (q *Query) Exec() error {
	if err := q.injectChaos(); err != nil {
		return err
	}

	return q.wrapped.Exec()
}

func (q *Query) ExecContext(ctx context.Context) error {
	if err := q.injectChaos(); err != nil {
		return err
	}

	return q.wrapped.ExecContext(ctx)
}

func (q *Query) Scan(dest ...any) error {
	if err := q.injectChaos(); err != nil {
		return err
	}

	return q.wrapped.Scan(dest...)
}

func (q *Query) ScanContext(ctx context.Context, dest ...any) error {
	if err := q.injectChaos(); err != nil {
		return err
	}

	return q.wrapped.ScanContext(ctx, dest...)
}

func (q *Query) Iter() cql.Iter {
	if err := q.injectChaos(); err != nil {
		return &ErrorIter{err: err}
	}

	return q.wrapped.Iter()
}

func (q *Query) IterContext(ctx context.Context) cql.Iter {
	if err := q.injectChaos(); err != nil {
		return &ErrorIter{err: err}
	}

	return q.wrapped.IterContext(ctx)
}

func (q *Query) MapScan(m map[string]any) error {
	if err := q.injectChaos(); err != nil {
		return err
	}

	return q.wrapped.MapScan(m)
}

func (q *Query) MapScanContext(ctx context.Context, m map[string]any) error {
	if err := q.injectChaos(); err != nil {
		return err
	}

	return q.wrapped.MapScanContext(ctx, m)
}

func (q *Query) Statement() string {
	return q.wrapped.Statement()
}

func (q *Query) Values() []any {
	return q.wrapped.Values()
}

func (q *Query) Release() {
	q.wrapped.Release()
}

// Batch wraps a cql.Batch to inject chaos.
type Batch struct {
	wrapped cql.Batch
	config  *atomic.Pointer[SessionConfig]
}

// Compile-time assertion that Batch implements cql.Batch.
var _ cql.Batch = (*Batch)(nil)

func (b *Batch) injectChaos() error {
	cfg := b.config.Load()
	if cfg != nil {
		if cfg.LatencyFunc != nil {
			time.Sleep(cfg.LatencyFunc())
		}
		if cfg.DropRate > 0 {
			n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
			if float64(n.Int64())/1000000.0 < cfg.DropRate {
				return ErrDropped
			}
		}
		if cfg.ErrorFunc != nil {
			if err := cfg.ErrorFunc(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Batch) Query(stmt string, args ...any) cql.Batch {
	b.wrapped = b.wrapped.Query(stmt, args...)
	return b
}

func (b *Batch) Consistency(c cql.Consistency) cql.Batch {
	b.wrapped = b.wrapped.Consistency(c)
	return b
}

func (b *Batch) WithTimestamp(ts int64) cql.Batch {
	b.wrapped = b.wrapped.WithTimestamp(ts)
	return b
}

func (b *Batch) Exec() error {
	if err := b.injectChaos(); err != nil {
		return err
	}

	return b.wrapped.Exec()
}

func (b *Batch) ExecContext(ctx context.Context) error {
	if err := b.injectChaos(); err != nil {
		return err
	}

	return b.wrapped.ExecContext(ctx)
}

func (b *Batch) Size() int {
	return b.wrapped.Size()
}

func (b *Batch) Statements() []cql.BatchEntry {
	return b.wrapped.Statements()
}

// ErrorIter is a cql.Iter implementation that always returns an error.
type ErrorIter struct {
	err error
}

func (i *ErrorIter) Scan(dest ...any) bool {
	return false
}

func (i *ErrorIter) Close() error {
	return i.err
}

func (i *ErrorIter) MapScan(m map[string]any) bool {
	return false
}

func (i *ErrorIter) SliceMap() ([]map[string]any, error) {
	return nil, i.err
}

func (i *ErrorIter) PageState() []byte {
	return nil
}

func (i *ErrorIter) NumRows() int {
	return 0
}

func (i *ErrorIter) Scanner() cql.Scanner {
	return &ErrorScanner{err: i.err}
}

// ErrorScanner is a cql.Scanner implementation that always returns an error.
type ErrorScanner struct {
	err error
}

func (s *ErrorScanner) Next() bool {
	return false
}

func (s *ErrorScanner) Scan(dest ...any) error {
	return s.err
}

func (s *ErrorScanner) Err() error {
	return s.err
}
