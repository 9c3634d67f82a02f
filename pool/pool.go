// Package pool implements a bounded pool of Cassandra driver sessions.
//
// Driver sessions are expensive: each one owns connection pools to every
// reachable node. The pool caps how many exist at once with a counting
// permit, creates them lazily through a SessionFactory, and recycles them
// through an idle container. Acquisition blocks until a permit is free;
// this is the sole backpressure mechanism, so the (N+1)-th concurrent
// caller waits instead of opening more connections.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	"github.com/bganilkumar/ConnectionManager/internal/logging"
	"github.com/bganilkumar/ConnectionManager/internal/metrics"
	"github.com/bganilkumar/ConnectionManager/types"
)

const (
	// DefaultCapacity is the default maximum number of concurrently
	// checked-out sessions.
	DefaultCapacity = 10

	// DefaultAsyncWaitTimeout is the default bound applied by
	// ExecFuture.Wait.
	DefaultAsyncWaitTimeout = 1000 * time.Millisecond
)

// Config holds pool configuration.
type Config struct {
	// Capacity is the maximum number of concurrently checked-out sessions.
	// Must be at least 1.
	Capacity int

	// AsyncWaitTimeout bounds ExecFuture.Wait. The in-flight operation is
	// never cancelled by an expired wait.
	AsyncWaitTimeout time.Duration

	// Logger receives pool lifecycle events. Defaults to a no-op logger.
	Logger types.Logger

	// Metrics receives pool counters and gauges. Defaults to a no-op
	// collector.
	Metrics types.MetricsCollector
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Capacity:         DefaultCapacity,
		AsyncWaitTimeout: DefaultAsyncWaitTimeout,
		Logger:           logging.NewNopLogger(),
		Metrics:          metrics.NewNopMetrics(),
	}
}

// Option configures a Pool.
type Option func(*Config)

// WithCapacity sets the maximum number of concurrently checked-out
// sessions.
func WithCapacity(n int) Option {
	return func(c *Config) {
		c.Capacity = n
	}
}

// WithAsyncWaitTimeout sets the bound applied by ExecFuture.Wait.
func WithAsyncWaitTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.AsyncWaitTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger types.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector types.MetricsCollector) Option {
	return func(c *Config) {
		if collector != nil {
			c.Metrics = collector
		}
	}
}

// Pool is a bounded, lazily-filled pool of driver sessions.
//
// The counting permit is the single admission gate: Acquire consumes one
// unit, PooledSession.Close returns it. Sessions are created through the
// factory only when a permit is held and no idle session is available, so
// the number of live sessions never exceeds the capacity.
//
// Pool is safe for concurrent use.
type Pool struct {
	factory cql.SessionFactory

	capacity int
	permits  *semaphore.Weighted
	idle     chan cql.Session

	// mu serializes idle-container writes against Shutdown's drain so a
	// release racing a shutdown cannot strand a session in the container.
	mu     sync.Mutex
	closed atomic.Bool

	inUse atomic.Int64

	asyncWaitTimeout time.Duration

	logger  types.Logger
	metrics types.MetricsCollector
}

// New creates a bounded session pool around the given factory.
//
// The capacity is fixed at construction. No sessions are created up front;
// the first Acquire calls that find the idle container empty create them
// through the factory.
//
// Parameters:
//   - factory: Driver session factory; must not be nil
//   - opts: Optional configuration
//
// Returns:
//   - *Pool: A ready-to-use pool
//   - error: types.ErrNilFactory or types.ErrInvalidCapacity on bad input
func New(factory cql.SessionFactory, opts ...Option) (*Pool, error) {
	if factory == nil {
		return nil, types.ErrNilFactory
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Capacity < 1 {
		return nil, types.ErrInvalidCapacity
	}

	if cfg.AsyncWaitTimeout <= 0 {
		cfg.AsyncWaitTimeout = DefaultAsyncWaitTimeout
	}

	return &Pool{
		factory:          factory,
		capacity:         cfg.Capacity,
		permits:          semaphore.NewWeighted(int64(cfg.Capacity)),
		idle:             make(chan cql.Session, cfg.Capacity),
		asyncWaitTimeout: cfg.AsyncWaitTimeout,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
	}, nil
}

// Acquire checks a session out of the pool, blocking until a permit is
// available or ctx is done.
//
// An idle session is preferred; otherwise a new one is created through the
// factory. If creation fails, the permit is restored before the error
// propagates, so a failed creation never consumes capacity permanently:
//
//   - context cancellation (while waiting or creating) returns ctx.Err()
//   - a creation error classified as a statement defect (for example a
//     misspelled keyspace) propagates as *types.ValidationError
//   - any other creation error is wrapped in *types.PoolExhaustedError
//
// After Shutdown, Acquire returns types.ErrPoolClosed.
func (p *Pool) Acquire(ctx context.Context) (*PooledSession, error) {
	p.metrics.IncAcquireTotal()

	if p.closed.Load() {
		p.metrics.IncAcquireError()
		return nil, types.ErrPoolClosed
	}

	start := time.Now()
	if err := p.permits.Acquire(ctx, 1); err != nil {
		p.metrics.IncAcquireError()
		return nil, err
	}
	p.metrics.ObserveAcquireWait(time.Since(start).Seconds())

	// The pool may have been shut down while we waited for a permit.
	if p.closed.Load() {
		p.permits.Release(1)
		p.metrics.IncAcquireError()

		return nil, types.ErrPoolClosed
	}

	var raw cql.Session
	select {
	case raw = <-p.idle:
	default:
		created, err := p.factory.NewSession(ctx)
		if err != nil {
			p.permits.Release(1)
			p.metrics.IncSessionCreateError()
			p.metrics.IncAcquireError()
			p.logger.Warn("session creation failed", "keyspace", p.factory.Keyspace(), "error", err)

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}

			if classified := p.factory.ClassifyError("create session", "", err); errors.Is(classified, types.ErrInvalidStatement) {
				return nil, classified
			}

			return nil, &types.PoolExhaustedError{Cause: err}
		}

		raw = created
		p.metrics.IncSessionCreated()
		p.logger.Debug("session created", "keyspace", p.factory.Keyspace())
	}

	p.metrics.SetSessionsInUse(int(p.inUse.Add(1)))
	p.metrics.SetSessionsIdle(len(p.idle))

	return newPooledSession(p, raw), nil
}

// release returns a raw session to the idle container and frees one permit.
// Called exactly once per checkout by PooledSession.Close.
//
// If the pool has been shut down, the session is closed instead of
// recycled.
func (p *Pool) release(raw cql.Session) {
	p.metrics.SetSessionsInUse(int(p.inUse.Add(-1)))

	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		raw.Close()
	} else {
		// The container has room for every session that can exist, so this
		// send never blocks. The session must be in the container before
		// the permit is released: the next acquirer holding the fresh
		// permit has to find it instead of creating a new session.
		p.idle <- raw
		p.mu.Unlock()
	}

	p.metrics.SetSessionsIdle(len(p.idle))
	p.permits.Release(1)
}

// Shutdown marks the pool closed and drains the idle container, launching
// an asynchronous close for each drained session.
//
// Subsequent Acquire calls fail with types.ErrPoolClosed. Sessions still
// checked out are closed, not recycled, when their holders release them;
// those closes are not represented in the returned futures.
//
// Returns:
//   - []*CloseFuture: One future per drained idle session; wait on them to
//     observe connection teardown. Nil on repeated calls.
func (p *Pool) Shutdown() []*CloseFuture {
	if p.closed.Swap(true) {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var futures []*CloseFuture
	for {
		select {
		case raw := <-p.idle:
			futures = append(futures, closeAsync(raw))
		default:
			p.metrics.SetSessionsIdle(0)
			p.logger.Info("pool shut down", "closing", len(futures), "checked_out", p.inUse.Load())

			return futures
		}
	}
}

// Capacity returns the configured maximum number of concurrently
// checked-out sessions.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Idle returns the number of sessions currently parked in the idle
// container.
func (p *Pool) Idle() int {
	return len(p.idle)
}

// InUse returns the number of sessions currently checked out.
func (p *Pool) InUse() int {
	return int(p.inUse.Load())
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}
