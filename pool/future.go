package pool

import (
	"context"
	"time"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	"github.com/bganilkumar/ConnectionManager/types"
)

// ExecFuture is the pending result of PooledSession.ExecuteAsync.
//
// The future resolves when the driver call returns, regardless of whether
// anyone is waiting. Wait bounds how long a caller blocks; giving up on a
// wait never cancels the in-flight operation, and a later Wait or Done can
// still observe the final result.
type ExecFuture struct {
	done    chan struct{}
	err     error
	timeout time.Duration
	metrics types.MetricsCollector
}

func newExecFuture(timeout time.Duration, collector types.MetricsCollector) *ExecFuture {
	return &ExecFuture{
		done:    make(chan struct{}),
		timeout: timeout,
		metrics: collector,
	}
}

func resolvedExecFuture(err error, timeout time.Duration, collector types.MetricsCollector) *ExecFuture {
	f := newExecFuture(timeout, collector)
	f.err = err
	close(f.done)

	return f
}

// Done returns a channel that is closed when the driver call completes.
func (f *ExecFuture) Done() <-chan struct{} {
	return f.done
}

// Err returns the driver call's result once the future has resolved, and
// nil while it is still in flight. Use Done to distinguish "still running"
// from "succeeded".
func (f *ExecFuture) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the driver call completes or the configured wait bound
// elapses, whichever comes first.
//
// On timeout it returns types.ErrAsyncWaitTimeout; the operation keeps
// running and the future stays live, so a subsequent Wait can still pick
// up the final result.
func (f *ExecFuture) Wait() error {
	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.err
	case <-timer.C:
		f.metrics.IncAsyncTimeout()
		return types.ErrAsyncWaitTimeout
	}
}

// WaitContext blocks until the driver call completes or ctx is done. The
// configured wait bound does not apply.
func (f *ExecFuture) WaitContext(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseFuture tracks an asynchronous session close launched by
// Pool.Shutdown.
type CloseFuture struct {
	done chan struct{}
}

func closeAsync(raw cql.Session) *CloseFuture {
	f := &CloseFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		raw.Close()
	}()

	return f
}

// Done returns a channel that is closed when the session has closed.
func (f *CloseFuture) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the session has closed.
func (f *CloseFuture) Wait() {
	<-f.done
}

// WaitContext blocks until the session has closed or ctx is done.
func (f *CloseFuture) WaitContext(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
