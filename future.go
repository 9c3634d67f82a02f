package connmgr

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bganilkumar/ConnectionManager/types"
)

// Write cycle ownership states. A future starts out waiting; the executor
// claims it when the driver call returns, unless a timed-out waiter
// abandoned it first.
const (
	writeWaiting int32 = iota
	writeResolved
	writeAbandoned
)

// WriteFuture is the pending result of an asynchronous write operation.
//
// The future resolves when the write cycle completes, regardless of whether
// anyone is waiting. Wait bounds how long a caller blocks; a wait that gives
// up never cancels the in-flight operation, but it does abandon the cycle's
// outcome: the final error remains observable through Done and Err, and the
// fault buffer stays untouched no matter how the late completion ends. Only
// a cycle whose future is still being waited on (or never waited on at all)
// buffers transient failures and clears replayed statements, exactly like a
// synchronous write.
type WriteFuture struct {
	done    chan struct{}
	err     error
	state   atomic.Int32
	timeout time.Duration
	metrics types.MetricsCollector
}

func newWriteFuture(timeout time.Duration, collector types.MetricsCollector) *WriteFuture {
	return &WriteFuture{
		done:    make(chan struct{}),
		timeout: timeout,
		metrics: collector,
	}
}

func resolvedWriteFuture(err error, timeout time.Duration, collector types.MetricsCollector) *WriteFuture {
	f := newWriteFuture(timeout, collector)
	f.state.Store(writeResolved)
	f.err = err
	close(f.done)

	return f
}

// claim transitions the future to resolved and reports whether the cycle
// still owns its outcome. Called by the executor after the driver call
// returns and before any fault-buffer side effect; false means a waiter
// already gave up and the buffer must stay untouched.
func (f *WriteFuture) claim() bool {
	return f.state.CompareAndSwap(writeWaiting, writeResolved)
}

// abandon transitions the future to abandoned and reports whether this
// waiter won the race against the executor's claim.
func (f *WriteFuture) abandon() bool {
	return f.state.CompareAndSwap(writeWaiting, writeAbandoned)
}

// resolve publishes the cycle's result and closes done. Cycles that end
// before the ownership decision point (a failed session acquisition, a
// closed manager) are still waiting here; they are moved to resolved so a
// racing Wait cannot misread a published result as a timeout.
func (f *WriteFuture) resolve(err error) {
	f.state.CompareAndSwap(writeWaiting, writeResolved)
	f.err = err
	close(f.done)
}

// Done returns a channel that is closed when the write cycle completes.
func (f *WriteFuture) Done() <-chan struct{} {
	return f.done
}

// Err returns the write cycle's result once the future has resolved, and
// nil while it is still in flight. Use Done to distinguish "still running"
// from "succeeded".
func (f *WriteFuture) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the write cycle completes or the configured wait bound
// elapses, whichever comes first.
//
// On timeout it returns types.ErrAsyncWaitTimeout and abandons the cycle's
// outcome. The operation keeps running, but once the wait has been reported
// as timed out the fault buffer is not touched by the late completion, in
// either direction.
func (f *WriteFuture) Wait() error {
	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.err
	case <-timer.C:
	}

	if f.abandon() {
		f.metrics.IncAsyncTimeout()
		return types.ErrAsyncWaitTimeout
	}

	// The executor claimed the cycle just as the timer fired; the result is
	// about to be published.
	<-f.done

	return f.err
}

// WaitContext blocks until the write cycle completes or ctx is done. The
// configured wait bound does not apply, but a cancelled wait abandons the
// cycle's outcome the same way an expired one does.
func (f *WriteFuture) WaitContext(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
	}

	if f.abandon() {
		return ctx.Err()
	}

	<-f.done

	return f.err
}

// SelectFuture is the pending result of an asynchronous read.
//
// Reads have no fault-buffer side effects, so an expired wait simply leaves
// the future live: a later Wait, Done, or Result still observes the final
// record.
type SelectFuture struct {
	done    chan struct{}
	rec     *DeviceRecord
	err     error
	timeout time.Duration
	metrics types.MetricsCollector
}

func newSelectFuture(timeout time.Duration, collector types.MetricsCollector) *SelectFuture {
	return &SelectFuture{
		done:    make(chan struct{}),
		timeout: timeout,
		metrics: collector,
	}
}

func resolvedSelectFuture(err error, timeout time.Duration, collector types.MetricsCollector) *SelectFuture {
	f := newSelectFuture(timeout, collector)
	f.err = err
	close(f.done)

	return f
}

// Done returns a channel that is closed when the read completes.
func (f *SelectFuture) Done() <-chan struct{} {
	return f.done
}

// Result returns the record and error once the future has resolved. While
// the read is still in flight both are nil; use Done to distinguish.
func (f *SelectFuture) Result() (*DeviceRecord, error) {
	select {
	case <-f.done:
		return f.rec, f.err
	default:
		return nil, nil
	}
}

// Wait blocks until the read completes or the configured wait bound
// elapses. On timeout it returns types.ErrAsyncWaitTimeout; the read keeps
// running and the future stays live.
func (f *SelectFuture) Wait() (*DeviceRecord, error) {
	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.rec, f.err
	case <-timer.C:
		f.metrics.IncAsyncTimeout()
		return nil, types.ErrAsyncWaitTimeout
	}
}

// WaitContext blocks until the read completes or ctx is done. The
// configured wait bound does not apply.
func (f *SelectFuture) WaitContext(ctx context.Context) (*DeviceRecord, error) {
	select {
	case <-f.done:
		return f.rec, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
