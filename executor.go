package connmgr

import (
	"context"
	"errors"
	"time"

	"github.com/bganilkumar/ConnectionManager/types"
)

// journalMirrorTimeout bounds best-effort journal mirror calls. Mirrors run
// detached from the caller's context: the append must survive the very
// cancellation or deadline that failed the statement.
const journalMirrorTimeout = 5 * time.Second

// execute runs one synchronous write cycle for key.
func (m *Manager) execute(ctx context.Context, key string, stmt types.Statement) error {
	unlock := m.buffer.LockKey(key)
	defer unlock()

	return m.executeLocked(ctx, key, stmt, nil)
}

// executeAsync runs the write cycle on a goroutine and returns its future.
// The key lock is taken by the goroutine, so same-key cycles serialize with
// each other whether they are sync or async.
func (m *Manager) executeAsync(ctx context.Context, key string, stmt types.Statement) *WriteFuture {
	if m.closed.Load() {
		return resolvedWriteFuture(types.ErrManagerClosed, m.asyncWaitTimeout, m.metrics)
	}

	f := newWriteFuture(m.asyncWaitTimeout, m.metrics)
	go func() {
		unlock := m.buffer.LockKey(key)
		err := m.executeLocked(ctx, key, stmt, f)
		unlock()

		f.resolve(err)
	}()

	return f
}

// executeLocked is one build, execute, classify write cycle. The caller
// holds the key lock.
//
// If the fault buffer holds pending statements for the key, the new
// statement is executed as a batch behind them; batch success clears the
// key. A transient failure buffers the new statement only: the pending
// constituents are already in the buffer, so the buffered list always
// mirrors the ordered batch that a future write will replay. Validation
// failures are never buffered.
//
// fut is nil for synchronous cycles. For asynchronous ones it gates every
// buffer side effect: a cycle whose waiter already gave up reports nothing
// to anyone, so it must not change what a future write will replay.
func (m *Manager) executeLocked(ctx context.Context, key string, stmt types.Statement, fut *WriteFuture) error {
	if m.closed.Load() {
		return types.ErrManagerClosed
	}

	m.metrics.IncWriteTotal(stmt.Kind)
	start := time.Now()

	pending := m.buffer.PendingFor(key)

	executed, err := m.runStatements(ctx, stmt, pending)
	m.metrics.ObserveWriteDuration(time.Since(start).Seconds())

	// Ownership decision point.
	owned := fut == nil || fut.claim()

	if err == nil {
		if owned && len(pending) > 0 {
			m.finishReplay(ctx, key, len(pending))
		}

		return nil
	}

	m.metrics.IncWriteError(stmt.Kind)

	if !executed {
		// Session acquisition failed: the statement never reached the
		// wire, so there is nothing to replay. Acquire already classified
		// the error.
		return err
	}

	classified := m.factory.ClassifyError(writeOp(stmt, pending), stmt.Query, err)

	if owned && errors.Is(classified, types.ErrTransient) {
		m.buffer.RecordFailure(key, stmt)
		m.mirrorAppend(ctx, key, stmt)
		m.logger.Warn("write failed transiently, statement buffered for replay",
			"key", key,
			"kind", stmt.Kind.String(),
			"pending", len(pending)+1,
			"error", err,
		)
	}

	return classified
}

// runStatements acquires a session and runs the new statement, batched
// behind any pending statements for the key. The returned flag reports
// whether the statements reached the driver; acquisition failures return
// false.
func (m *Manager) runStatements(ctx context.Context, stmt types.Statement, pending []types.Statement) (bool, error) {
	s, err := m.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer s.Close()

	if len(pending) == 0 {
		return true, s.Execute(ctx, stmt)
	}

	batch := make([]types.Statement, 0, len(pending)+1)
	batch = append(batch, pending...)
	batch = append(batch, stmt)

	return true, s.ExecuteBatch(ctx, m.batchType, batch)
}

// finishReplay clears a key whose pending statements just replayed
// successfully as part of a batch.
func (m *Manager) finishReplay(ctx context.Context, key string, replayed int) {
	for range replayed {
		m.metrics.IncFaultReplayed()
	}

	m.buffer.Clear(key)
	m.mirrorDiscard(ctx, key)
	m.logger.Info("buffered statements replayed", "key", key, "replayed", replayed)
}

// writeOp names the failed operation for the classified error message.
func writeOp(stmt types.Statement, pending []types.Statement) string {
	if len(pending) > 0 {
		return "batch"
	}

	return stmt.Kind.String()
}

// mirrorAppend mirrors a freshly buffered statement to the journal. The
// mirror is best-effort: failures are logged and counted, never failed
// through to the write path.
func (m *Manager) mirrorAppend(ctx context.Context, key string, stmt types.Statement) {
	if m.journal == nil {
		return
	}

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalMirrorTimeout)
	defer cancel()

	if err := m.journal.Append(mctx, key, []types.Statement{stmt}); err != nil {
		m.metrics.IncJournalAppendError()
		m.logger.Error("journal append failed", "key", key, "error", err)

		return
	}

	m.metrics.IncJournalAppend()
}

// mirrorDiscard drops a replayed key from the journal, best-effort.
func (m *Manager) mirrorDiscard(ctx context.Context, key string) {
	if m.journal == nil {
		return
	}

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalMirrorTimeout)
	defer cancel()

	if err := m.journal.Discard(mctx, key); err != nil {
		m.logger.Error("journal discard failed", "key", key, "error", err)

		return
	}

	m.metrics.IncJournalDiscard()
}
