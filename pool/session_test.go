package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bganilkumar/ConnectionManager/types"
)

func TestPooledSessionSingleRelease(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(2))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	require.False(t, s.Closed())

	require.True(t, s.Close(), "first close performs the release")
	require.True(t, s.Closed())
	require.Equal(t, 1, p.Idle())

	// Repeated closes are detectable no-ops and must not release twice.
	require.False(t, s.Close())
	require.False(t, s.Close())
	assert.Equal(t, 1, p.Idle(), "idle count must not grow on repeated close")
	assert.Equal(t, 0, p.InUse())
}

func TestPooledSessionExecute(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	defer s.Close()

	stmt := types.Statement{
		Kind:  types.KindInsert,
		Query: "INSERT INTO model (serialno, modelobj, isadminup) VALUES (?, ?, ?)",
		Args:  []any{"SN-100", "{}", true},
	}
	require.NoError(t, s.Execute(t.Context(), stmt))

	raw := factory.sessions[0]
	require.Equal(t, 1, raw.queryCount())
	assert.Equal(t, stmt.Query, raw.queries[0])

	// Driver errors pass through unclassified.
	execErr := errors.New("write timeout")
	raw.execErr = execErr
	err = s.Execute(t.Context(), stmt)
	require.ErrorIs(t, err, execErr)
}

func TestPooledSessionExecuteBatch(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	defer s.Close()

	stmts := []types.Statement{
		{Kind: types.KindInsert, Query: "INSERT INTO model (serialno) VALUES (?)", Args: []any{"SN-1"}},
		{Kind: types.KindUpdate, Query: "UPDATE model SET isadminup = ? WHERE serialno = ?", Args: []any{false, "SN-2"}},
	}
	require.NoError(t, s.ExecuteBatch(t.Context(), types.LoggedBatch, stmts))

	raw := factory.sessions[0]
	require.Len(t, raw.batches, 1)
	batch := raw.batches[0]
	assert.Equal(t, types.LoggedBatch, batch.kind)
	require.Equal(t, 2, batch.Size())
	assert.Equal(t, stmts[0].Query, batch.entries[0].Statement)
	assert.Equal(t, stmts[1].Query, batch.entries[1].Statement)
}

func TestPooledSessionOperationsAfterClose(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	require.True(t, s.Close())

	stmt := types.Statement{Kind: types.KindSelect, Query: "SELECT * FROM model"}

	require.ErrorIs(t, s.Execute(t.Context(), stmt), types.ErrHandleClosed)
	require.ErrorIs(t, s.ExecuteBatch(t.Context(), types.LoggedBatch, []types.Statement{stmt}), types.ErrHandleClosed)

	_, err = s.Query(t.Context(), stmt)
	require.ErrorIs(t, err, types.ErrHandleClosed)

	var serial string
	require.ErrorIs(t, s.Scan(t.Context(), stmt, &serial), types.ErrHandleClosed)

	_, err = s.Prepare("SELECT * FROM model WHERE serialno = ?")
	require.ErrorIs(t, err, types.ErrHandleClosed)

	f := s.ExecuteAsync(t.Context(), stmt)
	require.ErrorIs(t, f.Wait(), types.ErrHandleClosed)

	// The raw session stayed untouched.
	assert.Equal(t, 0, factory.sessions[0].queryCount())
}

func TestExecuteAsyncReleasesHandle(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)

	stmt := types.Statement{Kind: types.KindUpdate, Query: "UPDATE model SET isadminup = ? WHERE serialno = ?", Args: []any{true, "SN-7"}}
	f := s.ExecuteAsync(t.Context(), stmt)

	require.NoError(t, f.Wait())
	require.Eventually(t, func() bool {
		return p.Idle() == 1
	}, 2*time.Second, 10*time.Millisecond, "async completion must return the session to the pool")
	assert.True(t, s.Closed())
	assert.Equal(t, 1, factory.sessions[0].queryCount())
}

func TestExecuteAsyncWaitTimeout(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1), WithAsyncWaitTimeout(50*time.Millisecond))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)

	execErr := errors.New("coordinator overloaded")
	factory.sessions[0].execErr = execErr
	factory.sessions[0].execDelay = 200 * time.Millisecond

	stmt := types.Statement{Kind: types.KindInsert, Query: "INSERT INTO model (serialno) VALUES (?)", Args: []any{"SN-9"}}
	f := s.ExecuteAsync(t.Context(), stmt)

	// The bounded wait gives up while the statement is still in flight.
	require.ErrorIs(t, f.Wait(), types.ErrAsyncWaitTimeout)

	// The future itself stays live and observes the eventual outcome.
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("async execution never completed")
	}
	require.ErrorIs(t, f.Err(), execErr)

	// Late completion still returns the session.
	require.Eventually(t, func() bool {
		return p.Idle() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExecFutureWaitContext(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	factory.sessions[0].execDelay = 200 * time.Millisecond

	stmt := types.Statement{Kind: types.KindDelete, Query: "DELETE FROM model WHERE serialno = ?", Args: []any{"SN-2"}}
	f := s.ExecuteAsync(t.Context(), stmt)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.WaitContext(ctx), context.DeadlineExceeded)

	// A later wait without a deadline sees the result.
	require.NoError(t, f.WaitContext(t.Context()))
}

func TestPreparedStatement(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	defer s.Close()

	prep, err := s.Prepare("SELECT modelobj FROM model WHERE serialno = ?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT modelobj FROM model WHERE serialno = ?", prep.Statement())

	stmt := prep.Bind("SN-42")
	assert.Equal(t, types.KindRaw, stmt.Kind)
	assert.Equal(t, []any{"SN-42"}, stmt.Args)

	require.NoError(t, prep.Exec(t.Context(), "SN-42"))
	require.Equal(t, 1, factory.sessions[0].queryCount())

	iter, err := prep.Query(t.Context(), "SN-42")
	require.NoError(t, err)
	require.NoError(t, iter.Close())

	var obj string
	require.NoError(t, prep.Scan(t.Context(), []any{"SN-42"}, &obj))
}

func TestPooledSessionKeyspace(t *testing.T) {
	factory := newMockFactory()
	p, err := New(factory, WithCapacity(1))
	require.NoError(t, err)

	s, err := p.Acquire(t.Context())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "devices", s.Keyspace())
}
