package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bganilkumar/ConnectionManager/types"
)

func TestContextCancelledWriteNeverBuffers(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)

	// Warm the pool so cancellation is observed at admission rather than
	// during session creation.
	require.NoError(t, mgr.Ping(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := mgr.Update(ctx, "SN-CTX-1", map[string]string{"seq": "1"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, types.ErrTransient)

	// The statement never reached the wire, so there is nothing to buffer
	// and nothing for a later write to replay.
	keys, statements := mgr.PendingFaults()
	assert.Zero(t, keys)
	assert.Zero(t, statements)

	_, _, found := readRow(t, table, "SN-CTX-1")
	assert.False(t, found)
}

func TestContextDeadlineExceededWrite(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)

	require.NoError(t, mgr.Ping(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := mgr.Update(ctx, "SN-CTX-2", map[string]string{"seq": "1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	keys, _ := mgr.PendingFaults()
	assert.Zero(t, keys)
}

func TestContextCancelledAsyncWrite(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)

	require.NoError(t, mgr.Ping(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	fut := mgr.UpdateAsync(ctx, "SN-CTX-3", map[string]string{"seq": "1"})

	// The cycle fails at admission, so the future resolves with the
	// context error well inside the wait bound.
	err := fut.Wait()
	require.ErrorIs(t, err, context.Canceled)

	keys, _ := mgr.PendingFaults()
	assert.Zero(t, keys)
}

func TestContextCancelledRead(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)
	ctx := t.Context()

	const serial = "SN-CTX-4"

	require.NoError(t, mgr.Insert(ctx, serial, map[string]string{"seq": "1"}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := mgr.Select(cancelled, serial)
	require.ErrorIs(t, err, context.Canceled)

	// The record is still there for a live context.
	rec, err := mgr.Select(ctx, serial)
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Params["seq"])
}
