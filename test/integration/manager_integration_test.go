package integration_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connmgr "github.com/bganilkumar/ConnectionManager"
	"github.com/bganilkumar/ConnectionManager/test/testutil"
	"github.com/bganilkumar/ConnectionManager/types"
)

func TestManagerCRUD(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)
	ctx := t.Context()

	const serial = "SN-CRUD-1"
	params := map[string]string{
		"fsmState":  "REGISTERED",
		"swVersion": "4.2.1",
	}

	t.Run("insert", func(t *testing.T) {
		require.NoError(t, mgr.Insert(ctx, serial, params))

		_, adminUp, found := readRow(t, table, serial)
		require.True(t, found, "row should exist after insert")
		assert.False(t, adminUp, "inserted devices start admin-down")
	})

	t.Run("select", func(t *testing.T) {
		rec, err := mgr.Select(ctx, serial)
		require.NoError(t, err)
		assert.Equal(t, serial, rec.Serial)
		assert.Equal(t, params, rec.Params)
		assert.False(t, rec.AdminUp)
	})

	t.Run("update", func(t *testing.T) {
		updated := map[string]string{
			"fsmState":  "CONNECTED",
			"swVersion": "4.2.1",
		}
		require.NoError(t, mgr.Update(ctx, serial, updated))

		rec, err := mgr.Select(ctx, serial)
		require.NoError(t, err)
		assert.Equal(t, updated, rec.Params)
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, mgr.Reset(ctx, serial))

		_, _, found := readRow(t, table, serial)
		assert.False(t, found, "row should be gone after reset")

		_, err := mgr.Select(ctx, serial)
		require.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestManagerSave(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)
	ctx := t.Context()

	const serial = "SN-SAVE-1"

	// Absent row: Save inserts.
	require.NoError(t, mgr.Save(ctx, serial, map[string]string{"fsmState": "BOOTING"}))

	rec, err := mgr.Select(ctx, serial)
	require.NoError(t, err)
	assert.Equal(t, "BOOTING", rec.Params["fsmState"])

	// Present row: Save updates in place.
	require.NoError(t, mgr.Save(ctx, serial, map[string]string{"fsmState": "REGISTERED"}))

	rec, err = mgr.Select(ctx, serial)
	require.NoError(t, err)
	assert.Equal(t, "REGISTERED", rec.Params["fsmState"])
}

func TestManagerAsync(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)
	ctx := t.Context()

	const serial = "SN-ASYNC-1"

	fut := mgr.InsertAsync(ctx, serial, map[string]string{"fsmState": "BOOTING"})
	require.NoError(t, fut.Wait())

	sel := mgr.SelectAsync(ctx, serial)
	rec, err := sel.Wait()
	require.NoError(t, err)
	assert.Equal(t, serial, rec.Serial)

	require.NoError(t, mgr.ResetAsync(ctx, serial).Wait())

	_, err = mgr.Select(ctx, serial)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestManagerConcurrentWrites(t *testing.T) {
	table := createDeviceTable(t)
	metrics := testutil.NewTestMetricsCollector()
	mgr := newManager(t, table, connmgr.WithMetrics(metrics))
	ctx := t.Context()

	const devices = 20

	var wg sync.WaitGroup
	errs := make([]error, devices)
	for i := range devices {
		wg.Go(func() {
			serial := fmt.Sprintf("SN-CONC-%02d", i)
			errs[i] = mgr.Insert(ctx, serial, map[string]string{"slot": fmt.Sprint(i)})
		})
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "device %d", i)
	}

	for i := range devices {
		_, _, found := readRow(t, table, fmt.Sprintf("SN-CONC-%02d", i))
		assert.True(t, found, "device %d row missing", i)
	}

	keys, statements := mgr.PendingFaults()
	assert.Zero(t, keys)
	assert.Zero(t, statements)
	assert.Equal(t, int64(devices), metrics.GetWriteTotal(types.KindInsert))
}

func TestManagerPing(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)

	require.NoError(t, mgr.Ping(t.Context()))
}

func TestManagerScopedSession(t *testing.T) {
	table := createDeviceTable(t)
	mgr := newManager(t, table)
	ctx := t.Context()

	s, err := mgr.AcquireSession(ctx)
	require.NoError(t, err)

	stmt := types.Statement{
		Kind:  types.KindRaw,
		Query: fmt.Sprintf("INSERT INTO %s (serialno, modelobj, isadminup) VALUES (?, ?, ?)", table),
		Args:  []any{"SN-RAW-1", "{}", true},
	}
	require.NoError(t, s.Execute(ctx, stmt))

	// First release succeeds, the second is a detectable no-op.
	assert.True(t, s.Close())
	assert.False(t, s.Close())

	_, adminUp, found := readRow(t, table, "SN-RAW-1")
	require.True(t, found)
	assert.True(t, adminUp)
}
