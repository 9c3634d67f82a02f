// Package connmgr provides a bounded-session Cassandra persistence manager
// for device-model rows with transparent fault buffering and replay.
//
// A Manager owns a fixed-capacity pool of driver sessions and a per-key
// fault buffer. Writes for a device serial that fail transiently are
// buffered in order and replayed as one batch in front of the next write
// for the same serial, so short connectivity gaps heal themselves without
// the caller orchestrating retries.
//
// # Key Features
//
//   - Bounded Session Pool: A counting permit caps live sessions; the
//     (N+1)-th concurrent operation waits instead of opening more
//   - Scoped Session Handles: Single-use checkouts with detectable double
//     close, so a leaked or reused handle cannot corrupt pool accounting
//   - Fault Buffering: Transiently failed writes are buffered per serial
//     and replayed, in order, with the next write for that serial
//   - Durable Journal: Optional mirroring of the fault buffer to NATS
//     JetStream or database/sql storage, recovered at startup
//   - Driver Choice: Adapters for both gocql v1 and the Apache
//     cassandra-gocql-driver v2
//
// # Basic Usage
//
//	cluster := gocql.NewCluster("10.0.0.1", "10.0.0.2")
//	cluster.Keyspace = "simulator"
//
//	mgr, err := connmgr.NewManager(v1.NewFactory(cluster),
//	    connmgr.WithCapacity(10),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close(context.Background())
//
//	err = mgr.Insert(ctx, "SN-1234", map[string]string{"model": "X9"})
//
// # Error Handling
//
// Every driver failure is classified into a small taxonomy before it
// reaches the caller:
//
//   - *types.ValidationError: The statement itself is defective (syntax,
//     unknown keyspace, schema conflicts). Never buffered; resubmitting the
//     same statement cannot succeed.
//   - *types.TransientError: Connectivity or availability trouble. The
//     failed statement has been buffered for replay; the error is still
//     returned so the caller knows this write did not land yet.
//   - *types.PoolExhaustedError: A pool permit was held but no session
//     could be created. The permit was restored; nothing was buffered
//     because the statement never reached the wire.
//
// Check classes with errors.Is against the matching sentinels:
//
//	if errors.Is(err, types.ErrTransient) {
//	    // buffered, will replay with the next write for this serial
//	}
//	if errors.Is(err, types.ErrInvalidStatement) {
//	    // fix the statement; retrying is pointless
//	}
//
// # Sentinel Errors
//
//   - types.ErrNotFound: A read matched no rows
//   - types.ErrManagerClosed: Operation attempted after Shutdown
//   - types.ErrPoolClosed: Acquire attempted after pool shutdown
//   - types.ErrHandleClosed: Operation on a released session handle
//   - types.ErrAsyncWaitTimeout: A bounded future wait expired; the
//     operation itself keeps running
//
// # Asynchronous Operations
//
// InsertAsync, UpdateAsync, ResetAsync, and SelectAsync run the operation
// on a goroutine and return a future. Wait applies the configured bound
// (one second by default):
//
//	f := mgr.InsertAsync(ctx, serial, params)
//	if err := f.Wait(); errors.Is(err, types.ErrAsyncWaitTimeout) {
//	    // the write is still in flight; its result is observable via Done
//	}
//
// An expired wait never cancels the operation. For writes it also
// abandons the cycle's buffer side effects: an outcome nobody observed
// neither buffers a failure nor clears previously buffered statements, so
// the caller's view and the replay state cannot diverge.
//
// # Idempotency
//
// Replay resubmits buffered statements verbatim, and a statement may be
// applied twice when a "failure" was actually a lost acknowledgement. The
// managed operations are idempotent upserts and deletes, which makes the
// replay safe. Counter mutations are not idempotent; see the warning on
// types.CounterBatch before routing them through raw sessions into
// batches.
//
// Statements replayed in one batch share a single write timestamp. When
// several buffered statements touch the same cell, the surviving value is
// decided by Cassandra's same-timestamp tie-break, not by buffer order.
package connmgr
