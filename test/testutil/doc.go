// Package testutil provides test utilities and fakes for connection manager
// testing.
//
// This package provides an in-memory fake cluster for unit tests and
// simulations, fault-injection wrappers for live clusters, a counting
// metrics collector, and helper functions for integration tests.
//
// # Fake Cluster
//
// [FakeCluster] is an in-memory device table that applies the manager's
// statements, so tests can verify end state without Docker:
//
//	cluster := testutil.NewFakeCluster()
//	factory := testutil.NewFakeFactory(cluster)
//
//	mgr, _ := connmgr.NewManager(factory)
//	_ = mgr.Insert(ctx, "SN-1", params)
//
//	row, ok := cluster.Row("SN-1")
//
// Faults are injected with [FakeCluster.SetDown] and
// [FakeCluster.FailNextWrites].
//
// # Chaos Wrappers
//
// [ChaosFactory] and [ChaosSession] wrap real sessions with latency and
// toggleable failures, driven by a [FaultSwitch]. They let simulations
// exercise fault buffering and replay against a live cluster.
//
// # Integration Test Helpers
//
// For integration tests, helper functions are provided:
//
//   - StartEmbeddedNATS: Starts an embedded NATS server for journal testing
//   - StartCQLCluster: Starts a ScyllaDB or Cassandra test container
//     (requires Docker)
//   - TestMetricsCollector: Records every metrics callback for assertions
package testutil
