// Package integration_test provides end-to-end tests for the connection
// manager against a real CQL cluster.
//
// The tests cover the managed device-model operations, fault buffering and
// replay under injected failures, journal persistence across manager
// restarts, and context cancellation at the pool admission gate.
//
// # Running Integration Tests
//
// Integration tests are skipped by default when using -short flag:
//
//	go test -short ./...           # Skips integration tests
//	go test ./test/integration/... # Runs integration tests
//
// The suite requires Docker: a single ScyllaDB (or Cassandra) container is
// started once per run via testcontainers and shared by every test. Set
// SKIP_INTEGRATION_TESTS=1 to skip container setup entirely.
//
// # Journal Tests
//
// Journal persistence tests use file-backed SQLite databases, which require
// the go-sqlite3 driver:
//
//	go get github.com/mattn/go-sqlite3
package integration_test
