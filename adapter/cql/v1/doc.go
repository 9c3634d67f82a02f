// Package v1 provides an adapter for gocql v1.x.
//
// This adapter wraps gocql sessions, queries, batches, and iterators to
// implement the driver-neutral CQL interfaces, and provides a session
// factory plus error classification for the pool and write executor.
//
// # Installation
//
// Import this package along with gocql v1.x:
//
//	import (
//	    "github.com/gocql/gocql"
//	    v1 "github.com/bganilkumar/ConnectionManager/adapter/cql/v1"
//	)
//
// # Usage
//
// Configure a gocql cluster and build a factory from it:
//
//	cluster := gocql.NewCluster("127.0.0.1", "127.0.0.2")
//	cluster.Keyspace = "devices"
//	cluster.Consistency = gocql.Quorum
//
//	factory := v1.NewFactory(cluster)
//
//	mgr, err := connmgr.NewManager(factory, connmgr.WithCapacity(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// An already-established gocql session can also be wrapped directly:
//
//	gocqlSession, err := cluster.CreateSession()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session := v1.NewSession(gocqlSession)
//
// # Type Conversions
//
// The adapter provides helper functions for converting between the module's
// and gocql's types:
//
//   - [ToGocqlConsistency]: Converts Consistency to gocql.Consistency
//   - [FromGocqlConsistency]: Converts gocql.Consistency to Consistency
//   - [ToGocqlBatchType]: Converts BatchType to gocql.BatchType
//   - [FromGocqlBatchType]: Converts gocql.BatchType to BatchType
//   - [UnwrapSession]: Returns the underlying gocql.Session
//
// # Thread Safety
//
// All adapter types are safe for concurrent use, matching gocql's thread
// safety guarantees.
package v1
