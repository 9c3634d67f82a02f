// Package v2 provides an adapter for gocql v2 (github.com/apache/cassandra-gocql-driver).
//
// This adapter wraps the Apache Cassandra gocql driver v2 to implement the
// driver-neutral CQL interfaces, and provides a session factory plus error
// classification for the pool and write executor.
//
// # Installation
//
// Import this package along with the Apache gocql driver:
//
//	import (
//	    gocql "github.com/apache/cassandra-gocql-driver/v2"
//	    v2 "github.com/bganilkumar/ConnectionManager/adapter/cql/v2"
//	)
//
// # Usage
//
// Configure a cluster and build a factory from it:
//
//	cluster := gocql.NewCluster("127.0.0.1", "127.0.0.2")
//	cluster.Keyspace = "devices"
//	cluster.Consistency = gocql.Quorum
//
//	factory := v2.NewFactory(cluster)
//
//	mgr, err := connmgr.NewManager(factory, connmgr.WithCapacity(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Differences from v1
//
// The v2 driver exposes context-aware methods (ExecContext, ScanContext,
// IterContext, MapScanContext) natively and drops query pooling, so
// Release is a no-op here.
//
// # Thread Safety
//
// All adapter types are safe for concurrent use, matching the driver's
// thread safety guarantees.
package v2
