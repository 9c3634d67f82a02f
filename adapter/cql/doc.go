// Package cql provides adapter interfaces and implementations for CQL
// (Cassandra Query Language) database drivers.
//
// This package defines the common interfaces that CQL driver adapters must
// implement, allowing the pool and manager to work with different versions
// of gocql or other CQL drivers.
//
// # Interfaces
//
// The package defines interfaces that mirror the gocql API:
//
//   - Session: Wraps a database session for executing queries
//   - Query: Represents a CQL query with bind parameters
//   - Batch: Groups multiple queries for atomic execution
//   - Iter: Iterates over query results
//   - SessionFactory: Creates sessions on demand and classifies driver
//     errors
//
// # Adapters
//
// Driver-specific adapters are provided in subpackages:
//
//   - [github.com/bganilkumar/ConnectionManager/adapter/cql/v1]: Adapter for gocql v1.x
//   - [github.com/bganilkumar/ConnectionManager/adapter/cql/v2]: Adapter for apache/cassandra-gocql-driver v2.x
//
// # Usage
//
// Import the appropriate adapter for your gocql version:
//
//	import (
//	    "github.com/bganilkumar/ConnectionManager"
//	    v1 "github.com/bganilkumar/ConnectionManager/adapter/cql/v1"
//	    "github.com/gocql/gocql"
//	)
//
//	// Configure the cluster
//	cluster := gocql.NewCluster("127.0.0.1")
//	cluster.Keyspace = "devices"
//
//	// Build a factory and hand it to the manager
//	factory := v1.NewFactory(cluster)
//	mgr, _ := connmgr.NewManager(factory)
package cql
