package v2

import (
	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
)

// ToGocqlConsistency converts a Consistency to gocql.Consistency.
//
// This is useful when you need to interact with the underlying gocql driver
// directly while using the module's consistency constants.
//
// Parameters:
//   - c: Consistency level
//
// Returns:
//   - gocql.Consistency: The equivalent gocql consistency level
//
// Example:
//
//	cluster := gocql.NewCluster("127.0.0.1")
//	cluster.Consistency = v2.ToGocqlConsistency(cql.Quorum)
func ToGocqlConsistency(c cql.Consistency) gocql.Consistency {
	return gocql.Consistency(c)
}

// FromGocqlConsistency converts a gocql.Consistency to Consistency.
//
// Parameters:
//   - c: gocql consistency level
//
// Returns:
//   - cql.Consistency: The equivalent consistency level
func FromGocqlConsistency(c gocql.Consistency) cql.Consistency {
	return cql.Consistency(c)
}

// ToGocqlBatchType converts a BatchType to gocql.BatchType.
//
// Parameters:
//   - bt: Batch type
//
// Returns:
//   - gocql.BatchType: The equivalent gocql batch type
func ToGocqlBatchType(bt cql.BatchType) gocql.BatchType {
	return gocql.BatchType(bt)
}

// FromGocqlBatchType converts a gocql.BatchType to BatchType.
//
// Parameters:
//   - bt: gocql batch type
//
// Returns:
//   - cql.BatchType: The equivalent batch type
func FromGocqlBatchType(bt gocql.BatchType) cql.BatchType {
	return cql.BatchType(bt)
}

// UnwrapSession returns the underlying gocql.Session from a v2 Session
// adapter.
//
// This is useful when you need direct access to the underlying gocql
// session for operations not exposed by the adapter interface.
//
// Parameters:
//   - s: v2 Session adapter
//
// Returns:
//   - *gocql.Session: The underlying gocql session
func UnwrapSession(s *Session) *gocql.Session {
	return s.session
}
