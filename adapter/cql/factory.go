package cql

import "context"

// SessionFactory creates driver sessions on demand and owns everything
// driver-specific about them.
//
// A factory wraps one cluster configuration bound to one keyspace. It is
// handed to the pool, which calls NewSession lazily as capacity is claimed,
// and to the write executor, which uses ClassifyError to sort driver
// failures into the shared taxonomy.
//
// Implementations must be safe for concurrent use.
type SessionFactory interface {
	// NewSession establishes a new session bound to the configured
	// keyspace.
	//
	// Session creation dials the cluster and is therefore slow and
	// fallible; the context bounds the attempt.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - Session: A ready-to-use session
	//   - error: The raw driver error if the cluster is unreachable or the
	//     keyspace is rejected
	NewSession(ctx context.Context) (Session, error)

	// Keyspace returns the keyspace sessions are bound to.
	Keyspace() string

	// ClassifyError maps a raw driver error into the shared error
	// taxonomy:
	//
	//   - *types.ValidationError for statement defects (syntax, invalid,
	//     config, already-exists, unprepared); these are never retried.
	//   - types.ErrNotFound for reads that matched no rows.
	//   - *types.TransientError for everything else, including unknown
	//     errors: connectivity trouble is the common case and the managed
	//     writes are idempotent, so retrying is safe.
	//
	// Returns nil when err is nil. The op tag names the failed operation
	// for the error message; query is the statement text for validation
	// errors.
	ClassifyError(op, query string, err error) error
}
