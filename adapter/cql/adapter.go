package cql

import (
	"context"

	"github.com/bganilkumar/ConnectionManager/types"
)

// Type aliases for convenience - re-export from types package.
type (
	BatchType   = types.BatchType
	Consistency = types.Consistency
)

// Re-export batch type constants for convenience.
const (
	LoggedBatch   = types.LoggedBatch
	UnloggedBatch = types.UnloggedBatch
	CounterBatch  = types.CounterBatch
)

// Re-export consistency level constants for convenience.
const (
	Any         = types.Any
	One         = types.One
	Two         = types.Two
	Three       = types.Three
	Quorum      = types.Quorum
	All         = types.All
	LocalQuorum = types.LocalQuorum
	EachQuorum  = types.EachQuorum
	Serial      = types.Serial
	LocalSerial = types.LocalSerial
	LocalOne    = types.LocalOne
)

// Session represents a raw CQL session from the underlying driver.
//
// This interface is implemented by adapters for gocql v1 and v2. Sessions
// are expensive: they own connection pools to every node in the cluster.
// The pool package bounds how many exist at once.
type Session interface {
	// Query creates a new query for the given statement.
	//
	// Parameters:
	//   - stmt: CQL statement with ? placeholders
	//   - values: Values to bind to placeholders
	//
	// Returns:
	//   - Query: A query builder
	Query(stmt string, values ...any) Query

	// Batch creates a new batch of the given type.
	//
	// Parameters:
	//   - kind: Type of batch
	//
	// Returns:
	//   - Batch: A batch builder
	Batch(kind BatchType) Batch

	// Close terminates the session and its connection pools.
	Close()
}

// Query represents a raw CQL query from the underlying driver.
type Query interface {
	// Consistency sets the consistency level.
	Consistency(c Consistency) Query

	// PageSize sets the page size.
	PageSize(n int) Query

	// PageState sets the pagination state.
	PageState(state []byte) Query

	// WithTimestamp sets the write timestamp.
	WithTimestamp(ts int64) Query

	// Exec executes the query.
	Exec() error

	// ExecContext executes the query with context.
	ExecContext(ctx context.Context) error

	// Scan executes and scans a single row.
	Scan(dest ...any) error

	// ScanContext executes and scans a single row with context.
	ScanContext(ctx context.Context, dest ...any) error

	// Iter returns an iterator for results.
	Iter() Iter

	// IterContext returns an iterator for results with context.
	IterContext(ctx context.Context) Iter

	// MapScan executes and scans into a map.
	MapScan(m map[string]any) error

	// MapScanContext executes and scans into a map with context.
	MapScanContext(ctx context.Context, m map[string]any) error

	// Statement returns the CQL statement.
	Statement() string

	// Values returns the bound values.
	Values() []any

	// Release returns the query to a pool (if applicable).
	Release()
}

// Batch represents a raw CQL batch from the underlying driver.
//
// Batches carry their entries in submission order; Statements exposes them
// so a failed batch can be decomposed back into the statements it was built
// from.
type Batch interface {
	// Query adds a statement to the batch.
	Query(stmt string, args ...any) Batch

	// Consistency sets the consistency level.
	Consistency(c Consistency) Batch

	// WithTimestamp sets the write timestamp for all statements.
	WithTimestamp(ts int64) Batch

	// Exec executes the batch.
	Exec() error

	// ExecContext executes the batch with context.
	ExecContext(ctx context.Context) error

	// Size returns the number of statements in the batch.
	Size() int

	// Statements returns all statements in the batch, in the order they
	// were added.
	Statements() []BatchEntry
}

// BatchEntry represents a single statement in a batch.
type BatchEntry struct {
	Statement string
	Args      []any
}

// Iter represents a raw CQL iterator from the underlying driver.
type Iter interface {
	// Scan reads the next row.
	Scan(dest ...any) bool

	// Close closes the iterator.
	Close() error

	// MapScan reads the next row into a map.
	MapScan(m map[string]any) bool

	// SliceMap reads all rows into a slice of maps.
	SliceMap() ([]map[string]any, error)

	// PageState returns the pagination token.
	PageState() []byte

	// NumRows returns the number of rows in the current page.
	NumRows() int

	// Scanner returns a database/sql-style scanner for the iterator.
	Scanner() Scanner
}

// Scanner provides database/sql-style row scanning.
type Scanner interface {
	// Next advances to the next row, returning true if a row is available.
	Next() bool

	// Scan reads the current row into dest.
	Scan(dest ...any) error

	// Err returns any error from iteration and releases resources.
	Err() error
}
