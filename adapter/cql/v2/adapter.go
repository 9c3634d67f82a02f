// Package v2 provides an adapter for gocql v2 (github.com/apache/cassandra-gocql-driver).
package v2

import (
	"context"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
)

// Session wraps a gocql v2 session.
type Session struct {
	session *gocql.Session
}

// NewSession creates a new v2 adapter from a gocql session.
//
// Parameters:
//   - session: A gocql.Session instance from the Apache driver
//
// Returns:
//   - *Session: An adapter implementing cql.Session
func NewSession(session *gocql.Session) *Session {
	return &Session{session: session}
}

// WrapSession is an alias for NewSession that wraps a gocql v2 session.
//
// Parameters:
//   - session: A gocql.Session instance from the Apache driver
//
// Returns:
//   - cql.Session: An adapter implementing cql.Session interface
func WrapSession(session *gocql.Session) cql.Session {
	return NewSession(session)
}

// Query creates a new query for the given statement.
//
// Parameters:
//   - stmt: CQL statement with ? placeholders
//   - values: Values to bind to placeholders
//
// Returns:
//   - cql.Query: A query builder
func (s *Session) Query(stmt string, values ...any) cql.Query {
	return &Query{
		query:     s.session.Query(stmt, values...),
		statement: stmt,
		values:    values,
	}
}

// Batch creates a new batch of the given type.
//
// Parameters:
//   - kind: Type of batch
//
// Returns:
//   - cql.Batch: A batch builder
func (s *Session) Batch(kind cql.BatchType) cql.Batch {
	return &Batch{
		batch: s.session.Batch(gocql.BatchType(kind)),
	}
}

// Close terminates the session.
func (s *Session) Close() {
	s.session.Close()
}

// Query wraps a gocql v2 query.
type Query struct {
	query     *gocql.Query
	statement string
	values    []any
}

// Consistency sets the consistency level.
func (q *Query) Consistency(c cql.Consistency) cql.Query {
	q.query = q.query.Consistency(gocql.Consistency(c))

	return q
}

// PageSize sets the page size.
func (q *Query) PageSize(n int) cql.Query {
	q.query = q.query.PageSize(n)

	return q
}

// PageState sets the pagination state.
func (q *Query) PageState(state []byte) cql.Query {
	q.query = q.query.PageState(state)

	return q
}

// WithTimestamp sets the write timestamp.
func (q *Query) WithTimestamp(ts int64) cql.Query {
	q.query = q.query.WithTimestamp(ts)

	return q
}

// Exec executes the query.
func (q *Query) Exec() error {
	return q.query.Exec()
}

// ExecContext executes the query with context.
func (q *Query) ExecContext(ctx context.Context) error {
	return q.query.ExecContext(ctx)
}

// Scan executes and scans a single row.
func (q *Query) Scan(dest ...any) error {
	return q.query.Scan(dest...)
}

// ScanContext executes and scans a single row with context.
func (q *Query) ScanContext(ctx context.Context, dest ...any) error {
	return q.query.ScanContext(ctx, dest...)
}

// Iter returns an iterator for results.
func (q *Query) Iter() cql.Iter {
	return &Iter{iter: q.query.Iter()}
}

// IterContext returns an iterator for results with context.
func (q *Query) IterContext(ctx context.Context) cql.Iter {
	return &Iter{iter: q.query.IterContext(ctx)}
}

// MapScan executes and scans into a map.
func (q *Query) MapScan(m map[string]any) error {
	return q.query.MapScan(m)
}

// MapScanContext executes and scans into a map with context.
func (q *Query) MapScanContext(ctx context.Context, m map[string]any) error {
	return q.query.MapScanContext(ctx, m)
}

// Statement returns the CQL statement.
func (q *Query) Statement() string {
	return q.statement
}

// Values returns the bound values.
func (q *Query) Values() []any {
	return q.values
}

// Release is a no-op for v2 as it doesn't have query pooling.
func (q *Query) Release() {
	// v2 driver doesn't have Release method - no-op
}

// Batch wraps a gocql v2 batch.
type Batch struct {
	batch   *gocql.Batch
	entries []cql.BatchEntry
}

// Query adds a statement to the batch.
func (b *Batch) Query(stmt string, args ...any) cql.Batch {
	b.batch = b.batch.Query(stmt, args...)
	b.entries = append(b.entries, cql.BatchEntry{
		Statement: stmt,
		Args:      args,
	})

	return b
}

// Consistency sets the consistency level.
func (b *Batch) Consistency(c cql.Consistency) cql.Batch {
	b.batch = b.batch.Consistency(gocql.Consistency(c))

	return b
}

// WithTimestamp sets the write timestamp for all statements.
func (b *Batch) WithTimestamp(ts int64) cql.Batch {
	b.batch = b.batch.WithTimestamp(ts)

	return b
}

// Exec executes the batch.
func (b *Batch) Exec() error {
	return b.batch.Exec()
}

// ExecContext executes the batch with context.
func (b *Batch) ExecContext(ctx context.Context) error {
	return b.batch.ExecContext(ctx)
}

// Size returns the number of statements in the batch.
func (b *Batch) Size() int {
	return len(b.entries)
}

// Statements returns all statements in the batch.
func (b *Batch) Statements() []cql.BatchEntry {
	return b.entries
}

// Iter wraps a gocql v2 iterator.
type Iter struct {
	iter *gocql.Iter
}

// Scan reads the next row.
func (i *Iter) Scan(dest ...any) bool {
	return i.iter.Scan(dest...)
}

// Close closes the iterator.
func (i *Iter) Close() error {
	return i.iter.Close()
}

// MapScan reads the next row into a map.
func (i *Iter) MapScan(m map[string]any) bool {
	return i.iter.MapScan(m)
}

// SliceMap reads all rows into a slice of maps.
func (i *Iter) SliceMap() ([]map[string]any, error) {
	return i.iter.SliceMap()
}

// PageState returns the pagination token.
func (i *Iter) PageState() []byte {
	return i.iter.PageState()
}

// NumRows returns the number of rows in the current page.
func (i *Iter) NumRows() int {
	return i.iter.NumRows()
}

// Scanner returns a database/sql-style scanner for the iterator.
func (i *Iter) Scanner() cql.Scanner {
	return &scanner{scanner: i.iter.Scanner()}
}

// scanner wraps gocql.Scanner to implement cql.Scanner.
type scanner struct {
	scanner gocql.Scanner
}

func (s *scanner) Next() bool {
	return s.scanner.Next()
}

func (s *scanner) Scan(dest ...any) error {
	return s.scanner.Scan(dest...)
}

func (s *scanner) Err() error {
	return s.scanner.Err()
}
