// Package types provides shared types and errors for the connection manager.
//
// This is a "leaf" package with no imports from other packages in this
// module, allowing it to be imported by any package without causing import
// cycles.
package types

import "errors"

// StatementKind identifies the operation a Statement performs.
type StatementKind uint8

const (
	// KindInsert inserts a new device row.
	KindInsert StatementKind = iota
	// KindUpdate updates an existing device row.
	KindUpdate
	// KindDelete removes a device row.
	KindDelete
	// KindSelect reads a device row.
	KindSelect
	// KindRaw is a caller-supplied statement executed through a scoped
	// session, outside the managed device-model operations.
	KindRaw
)

// String returns the string representation of the StatementKind.
func (k StatementKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindSelect:
		return "select"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Statement is a structured CQL statement: an operation kind, the statement
// text with ? placeholders, and the values bound to them.
//
// Failed writes are buffered and replayed as Statement values, never as
// concatenated query strings, so replaying a batch is just submitting the
// ordered list again.
type Statement struct {
	// Kind identifies the operation for metrics and diagnostics.
	Kind StatementKind

	// Query is the CQL text with ? placeholders.
	Query string

	// Args are the values bound to the placeholders, in order.
	Args []any
}

// Consistency represents the Cassandra consistency level.
type Consistency uint16

// Common consistency levels matching gocql.
const (
	Any         Consistency = 0x00
	One         Consistency = 0x01
	Two         Consistency = 0x02
	Three       Consistency = 0x03
	Quorum      Consistency = 0x04
	All         Consistency = 0x05
	LocalQuorum Consistency = 0x06
	EachQuorum  Consistency = 0x07
	Serial      Consistency = 0x08
	LocalSerial Consistency = 0x09
	LocalOne    Consistency = 0x0A
)

// BatchType represents the type of batch operation.
type BatchType byte

// Batch types matching gocql.
//
// WARNING: CounterBatch operations are NOT idempotent. Counter updates
// (e.g., "UPDATE ... SET counter = counter + 1") are additive, so replaying
// them after a transient failure will cause double-counting. The fault
// buffer replays buffered statements on the next successful write; do not
// route counter mutations through it if you require exactly-once semantics.
const (
	LoggedBatch   BatchType = 0
	UnloggedBatch BatchType = 1
	CounterBatch  BatchType = 2
)

// Sentinel errors for common failure scenarios.
var (
	// ErrInvalidStatement indicates a statement that is structurally or
	// semantically invalid. Retrying it can never succeed, so it is never
	// buffered for replay.
	ErrInvalidStatement = errors.New("connmgr: invalid statement")

	// ErrTransient indicates a connectivity or availability failure that is
	// expected to succeed on retry. The failed statement is buffered for
	// replay on the next successful write for the same key.
	ErrTransient = errors.New("connmgr: transient connectivity failure")

	// ErrNotFound indicates a read that matched no rows. It is neither a
	// validation nor a transient failure: the statement was fine, the row
	// is absent.
	ErrNotFound = errors.New("connmgr: device record not found")

	// ErrPoolExhausted indicates that session creation failed while a pool
	// permit was held. The permit is restored before this error propagates.
	ErrPoolExhausted = errors.New("connmgr: session pool exhausted")

	// ErrHandleClosed indicates an operation was attempted on a session
	// handle that has already been returned to the pool.
	ErrHandleClosed = errors.New("connmgr: session handle is closed")

	// ErrPoolClosed indicates an acquire was attempted after pool shutdown.
	ErrPoolClosed = errors.New("connmgr: session pool is closed")

	// ErrManagerClosed indicates an operation was attempted on a manager
	// that has been shut down.
	ErrManagerClosed = errors.New("connmgr: manager is closed")

	// ErrAsyncWaitTimeout indicates a bounded wait on an asynchronous
	// operation expired before the operation completed. The operation keeps
	// running; only the wait gave up. Classified as transient for the
	// caller's decision, but the fault buffer is never touched by this path.
	ErrAsyncWaitTimeout = errors.New("connmgr: async wait timed out")

	// ErrNilFactory indicates that a nil session factory was provided.
	ErrNilFactory = errors.New("connmgr: session factory cannot be nil")

	// ErrInvalidCapacity indicates a pool capacity below one.
	ErrInvalidCapacity = errors.New("connmgr: pool capacity must be at least 1")

	// ErrJournalClosed indicates an operation on a closed journal.
	ErrJournalClosed = errors.New("connmgr: journal is closed")
)

// ValidationError wraps a driver error classified as a statement defect.
//
// Validation failures are never retried and never buffered: resubmitting a
// malformed statement cannot succeed.
type ValidationError struct {
	// Query is the statement text that was rejected.
	Query string

	// Cause is the underlying driver error.
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "connmgr: statement rejected: " + e.Cause.Error()
}

// Unwrap returns the wrapped errors for errors.Is/As compatibility.
// Both ErrInvalidStatement and the driver cause match.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidStatement, e.Cause}
}

// TransientError wraps a driver error classified as a connectivity or
// availability failure.
//
// The statement that hit it has been buffered for replay; the error is
// still surfaced because buffering is a side effect for future
// self-healing, not a suppression of the current failure.
type TransientError struct {
	// Op describes the operation that failed ("execute", "batch", "create session").
	Op string

	// Cause is the underlying driver error.
	Cause error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return "connmgr: " + e.Op + " failed transiently: " + e.Cause.Error()
}

// Unwrap returns the wrapped errors for errors.Is/As compatibility.
func (e *TransientError) Unwrap() []error {
	return []error{ErrTransient, e.Cause}
}

// PoolExhaustedError indicates session creation failed after a permit was
// already consumed. The pool restores the permit before returning this
// error, so capacity is never leaked.
type PoolExhaustedError struct {
	// Cause is the creation error from the session factory.
	Cause error
}

// Error implements the error interface.
func (e *PoolExhaustedError) Error() string {
	return "connmgr: connection not available: " + e.Cause.Error()
}

// Unwrap returns the wrapped errors for errors.Is/As compatibility.
func (e *PoolExhaustedError) Unwrap() []error {
	return []error{ErrPoolExhausted, e.Cause}
}
