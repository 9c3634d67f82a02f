// Package types defines shared types, interfaces, and errors used across
// the connection manager.
//
// This package is intentionally a leaf: it imports nothing from the rest of
// the module so that any package can depend on it without import cycles.
//
// # Statements
//
// Statement is the structured unit of work: an operation kind, CQL text with
// placeholders, and bound arguments. Statements travel through the fault
// buffer and journal as values, never as flattened query strings.
//
// # Errors
//
// Failures are classified into two families:
//
//   - ErrInvalidStatement (via ValidationError): the statement itself is
//     defective; retrying cannot help and nothing is buffered.
//   - ErrTransient (via TransientError): connectivity or availability
//     trouble; the statement is buffered for replay on the next successful
//     write for the same key.
//
// Lifecycle sentinels (ErrHandleClosed, ErrPoolClosed, ErrManagerClosed)
// mark use-after-close, and ErrAsyncWaitTimeout marks a bounded wait that
// expired while the underlying operation kept running.
//
// All errors compose with errors.Is and errors.As.
package types
