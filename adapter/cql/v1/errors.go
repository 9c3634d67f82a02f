package v1

import (
	"errors"

	"github.com/gocql/gocql"

	"github.com/bganilkumar/ConnectionManager/types"
)

// ClassifyError maps a raw gocql error into the shared error taxonomy.
//
// Server responses carrying a request error code are inspected first: codes
// that mark the statement itself as defective (syntax, invalid, config,
// already-exists, unprepared) become *types.ValidationError, because
// resubmitting the same statement can never succeed.
//
// Everything else becomes *types.TransientError: timeouts, unavailable and
// overloaded responses, closed connections, empty host pools, and context
// cancellation. Unknown errors also default to transient; the managed
// writes are idempotent upserts, so an unnecessary retry is harmless while
// a wrongly-discarded write is not.
//
// A scan that matched no rows maps to the bare types.ErrNotFound sentinel:
// an empty result belongs to neither failure class.
//
// Returns nil when err is nil.
func ClassifyError(op, query string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gocql.ErrNotFound) {
		return types.ErrNotFound
	}

	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code() {
		case gocql.ErrCodeSyntax,
			gocql.ErrCodeInvalid,
			gocql.ErrCodeConfig,
			gocql.ErrCodeAlreadyExists,
			gocql.ErrCodeUnprepared:
			return &types.ValidationError{Query: query, Cause: err}
		}
	}

	return &types.TransientError{Op: op, Cause: err}
}
