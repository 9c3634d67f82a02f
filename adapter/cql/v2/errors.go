package v2

import (
	"errors"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/bganilkumar/ConnectionManager/types"
)

// ClassifyError maps a raw gocql v2 error into the shared error taxonomy.
//
// The classification mirrors the v1 adapter: server responses whose request
// error code marks the statement as defective (syntax, invalid, config,
// already-exists, unprepared) become *types.ValidationError; everything
// else, including unknown errors, becomes *types.TransientError. A scan
// that matched no rows maps to the bare types.ErrNotFound sentinel.
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
