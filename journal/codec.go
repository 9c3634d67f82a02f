package journal

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"

	"github.com/bganilkumar/ConnectionManager/types"
)

// recordVersion is the wire version of journal records. Bump when the field
// layout changes.
const recordVersion uint8 = 1

// recordFields is the number of elements in the record array.
const recordFields uint32 = 6

// encodeRecord encodes one journaled statement as a MessagePack array:
//
//	[version, id, key, kind, query, args]
//
// args is a nested array; UUID-shaped values are encoded as extension
// values so they survive the round trip (see [UUID]).
func encodeRecord(id, key string, stmt types.Statement) ([]byte, error) {
	buf := msgp.AppendArrayHeader(nil, recordFields)
	buf = msgp.AppendUint8(buf, recordVersion)
	buf = msgp.AppendString(buf, id)
	buf = msgp.AppendString(buf, key)
	buf = msgp.AppendUint8(buf, uint8(stmt.Kind))
	buf = msgp.AppendString(buf, stmt.Query)

	return appendArgs(buf, stmt.Args)
}

// decodeRecord decodes a record produced by encodeRecord, returning the
// entity key and the statement.
func decodeRecord(data []byte) (string, types.Statement, error) {
	var stmt types.Statement

	sz, buf, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil {
		return "", stmt, fmt.Errorf("connmgr: failed to read journal record header: %w", err)
	}
	if sz != recordFields {
		return "", stmt, fmt.Errorf("connmgr: journal record has %d fields, want %d", sz, recordFields)
	}

	version, buf, err := msgp.ReadUint8Bytes(buf)
	if err != nil {
		return "", stmt, fmt.Errorf("connmgr: failed to read journal record version: %w", err)
	}
	if version != recordVersion {
		return "", stmt, fmt.Errorf("connmgr: unsupported journal record version %d", version)
	}

	// Record id, not needed after the write side assigned it.
	_, buf, err = msgp.ReadStringBytes(buf)
	if err != nil {
		return "", stmt, fmt.Errorf("connmgr: failed to read journal record id: %w", err)
	}

	key, buf, err := msgp.ReadStringBytes(buf)
	if err != nil {
		return "", stmt, fmt.Errorf("connmgr: failed to read journal record key: %w", err)
	}

	kind, buf, err := msgp.ReadUint8Bytes(buf)
	if err != nil {
		return "", stmt, fmt.Errorf("connmgr: failed to read journal record kind: %w", err)
	}
	stmt.Kind = types.StatementKind(kind)

	stmt.Query, buf, err = msgp.ReadStringBytes(buf)
	if err != nil {
		return "", stmt, fmt.Errorf("connmgr: failed to read journal record query: %w", err)
	}

	stmt.Args, _, err = readArgs(buf)
	if err != nil {
		return "", stmt, err
	}

	return key, stmt, nil
}

// appendArgs appends args as a MessagePack array.
func appendArgs(buf []byte, args []any) ([]byte, error) {
	if uint64(len(args)) > math.MaxUint32 {
		return nil, errors.New("connmgr: too many statement arguments to encode")
	}

	//nolint:gosec // length checked above
	buf = msgp.AppendArrayHeader(buf, uint32(len(args)))

	for _, arg := range args {
		var err error
		buf, err = appendArg(buf, arg)
		if err != nil {
			return nil, fmt.Errorf("connmgr: failed to encode statement argument: %w", err)
		}
	}

	return buf, nil
}

// appendArg encodes a single argument. 16-byte arrays (gocql.UUID passed as
// [16]byte, google/uuid values) become extension values; everything else
// goes through msgp.AppendIntf.
func appendArg(buf []byte, arg any) ([]byte, error) {
	if u, ok := uuidArg(arg); ok {
		return msgp.AppendExtension(buf, &u)
	}

	return msgp.AppendIntf(buf, arg)
}

// uuidArg converts UUID-shaped arguments to the UUID extension type.
func uuidArg(arg any) (UUID, bool) {
	switch v := arg.(type) {
	case [16]byte:
		return UUID(v), true
	case *[16]byte:
		if v != nil {
			return UUID(*v), true
		}

		return UUID{}, false
	case UUID:
		return v, true
	case *UUID:
		if v != nil {
			return *v, true
		}

		return UUID{}, false
	case uuid.UUID:
		return UUID(v), true
	default:
		return UUID{}, false
	}
}

// readArgs reads a MessagePack argument array, returning the remaining
// buffer.
func readArgs(buf []byte) ([]any, []byte, error) {
	sz, buf, err := msgp.ReadArrayHeaderBytes(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("connmgr: failed to read argument array: %w", err)
	}
	if sz == 0 {
		return nil, buf, nil
	}

	args := make([]any, sz)
	for i := uint32(0); i < sz; i++ {
		var val any
		val, buf, err = msgp.ReadIntfBytes(buf)
		if err != nil {
			return nil, nil, fmt.Errorf("connmgr: failed to decode argument %d: %w", i, err)
		}

		// Hand UUID extensions back to drivers as a 16-byte slice, which is
		// accepted for both uuid and blob columns.
		if u, ok := val.(*UUID); ok {
			val = u.Bytes()
		}

		args[i] = val
	}

	return args, buf, nil
}
