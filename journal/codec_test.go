package journal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/bganilkumar/ConnectionManager/types"
)

func TestRecordRoundTrip(t *testing.T) {
	stmt := types.Statement{
		Kind:  types.KindInsert,
		Query: "INSERT INTO model (serialno, modelobj, isadminup) VALUES (?, ?, ?)",
		Args:  []any{"SN-1", `{"model":"X1"}`, true},
	}

	data, err := encodeRecord("rec-1", "SN-1", stmt)
	require.NoError(t, err)

	key, decoded, err := decodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "SN-1", key)
	assert.Equal(t, types.KindInsert, decoded.Kind)
	assert.Equal(t, stmt.Query, decoded.Query)
	require.Len(t, decoded.Args, 3)
	assert.Equal(t, "SN-1", decoded.Args[0])
	assert.Equal(t, `{"model":"X1"}`, decoded.Args[1])
	assert.Equal(t, true, decoded.Args[2])
}

func TestRecordRoundTripNoArgs(t *testing.T) {
	stmt := types.Statement{
		Kind:  types.KindDelete,
		Query: "DELETE FROM model WHERE serialno = 'SN-9'",
	}

	data, err := encodeRecord("rec-2", "SN-9", stmt)
	require.NoError(t, err)

	key, decoded, err := decodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "SN-9", key)
	assert.Equal(t, types.KindDelete, decoded.Kind)
	assert.Nil(t, decoded.Args)
}

func TestRecordArgTypes(t *testing.T) {
	stmt := types.Statement{
		Kind:  types.KindRaw,
		Query: "INSERT INTO mixed (a, b, c, d, e, f) VALUES (?, ?, ?, ?, ?, ?)",
		Args:  []any{int64(42), 7, 3.14, false, []byte{0x01, 0x02}, nil},
	}

	data, err := encodeRecord("rec-3", "K", stmt)
	require.NoError(t, err)

	_, decoded, err := decodeRecord(data)
	require.NoError(t, err)
	require.Len(t, decoded.Args, 6)
	// MessagePack widens every integer to int64.
	assert.Equal(t, int64(42), decoded.Args[0])
	assert.Equal(t, int64(7), decoded.Args[1])
	assert.Equal(t, 3.14, decoded.Args[2])
	assert.Equal(t, false, decoded.Args[3])
	assert.Equal(t, []byte{0x01, 0x02}, decoded.Args[4])
	assert.Nil(t, decoded.Args[5])
}

func TestRecordUUIDArguments(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	raw := [16]byte(id)

	stmt := types.Statement{
		Kind:  types.KindRaw,
		Query: "INSERT INTO events (id, ref) VALUES (?, ?)",
		Args:  []any{id, raw},
	}

	data, err := encodeRecord("rec-4", "K", stmt)
	require.NoError(t, err)

	_, decoded, err := decodeRecord(data)
	require.NoError(t, err)
	require.Len(t, decoded.Args, 2)

	// UUID arguments come back as a 16-byte slice for the driver.
	for i, arg := range decoded.Args {
		b, ok := arg.([]byte)
		require.True(t, ok, "argument %d should decode to []byte", i)
		assert.Equal(t, raw[:], b)
	}
}

func TestDecodeRecordMalformed(t *testing.T) {
	_, _, err := decodeRecord(nil)
	require.Error(t, err)

	// 0xc1 is never a valid MessagePack byte.
	_, _, err = decodeRecord([]byte{0xc1})
	require.Error(t, err)

	// Right header, wrong field count.
	buf := msgp.AppendArrayHeader(nil, 2)
	buf = msgp.AppendUint8(buf, recordVersion)
	buf = msgp.AppendString(buf, "id")
	_, _, err = decodeRecord(buf)
	require.ErrorContains(t, err, "fields")
}

func TestDecodeRecordVersionMismatch(t *testing.T) {
	buf := msgp.AppendArrayHeader(nil, recordFields)
	buf = msgp.AppendUint8(buf, recordVersion+1)
	buf = msgp.AppendString(buf, "id")
	buf = msgp.AppendString(buf, "key")
	buf = msgp.AppendUint8(buf, uint8(types.KindInsert))
	buf = msgp.AppendString(buf, "INSERT INTO t (a) VALUES (1)")
	buf = msgp.AppendArrayHeader(buf, 0)

	_, _, err := decodeRecord(buf)
	require.ErrorContains(t, err, "unsupported journal record version")
}

func TestAppendArgsUnsupportedType(t *testing.T) {
	type opaque struct{ n int }

	_, err := appendArgs(nil, []any{opaque{n: 1}})
	require.Error(t, err)
}

func TestUUIDFromBytes(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	u, ok := UUIDFromBytes(id[:])
	require.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", u.String())
	assert.Equal(t, id[:], u.Bytes())

	_, ok = UUIDFromBytes([]byte{0x01})
	assert.False(t, ok)
}
