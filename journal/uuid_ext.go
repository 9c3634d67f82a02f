package journal

import (
	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"
)

// UUIDExtensionType is the MessagePack extension type used for UUID
// arguments. Type 10 is in the application-defined range; msgp reserves
// 3, 4 and 5 for complex64, complex128 and time.Time.
const UUIDExtensionType int8 = 10

// UUIDSize is the fixed size of a UUID (16 bytes).
const UUIDSize = 16

func init() {
	// Register the extension so decoding restores UUID arguments instead of
	// opaque byte blobs.
	msgp.RegisterExtension(UUIDExtensionType, func() msgp.Extension {
		return new(UUID)
	})
}

// UUID carries a 16-byte UUID through MessagePack as an extension value.
//
// CQL statement arguments frequently contain gocql.UUID values (a plain
// [16]byte array). Encoding them as an extension preserves their identity
// across the journal round trip; after decoding they are handed back to the
// driver as a 16-byte slice, which CQL drivers accept for both uuid and
// blob columns.
type UUID [UUIDSize]byte

// ExtensionType returns the MessagePack extension type identifier.
func (u *UUID) ExtensionType() int8 {
	return UUIDExtensionType
}

// Len returns the encoded length, always 16 bytes.
func (u *UUID) Len() int {
	return UUIDSize
}

// MarshalBinaryTo copies the UUID into b.
func (u *UUID) MarshalBinaryTo(b []byte) error {
	copy(b, u[:])

	return nil
}

// UnmarshalBinary copies 16 bytes from b into the UUID.
func (u *UUID) UnmarshalBinary(b []byte) error {
	copy(u[:], b)

	return nil
}

// Bytes returns the UUID as a byte slice.
func (u *UUID) Bytes() []byte {
	return u[:]
}

// String returns the standard hyphenated form.
func (u *UUID) String() string {
	return uuid.UUID(*u).String()
}

// UUIDFromBytes creates a UUID from a 16-byte slice. It reports false when
// b has the wrong length.
func UUIDFromBytes(b []byte) (UUID, bool) {
	var u UUID
	if len(b) != UUIDSize {
		return u, false
	}

	copy(u[:], b)

	return u, true
}
