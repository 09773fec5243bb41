package dbus

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// float64FromBits and float64Bits convert between a DOUBLE's wire
// representation (a UINT64) and Go's float64, matching the original
// implementation's choice to marshal doubles as raw IEEE 754 bit
// patterns rather than through a textual or packed-decimal form.
func float64FromBits(u uint64) float64 { return math.Float64frombits(u) }
func float64Bits(f float64) uint64     { return math.Float64bits(f) }

// packByte appends a single byte; byte has alignment 1.
func packByte(buf *buffer, offset int, v byte) int {
	start := buf.InsertAligned(offset, 1, []byte{v})
	return start + 1
}

// packUint16 appends a 2-byte aligned UINT16/INT16.
func packUint16(buf *buffer, offset int, order binary.ByteOrder, v uint16) int {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	start := buf.InsertAligned(offset, 2, b)
	return start + 2
}

// packUint32 appends a 4-byte aligned UINT32/INT32/boolean-as-uint32.
func packUint32(buf *buffer, offset int, order binary.ByteOrder, v uint32) int {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	start := buf.InsertAligned(offset, 4, b)
	return start + 4
}

// packUint64 appends an 8-byte aligned UINT64/INT64/DOUBLE.
func packUint64(buf *buffer, offset int, order binary.ByteOrder, v uint64) int {
	b := make([]byte, 8)
	order.PutUint64(b, v)
	start := buf.InsertAligned(offset, 8, b)
	return start + 8
}

// packBoolean appends a D-Bus BOOLEAN, wire-encoded as a 4-byte
// aligned UINT32 restricted to 0 or 1.
func packBoolean(buf *buffer, offset int, order binary.ByteOrder, v bool) int {
	var u uint32
	if v {
		u = 1
	}
	return packUint32(buf, offset, order, u)
}

// packStringLike appends a STRING or OBJECT_PATH: a 4-byte aligned
// length prefix (excluding the trailing NUL), the UTF-8 body, then a
// NUL byte.
func packStringLike(buf *buffer, offset int, order binary.ByteOrder, s string) int {
	offset = packUint32(buf, offset, order, uint32(len(s)))
	payload := make([]byte, len(s)+1)
	copy(payload, s)
	buf.Append(payload)
	return offset + len(s) + 1
}

// packSignature appends a SIGNATURE: a 1-byte length prefix, the body,
// then a NUL byte.
func packSignature(buf *buffer, offset int, s string) int {
	offset = packByte(buf, offset, byte(len(s)))
	payload := make([]byte, len(s)+1)
	copy(payload, s)
	buf.Append(payload)
	return offset + len(s) + 1
}

// unpackUint16 reads a 2-byte aligned UINT16 at offset (offset must
// already satisfy the alignment).
func unpackUint16(buf *buffer, offset int, order binary.ByteOrder) uint16 {
	return order.Uint16(buf.b[offset:])
}

func unpackUint32(buf *buffer, offset int, order binary.ByteOrder) uint32 {
	return order.Uint32(buf.b[offset:])
}

func unpackUint64(buf *buffer, offset int, order binary.ByteOrder) uint64 {
	return order.Uint64(buf.b[offset:])
}

// unpackBoolean reads a D-Bus BOOLEAN. It returns an error if the
// underlying UINT32 is anything but 0 or 1: booleans other than 0/1
// are always rejected, never coerced.
func unpackBoolean(buf *buffer, offset int, order binary.ByteOrder) (bool, error) {
	u := order.Uint32(buf.b[offset:])
	switch u {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, invalid(BooleanNotZeroOrOne, "boolean value %d is neither 0 nor 1", u)
	}
}

// unpackStringLike reads a STRING or OBJECT_PATH starting at offset
// (already 4-aligned), returning the body without its trailing NUL and
// the offset just past the NUL. It checks the length fits in the
// remaining bytes, that the NUL is actually present, and — for isPath
// false — that the body is valid UTF-8, in that order, matching the
// precision of the original validator's three distinct checks.
func unpackStringLike(buf *buffer, offset int, order binary.ByteOrder, isPath bool) (string, int, error) {
	if offset+4 > buf.Len() {
		return "", 0, invalid(NotEnoughData, "not enough data for string length prefix")
	}
	n := int(order.Uint32(buf.b[offset:]))
	if n < 0 || offset+4+n+1 > buf.Len() {
		return "", 0, invalid(StringLengthOutOfBounds, "string length %d out of bounds", n)
	}

	body := buf.b[offset+4 : offset+4+n]
	nul := buf.b[offset+4+n]
	if nul != 0 {
		return "", 0, invalid(StringMissingNUL, "string is not NUL-terminated")
	}

	if !isPath && !utf8.Valid(body) {
		return "", 0, invalid(BadUTF8InString, "string is not valid UTF-8")
	}
	if isPath {
		if err := ValidatePath(string(body)); err != nil {
			return "", 0, invalid(BadPath, "invalid object path %q", body)
		}
	}

	return string(body), offset + 4 + n + 1, nil
}

// unpackSignature reads a SIGNATURE starting at offset, returning the
// signature string (validated) and the offset just past its NUL.
func unpackSignature(buf *buffer, offset int) (string, int, error) {
	if offset >= buf.Len() {
		return "", 0, invalid(NotEnoughData, "not enough data for signature length prefix")
	}
	n := int(buf.b[offset])
	if offset+1+n+1 > buf.Len() {
		return "", 0, invalid(SignatureLengthOutOfBounds, "signature length %d out of bounds", n)
	}

	body := buf.b[offset+1 : offset+1+n]
	nul := buf.b[offset+1+n]
	if nul != 0 {
		return "", 0, invalid(SignatureMissingNUL, "signature is not NUL-terminated")
	}

	sig := string(body)
	if err := ValidateSignature(sig); err != nil {
		code, _ := CodeOf(err)
		return "", 0, invalid(code, "invalid signature %q: %v", sig, err)
	}

	return sig, offset + 1 + n + 1, nil
}
