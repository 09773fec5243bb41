package dbus

// buffer is a growable byte sequence with alignment-aware insert,
// overwrite and delete, the backing store shared by readers, writers
// and messages. It is the Go analog of the teacher's bytes.Buffer-plus-
// tracked-offset pattern (encoder.go/decoder.go), generalized to
// support mid-buffer insertion and deletion for the realignment
// protocol in Reader.SetBasic (reader.go), which an append-only encoder
// cannot do.
type buffer struct {
	b []byte
}

// newBuffer wraps an existing byte slice (e.g. bytes just read off a
// connection) without copying it.
func newBuffer(b []byte) *buffer {
	return &buffer{b: b}
}

// Len returns the number of bytes currently held.
func (buf *buffer) Len() int {
	return len(buf.b)
}

// Bytes returns the buffer's current contents. The returned slice is
// only valid until the next mutating call.
func (buf *buffer) Bytes() []byte {
	return buf.b
}

// Byte returns the byte at offset.
func (buf *buffer) Byte(offset int) byte {
	return buf.b[offset]
}

// SetByte overwrites the byte at offset.
func (buf *buffer) SetByte(offset int, v byte) {
	buf.b[offset] = v
}

// nextOffset returns the next position at or after current that is a
// multiple of align, and the padding needed to get there. align must
// be a power of two.
func nextOffset(current, align int) (next, padding int) {
	if current%align == 0 {
		return current, 0
	}
	next = (current + align - 1) &^ (align - 1)
	return next, next - current
}

// InsertZeros inserts n zero bytes at offset, growing the buffer.
func (buf *buffer) InsertZeros(offset, n int) {
	if n == 0 {
		return
	}
	buf.b = append(buf.b, make([]byte, n)...)
	copy(buf.b[offset+n:], buf.b[offset:len(buf.b)-n])
	for i := 0; i < n; i++ {
		buf.b[offset+i] = 0
	}
}

// Align inserts zero padding at offset so that offset+padding is a
// multiple of align (measuring alignment from the start of the
// buffer), returning the new offset.
func (buf *buffer) Align(offset, align int) int {
	next, padding := nextOffset(offset, align)
	if padding > 0 {
		buf.InsertZeros(offset, padding)
	}
	return next
}

// InsertAligned inserts payload at offset, first inserting however
// many leading zero pad bytes are needed so that the payload itself
// begins on a multiple of align counted from the start of the buffer.
// It returns the offset the payload was actually written at.
func (buf *buffer) InsertAligned(offset int, align int, payload []byte) int {
	offset = buf.Align(offset, align)
	buf.b = append(buf.b, make([]byte, len(payload))...)
	copy(buf.b[offset+len(payload):], buf.b[offset:len(buf.b)-len(payload)])
	copy(buf.b[offset:], payload)
	return offset
}

// Append writes payload to the end of the buffer.
func (buf *buffer) Append(payload []byte) {
	buf.b = append(buf.b, payload...)
}

// Overwrite replaces the len(payload) bytes starting at offset.
// offset+len(payload) must not exceed Len().
func (buf *buffer) Overwrite(offset int, payload []byte) {
	copy(buf.b[offset:], payload)
}

// Delete removes the byte range [start, end).
func (buf *buffer) Delete(start, end int) {
	buf.b = append(buf.b[:start], buf.b[end:]...)
}

// Splice replaces the byte range [start, end) with payload, which may
// be a different length, shrinking or growing the buffer.
func (buf *buffer) Splice(start, end int, payload []byte) {
	tail := append([]byte(nil), buf.b[end:]...)
	buf.b = append(buf.b[:start], payload...)
	buf.b = append(buf.b, tail...)
}

// Truncate discards everything from offset onward.
func (buf *buffer) Truncate(offset int) {
	buf.b = buf.b[:offset]
}

// CopyRange appends a copy of [start, end) from buf to dst.
func (buf *buffer) CopyRange(dst *buffer, start, end int) {
	dst.Append(buf.b[start:end])
}
