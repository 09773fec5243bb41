package dbus

import "encoding/binary"

// Loader incrementally turns a raw byte stream into framed messages: a
// transport hands it buffers to fill via GetBuffer/ReturnBuffer, and
// QueueMessages discovers however many complete messages that made
// available, leaving any trailing partial message for the next round.
// It mirrors the teacher's buffered-reader-plus-decoder pair
// (bufio.Reader feeding decoder/messageDecoder in client.go), except
// pushed rather than pulled: the core never calls read() itself, per
// its transport being an external collaborator.
type Loader struct {
	acc     *buffer
	filled  int
	bufOut  bool
	pending []*Message

	corrupted      bool
	maxMessageSize uint32
	readSize       int
	cache          *Cache
}

// NewLoader creates a Loader ready to accept bytes via GetBuffer.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := loaderConfig{
		maxMessageSize: DefaultMaxMessageSize,
		readSize:       DefaultAccumulatorReadSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{
		acc:            newBuffer(nil),
		maxMessageSize: cfg.maxMessageSize,
		readSize:       cfg.readSize,
		cache:          cfg.cache,
	}
}

// GetBuffer returns a slice of at least n unfilled bytes (n<=0 uses the
// loader's configured read size) for the transport to write into. The
// loader has at most one buffer outstanding at a time; call
// ReturnBuffer before calling GetBuffer again.
func (l *Loader) GetBuffer(n int) []byte {
	if n <= 0 {
		n = l.readSize
	}
	want := l.filled + n
	if len(l.acc.Bytes()) < want {
		l.acc.Append(make([]byte, want-len(l.acc.Bytes())))
	}
	l.bufOut = true
	return l.acc.Bytes()[l.filled:want]
}

// ReturnBuffer reports that n bytes were actually written into the
// slice GetBuffer last returned, discarding any unused reserved
// capacity beyond that.
func (l *Loader) ReturnBuffer(n int) {
	l.acc.Truncate(l.filled + n)
	l.filled += n
	l.bufOut = false
}

// QueueMessages should be called after every ReturnBuffer. It discovers
// as many complete messages as the accumulator currently holds,
// appending each to the FIFO pop_message queue and consuming its bytes
// from the front of the accumulator. It stops, without error, on a
// trailing partial message. On the first invalid prologue or body, it
// sets the sticky corrupted flag and stops; once corrupted, it is a
// no-op.
func (l *Loader) QueueMessages() {
	if l.corrupted {
		return
	}

	for {
		data := l.acc.Bytes()[:l.filled]
		headerLen, bodyLen, ok, err := headerHaveMessageUntrusted(data, l.maxMessageSize)
		if err != nil {
			l.corrupted = true
			return
		}
		if !ok {
			return
		}

		total := int(headerLen) + int(bodyLen)
		var bodyBacking []byte
		if l.cache != nil {
			bodyBacking = l.cache.Get()
		}
		msg, err := decodeMessage(l.acc.Bytes()[:total], bodyBacking)
		if err != nil {
			l.corrupted = true
			return
		}

		l.pending = append(l.pending, msg)
		l.acc.Delete(0, total)
		l.filled -= total
	}
}

// PopMessage dequeues the oldest complete message, if any.
func (l *Loader) PopMessage() (*Message, bool) {
	if len(l.pending) == 0 {
		return nil, false
	}
	m := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return m, true
}

// IsCorrupted reports the loader's sticky corruption flag: once set, no
// further message is ever popped, matching the loader chunking
// invariance and corruption stickiness properties.
func (l *Loader) IsCorrupted() bool {
	return l.corrupted
}

// headerHaveMessageUntrusted sanity-checks the fixed 16-byte prologue
// of a message that may or may not be fully present in data yet. It
// returns ok == false, with no error, if data doesn't yet hold enough
// bytes to know the answer (either the prologue itself, or the full
// message once header_len/body_len are known) — this is the normal
// "wait for more bytes" case, not corruption. A malformed prologue
// (bad endianness, bad type, zero serial, insane fields-array length,
// or a total length exceeding maxMessageSize) is reported as an error,
// which the caller treats as corruption.
func headerHaveMessageUntrusted(data []byte, maxMessageSize uint32) (headerLen, bodyLen uint32, ok bool, err error) {
	if len(data) < messagePrologueSize {
		return 0, 0, false, nil
	}

	var order binary.ByteOrder
	switch data[0] {
	case littleEndian:
		order = binary.LittleEndian
	case bigEndian:
		order = binary.BigEndian
	default:
		return 0, 0, false, invalid(BadByteOrder, "unrecognized byte order %q", data[0])
	}

	switch MessageType(data[1]) {
	case MethodCall, MethodReply, ErrorReply, Signal:
	default:
		return 0, 0, false, invalid(BadMessageType, "unrecognized message type %d", data[1])
	}

	bodyLen = order.Uint32(data[4:8])
	if bodyLen > MaxMessageLength {
		return 0, 0, false, invalid(InsaneBodyLength, "body length %d is insane", bodyLen)
	}

	serial := order.Uint32(data[8:12])
	if serial == 0 {
		return 0, 0, false, invalid(BadSerial, "message serial must not be zero")
	}

	fieldsLen := order.Uint32(data[12:16])
	if fieldsLen > MaxArrayLength {
		return 0, 0, false, invalid(InsaneFieldsArrayLength, "header fields array length %d is insane", fieldsLen)
	}

	fieldsEnd := messagePrologueSize + int(fieldsLen)
	headerLenInt, _ := nextOffset(fieldsEnd, 8)
	headerLen = uint32(headerLenInt)

	total := uint64(headerLen) + uint64(bodyLen)
	if total > uint64(maxMessageSize) || total > MaxMessageLength {
		return 0, 0, false, invalid(MessageTooLong, "message length %d exceeds the configured maximum", total)
	}

	if total > uint64(len(data)) {
		return headerLen, bodyLen, false, nil
	}
	return headerLen, bodyLen, true, nil
}
