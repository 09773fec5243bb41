package dbus

import (
	"fmt"
	"sync"
)

// SizeCounter tracks the combined header+body byte cost of every
// currently-outstanding Message registered with it, guarded by its own
// mutex so a single counter can be shared across messages built or
// decoded from different goroutines. A caller with no interest in
// tracking memory use simply never constructs one.
type SizeCounter struct {
	mu    sync.Mutex
	total uint64
}

// Add adds n bytes to the counter.
func (c *SizeCounter) Add(n uint64) {
	c.mu.Lock()
	c.total += n
	c.mu.Unlock()
}

// Remove subtracts n bytes from the counter.
func (c *SizeCounter) Remove(n uint64) {
	c.mu.Lock()
	c.total -= n
	c.mu.Unlock()
}

// Total returns the counter's current value.
func (c *SizeCounter) Total() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Message is an in-memory D-Bus message under construction or freshly
// decoded: a Header plus the growing or already-marshalled body bytes
// and the signature those bytes are described by.
type Message struct {
	Header Header

	body    *buffer
	bodySig string

	locked   bool
	counters []*SizeCounter
	trackedN uint64 // byte cost last reported to counters, for Finalize to subtract back out

	data map[int]any // application-attached per-message data, keyed by AllocateSlot
}

// newMessage starts a message of the given type with Proto 1 and the
// given byte order. Serial is left zero; callers set one with SetSerial
// before Lock or Marshal, matching the wire requirement that serial must
// never be 0.
func newMessage(t MessageType, order byte) *Message {
	return &Message{
		Header: Header{ByteOrder: order, Type: t, Proto: 1},
		body:   newBuffer(nil),
	}
}

// NewMethodCall starts a METHOD_CALL message. path and member are
// required by the wire format; iface and dest may be empty to omit
// those optional header fields.
func NewMethodCall(path, iface, member, dest string) (*Message, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ValidateMemberName(member); err != nil {
		return nil, err
	}
	m := newMessage(MethodCall, littleEndian)
	m.setField(FieldPath, path)
	m.setField(FieldMember, member)
	if iface != "" {
		if err := ValidateInterfaceName(iface); err != nil {
			return nil, err
		}
		m.setField(FieldInterface, iface)
	}
	if dest != "" {
		if err := ValidateBusName(dest); err != nil {
			return nil, err
		}
		m.setField(FieldDestination, dest)
	}
	return m, nil
}

// NewSignal starts a SIGNAL message. path, iface and member are all
// required by the wire format.
func NewSignal(path, iface, member string) (*Message, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ValidateInterfaceName(iface); err != nil {
		return nil, err
	}
	if err := ValidateMemberName(member); err != nil {
		return nil, err
	}
	m := newMessage(Signal, littleEndian)
	m.setField(FieldPath, path)
	m.setField(FieldInterface, iface)
	m.setField(FieldMember, member)
	return m, nil
}

// NewMethodReturn starts a METHOD_RETURN message replying to replySerial.
func NewMethodReturn(replySerial uint32) *Message {
	m := newMessage(MethodReply, littleEndian)
	m.setField(FieldReplySerial, replySerial)
	return m
}

// NewError starts an ERROR message replying to replySerial with the
// given error name.
func NewError(replySerial uint32, name string) (*Message, error) {
	if err := ValidateErrorName(name); err != nil {
		return nil, err
	}
	m := newMessage(ErrorReply, littleEndian)
	m.setField(FieldReplySerial, replySerial)
	m.setField(FieldErrorName, name)
	return m, nil
}

// setField replaces the value of an existing field with the same code
// in place, or appends a new one, preserving wire order otherwise.
// Passing a nil value removes the field instead.
func (m *Message) setField(code FieldCode, v any) {
	for i, f := range m.Header.Fields {
		if f.Code == code {
			if v == nil {
				m.Header.Fields = append(m.Header.Fields[:i], m.Header.Fields[i+1:]...)
				return
			}
			m.Header.Fields[i].Value = v
			return
		}
	}
	if v == nil {
		return
	}
	m.Header.Fields = append(m.Header.Fields, HeaderField{Code: code, Value: v})
}

func (m *Message) checkMutable() error {
	if m.locked {
		return fmt.Errorf("dbus: message is locked")
	}
	return nil
}

// SetDestination sets, replaces, or (name == "") removes the
// DESTINATION header field.
func (m *Message) SetDestination(name string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if name == "" {
		m.setField(FieldDestination, nil)
		return nil
	}
	if err := ValidateBusName(name); err != nil {
		return err
	}
	m.setField(FieldDestination, name)
	return nil
}

// SetSender sets, replaces, or (name == "") removes the SENDER header
// field.
func (m *Message) SetSender(name string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if name == "" {
		m.setField(FieldSender, nil)
		return nil
	}
	if err := ValidateBusName(name); err != nil {
		return err
	}
	m.setField(FieldSender, name)
	return nil
}

// SetSerial sets the message's serial number. Serial must not be zero
// when the message is locked.
func (m *Message) SetSerial(serial uint32) { m.Header.Serial = serial }

// Serial returns the message's serial number.
func (m *Message) Serial() uint32 { return m.Header.Serial }

// SetNoReplyExpected sets or clears the NO_REPLY_EXPECTED flag.
func (m *Message) SetNoReplyExpected(v bool) { m.setFlag(FlagNoReplyExpected, v) }

// SetNoAutoStart sets or clears the NO_AUTO_START flag.
func (m *Message) SetNoAutoStart(v bool) { m.setFlag(FlagNoAutoStart, v) }

func (m *Message) setFlag(bit byte, v bool) {
	if v {
		m.Header.Flags |= bit
	} else {
		m.Header.Flags &^= bit
	}
}

// Type returns the message's type.
func (m *Message) Type() MessageType { return m.Header.Type }

// Path, Interface, Member, ErrorName, Destination and Sender each
// return the corresponding header field's string value and whether it
// was present.
func (m *Message) Path() (string, bool)        { return m.stringField(FieldPath) }
func (m *Message) Interface() (string, bool)   { return m.stringField(FieldInterface) }
func (m *Message) Member() (string, bool)      { return m.stringField(FieldMember) }
func (m *Message) ErrorName() (string, bool)   { return m.stringField(FieldErrorName) }
func (m *Message) Destination() (string, bool) { return m.stringField(FieldDestination) }
func (m *Message) Sender() (string, bool)      { return m.stringField(FieldSender) }

// ReplySerial returns the REPLY_SERIAL header field and whether it was
// present.
func (m *Message) ReplySerial() (uint32, bool) {
	v, ok := m.Header.Field(FieldReplySerial)
	if !ok {
		return 0, false
	}
	return v.(uint32), true
}

func (m *Message) stringField(code FieldCode) (string, bool) {
	v, ok := m.Header.Field(code)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Signature returns the body's signature.
func (m *Message) Signature() string { return m.bodySig }

// Locked reports whether Lock has been called on m.
func (m *Message) Locked() bool { return m.locked }

// TrackWith registers m with c: once m is locked, its header+body byte
// cost is added to c, and Finalize removes it again. Registering an
// already-locked message immediately adds its current cost.
func (m *Message) TrackWith(c *SizeCounter) {
	m.counters = append(m.counters, c)
	if m.locked {
		c.Add(m.trackedN)
	}
}

// Lock fixes the body length recorded in the header (the number of body
// bytes, not counting the header or its trailing padding), stores
// the body signature as the SIGNATURE header field (removing it if the
// body is empty), and marks m immutable. Lock is idempotent: calling it
// again is a no-op. It reports an error, without mutating m, if the
// message has a non-empty body but no signature, or a zero serial.
func (m *Message) Lock() error {
	if m.locked {
		return nil
	}
	if m.body.Len() > 0 && m.bodySig == "" {
		return fmt.Errorf("dbus: message has a non-empty body but no signature")
	}
	if m.Header.Serial == 0 {
		return invalid(BadSerial, "message serial must not be zero before locking")
	}

	if m.bodySig != "" {
		m.setField(FieldSignature, m.bodySig)
	} else {
		m.setField(FieldSignature, nil)
	}
	m.Header.BodyLen = uint32(m.body.Len())

	headerBuf, err := EncodeHeader(&m.Header)
	if err != nil {
		return fmt.Errorf("dbus: lock message: %w", err)
	}

	m.locked = true
	m.trackedN = uint64(headerBuf.Len()) + uint64(m.body.Len())
	for _, c := range m.counters {
		c.Add(m.trackedN)
	}
	return nil
}

// Finalize removes m's byte cost from every counter it was registered
// with via TrackWith. Callers that track message lifetimes call this
// once a locked message is no longer outstanding.
func (m *Message) Finalize() {
	for _, c := range m.counters {
		c.Remove(m.trackedN)
	}
	m.counters = nil
}

// Marshal assembles the complete wire representation of m, locking it
// first if it is not already locked.
func (m *Message) Marshal() ([]byte, error) {
	if err := m.Lock(); err != nil {
		return nil, err
	}

	headerBuf, err := EncodeHeader(&m.Header)
	if err != nil {
		return nil, fmt.Errorf("dbus: marshal message: %w", err)
	}

	out := make([]byte, 0, headerBuf.Len()+m.body.Len())
	out = append(out, headerBuf.Bytes()...)
	out = append(out, m.body.Bytes()...)
	return out, nil
}

// DecodeMessage parses a complete message (header, fields and body) out
// of b, which must hold exactly one message's bytes; use a Loader to
// split a byte stream into individual messages first. The returned
// message is already locked.
func DecodeMessage(b []byte) (*Message, error) {
	return decodeMessage(b, nil)
}

// decodeMessage is DecodeMessage's implementation, taking an optional
// pre-allocated backing array for the body copy so Loader.QueueMessages
// can source it from a Cache instead of allocating fresh every time.
func decodeMessage(b []byte, bodyBacking []byte) (*Message, error) {
	buf := newBuffer(b)
	h, bodyStart, err := DecodeHeader(buf, 0)
	if err != nil {
		return nil, err
	}

	sig, _ := h.Field(FieldSignature)
	sigStr, _ := sig.(string)

	bodyEnd := bodyStart + int(h.BodyLen)
	if bodyEnd > buf.Len() {
		return nil, invalid(NotEnoughData, "not enough data for message body")
	}
	if err := ValidateBody(h.Order(), sigStr, buf, bodyStart, int(h.BodyLen)); err != nil {
		return nil, err
	}

	body := append(bodyBacking[:0], b[bodyStart:bodyEnd]...)

	return &Message{
		Header:   *h,
		body:     newBuffer(body),
		bodySig:  sigStr,
		locked:   true,
		trackedN: uint64(bodyEnd),
	}, nil
}

// ReleaseTo returns m's body backing array to c for reuse by a future
// decode, once m is no longer needed. m must not be used afterward.
func (m *Message) ReleaseTo(c *Cache) {
	if c == nil {
		return
	}
	c.Put(m.body.Bytes())
}

// BodyReader returns a Reader positioned at the start of the message
// body, for callers that want to walk it with GetArgs or by hand.
func (m *Message) BodyReader() *Reader {
	return NewReader(m.Header.Order(), m.bodySig, m.body, 0)
}
