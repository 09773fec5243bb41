package dbus

import "testing"

func TestMessageLockIsIdempotent(t *testing.T) {
	m, err := NewMethodCall("/a", "", "Ping", "")
	if err != nil {
		t.Fatal(err)
	}
	m.SetSerial(1)
	if err := m.AppendArgs(int32(1)); err != nil {
		t.Fatal(err)
	}
	if err := m.Lock(); err != nil {
		t.Fatal(err)
	}
	if !m.Locked() {
		t.Fatal("expected message to be locked")
	}
	sigBefore := m.Signature()
	if err := m.Lock(); err != nil {
		t.Fatalf("second Lock call returned an error: %v", err)
	}
	if m.Signature() != sigBefore {
		t.Errorf("signature changed across idempotent Lock calls: %q -> %q", sigBefore, m.Signature())
	}
}

func TestMessageLockRejectsZeroSerial(t *testing.T) {
	m, err := NewMethodCall("/a", "", "Ping", "")
	if err != nil {
		t.Fatal(err)
	}
	err = m.Lock()
	if code, _ := CodeOf(err); code != BadSerial {
		t.Errorf("code = %v, want BadSerial", code)
	}
}

func TestMessageLockRemovesSignatureFieldWhenBodyEmpty(t *testing.T) {
	m := NewMethodReturn(1)
	m.SetSerial(1)
	if err := m.Lock(); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Header.Field(FieldSignature); ok {
		t.Error("expected no SIGNATURE field on an empty-bodied locked message")
	}
}

func TestMarshalDecodeRoundTrip(t *testing.T) {
	m, err := NewMethodCall("/org/example/Obj", "org.example.Iface", "Do", "org.example.Dest")
	if err != nil {
		t.Fatal(err)
	}
	m.SetSerial(5)
	if err := m.AppendArgs(int32(1), "payload"); err != nil {
		t.Fatal(err)
	}

	b, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecodeMessage(b)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if got.Type() != MethodCall {
		t.Errorf("type = %v, want MethodCall", got.Type())
	}
	if got.Serial() != 5 {
		t.Errorf("serial = %d, want 5", got.Serial())
	}
	path, _ := got.Path()
	if path != "/org/example/Obj" {
		t.Errorf("path = %q", path)
	}
	var i int32
	var s string
	if err := got.GetArgs(&i, &s); err != nil {
		t.Fatal(err)
	}
	if i != 1 || s != "payload" {
		t.Errorf("args = (%d, %q)", i, s)
	}
}

func TestDecodeMessageRejectsTruncatedBody(t *testing.T) {
	m := NewMethodReturn(1)
	m.SetSerial(1)
	if err := m.AppendArgs("hello world"); err != nil {
		t.Fatal(err)
	}
	b, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecodeMessage(b[:len(b)-4])
	if err == nil {
		t.Fatal("expected an error decoding a truncated message")
	}
}

func TestTrackWithAndFinalize(t *testing.T) {
	m := NewMethodReturn(1)
	m.SetSerial(1)
	c := &SizeCounter{}
	m.TrackWith(c)
	if c.Total() != 0 {
		t.Fatalf("total = %d before lock, want 0", c.Total())
	}
	if err := m.Lock(); err != nil {
		t.Fatal(err)
	}
	locked := c.Total()
	if locked == 0 {
		t.Fatal("expected a nonzero tracked size after locking")
	}
	m.Finalize()
	if c.Total() != 0 {
		t.Errorf("total = %d after Finalize, want 0", c.Total())
	}
}

func TestTrackWithAfterLockAddsImmediately(t *testing.T) {
	m := NewMethodReturn(1)
	m.SetSerial(1)
	if err := m.Lock(); err != nil {
		t.Fatal(err)
	}
	c := &SizeCounter{}
	m.TrackWith(c)
	if c.Total() == 0 {
		t.Error("expected TrackWith on an already-locked message to add its size immediately")
	}
}
