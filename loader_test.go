package dbus

import "testing"

func buildSerializedMessage(t *testing.T, serial uint32) []byte {
	t.Helper()
	m, err := NewMethodCall("/a/b", "org.example.Iface", "Do", "")
	if err != nil {
		t.Fatal(err)
	}
	m.SetSerial(serial)
	if err := m.AppendArgs(int32(serial), "payload"); err != nil {
		t.Fatal(err)
	}
	b, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestLoaderWholeMessagesAtOnce(t *testing.T) {
	l := NewLoader()
	a := buildSerializedMessage(t, 1)
	b := buildSerializedMessage(t, 2)
	stream := append(append([]byte{}, a...), b...)

	buf := l.GetBuffer(len(stream))
	n := copy(buf, stream)
	l.ReturnBuffer(n)
	l.QueueMessages()

	var got []uint32
	for {
		msg, ok := l.PopMessage()
		if !ok {
			break
		}
		got = append(got, msg.Serial())
	}
	if l.IsCorrupted() {
		t.Fatal("loader reported corruption on valid input")
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got serials %v, want [1 2]", got)
	}
}

// TestLoaderByteAtATime feeds the stream one byte per QueueMessages call,
// proving a Loader tolerates arbitrary chunking of the underlying stream.
func TestLoaderByteAtATime(t *testing.T) {
	l := NewLoader()
	stream := buildSerializedMessage(t, 9)

	for _, c := range stream {
		buf := l.GetBuffer(1)
		buf[0] = c
		l.ReturnBuffer(1)
		l.QueueMessages()
	}

	msg, ok := l.PopMessage()
	if !ok {
		t.Fatal("expected a message after feeding the full stream byte by byte")
	}
	if msg.Serial() != 9 {
		t.Errorf("serial = %d, want 9", msg.Serial())
	}
	if l.IsCorrupted() {
		t.Error("loader reported corruption on valid input")
	}
}

func TestLoaderLeavesTrailingPartialMessage(t *testing.T) {
	l := NewLoader()
	stream := buildSerializedMessage(t, 3)

	buf := l.GetBuffer(len(stream))
	n := copy(buf, stream[:len(stream)-1])
	l.ReturnBuffer(n)
	l.QueueMessages()

	if _, ok := l.PopMessage(); ok {
		t.Fatal("expected no message before the stream is complete")
	}

	buf = l.GetBuffer(1)
	buf[0] = stream[len(stream)-1]
	l.ReturnBuffer(1)
	l.QueueMessages()

	msg, ok := l.PopMessage()
	if !ok || msg.Serial() != 3 {
		t.Fatalf("expected message with serial 3 after completing the stream")
	}
}

func TestLoaderDetectsCorruption(t *testing.T) {
	l := NewLoader()
	bad := buildSerializedMessage(t, 1)
	bad[0] = 'X' // invalid byte order marker

	buf := l.GetBuffer(len(bad))
	n := copy(buf, bad)
	l.ReturnBuffer(n)
	l.QueueMessages()

	if !l.IsCorrupted() {
		t.Fatal("expected loader to detect a corrupted byte-order marker")
	}

	// Corruption is sticky: further queueing is a no-op and never pops.
	l.QueueMessages()
	if _, ok := l.PopMessage(); ok {
		t.Fatal("expected no message from a corrupted loader")
	}
}

func TestLoaderRejectsOversizedMessage(t *testing.T) {
	l := NewLoader(WithMaxMessageSize(32))
	stream := buildSerializedMessage(t, 1)
	if len(stream) <= 32 {
		t.Fatal("test message is not large enough to exceed the configured limit")
	}

	buf := l.GetBuffer(len(stream))
	n := copy(buf, stream)
	l.ReturnBuffer(n)
	l.QueueMessages()

	if !l.IsCorrupted() {
		t.Fatal("expected an oversized message to be reported as corruption")
	}
}

func TestLoaderUsesCacheForBodyBacking(t *testing.T) {
	cache := NewCache(4, 0)
	l := NewLoader(WithCache(cache))
	stream := buildSerializedMessage(t, 1)

	buf := l.GetBuffer(len(stream))
	n := copy(buf, stream)
	l.ReturnBuffer(n)
	l.QueueMessages()

	msg, ok := l.PopMessage()
	if !ok {
		t.Fatal("expected a message")
	}
	msg.ReleaseTo(cache)
	if cache.Get() == nil {
		t.Error("expected the released body buffer to be available from the cache")
	}
}
