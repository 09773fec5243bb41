package dbus

import "testing"

func TestBufferAlign(t *testing.T) {
	tests := []struct {
		offset, align, wantNext, wantPad int
	}{
		{0, 4, 0, 0},
		{1, 4, 4, 3},
		{4, 4, 4, 0},
		{5, 8, 8, 3},
	}
	for _, tt := range tests {
		next, pad := nextOffset(tt.offset, tt.align)
		if next != tt.wantNext || pad != tt.wantPad {
			t.Errorf("nextOffset(%d, %d) = (%d, %d), want (%d, %d)",
				tt.offset, tt.align, next, pad, tt.wantNext, tt.wantPad)
		}
	}
}

func TestBufferInsertZeros(t *testing.T) {
	b := newBuffer([]byte{1, 2, 3, 4})
	b.InsertZeros(2, 3)
	want := []byte{1, 2, 0, 0, 0, 3, 4}
	if string(b.Bytes()) != string(want) {
		t.Errorf("got %v, want %v", b.Bytes(), want)
	}
}

func TestBufferSplice(t *testing.T) {
	b := newBuffer([]byte("hello world"))
	b.Splice(6, 11, []byte("there"))
	if got := string(b.Bytes()); got != "hello there" {
		t.Errorf("got %q, want %q", got, "hello there")
	}

	b2 := newBuffer([]byte("hello world"))
	b2.Splice(6, 11, []byte("w"))
	if got := string(b2.Bytes()); got != "hello w" {
		t.Errorf("got %q, want %q", got, "hello w")
	}
}

func TestBufferDelete(t *testing.T) {
	b := newBuffer([]byte("abcdef"))
	b.Delete(1, 3)
	if got := string(b.Bytes()); got != "adef" {
		t.Errorf("got %q, want %q", got, "adef")
	}
}

func TestBufferOverwrite(t *testing.T) {
	b := newBuffer([]byte("abcdef"))
	b.Overwrite(2, []byte("XY"))
	if got := string(b.Bytes()); got != "abXYef" {
		t.Errorf("got %q, want %q", got, "abXYef")
	}
}
