package dbus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendGetArgsBasics(t *testing.T) {
	m, err := NewMethodCall("/org/example/Obj", "org.example.Iface", "Do", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.AppendArgs(int32(42), "hello", true, uint64(9999999999)); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Signature(), "isbt"; got != want {
		t.Fatalf("signature = %q, want %q", got, want)
	}

	var i int32
	var s string
	var b bool
	var u uint64
	if err := m.GetArgs(&i, &s, &b, &u); err != nil {
		t.Fatal(err)
	}
	if i != 42 || s != "hello" || b != true || u != 9999999999 {
		t.Errorf("got (%d, %q, %v, %d)", i, s, b, u)
	}
}

func TestAppendGetArgsSliceAndMap(t *testing.T) {
	m := NewMethodReturn(1)
	nums := []uint32{1, 2, 3}
	props := map[string]int32{"a": 1, "b": 2}
	if err := m.AppendArgs(nums, props); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Signature(), "aua{si}"; got != want {
		t.Fatalf("signature = %q, want %q", got, want)
	}

	var gotNums []uint32
	gotProps := map[string]int32{}
	if err := m.GetArgs(&gotNums, &gotProps); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(nums, gotNums); diff != "" {
		t.Errorf("slice mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(props, gotProps); diff != "" {
		t.Errorf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendGetArgsVariant(t *testing.T) {
	m := NewMethodReturn(1)
	if err := m.AppendArgs(Variant{Value: int32(-7)}, ObjectPath("/a/b"), Signature("ai")); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Signature(), "vog"; got != want {
		t.Fatalf("signature = %q, want %q", got, want)
	}

	var v Variant
	var p ObjectPath
	var sig Signature
	if err := m.GetArgs(&v, &p, &sig); err != nil {
		t.Fatal(err)
	}
	if v.Sig != "i" || v.Value != int32(-7) {
		t.Errorf("variant = %+v", v)
	}
	if p != "/a/b" {
		t.Errorf("path = %q", p)
	}
	if sig != "ai" {
		t.Errorf("signature = %q", sig)
	}
}

func TestAppendGetArgsByteSlice(t *testing.T) {
	m := NewMethodReturn(1)
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := m.AppendArgs(payload); err != nil {
		t.Fatal(err)
	}
	var got []byte
	if err := m.GetArgs(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("byte slice mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendArgsRejectsEmptySliceInference(t *testing.T) {
	m := NewMethodReturn(1)
	if err := m.AppendArgs([]uint32{}); err == nil {
		t.Fatal("expected an error inferring the signature of an empty slice")
	}
}

func TestAppendArgsOnLockedMessage(t *testing.T) {
	m := NewMethodReturn(1)
	m.SetSerial(1)
	if err := m.Lock(); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendArgs(int32(1)); err == nil {
		t.Fatal("expected an error appending to a locked message")
	}
}
