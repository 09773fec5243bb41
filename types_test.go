package dbus

import "testing"

func TestAlignmentOf(t *testing.T) {
	cases := []struct {
		t    Type
		want int
	}{
		{TypeByte, 1},
		{TypeVariant, 1},
		{TypeSignature, 1},
		{TypeInt16, 2},
		{TypeUint16, 2},
		{TypeBoolean, 4},
		{TypeInt32, 4},
		{TypeUint32, 4},
		{TypeString, 4},
		{TypeObjectPath, 4},
		{TypeArray, 4},
		{TypeUnixFD, 4},
		{TypeInt64, 8},
		{TypeUint64, 8},
		{TypeDouble, 8},
		{TypeStruct, 8},
		{TypeDictEntry, 8},
		{TypeInvalid, 0},
	}
	for _, c := range cases {
		if got := alignmentOf(c.t); got != c.want {
			t.Errorf("alignmentOf(%q) = %d, want %d", byte(c.t), got, c.want)
		}
	}
}

func TestIsValidType(t *testing.T) {
	valid := []Type{
		TypeByte, TypeBoolean, TypeInt16, TypeUint16, TypeInt32, TypeUint32,
		TypeInt64, TypeUint64, TypeDouble, TypeString, TypeObjectPath,
		TypeSignature, TypeArray, TypeVariant, TypeUnixFD,
	}
	for _, ty := range valid {
		if !isValidType(ty) {
			t.Errorf("isValidType(%q) = false, want true", byte(ty))
		}
	}
	invalid := []Type{TypeInvalid, TypeStruct, TypeDictEntry, Type('Z')}
	for _, ty := range invalid {
		if isValidType(ty) {
			t.Errorf("isValidType(%q) = true, want false", byte(ty))
		}
	}
}

func TestIsContainerType(t *testing.T) {
	for _, ty := range []Type{TypeStruct, TypeDictEntry, TypeArray, TypeVariant} {
		if !isContainerType(ty) {
			t.Errorf("isContainerType(%q) = false, want true", byte(ty))
		}
	}
	for _, ty := range []Type{TypeByte, TypeInt32, TypeString} {
		if isContainerType(ty) {
			t.Errorf("isContainerType(%q) = true, want false", byte(ty))
		}
	}
}

func TestIsBasicType(t *testing.T) {
	if !isBasicType(TypeInt32) {
		t.Error("isBasicType(TypeInt32) = false, want true")
	}
	if isBasicType(TypeArray) {
		t.Error("isBasicType(TypeArray) = true, want false")
	}
	if isBasicType(TypeInvalid) {
		t.Error("isBasicType(TypeInvalid) = true, want false")
	}
}

func TestIsFixedTypeAndFixedSize(t *testing.T) {
	cases := []struct {
		t        Type
		fixed    bool
		wantSize int
	}{
		{TypeByte, true, 1},
		{TypeInt16, true, 2},
		{TypeUint16, true, 2},
		{TypeBoolean, true, 4},
		{TypeInt32, true, 4},
		{TypeUint32, true, 4},
		{TypeUnixFD, true, 4},
		{TypeInt64, true, 8},
		{TypeUint64, true, 8},
		{TypeDouble, true, 8},
		{TypeString, false, 0},
		{TypeArray, false, 0},
		{TypeStruct, false, 0},
		{TypeVariant, false, 0},
	}
	for _, c := range cases {
		if got := isFixedType(c.t); got != c.fixed {
			t.Errorf("isFixedType(%q) = %v, want %v", byte(c.t), got, c.fixed)
		}
		if got := fixedSize(c.t); got != c.wantSize {
			t.Errorf("fixedSize(%q) = %d, want %d", byte(c.t), got, c.wantSize)
		}
	}
}
