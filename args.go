package dbus

import (
	"fmt"
	"reflect"
)

// ObjectPath is a D-Bus object path, distinguished from a plain STRING
// both on the wire and by AppendArgs/GetArgs.
type ObjectPath string

// Signature is a D-Bus type signature carried as a value in its own
// right (the wire SIGNATURE type), distinguished from a plain STRING.
type Signature string

// Variant holds a value together with the signature it should be (or
// was) marshalled under. Sig may be left empty on append; it is then
// inferred from Value's Go type the same way a bare array or map
// element's type is inferred.
type Variant struct {
	Sig   string
	Value any
}

// AppendArgs marshals each of args in turn onto the end of m's body,
// inferring each one's D-Bus signature from its Go type, and extends
// m's recorded body signature to match. It returns an error without
// modifying m if any argument cannot be marshalled: bytes already
// appended for earlier arguments of the same call are removed again.
func (m *Message) AppendArgs(args ...any) error {
	if m.locked {
		return fmt.Errorf("dbus: cannot append to a message that has already been marshalled")
	}
	start := m.body.Len()
	sink := &stringSink{s: m.bodySig}
	w := NewWriter(m.Header.Order(), sink, m.body)
	for i, a := range args {
		if err := appendValue(w, a); err != nil {
			m.body.Truncate(start)
			return fmt.Errorf("dbus: argument %d: %w", i, err)
		}
	}
	m.bodySig = sink.String()
	return nil
}

func appendValue(w *Writer, v any) error {
	switch val := v.(type) {
	case byte:
		return w.WriteBasic(TypeByte, val)
	case bool:
		return w.WriteBasic(TypeBoolean, val)
	case int16:
		return w.WriteBasic(TypeInt16, val)
	case uint16:
		return w.WriteBasic(TypeUint16, val)
	case int32:
		return w.WriteBasic(TypeInt32, val)
	case uint32:
		return w.WriteBasic(TypeUint32, val)
	case int64:
		return w.WriteBasic(TypeInt64, val)
	case uint64:
		return w.WriteBasic(TypeUint64, val)
	case float64:
		return w.WriteBasic(TypeDouble, val)
	case string:
		return w.WriteBasic(TypeString, val)
	case ObjectPath:
		return w.WriteBasic(TypeObjectPath, string(val))
	case Signature:
		return w.WriteBasic(TypeSignature, string(val))
	case Variant:
		return appendVariant(w, val)
	case []byte:
		return appendByteSlice(w, val)
	default:
		return appendReflect(w, reflect.ValueOf(v))
	}
}

func appendVariant(w *Writer, v Variant) error {
	sig := v.Sig
	if sig == "" {
		var err error
		sig, err = inferSignature(v.Value)
		if err != nil {
			return fmt.Errorf("variant: %w", err)
		}
	}
	var sub Writer
	if err := w.Recurse(TypeVariant, sig, &sub); err != nil {
		return err
	}
	return appendValue(&sub, v.Value)
}

func appendByteSlice(w *Writer, b []byte) error {
	var sub Writer
	if err := w.Recurse(TypeArray, "y", &sub); err != nil {
		return err
	}
	return sub.WriteFixedMulti(TypeByte, b)
}

// appendReflect handles slices, arrays and maps that AppendArgs's type
// switch doesn't special-case, mirroring the teacher's use of
// reflection to walk a Go type it doesn't know about ahead of time.
func appendReflect(w *Writer, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		if n == 0 {
			return fmt.Errorf("cannot infer element signature of an empty %s; append a Variant with an explicit Sig instead", rv.Type())
		}
		elemSig, err := inferSignature(rv.Index(0).Interface())
		if err != nil {
			return err
		}
		var sub Writer
		if err := w.Recurse(TypeArray, elemSig, &sub); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := appendValue(&sub, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		keys := rv.MapKeys()
		if len(keys) == 0 {
			return fmt.Errorf("cannot infer entry signature of an empty %s; append a Variant with an explicit Sig instead", rv.Type())
		}
		keySig, err := inferSignature(keys[0].Interface())
		if err != nil {
			return err
		}
		valSig, err := inferSignature(rv.MapIndex(keys[0]).Interface())
		if err != nil {
			return err
		}
		elemSig := string(dictBeginChar) + keySig + valSig + string(dictEndChar)

		var arr Writer
		if err := w.Recurse(TypeArray, elemSig, &arr); err != nil {
			return err
		}
		for _, k := range keys {
			var entry Writer
			if err := arr.Recurse(TypeDictEntry, "", &entry); err != nil {
				return err
			}
			if err := appendValue(&entry, k.Interface()); err != nil {
				return err
			}
			if err := appendValue(&entry, rv.MapIndex(k).Interface()); err != nil {
				return err
			}
			arr.Unrecurse(TypeDictEntry, &entry, 0)
		}
		return nil

	default:
		return fmt.Errorf("cannot marshal value of type %s", rv.Type())
	}
}

// inferSignature derives the D-Bus signature of a Go value of a kind
// AppendArgs knows how to write, for use as an array element or variant
// payload signature. Nested slices and maps are inferred recursively
// from their first element (or first entry); an empty one is an error.
func inferSignature(v any) (string, error) {
	switch val := v.(type) {
	case byte:
		return "y", nil
	case bool:
		return "b", nil
	case int16:
		return "n", nil
	case uint16:
		return "q", nil
	case int32:
		return "i", nil
	case uint32:
		return "u", nil
	case int64:
		return "x", nil
	case uint64:
		return "t", nil
	case float64:
		return "d", nil
	case string:
		return "s", nil
	case ObjectPath:
		return "o", nil
	case Signature:
		return "g", nil
	case Variant:
		return "v", nil
	case []byte:
		return "ay", nil
	default:
		rv := reflect.ValueOf(val)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Len() == 0 {
				return "", fmt.Errorf("cannot infer signature of an empty %s", rv.Type())
			}
			elemSig, err := inferSignature(rv.Index(0).Interface())
			if err != nil {
				return "", err
			}
			return "a" + elemSig, nil
		case reflect.Map:
			keys := rv.MapKeys()
			if len(keys) == 0 {
				return "", fmt.Errorf("cannot infer signature of an empty %s", rv.Type())
			}
			keySig, err := inferSignature(keys[0].Interface())
			if err != nil {
				return "", err
			}
			valSig, err := inferSignature(rv.MapIndex(keys[0]).Interface())
			if err != nil {
				return "", err
			}
			return "a{" + keySig + valSig + "}", nil
		default:
			return "", fmt.Errorf("cannot infer a D-Bus signature for Go type %T", v)
		}
	}
}

// GetArgs decodes the message body into dest, which must be pointers to
// the same Go types AppendArgs would have accepted for the
// corresponding argument: *byte, *bool, *int16, *uint16, *int32,
// *uint32, *int64, *uint64, *float64, *string, *ObjectPath, *Signature,
// *Variant, *[]byte, or a pointer to a slice/map GetArgs can build with
// reflection to mirror the signature.
func (m *Message) GetArgs(dest ...any) error {
	r := m.BodyReader()
	for i, d := range dest {
		if r.CurrentType() == TypeInvalid {
			return fmt.Errorf("dbus: not enough values in body for argument %d", i)
		}
		if err := getValue(r, d); err != nil {
			return fmt.Errorf("dbus: argument %d: %w", i, err)
		}
		r.Next()
	}
	return nil
}

func getValue(r *Reader, dest any) error {
	switch d := dest.(type) {
	case *byte:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(byte)
	case *bool:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(bool)
	case *int16:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(int16)
	case *uint16:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(uint16)
	case *int32:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(int32)
	case *uint32:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(uint32)
	case *int64:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(int64)
	case *uint64:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(uint64)
	case *float64:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(float64)
	case *string:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = v.(string)
	case *ObjectPath:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = ObjectPath(v.(string))
	case *Signature:
		v, err := r.ReadBasic()
		if err != nil {
			return err
		}
		*d = Signature(v.(string))
	case *Variant:
		if r.CurrentType() != TypeVariant {
			return fmt.Errorf("expected a variant, got %q", byte(r.CurrentType()))
		}
		var inner Reader
		r.Recurse(&inner)
		sig := inner.elementSignature()
		value, err := getGeneric(&inner)
		if err != nil {
			return err
		}
		*d = Variant{Sig: sig, Value: value}
	case *[]byte:
		if r.CurrentType() != TypeArray {
			return fmt.Errorf("expected an array, got %q", byte(r.CurrentType()))
		}
		var arr Reader
		r.Recurse(&arr)
		raw, _, err := arr.ReadFixedMulti()
		if err != nil {
			return err
		}
		*d = append([]byte(nil), raw...)
	default:
		return getReflect(r, reflect.ValueOf(dest))
	}
	return nil
}

// getReflect decodes into a pointer to a slice or map, mirroring
// appendReflect on the read side.
func getReflect(r *Reader, rv reflect.Value) error {
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("GetArgs destination must be a non-nil pointer, got %s", rv.Type())
	}
	elem := rv.Elem()

	switch elem.Kind() {
	case reflect.Slice:
		if r.CurrentType() != TypeArray {
			return fmt.Errorf("expected an array, got %q", byte(r.CurrentType()))
		}
		var arr Reader
		r.Recurse(&arr)
		out := reflect.MakeSlice(elem.Type(), 0, 0)
		for arr.CurrentType() != TypeInvalid {
			item := reflect.New(elem.Type().Elem())
			if err := getValue(&arr, item.Interface()); err != nil {
				return err
			}
			out = reflect.Append(out, item.Elem())
			arr.Next()
		}
		elem.Set(out)
		return nil

	case reflect.Map:
		if r.CurrentType() != TypeArray {
			return fmt.Errorf("expected an array, got %q", byte(r.CurrentType()))
		}
		var arr Reader
		r.Recurse(&arr)
		out := reflect.MakeMap(elem.Type())
		for arr.CurrentType() == TypeDictEntry {
			var entry Reader
			arr.Recurse(&entry)
			key := reflect.New(elem.Type().Key())
			if err := getValue(&entry, key.Interface()); err != nil {
				return err
			}
			entry.Next()
			val := reflect.New(elem.Type().Elem())
			if err := getValue(&entry, val.Interface()); err != nil {
				return err
			}
			out.SetMapIndex(key.Elem(), val.Elem())
			arr.Next()
		}
		elem.Set(out)
		return nil

	default:
		return fmt.Errorf("cannot decode into %s", rv.Type())
	}
}

// getGeneric decodes whatever value r currently points to into a
// natural Go representation, for Variant's Value field where the
// caller hasn't told GetArgs what Go type to expect.
func getGeneric(r *Reader) (any, error) {
	switch r.CurrentType() {
	case TypeByte, TypeBoolean, TypeInt16, TypeUint16, TypeInt32, TypeUint32,
		TypeInt64, TypeUint64, TypeDouble, TypeString, TypeObjectPath, TypeSignature:
		return r.ReadBasic()

	case TypeVariant:
		var inner Reader
		r.Recurse(&inner)
		sig := inner.elementSignature()
		value, err := getGeneric(&inner)
		if err != nil {
			return nil, err
		}
		return Variant{Sig: sig, Value: value}, nil

	case TypeArray:
		elemSig := r.elementSignature()[1:]
		if elemSig == "y" {
			var b []byte
			if err := getValue(r, &b); err != nil {
				return nil, err
			}
			return b, nil
		}
		var arr Reader
		r.Recurse(&arr)
		if len(elemSig) > 0 && elemSig[0] == dictBeginChar {
			out := map[any]any{}
			for arr.CurrentType() == TypeDictEntry {
				var entry Reader
				arr.Recurse(&entry)
				key, err := getGeneric(&entry)
				if err != nil {
					return nil, err
				}
				entry.Next()
				val, err := getGeneric(&entry)
				if err != nil {
					return nil, err
				}
				out[key] = val
				arr.Next()
			}
			return out, nil
		}
		var out []any
		for arr.CurrentType() != TypeInvalid {
			v, err := getGeneric(&arr)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			arr.Next()
		}
		return out, nil

	case TypeStruct:
		var st Reader
		r.Recurse(&st)
		var out []any
		for st.CurrentType() != TypeInvalid {
			v, err := getGeneric(&st)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			st.Next()
		}
		return out, nil

	default:
		return nil, fmt.Errorf("cannot decode value of type %q generically", byte(r.CurrentType()))
	}
}
