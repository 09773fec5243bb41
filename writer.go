package dbus

import "encoding/binary"

// Writer appends a value block and its accompanying signature in
// lockstep, the write-side counterpart of Reader. A Writer only ever
// appends to the end of its buffer; Reader.SetBasic handles in-place
// replacement separately, by rebuilding the affected bytes with a Writer
// on a scratch buffer and splicing them into the original buffer.
//
// typeSig is nil for a sub-writer positioned inside an array (the
// element signature is written exactly once, by the writer that opens
// the array, no matter how many elements follow) or inside a variant
// (a variant's signature is carried inline as its own SIGNATURE value
// and never contributes to the signature the enclosing writer is
// building). It is shared with the parent writer when recursing into a
// struct or dict-entry, since those DO contribute every field's type to
// the enclosing signature.
type Writer struct {
	order binary.ByteOrder

	typeSig *stringSink
	value   *buffer

	arrayLenOffset int     // offset of the enclosing array's length prefix, or -1
	outerArray     *Writer // writer of the array enclosing that array, or nil
}

// stringSink is the minimal append-only string builder a Writer uses
// for the signature it is accumulating; kept distinct from buffer since
// a signature is text, not aligned binary.
type stringSink struct {
	s string
}

func (s *stringSink) Append(t byte) { s.s += string(t) }

// String returns the signature accumulated so far.
func (s *stringSink) String() string { return s.s }

// NewWriter starts a writer appending to value at its current end, also
// appending type codes to sig as it goes.
func NewWriter(order binary.ByteOrder, sig *stringSink, value *buffer) *Writer {
	return &Writer{order: order, typeSig: sig, value: value, arrayLenOffset: -1}
}

func (w *Writer) advanceType(code byte) {
	if w.typeSig == nil {
		return
	}
	w.typeSig.Append(code)
}

// bumpArrayLen adds delta bytes to the length prefix of the innermost
// array this writer is appending into, if any, and of every array
// enclosing that one. Called after every WriteBasic/WriteFixedMulti and
// after Recurse opens a container.
func (w *Writer) bumpArrayLen(delta int) {
	if w.arrayLenOffset < 0 {
		return
	}
	cur := unpackUint32(w.value, w.arrayLenOffset, w.order)
	w.value.Overwrite(w.arrayLenOffset, u32bytes(w.order, cur+uint32(delta)))
	if w.outerArray != nil {
		w.outerArray.bumpArrayLen(delta)
	}
}

func u32bytes(order binary.ByteOrder, v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

// WriteBasic appends a single basic-typed value of the given type. v's
// dynamic type must match t per the mapping documented on
// Reader.ReadBasic.
func (w *Writer) WriteBasic(t Type, v any) error {
	before := w.value.Len()

	switch t {
	case TypeByte:
		w.value.Append([]byte{v.(byte)})
	case TypeBoolean:
		packBoolean(w.value, w.value.Len(), w.order, v.(bool))
	case TypeInt16:
		packUint16(w.value, w.value.Len(), w.order, uint16(v.(int16)))
	case TypeUint16:
		packUint16(w.value, w.value.Len(), w.order, v.(uint16))
	case TypeInt32:
		packUint32(w.value, w.value.Len(), w.order, uint32(v.(int32)))
	case TypeUint32:
		packUint32(w.value, w.value.Len(), w.order, v.(uint32))
	case TypeUnixFD:
		packUint32(w.value, w.value.Len(), w.order, v.(uint32))
	case TypeInt64:
		packUint64(w.value, w.value.Len(), w.order, uint64(v.(int64)))
	case TypeUint64:
		packUint64(w.value, w.value.Len(), w.order, v.(uint64))
	case TypeDouble:
		packUint64(w.value, w.value.Len(), w.order, float64Bits(v.(float64)))
	case TypeString:
		packStringLike(w.value, w.value.Len(), w.order, v.(string))
	case TypeObjectPath:
		s := v.(string)
		if err := ValidatePath(s); err != nil {
			return err
		}
		packStringLike(w.value, w.value.Len(), w.order, s)
	case TypeSignature:
		s := v.(string)
		if err := ValidateSignature(s); err != nil {
			return err
		}
		packSignature(w.value, w.value.Len(), s)
	default:
		return invalid(UnknownTypecode, "%q is not a basic type", byte(t))
	}

	w.advanceType(byte(t))
	w.bumpArrayLen(w.value.Len() - before)
	return nil
}

// WriteFixedMulti appends a run of same-typed fixed-width values in one
// shot: raw must already be packed native-endian-correct bytes (e.g.
// produced by repeated calls to packUint32), avoiding per-element Go
// interface dispatch for bulk numeric arrays such as []int32.
func (w *Writer) WriteFixedMulti(t Type, raw []byte) error {
	if !isFixedType(t) {
		return invalid(UnknownTypecode, "WriteFixedMulti requires a fixed type")
	}
	before := w.value.Len()
	w.value.Align(w.value.Len(), alignmentOf(t))
	w.value.Append(raw)
	w.advanceType(byte(t))
	w.bumpArrayLen(w.value.Len() - before)
	return nil
}

// Recurse starts a sub-writer appending into a newly opened struct,
// dict-entry, array or variant. elemSig is required (and is the array
// element signature) when t is TypeArray, and is the chosen concrete
// signature when t is TypeVariant; it is ignored for TypeStruct and
// TypeDictEntry.
func (w *Writer) Recurse(t Type, elemSig string, sub *Writer) error {
	*sub = Writer{order: w.order, value: w.value, arrayLenOffset: -1}

	switch t {
	case TypeStruct, TypeDictEntry:
		open := byte(structBeginChar)
		if t == TypeDictEntry {
			open = byte(dictBeginChar)
		}
		before := w.value.Len()
		w.advanceType(open)
		w.value.Align(w.value.Len(), 8)
		w.bumpArrayLen(w.value.Len() - before)
		sub.typeSig = w.typeSig
		sub.arrayLenOffset = w.arrayLenOffset
		sub.outerArray = w.outerArray

	case TypeArray:
		if elemSig == "" {
			return invalid(MissingArrayElementType, "array writer needs an element signature")
		}
		before := w.value.Len()
		w.advanceType(byte(TypeArray))
		for i := 0; i < len(elemSig); i++ {
			w.advanceType(elemSig[i])
		}

		lenPos := w.value.Align(w.value.Len(), 4)
		w.value.Append(u32bytes(w.order, 0))
		elemAlign := alignmentOf(firstTypeCode(elemSig, 0))
		w.value.Align(w.value.Len(), elemAlign)
		w.bumpArrayLen(w.value.Len() - before)

		sub.arrayLenOffset = lenPos
		sub.outerArray = w
		// sub.typeSig stays nil: the element signature was just written
		// once, above, regardless of how many elements follow.

	case TypeVariant:
		if elemSig == "" {
			return invalid(VariantSignatureEmpty, "variant writer needs a concrete signature")
		}
		if err := ValidateSignature(elemSig); err != nil {
			return err
		}
		before := w.value.Len()
		packSignature(w.value, w.value.Len(), elemSig)
		w.advanceType(byte(TypeVariant))
		w.bumpArrayLen(w.value.Len() - before)
		sub.arrayLenOffset = w.arrayLenOffset
		sub.outerArray = w.outerArray
		// sub.typeSig stays nil: a variant's payload signature is carried
		// inline, never folded into the enclosing signature.

	default:
		return invalid(UnknownTypecode, "cannot recurse into %q", byte(t))
	}

	return nil
}

// Unrecurse finishes a sub-writer started by Recurse for a struct or
// dict-entry, appending the closing bracket to the signature. A struct
// has no closing byte on the wire, only in its signature: sub already
// shares w's arrayLenOffset and bumped it directly as each field was
// written, so there is nothing left to propagate here. subStartLen is
// unused; it is kept so callers don't need two different call shapes
// depending on container kind.
//
// Arrays and variants need no closing call at all: an array's extent is
// entirely described by its length prefix, and a variant holds exactly
// one value.
func (w *Writer) Unrecurse(t Type, sub *Writer, subStartLen int) {
	switch t {
	case TypeStruct:
		w.advanceType(byte(structEndChar))
	case TypeDictEntry:
		w.advanceType(byte(dictEndChar))
	}
}
