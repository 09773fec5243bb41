package dbus

// MaxSignatureLength is the maximum length in bytes of a signature
// string.
const MaxSignatureLength = 255

// MaxTypeRecursionDepth is the maximum nesting depth of array and
// struct axes, each enforced separately.
const MaxTypeRecursionDepth = 32

// ValidateSignature checks that sig is a well-formed D-Bus signature:
// a closed alphabet, balanced struct/dict-entry brackets, no trailing
// array without an element type, and nesting depth within limits. It
// returns nil if sig is valid, or a *ValidationError naming the first
// rule violated.
//
// The algorithm mirrors the original implementation's single
// left-to-right scan with running array/struct depth counters; array
// depth resets on any non-'a' byte so "aaa(ii)" only risks
// ExceededMaxArrayRecursion on its leading run of 'a's, never in
// combination with struct depth.
func ValidateSignature(sig string) error {
	if len(sig) > MaxSignatureLength {
		return invalid(SignatureTooLong, "signature length %d exceeds %d", len(sig), MaxSignatureLength)
	}

	var (
		structDepth = 0
		dictDepth   = 0
		arrayDepth  = 0
		last        byte
	)

	for i := 0; i < len(sig); i++ {
		c := sig[i]

		switch c {
		case byte(TypeByte), byte(TypeBoolean), byte(TypeInt16), byte(TypeUint16),
			byte(TypeInt32), byte(TypeUint32), byte(TypeInt64), byte(TypeUint64),
			byte(TypeDouble), byte(TypeString), byte(TypeObjectPath),
			byte(TypeSignature), byte(TypeVariant), byte(TypeUnixFD):
			// basic types and variant need no bookkeeping beyond depth tracking

		case byte(TypeArray):
			arrayDepth++
			if arrayDepth > MaxTypeRecursionDepth {
				return invalid(ExceededMaxArrayRecursion, "array nesting exceeds %d", MaxTypeRecursionDepth)
			}

		case structBeginChar:
			structDepth++
			if structDepth > MaxTypeRecursionDepth {
				return invalid(ExceededMaxStructRecursion, "struct nesting exceeds %d", MaxTypeRecursionDepth)
			}

		case structEndChar:
			if structDepth == 0 {
				return invalid(StructEndedButNotStarted, "')' with no matching '('")
			}
			if last == structBeginChar {
				return invalid(StructHasNoFields, "'()' is not a valid struct")
			}
			structDepth--

		case dictBeginChar:
			// A dict-entry is only legal as an array element; track it
			// with the same depth budget as struct nesting.
			structDepth++
			dictDepth++
			if structDepth > MaxTypeRecursionDepth {
				return invalid(ExceededMaxStructRecursion, "dict-entry nesting exceeds %d", MaxTypeRecursionDepth)
			}
			if last != byte(TypeArray) {
				return invalid(UnknownTypecode, "'{' must immediately follow 'a'")
			}

		case dictEndChar:
			if dictDepth == 0 {
				return invalid(StructEndedButNotStarted, "'}' with no matching '{'")
			}
			if last == dictBeginChar {
				return invalid(StructHasNoFields, "'{}' is not a valid dict-entry")
			}
			structDepth--
			dictDepth--

		default:
			return invalid(UnknownTypecode, "unknown type code %q", c)
		}

		if c != byte(TypeArray) {
			arrayDepth = 0
		}
		last = c
	}

	if arrayDepth > 0 {
		return invalid(MissingArrayElementType, "signature ends with 'a' and no element type")
	}
	if structDepth > 0 {
		return invalid(StructStartedButNotEnded, "unclosed '(' or '{'")
	}

	return validateDictEntryKeys(sig)
}

// validateDictEntryKeys walks sig a second time checking that every
// dict-entry's key position (the byte right after '{') is a basic
// type and that every dict-entry has exactly two complete types
// before its closing '}'.
func validateDictEntryKeys(sig string) error {
	for i := 0; i < len(sig); i++ {
		if sig[i] != dictBeginChar {
			continue
		}

		keyPos := i + 1
		if keyPos >= len(sig) {
			return invalid(StructStartedButNotEnded, "unclosed '{'")
		}
		if !isValidType(Type(sig[keyPos])) || !isBasicType(Type(sig[keyPos])) {
			return invalid(UnknownTypecode, "dict-entry key must be a basic type, got %q", sig[keyPos])
		}

		valuePos, err := skipOneCompleteType(sig, keyPos)
		if err != nil {
			return err
		}
		end, err := skipOneCompleteType(sig, valuePos)
		if err != nil {
			return err
		}
		if end >= len(sig) || sig[end] != dictEndChar {
			return invalid(StructHasNoFields, "dict-entry must have exactly one key and one value type")
		}
	}
	return nil
}

// skipOneCompleteType advances past exactly one complete type
// starting at pos (a run of 'a' followed by either a non-container
// code or a balanced '(' ... ')' / '{' ... '}' group) and returns the
// position just past it.
func skipOneCompleteType(sig string, pos int) (int, error) {
	start := pos
	for pos < len(sig) && sig[pos] == byte(TypeArray) {
		pos++
	}
	if pos >= len(sig) {
		return 0, invalid(MissingArrayElementType, "signature ends with 'a' and no element type")
	}

	switch sig[pos] {
	case structBeginChar:
		depth := 1
		pos++
		for depth > 0 {
			if pos >= len(sig) {
				return 0, invalid(StructStartedButNotEnded, "unclosed '(' at %d", start)
			}
			switch sig[pos] {
			case structBeginChar:
				depth++
			case structEndChar:
				depth--
			}
			pos++
		}
	case dictBeginChar:
		depth := 1
		pos++
		for depth > 0 {
			if pos >= len(sig) {
				return 0, invalid(StructStartedButNotEnded, "unclosed '{' at %d", start)
			}
			switch sig[pos] {
			case dictBeginChar:
				depth++
			case dictEndChar:
				depth--
			}
			pos++
		}
	case structEndChar, dictEndChar:
		return 0, invalid(StructEndedButNotStarted, "unexpected %q at %d", sig[pos], pos)
	default:
		if !isValidType(Type(sig[pos])) {
			return 0, invalid(UnknownTypecode, "unknown type code %q at %d", sig[pos], pos)
		}
		pos++
	}

	return pos, nil
}

// lenOfCompleteType returns the byte length of the single complete
// type starting at pos.
func lenOfCompleteType(sig string, pos int) (int, error) {
	end, err := skipOneCompleteType(sig, pos)
	if err != nil {
		return 0, err
	}
	return end - pos, nil
}

// firstTypeCode returns the type code that classifies the complete
// type at pos: TypeArray, TypeStruct, TypeDictEntry, or the literal
// basic/variant byte.
func firstTypeCode(sig string, pos int) Type {
	if pos >= len(sig) {
		return TypeInvalid
	}
	switch sig[pos] {
	case byte(TypeArray):
		return TypeArray
	case structBeginChar:
		return TypeStruct
	case dictBeginChar:
		return TypeDictEntry
	default:
		return Type(sig[pos])
	}
}

// elementTypeOf returns the signature slice of an array's element type
// given pos points at the 'a'.
func elementTypeOf(sig string, pos int) string {
	start := pos + 1
	end, err := skipOneCompleteType(sig, start)
	if err != nil {
		return ""
	}
	return sig[start:end]
}
