package dbus

import (
	"errors"
	"fmt"
)

// Code is a validity code from the closed taxonomy that signature and
// body validation report. Consumers switch on Code for diagnostics and
// test coverage; codes are never merged even when two are triggered by
// the same function.
type Code int

// Validity codes, in the order they appear in the specification.
const (
	Valid Code = iota
	UnknownTypecode
	MissingArrayElementType
	SignatureTooLong
	ExceededMaxArrayRecursion
	ExceededMaxStructRecursion
	StructEndedButNotStarted
	StructStartedButNotEnded
	StructHasNoFields
	AlignmentPaddingNotNUL
	BooleanNotZeroOrOne
	NotEnoughData
	TooMuchData
	BadByteOrder
	BadProtocolVersion
	BadMessageType
	BadSerial
	InsaneFieldsArrayLength
	InsaneBodyLength
	MessageTooLong
	HeaderFieldCode
	HeaderFieldHasWrongType
	UsesLocalInterface
	UsesLocalPath
	HeaderFieldAppearsTwice
	BadDestination
	BadInterface
	BadMember
	BadErrorName
	BadSender
	MissingPath
	MissingInterface
	MissingMember
	MissingErrorName
	MissingReplySerial
	StringLengthOutOfBounds
	ArrayLengthOutOfBounds
	ArrayLengthExceedsMax
	BadPath
	SignatureLengthOutOfBounds
	BadSignature
	BadUTF8InString
	ArrayLengthIncorrect
	VariantSignatureLengthOutOfBounds
	VariantSignatureBad
	VariantSignatureEmpty
	VariantSignatureSpecifiesMultipleValues
	VariantSignatureMissingNUL
	StringMissingNUL
	SignatureMissingNUL
)

var codeNames = [...]string{
	Valid:                                    "VALID",
	UnknownTypecode:                          "UNKNOWN_TYPECODE",
	MissingArrayElementType:                  "MISSING_ARRAY_ELEMENT_TYPE",
	SignatureTooLong:                         "SIGNATURE_TOO_LONG",
	ExceededMaxArrayRecursion:                "EXCEEDED_MAX_ARRAY_RECURSION",
	ExceededMaxStructRecursion:               "EXCEEDED_MAX_STRUCT_RECURSION",
	StructEndedButNotStarted:                 "STRUCT_ENDED_BUT_NOT_STARTED",
	StructStartedButNotEnded:                 "STRUCT_STARTED_BUT_NOT_ENDED",
	StructHasNoFields:                        "STRUCT_HAS_NO_FIELDS",
	AlignmentPaddingNotNUL:                   "ALIGNMENT_PADDING_NOT_NUL",
	BooleanNotZeroOrOne:                      "BOOLEAN_NOT_ZERO_OR_ONE",
	NotEnoughData:                            "NOT_ENOUGH_DATA",
	TooMuchData:                              "TOO_MUCH_DATA",
	BadByteOrder:                             "BAD_BYTE_ORDER",
	BadProtocolVersion:                       "BAD_PROTOCOL_VERSION",
	BadMessageType:                           "BAD_MESSAGE_TYPE",
	BadSerial:                                "BAD_SERIAL",
	InsaneFieldsArrayLength:                  "INSANE_FIELDS_ARRAY_LENGTH",
	InsaneBodyLength:                         "INSANE_BODY_LENGTH",
	MessageTooLong:                           "MESSAGE_TOO_LONG",
	HeaderFieldCode:                          "HEADER_FIELD_CODE",
	HeaderFieldHasWrongType:                  "HEADER_FIELD_HAS_WRONG_TYPE",
	UsesLocalInterface:                       "USES_LOCAL_INTERFACE",
	UsesLocalPath:                            "USES_LOCAL_PATH",
	HeaderFieldAppearsTwice:                  "HEADER_FIELD_APPEARS_TWICE",
	BadDestination:                           "BAD_DESTINATION",
	BadInterface:                             "BAD_INTERFACE",
	BadMember:                                "BAD_MEMBER",
	BadErrorName:                             "BAD_ERROR_NAME",
	BadSender:                                "BAD_SENDER",
	MissingPath:                              "MISSING_PATH",
	MissingInterface:                         "MISSING_INTERFACE",
	MissingMember:                            "MISSING_MEMBER",
	MissingErrorName:                         "MISSING_ERROR_NAME",
	MissingReplySerial:                       "MISSING_REPLY_SERIAL",
	StringLengthOutOfBounds:                  "STRING_LENGTH_OUT_OF_BOUNDS",
	ArrayLengthOutOfBounds:                   "ARRAY_LENGTH_OUT_OF_BOUNDS",
	ArrayLengthExceedsMax:                    "ARRAY_LENGTH_EXCEEDS_MAX",
	BadPath:                                  "BAD_PATH",
	SignatureLengthOutOfBounds:               "SIGNATURE_LENGTH_OUT_OF_BOUNDS",
	BadSignature:                             "BAD_SIGNATURE",
	BadUTF8InString:                          "BAD_UTF8_IN_STRING",
	ArrayLengthIncorrect:                     "ARRAY_LENGTH_INCORRECT",
	VariantSignatureLengthOutOfBounds:        "VARIANT_SIGNATURE_LENGTH_OUT_OF_BOUNDS",
	VariantSignatureBad:                      "VARIANT_SIGNATURE_BAD",
	VariantSignatureEmpty:                    "VARIANT_SIGNATURE_EMPTY",
	VariantSignatureSpecifiesMultipleValues:  "VARIANT_SIGNATURE_SPECIFIES_MULTIPLE_VALUES",
	VariantSignatureMissingNUL:               "VARIANT_SIGNATURE_MISSING_NUL",
	StringMissingNUL:                         "STRING_MISSING_NUL",
	SignatureMissingNUL:                      "SIGNATURE_MISSING_NUL",
}

// String returns the taxonomy name of the code, e.g. "BAD_SIGNATURE".
func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) || codeNames[c] == "" {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeNames[c]
}

// ValidationError reports why a signature or body failed validation.
// Detail carries a human-readable explanation; Code is what callers
// should switch on.
type ValidationError struct {
	Code   Code
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// invalid builds a *ValidationError for code, formatting detail like fmt.Sprintf.
func invalid(code Code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code of err if it is (or wraps) a *ValidationError.
// It returns Valid, false if err does not carry a validation code.
func CodeOf(err error) (Code, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code, true
	}
	return Valid, false
}

// ErrOutOfMemory is returned by operations that fail only because an
// allocation could not be satisfied. It is orthogonal to validity: it
// is never wrapped together with a *ValidationError.
var ErrOutOfMemory = errors.New("dbus: out of memory")
