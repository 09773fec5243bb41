// Package dbus implements the D-Bus wire-format codec: the recursive
// type engine and message framing layer used to marshal typed values
// into D-Bus message frames and demarshal untrusted bytes back into
// values.
//
// The package covers signature parsing and validation, recursive
// marshalling and unmarshalling of structs, arrays, variants and
// dict-entries with exact alignment and byte-order handling, message
// header/body assembly and validation, and a streaming loader that
// turns arbitrary byte chunks from a transport into framed messages.
//
// Transport I/O, SASL authentication, bus routing and name ownership
// are not part of this package; callers wire it to those concerns
// through [Loader], [Message] and the Append/Get argument helpers.
package dbus
