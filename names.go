package dbus

import "strings"

// MaxNameLength is the maximum length in bytes of an interface,
// member, error or bus name.
const MaxNameLength = 255

func isValidInitialNameChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}

func isValidNameChar(c byte) bool {
	return (c >= '0' && c <= '9') || isValidInitialNameChar(c)
}

// ValidatePath checks that s is a syntactically valid object path: it
// starts with '/', has no empty components, and has no trailing '/'
// unless s is exactly "/".
func ValidatePath(s string) error {
	if len(s) == 0 {
		return invalid(BadPath, "path is empty")
	}
	if s[0] != '/' {
		return invalid(BadPath, "path must start with '/'")
	}

	lastSlash := 0
	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '/':
			if i-lastSlash < 2 {
				return invalid(BadPath, "path has an empty component")
			}
			lastSlash = i
		case !isASCIIPathChar(s[i]):
			return invalid(BadPath, "path contains an invalid character %q", s[i])
		}
	}

	if len(s)-lastSlash < 2 && len(s) > 1 {
		return invalid(BadPath, "path has a trailing '/'")
	}
	return nil
}

func isASCIIPathChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}

// ValidateInterfaceName checks that s is a syntactically valid
// interface name: at least two dot-separated components, each
// beginning with a letter or underscore and otherwise
// alphanumeric/underscore, total length at most MaxNameLength.
func ValidateInterfaceName(s string) error {
	return validateDottedName(s, BadInterface)
}

// ValidateErrorName checks that s is a syntactically valid error
// name. Error names share the interface name grammar.
func ValidateErrorName(s string) error {
	return validateDottedName(s, BadErrorName)
}

func validateDottedName(s string, badCode Code) error {
	if len(s) == 0 {
		return invalid(badCode, "name is empty")
	}
	if len(s) > MaxNameLength {
		return invalid(badCode, "name length %d exceeds %d", len(s), MaxNameLength)
	}

	if s[0] == '.' || !isValidInitialNameChar(s[0]) {
		return invalid(badCode, "name must start with a letter or '_'")
	}

	lastDot := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '.' {
			if i+1 == len(s) {
				return invalid(badCode, "name has a trailing '.'")
			}
			if !isValidInitialNameChar(s[i+1]) {
				return invalid(badCode, "name component must start with a letter or '_'")
			}
			lastDot = i
			i++
			continue
		}
		if !isValidNameChar(s[i]) {
			return invalid(badCode, "name contains an invalid character %q", s[i])
		}
	}

	if lastDot == -1 {
		return invalid(badCode, "name must have at least two components")
	}
	return nil
}

// ValidateMemberName checks that s is a syntactically valid member
// (method or signal) name: a single component beginning with a
// letter or underscore.
func ValidateMemberName(s string) error {
	if len(s) == 0 {
		return invalid(MissingMember, "member name is empty")
	}
	if len(s) > MaxNameLength {
		return invalid(BadMember, "member name length %d exceeds %d", len(s), MaxNameLength)
	}
	if !isValidInitialNameChar(s[0]) {
		return invalid(BadMember, "member name must start with a letter or '_'")
	}
	for i := 1; i < len(s); i++ {
		if !isValidNameChar(s[i]) {
			return invalid(BadMember, "member name contains an invalid character %q", s[i])
		}
	}
	return nil
}

// ValidateBusName checks that s is a syntactically valid bus name,
// either a well-known name (interface-name grammar) or a unique name
// starting with ':' followed by dot-separated
// alphanumeric/underscore/dash components.
func ValidateBusName(s string) error {
	if len(s) == 0 {
		return invalid(BadDestination, "bus name is empty")
	}
	if len(s) > MaxNameLength {
		return invalid(BadDestination, "bus name length %d exceeds %d", len(s), MaxNameLength)
	}

	if s[0] != ':' {
		return validateDottedName(s, BadDestination)
	}

	// Unique name: ":" then dot-separated components of
	// [A-Za-z0-9_-], two or more components.
	if len(s) == 1 {
		return invalid(BadDestination, "unique name has no component after ':'")
	}
	for i := 1; i < len(s); i++ {
		if s[i] == '.' {
			if i+1 == len(s) || s[i+1] == '.' {
				return invalid(BadDestination, "unique name has an empty component")
			}
			continue
		}
		if !isValidUniqueNameChar(s[i]) {
			return invalid(BadDestination, "unique name contains an invalid character %q", s[i])
		}
	}
	if !strings.Contains(s[1:], ".") {
		return invalid(BadDestination, "unique name must have two or more components")
	}
	return nil
}

func isValidUniqueNameChar(c byte) bool {
	return isValidNameChar(c) || c == '-'
}
