package tidisk

import (
	"fmt"
	"strings"
)

// DisplayStringFromBytes renders raw bytes as text. Printable ASCII passes
// through and anything else becomes a `\xNN` escape.
func DisplayStringFromBytes(raw []byte) string {
	var sb strings.Builder

	for _, b := range raw {
		if b >= 32 && b < 127 {
			sb.WriteByte(b)
		} else {
			fmt.Fprintf(&sb, "\\x%02x", b)
		}
	}

	return sb.String()
}

// nameFromBytes decodes a space-padded name.
func nameFromBytes(raw []byte) string {
	return strings.TrimRight(DisplayStringFromBytes(raw), " ")
}

// IsValidName checks a space-padded name field. Names may not contain NULs or
// dots, may not start with a space, and may only be followed by padding once
// a space is seen. If `asciiOnly` is true, control and high characters are
// also rejected.
func IsValidName(raw []byte, asciiOnly bool) bool {
	if len(raw) == 0 {
		return false
	}

	seenSpace := false
	for _, b := range raw {
		if b == 0 || b == '.' {
			return false
		} else if asciiOnly == true && (b < 32 || b > 127) {
			return false
		} else if b == ' ' {
			seenSpace = true
		} else if seenSpace == true {
			return false
		}
	}

	return raw[0] != ' '
}
