package utils

import (
	"bytes"
)

// IsEmptyBytes reports whether b holds nothing but whitespace and NUL bytes.
func IsEmptyBytes(b []byte) bool {
	return len(bytes.Trim(bytes.TrimSpace(b), "\x00\t\n\v\f\r ")) == 0
}
