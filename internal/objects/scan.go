package objects

import (
	"strings"
)

// ScanHashes returns the object hashes in text that stand alone between
// whitespace or the ends of the text, in order of appearance. A leading '^', as
// used for peeled tags in packed-refs, is ignored.
func ScanHashes(text []byte) []string {
	var hashes []string
	for _, field := range strings.Fields(string(text)) {
		field = strings.TrimPrefix(field, "^")
		if IsHash(field) {
			hashes = append(hashes, field)
		}
	}
	return hashes
}
