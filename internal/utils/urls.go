package utils

import "strings"

// Url joins a base and a relative path with exactly one slash between them.
func Url(base, path string) string {
	if base == "" {
		return strings.TrimPrefix(path, "/")
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
