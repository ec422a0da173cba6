package objects

import (
	"io"

	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// ReadIndex returns the hashes of all entries of a git index file.
func ReadIndex(r io.Reader) ([]string, error) {
	var idx index.Index
	if err := index.NewDecoder(r).Decode(&idx); err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		hashes = append(hashes, e.Hash.String())
	}
	return hashes, nil
}
