// Package objects collects the object hashes a dump has to download.
package objects

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// ZeroHash stands for "no object" in reflogs and never names a real object.
const ZeroHash = "0000000000000000000000000000000000000000"

var hashRegex = regexp.MustCompile(`^[a-f0-9]{40}$`)

func IsHash(s string) bool {
	return hashRegex.MatchString(s)
}

// LoosePath is where the loose object h lives below the repository root.
func LoosePath(h string) string {
	return fmt.Sprintf(".git/objects/%s/%s", h[:2], h[2:])
}

// Set is a set of object hashes that many goroutines may extend at once.
type Set struct {
	mu     sync.Mutex
	hashes map[string]struct{}
}

func NewSet() *Set {
	return &Set{hashes: make(map[string]struct{})}
}

// Add inserts h if it is a well formed hash and reports whether it was new.
func (s *Set) Add(h string) bool {
	if !IsHash(h) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[h]; ok {
		return false
	}
	s.hashes[h] = struct{}{}
	return true
}

// AddAll inserts every hash and returns how many were new.
func (s *Set) AddAll(hashes []string) int {
	added := 0
	for _, h := range hashes {
		if s.Add(h) {
			added++
		}
	}
	return added
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}

// Finalize drops the zero hash and returns the remaining hashes sorted.
func (s *Set) Finalize() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, ZeroHash)
	out := make([]string, 0, len(s.hashes))
	for h := range s.hashes {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Paths finalizes the set and returns the loose object path of every hash.
func (s *Set) Paths() []string {
	hashes := s.Finalize()
	paths := make([]string, len(hashes))
	for i, h := range hashes {
		paths[i] = LoosePath(h)
	}
	return paths
}
