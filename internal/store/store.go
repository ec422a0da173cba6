// Package store mirrors remote paths into the output tree.
package store

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Store writes every path at the same relative location below its root. Each
// writer owns a distinct path, so concurrent writes need no locking.
type Store struct {
	fs billy.Filesystem
}

func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// Open returns a Store rooted at dir on disk.
func Open(dir string) *Store {
	return New(osfs.New(dir))
}

func (s *Store) Root() string {
	return s.fs.Root()
}

// Write stores body at p, creating parent directories as needed.
func (s *Store) Write(p string, body []byte) error {
	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}
	return util.WriteFile(s.fs, p, body, 0o644)
}

func (s *Store) ReadFile(p string) ([]byte, error) {
	return util.ReadFile(s.fs, p)
}

func (s *Store) Open(p string) (billy.File, error) {
	return s.fs.Open(p)
}

// Exists reports whether p is a regular file in the store.
func (s *Store) Exists(p string) bool {
	info, err := s.fs.Stat(p)
	return err == nil && !info.IsDir()
}

func (s *Store) IsDir(p string) bool {
	info, err := s.fs.Stat(p)
	return err == nil && info.IsDir()
}

// Files lists the regular files below dir, sorted, as slash separated paths
// relative to the store root. A missing dir yields no files.
func (s *Store) Files(dir string) ([]string, error) {
	var files []string
	err := util.Walk(s.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, filepath.ToSlash(p))
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
