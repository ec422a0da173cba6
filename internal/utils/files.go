package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

func IsFolder(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

func Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// PrepareDir makes sure dir exists and is usable as an output directory. A
// non-empty dir is wiped when force is set, reused when keep is set, and refused
// otherwise.
func PrepareDir(dir string, force, keep bool) error {
	if !Exists(dir) {
		return os.MkdirAll(dir, os.ModePerm)
	}
	if !IsFolder(dir) {
		return fmt.Errorf("%s is not a directory", dir)
	}
	empty, err := IsEmpty(dir)
	if err != nil {
		return err
	}
	switch {
	case empty, keep:
		return checkWritable(dir)
	case force:
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		return os.MkdirAll(dir, os.ModePerm)
	default:
		return fmt.Errorf("%s is not empty", dir)
	}
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".gitdump-*")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%s is not writable: %w", dir, err)
		}
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
