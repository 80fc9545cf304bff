// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

// Package osutil provides convenience functions for working with the local filesystem.
package osutil

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
)

// MkdirPerm creates a new directory with the given permission bits (after umask).
func MkdirPerm(name string, perm os.FileMode) error {
	if err := os.Mkdir(name, perm); err != nil {
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		return err
	}
	return nil
}

// WriteFilePerm writes data to the named file, creating it if necessary,
// and ensuring it has the given permissions (after umask).
func WriteFilePerm(name string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %v", name, err)
	}
	err = f.Chmod(perm)
	err2 := f.Close()
	if err == nil {
		err = err2
	}
	if err != nil {
		return fmt.Errorf("write %s: %v", name, err)
	}
	return nil
}

// FirstPresentFile returns the first path in the sequence that exists in the filesystem,
// or an error if no path could be found.
func FirstPresentFile(paths iter.Seq[string]) (string, error) {
	var firstError, firstUnexpectedError error
	for path := range paths {
		_, err := os.Lstat(path)
		switch {
		case err == nil:
			return path, nil
		case !errors.Is(err, os.ErrNotExist):
			if firstUnexpectedError == nil {
				firstUnexpectedError = err
			}
		default:
			if firstError == nil {
				firstError = err
			}
		}
	}
	if firstUnexpectedError != nil {
		return "", firstUnexpectedError
	}
	if firstError == nil {
		firstError = errors.New("no files searched")
	}
	return "", firstError
}

// Exists reports whether the filesystem object at path exists.
// It does not follow a trailing symlink.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// CopyFile copies the regular file at src to dst,
// preserving the source's permission bits.
// If dst exists, it is overwritten.
func CopyFile(dst, src string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("copy %s to %s: %w", src, dst, err)
		}
	}()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	err = out.Chmod(info.Mode().Perm())
	err2 := out.Close()
	if err == nil {
		err = err2
	}
	return err
}

// CopyTree recursively copies the directory tree rooted at src into dst,
// creating dst if necessary.
// Symbolic links are copied as links, not followed.
// Permission bits are preserved.
func CopyTree(dst, src string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case entry.IsDir():
			info, err := entry.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, info.Mode().Perm()|0o200); err != nil {
				return err
			}
			return os.Chmod(target, info.Mode().Perm())
		case entry.Type()&os.ModeSymlink != 0:
			dest, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			return os.Symlink(dest, target)
		case entry.Type().IsRegular():
			return CopyFile(target, path)
		default:
			return fmt.Errorf("copy %s: unsupported file type %v", path, entry.Type())
		}
	})
}
