// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"zombiezen.com/go/log"

	"crossforge.dev/pkg/sets"
)

// An ArchiveWriter compresses a directory tree into a stream.
type ArchiveWriter interface {
	// Compress writes an archive of the tree rooted at root to dst.
	Compress(dst io.Writer, root string) error
	// Extension is the archive's file name extension,
	// including the leading dot.
	Extension() string
}

// A Packager archives completed environment prefixes.
type Packager struct {
	// DistDir is the directory archives are written into.
	DistDir string
	Writer  ArchiveWriter
}

// ArchivePath returns the path the environment's archive
// will be written to. The name is a pure function of the
// environment's canonical name.
func (p *Packager) ArchivePath(env *Environment) string {
	return filepath.Join(p.DistDir, env.ID+p.Writer.Extension())
}

// Package archives env's prefix tree and returns the archive path.
// The archive name is deterministic for a given environment;
// re-invocation after no filesystem change reproduces the same name.
func (p *Packager) Package(ctx context.Context, env *Environment) (string, error) {
	archivePath := p.ArchivePath(env)
	if err := os.MkdirAll(p.DistDir, 0o755); err != nil {
		return "", &PackagingError{Environment: env.ID, Err: err}
	}
	f, err := os.Create(archivePath)
	if err != nil {
		return "", &PackagingError{Environment: env.ID, Err: err}
	}
	log.Infof(ctx, "packaging %s to %s", env.ID, archivePath)
	err = p.Writer.Compress(f, env.Prefix)
	err2 := f.Close()
	if err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(archivePath)
		return "", &PackagingError{Environment: env.ID, Err: err}
	}
	return archivePath, nil
}

// BzipTarWriter writes bzip2-compressed tar archives.
// Entries appear in sorted path order so identical trees
// yield identical entry sequences.
type BzipTarWriter struct{}

func (BzipTarWriter) Extension() string { return ".tar.bz2" }

func (BzipTarWriter) Compress(dst io.Writer, root string) error {
	bz, err := bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return err
	}
	tw := tar.NewWriter(bz)

	paths := sets.NewSorted[string]()
	err = filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root {
			paths.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for path := range paths.Values() {
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("archive %s: %w", path, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return bz.Close()
}
