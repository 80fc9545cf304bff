// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"errors"
	"os"
	"path/filepath"

	"crossforge.dev/pkg/internal/osutil"
	"crossforge.dev/pkg/internal/triple"
)

// A CompletionMarker is a filesystem predicate that reports whether
// a stage's output already satisfies its contract,
// enabling safe skip-on-resume.
type CompletionMarker interface {
	// Satisfied reports whether the marker holds
	// under the given environment prefix.
	Satisfied(prefix string) (bool, error)
}

// FileExists returns a marker satisfied when the prefix-relative
// path rel exists.
func FileExists(rel string) CompletionMarker {
	return fileExists(rel)
}

type fileExists string

func (m fileExists) Satisfied(prefix string) (bool, error) {
	return osutil.Exists(filepath.Join(prefix, string(m)))
}

// AllOf returns a marker satisfied when every given marker is satisfied.
// With no arguments, the marker is never satisfied
// (the stage always runs).
func AllOf(markers ...CompletionMarker) CompletionMarker {
	return allOf(markers)
}

type allOf []CompletionMarker

func (m allOf) Satisfied(prefix string) (bool, error) {
	if len(m) == 0 {
		return false, nil
	}
	for _, sub := range m {
		ok, err := sub.Satisfied(prefix)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// absFileExists is a marker over an absolute path,
// independent of the environment prefix.
// The packaging stage uses it because archives land
// outside the prefix tree.
type absFileExists string

func (m absFileExists) Satisfied(string) (bool, error) {
	return osutil.Exists(string(m))
}

// HostStamp returns a marker satisfied when the stamp file
// "<rel>/.host" exists and records the given host platform.
// Side-dependency builds write such stamps so that a prefix reused
// for a different host is not mistaken for complete.
func HostStamp(rel string, host triple.Triple) CompletionMarker {
	return &hostStamp{rel: rel, host: host}
}

type hostStamp struct {
	rel  string
	host triple.Triple
}

// StampFile returns the prefix-relative path of the stamp file
// that satisfies the marker.
func (m *hostStamp) StampFile() string {
	return filepath.Join(m.rel, ".host")
}

// StampContents returns the bytes a completed stage writes
// to its stamp file.
func (m *hostStamp) StampContents() []byte {
	return []byte(m.host.String() + "\n")
}

func (m *hostStamp) Satisfied(prefix string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(prefix, m.StampFile()))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(data) == string(m.StampContents()), nil
}
