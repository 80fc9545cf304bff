// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

//go:build unix

package main

import (
	"iter"

	"go4.org/xdgdir"
	"golang.org/x/sys/unix"
)

func cacheDir() string {
	return xdgdir.Cache.Path()
}

func defaultPrefixDir() string {
	return "/opt/crossforge"
}

// systemConfigDirs returns a sequence of configuration directory paths
// in increasing order of preference (i.e. later entries should override earlier entries).
func systemConfigDirs() iter.Seq[string] {
	return func(yield func(string) bool) {
		paths := xdgdir.Config.SearchPaths()
		for i := len(paths) - 1; i >= 0; i-- {
			if !yield(paths[i]) {
				return
			}
		}
	}
}

func kernelRelease() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Sysname[:]) + " " + unix.ByteSliceToString(u.Release[:])
}
