// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultGlobalConfig(t *testing.T) {
	got := defaultGlobalConfig()
	if got.PrefixDir == "" {
		t.Errorf("defaultGlobalConfig().PrefixDir is empty")
	}
	if got.Jobs < 1 {
		t.Errorf("defaultGlobalConfig().Jobs = %d; want at least 1", got.Jobs)
	}
}

func TestGlobalConfigMergeFiles(t *testing.T) {
	dir := t.TempDir()
	var paths [2]string
	paths[0] = filepath.Join(dir, "config1.jwcc")
	if err := os.WriteFile(paths[0], []byte(`{"debug": true, "home": "/foo"}`+"\n"), 0o666); err != nil {
		t.Fatal(err)
	}
	paths[1] = filepath.Join(dir, "config2.jwcc")
	if err := os.WriteFile(paths[1], []byte(`{"home": "/bar", /* comment */ "jobs": 4}`+"\n"), 0o666); err != nil {
		t.Fatal(err)
	}

	g := new(globalConfig)
	err := g.mergeFiles(func(yield func(string) bool) {
		for _, path := range paths {
			if !yield(path) {
				return
			}
		}
	})
	if err != nil {
		t.Error("mergeFiles:", err)
	}
	if !g.Debug {
		t.Error("g.Debug = false; want true (config1.jwcc ignored)")
	}
	if got, want := g.Home, "/bar"; got != want {
		t.Errorf("g.Home = %q; want %q", got, want)
	}
	if got, want := g.Jobs, 4; got != want {
		t.Errorf("g.Jobs = %d; want %d", got, want)
	}
}

func TestGlobalConfigMergeFilesMissing(t *testing.T) {
	g := new(globalConfig)
	err := g.mergeFiles(func(yield func(string) bool) {
		yield(filepath.Join(t.TempDir(), "does-not-exist.jwcc"))
	})
	if err != nil {
		t.Errorf("mergeFiles with missing file returned %v; want <nil>", err)
	}
}
