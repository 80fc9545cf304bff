// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/google/go-cmp/cmp"

	"crossforge.dev/pkg/internal/osutil"
	"crossforge.dev/pkg/internal/testcontext"
)

func TestPackager(t *testing.T) {
	ctx, cancel := testcontext.New(t)
	defer cancel()

	env := testEnv(t, "x86_64-linux-gnu-native-gcc15")
	if err := os.MkdirAll(filepath.Join(env.Prefix, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := osutil.WriteFilePerm(filepath.Join(env.Prefix, "bin", "gcc"), []byte("#!/bin/true\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := osutil.WriteFilePerm(filepath.Join(env.Prefix, "README"), []byte("toolchain\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &Packager{
		DistDir: t.TempDir(),
		Writer:  BzipTarWriter{},
	}
	got, err := p.Package(ctx, env)
	if err != nil {
		t.Fatal("Package:", err)
	}
	want := filepath.Join(p.DistDir, "x86_64-linux-gnu-native-gcc15.tar.bz2")
	if got != want {
		t.Errorf("Package returned %q; want %q", got, want)
	}

	// Re-invocation reproduces the same archive name.
	again, err := p.Package(ctx, env)
	if err != nil {
		t.Fatal("Package (second invocation):", err)
	}
	if again != got {
		t.Errorf("second Package returned %q; want %q", again, got)
	}

	// The archive holds the prefix tree in sorted entry order.
	f, err := os.Open(got)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	bz, err := bzip2.NewReader(f, new(bzip2.ReaderConfig))
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(bz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, hdr.Name)
	}
	wantNames := []string{"README", "bin/", "bin/gcc"}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("archive entries (-want +got):\n%s", diff)
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("archive entries are not sorted: %q", names)
	}
}
