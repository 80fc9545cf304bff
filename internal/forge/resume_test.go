// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"os"
	"path/filepath"
	"testing"

	"crossforge.dev/pkg/internal/osutil"
	"crossforge.dev/pkg/internal/triple"
)

func TestFileExistsMarker(t *testing.T) {
	prefix := t.TempDir()
	m := FileExists(filepath.Join("bin", "riscv64-linux-gnu-ld"))

	if ok, err := m.Satisfied(prefix); err != nil || ok {
		t.Errorf("Satisfied on empty prefix = %t, %v; want false, <nil>", ok, err)
	}
	if err := os.MkdirAll(filepath.Join(prefix, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := osutil.WriteFilePerm(filepath.Join(prefix, "bin", "riscv64-linux-gnu-ld"), nil, 0o755); err != nil {
		t.Fatal(err)
	}
	if ok, err := m.Satisfied(prefix); err != nil || !ok {
		t.Errorf("Satisfied after creation = %t, %v; want true, <nil>", ok, err)
	}
}

func TestAllOfMarker(t *testing.T) {
	prefix := t.TempDir()
	m := AllOf(FileExists("a"), FileExists("b"))

	if ok, _ := m.Satisfied(prefix); ok {
		t.Error("AllOf satisfied with no files present")
	}
	if err := osutil.WriteFilePerm(filepath.Join(prefix, "a"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.Satisfied(prefix); ok {
		t.Error("AllOf satisfied with one of two files present")
	}
	if err := osutil.WriteFilePerm(filepath.Join(prefix, "b"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := m.Satisfied(prefix); err != nil || !ok {
		t.Errorf("AllOf with all files present = %t, %v; want true, <nil>", ok, err)
	}

	// An empty AllOf never skips the stage.
	if ok, err := AllOf().Satisfied(prefix); err != nil || ok {
		t.Errorf("empty AllOf = %t, %v; want false, <nil>", ok, err)
	}
}

func TestHostStampMarker(t *testing.T) {
	prefix := t.TempDir()
	linux := triple.MustParse("x86_64-linux-gnu")
	mingw := triple.MustParse("x86_64-w64-mingw32")
	m := HostStamp(filepath.Join("deps", "gmp"), mingw).(*hostStamp)

	if ok, err := m.Satisfied(prefix); err != nil || ok {
		t.Errorf("Satisfied with no stamp = %t, %v; want false, <nil>", ok, err)
	}

	stamp := filepath.Join(prefix, m.StampFile())
	if err := os.MkdirAll(filepath.Dir(stamp), 0o755); err != nil {
		t.Fatal(err)
	}

	// A stamp recording a different host does not satisfy the marker.
	wrong := HostStamp(filepath.Join("deps", "gmp"), linux).(*hostStamp)
	if err := osutil.WriteFilePerm(stamp, wrong.StampContents(), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := m.Satisfied(prefix); err != nil || ok {
		t.Errorf("Satisfied with mismatched host stamp = %t, %v; want false, <nil>", ok, err)
	}

	if err := osutil.WriteFilePerm(stamp, m.StampContents(), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := m.Satisfied(prefix); err != nil || !ok {
		t.Errorf("Satisfied with matching host stamp = %t, %v; want true, <nil>", ok, err)
	}
}
