// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnvOverlayMerge(t *testing.T) {
	tests := []struct {
		name    string
		overlay EnvOverlay
		base    []string
		want    []string
	}{
		{
			name: "Zero",
			base: []string{"PATH=/usr/bin", "HOME=/root"},
			want: []string{"HOME=/root", "PATH=/usr/bin"},
		},
		{
			name: "Replace",
			overlay: EnvOverlay{
				Set: map[string]string{"CC": "riscv64-linux-gnu-gcc", "HOME": "/build"},
			},
			base: []string{"PATH=/usr/bin", "HOME=/root"},
			want: []string{"CC=riscv64-linux-gnu-gcc", "HOME=/build", "PATH=/usr/bin"},
		},
		{
			name: "PathPrepend",
			overlay: EnvOverlay{
				PathPrepend: []string{"/opt/cross/bin", "/opt/native/bin"},
			},
			base: []string{"PATH=/usr/bin"},
			want: []string{"PATH=/opt/cross/bin:/opt/native/bin:/usr/bin"},
		},
		{
			name: "PathPrependEmptyBase",
			overlay: EnvOverlay{
				PathPrepend: []string{"/opt/cross/bin"},
			},
			want: []string{"PATH=/opt/cross/bin"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			base := append([]string(nil), test.base...)
			got := test.overlay.Merge(base)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Merge(%v) (-want +got):\n%s", test.base, diff)
			}
			// Merge is functional: the base is untouched.
			if diff := cmp.Diff(test.base, base); diff != "" {
				t.Errorf("Merge modified its input (-want +got):\n%s", diff)
			}
			// And pure: a second call yields the same result.
			if diff := cmp.Diff(got, test.overlay.Merge(base)); diff != "" {
				t.Errorf("Merge is not deterministic (-first +second):\n%s", diff)
			}
		})
	}
}

func TestTailWriter(t *testing.T) {
	w := newTailWriter(3)
	for _, chunk := range []string{"one\ntw", "o\nthree\nfour\n", "fi", "ve"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"three", "four", "five"}
	if diff := cmp.Diff(want, w.Lines()); diff != "" {
		t.Errorf("Lines() (-want +got):\n%s", diff)
	}
}
