// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"errors"
	"testing"

	"crossforge.dev/pkg/internal/triple"
)

func TestPrefixName(t *testing.T) {
	linux := triple.MustParse("x86_64-linux-gnu")
	riscv := triple.MustParse("riscv64-linux-gnu")
	mingw := triple.MustParse("x86_64-w64-mingw32")

	tests := []struct {
		role    triple.RoleCategory
		build   triple.Triple
		host    triple.Triple
		target  triple.Triple
		version string
		want    string
	}{
		{
			role: triple.Native, build: linux, host: linux, target: linux,
			version: "15.1.0",
			want:    "x86_64-linux-gnu-native-gcc15",
		},
		{
			role: triple.Cross, build: linux, host: linux, target: riscv,
			version: "15.1.0",
			want:    "x86_64-linux-gnu-host-riscv64-linux-gnu-target-gcc15",
		},
		{
			role: triple.Canadian, build: linux, host: mingw, target: mingw,
			version: "15.1.0",
			want:    "x86_64-w64-mingw32-native-gcc15",
		},
		{
			role: triple.CanadianCross, build: linux, host: mingw, target: riscv,
			version: "14.2.0",
			want:    "x86_64-w64-mingw32-host-riscv64-linux-gnu-target-gcc14",
		},
	}
	for _, test := range tests {
		got := PrefixName(test.role, test.build, test.host, test.target, test.version)
		if got != test.want {
			t.Errorf("PrefixName(%v, %v, %v, %v, %q) = %q; want %q",
				test.role, test.build, test.host, test.target, test.version, got, test.want)
		}
		// Determinism: the same inputs always yield the same name.
		if again := PrefixName(test.role, test.build, test.host, test.target, test.version); again != got {
			t.Errorf("PrefixName is not deterministic: %q then %q", got, again)
		}
	}
}

func TestResolveComponent(t *testing.T) {
	ws := NewWorkspace(t.TempDir(), t.TempDir())
	linux := triple.MustParse("x86_64-linux-gnu")
	mingw := triple.MustParse("x86_64-w64-mingw32")

	native, err := ws.NewEnvironment(triple.Native, linux, linux, linux, "15.1.0")
	if err != nil {
		t.Fatal(err)
	}
	canadian, err := ws.NewEnvironment(triple.Canadian, linux, mingw, mingw, "15.1.0")
	if err != nil {
		t.Fatal(err)
	}
	canadian.AddSibling(native)

	native.RegisterComponent("gmp", "/opt/native/gmp")
	if got, err := canadian.ResolveComponent("gmp"); err != nil || got != "/opt/native/gmp" {
		t.Errorf("ResolveComponent(\"gmp\") = %q, %v; want %q, <nil>", got, err, "/opt/native/gmp")
	}

	// A local registration shadows the sibling's.
	canadian.RegisterComponent("gmp", "/opt/canadian/gmp")
	if got, err := canadian.ResolveComponent("gmp"); err != nil || got != "/opt/canadian/gmp" {
		t.Errorf("after local registration, ResolveComponent(\"gmp\") = %q, %v; want %q, <nil>", got, err, "/opt/canadian/gmp")
	}

	_, err = canadian.ResolveComponent("expat")
	var depErr *DependencyError
	if !errors.As(err, &depErr) {
		t.Errorf("ResolveComponent(\"expat\") error = %v; want *DependencyError", err)
	}
	var notFound *ComponentNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("ResolveComponent(\"expat\") error = %v; want wrapped *ComponentNotFoundError", err)
	} else if notFound.Component != "expat" {
		t.Errorf("ComponentNotFoundError.Component = %q; want %q", notFound.Component, "expat")
	}
}

func TestWorkspacePrefixUniqueness(t *testing.T) {
	ws := NewWorkspace(t.TempDir(), t.TempDir())
	linux := triple.MustParse("x86_64-linux-gnu")
	mingw := triple.MustParse("x86_64-w64-mingw32")

	env1, err := ws.NewEnvironment(triple.Native, linux, linux, linux, "15.1.0")
	if err != nil {
		t.Fatal(err)
	}

	// The same platform combination resolves to the same instance.
	env2, err := ws.NewEnvironment(triple.Native, linux, linux, linux, "15.1.0")
	if err != nil {
		t.Fatal(err)
	}
	if env1 != env2 {
		t.Error("registering an identical combination created a second environment")
	}

	// A different combination mapping to the same name is rejected.
	_, err = ws.NewEnvironment(triple.Canadian, mingw, linux, linux, "15.1.0")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("conflicting registration error = %v; want *ConfigError", err)
	}
}
