// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

// Package triple implements parsing and classification of GNU-style
// platform triples (architecture-vendor-os-abi).
package triple

import (
	"fmt"
	"runtime"
	"strings"
)

// Unknown is the conventional placeholder for a triple component
// that the spelling of a triple does not pin down.
const Unknown = "unknown"

// Triple identifies a platform that a toolchain is built on,
// runs on, or generates code for.
type Triple struct {
	Arch   Architecture
	Vendor Vendor
	OS     OS
	ABI    ABI
}

// Parse parses a triple string into a [Triple].
// If Parse does not return an error,
// it guarantees that every field of the Triple is filled in
// (absent components are filled with [Unknown]).
//
// Parse accepts the 2-, 3-, and 4-component spellings used by GNU
// configury: "arch-abi" for bare-metal targets,
// "arch-os-abi" or "arch-vendor-abi",
// and the full "arch-vendor-os-abi".
func Parse(s string) (Triple, error) {
	var parts [4]string
	var numParts int
	for part := range strings.SplitSeq(s, "-") {
		if numParts == cap(parts) {
			return Triple{}, fmt.Errorf("parse triple %q: trailing components after %s", s, parts[numParts-1])
		}
		parts[numParts] = part
		numParts++
	}
	for _, part := range parts[:numParts] {
		if part == "" {
			return Triple{}, fmt.Errorf("parse triple %q: empty component", s)
		}
	}
	switch numParts {
	case 1:
		return Triple{}, fmt.Errorf("parse triple %q: missing ABI", s)
	case 2:
		// arch-abi, e.g. "x86_64-elf".
		parts[1], parts[3] = "", parts[1]
	case 3:
		if OS(parts[1]).isKnown() {
			// arch-os-abi, e.g. "x86_64-linux-gnu".
			parts[1], parts[2], parts[3] = "", parts[1], parts[2]
		} else {
			// arch-vendor-abi.
			parts[2], parts[3] = "", parts[2]
		}
	}

	tr := Triple{
		Arch:   Architecture(parts[0]),
		Vendor: Vendor(parts[1]),
		OS:     OS(parts[2]),
		ABI:    ABI(parts[3]),
	}
	if !tr.Arch.isKnown() {
		return Triple{}, fmt.Errorf("parse triple %q: unknown architecture %q", s, parts[0])
	}
	if !tr.OS.IsUnknown() && !tr.OS.isKnown() {
		return Triple{}, fmt.Errorf("parse triple %q: unknown operating system %q", s, parts[2])
	}
	if tr.Vendor == "" {
		tr.Vendor = Unknown
	}
	if tr.OS == "" {
		tr.OS = Unknown
	}
	return tr, nil
}

// MustParse calls [Parse] and panics if it returns an error.
// It is intended for use with hard-coded triples in tests and catalogs.
func MustParse(s string) Triple {
	tr, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return tr
}

// String returns the canonical spelling of tr,
// which [Parse] maps back to tr.
// Components equal to [Unknown] are elided
// where the triple grammar permits.
func (tr Triple) String() string {
	switch {
	case tr.Vendor.IsUnknown() && tr.OS.IsUnknown():
		// Bare-metal shorthand, e.g. "x86_64-elf".
		return tr.Arch.String() + "-" + tr.ABI.String()
	case tr.Vendor.IsUnknown():
		return tr.Arch.String() + "-" + tr.OS.String() + "-" + tr.ABI.String()
	case tr.OS.IsUnknown():
		return tr.Arch.String() + "-" + tr.Vendor.String() + "-" + tr.ABI.String()
	default:
		return tr.Arch.String() + "-" + tr.Vendor.String() + "-" + tr.OS.String() + "-" + tr.ABI.String()
	}
}

// IsFreestanding reports whether tr names a bare-metal platform:
// one with no hosted operating system or C library.
func (tr Triple) IsFreestanding() bool {
	return tr.OS == "none" || tr.ABI.isBareMetal()
}

// IsWindows reports whether tr names a Windows platform.
func (tr Triple) IsWindows() bool {
	return tr.OS.IsWindows()
}

// IsLinux reports whether tr names a Linux platform.
func (tr Triple) IsLinux() bool {
	return tr.OS.IsLinux()
}

// NeedsMultilib reports whether a compiler targeting tr
// conventionally installs secondary runtime library variants
// (e.g. 32-bit libraries on a 64-bit x86 Linux target).
func (tr Triple) NeedsMultilib() bool {
	return tr.OS.IsLinux() && (tr.Arch.isX8664() || tr.Arch.isRISCV64())
}

// Current returns the [Triple] describing the current process's
// execution environment.
func Current() Triple {
	tr := Triple{Vendor: Unknown}
	switch runtime.GOARCH {
	case "386":
		tr.Arch = "i686"
	case "amd64":
		tr.Arch = "x86_64"
	case "arm":
		tr.Arch = "arm"
	case "arm64":
		tr.Arch = "aarch64"
	case "riscv64":
		tr.Arch = "riscv64"
	case "loong64":
		tr.Arch = "loongarch64"
	default:
		panic("unknown GOARCH=" + runtime.GOARCH)
	}
	switch runtime.GOOS {
	case "linux":
		tr.OS = "linux"
		tr.ABI = "gnu"
	case "windows":
		tr.OS = "w64"
		tr.ABI = "mingw32"
	default:
		panic("unknown GOOS=" + runtime.GOOS)
	}
	return tr
}
