// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package triple

import "fmt"

// RoleCategory describes the relationship between the build, host,
// and target platforms of a toolchain.
type RoleCategory int

const (
	// Native toolchains are built on, run on,
	// and generate code for the same platform.
	Native RoleCategory = 1 + iota
	// Cross toolchains run where they are built
	// but generate code for a different hosted platform.
	Cross
	// Canadian toolchains run on a platform other than the one
	// they are built on, and target the platform they run on.
	Canadian
	// CanadianCross toolchains use three distinct platforms
	// for build, host, and target.
	CanadianCross
	// FreestandingCross toolchains generate code for a bare-metal
	// target with no operating system.
	FreestandingCross
)

// String returns the name of the category in configure-style spelling.
func (cat RoleCategory) String() string {
	switch cat {
	case Native:
		return "native"
	case Cross:
		return "cross"
	case Canadian:
		return "canadian"
	case CanadianCross:
		return "canadian-cross"
	case FreestandingCross:
		return "freestanding-cross"
	default:
		return fmt.Sprintf("RoleCategory(%d)", int(cat))
	}
}

// IsCanadian reports whether the toolchain runs on a platform
// other than the one it is built on.
func (cat RoleCategory) IsCanadian() bool {
	return cat == Canadian || cat == CanadianCross
}

// Classify determines the [RoleCategory] for a toolchain
// built on build, running on host, and generating code for target.
// It returns an error for combinations that no toolchain can satisfy,
// such as a freestanding host.
func Classify(build, host, target Triple) (RoleCategory, error) {
	if build.IsFreestanding() {
		return 0, fmt.Errorf("classify toolchain: build platform %v is freestanding", build)
	}
	if host.IsFreestanding() {
		return 0, fmt.Errorf("classify toolchain: host platform %v is freestanding", host)
	}
	if target.IsFreestanding() {
		if build != host {
			return 0, fmt.Errorf("classify toolchain: freestanding target %v requires build and host to match (build=%v host=%v)", target, build, host)
		}
		return FreestandingCross, nil
	}
	switch {
	case build == host && host == target:
		return Native, nil
	case build == host:
		return Cross, nil
	case host == target:
		return Canadian, nil
	default:
		return CanadianCross, nil
	}
}
