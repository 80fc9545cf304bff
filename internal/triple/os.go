// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package triple

// OS is the operating system component of a [Triple],
// like "linux" or "w64".
// The token "none" marks an explicitly bare-metal triple.
type OS string

// IsUnknown reports whether os is empty or [Unknown].
func (os OS) IsUnknown() bool {
	return os == "" || os == Unknown
}

// isKnown reports whether os is a token that [Parse] recognizes
// as an operating system in the 3-component triple grammar.
func (os OS) isKnown() bool {
	return os.IsLinux() || os.IsWindows() || os == "none" || os == Unknown
}

// IsLinux reports whether os is Linux.
func (os OS) IsLinux() bool {
	return os == "linux"
}

// IsWindows reports whether os is a Windows flavor.
func (os OS) IsWindows() bool {
	return os == "w64" || os == "windows" || os == "mingw32"
}

// String returns string(os) or "unknown" if os is empty.
func (os OS) String() string {
	if os == "" {
		return Unknown
	}
	return string(os)
}
